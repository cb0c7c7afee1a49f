package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/90brandingllc/poveda-portal-sub001/internal/auth"
	"github.com/90brandingllc/poveda-portal-sub001/internal/hub"
	"github.com/90brandingllc/poveda-portal-sub001/internal/notify"
)

const sessionTTL = 24 * time.Hour

type wsCommand struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// notificationsWS runs one admin notification session: its own aggregator,
// its own feed, its own read state. Everything here dies with the socket.
func (s *Server) notificationsWS(conn *websocket.Conn) {
	defer conn.Close()
	claims, ok := conn.Locals("claims").(*auth.Claims)
	if !ok {
		return
	}

	sessionID := uuid.NewString()
	client := hub.NewClient(sessionID, claims.UserID)
	s.hub.Add(client)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.pres.AddSession(ctx, claims.UserID, sessionID, sessionTTL); err != nil {
		s.log.Warnw("presence register failed", "admin", claims.UserID, "err", err)
	}

	agg := notify.New(s.store.WatchInserts, s.log)
	agg.Attach(ctx)

	// Snapshot forwarder: aggregator -> per-session outbox.
	go func() {
		for snap := range agg.Updates() {
			if payload, err := json.Marshal(snap); err == nil {
				client.Send(payload)
			}
		}
		client.Close()
	}()

	// Write pump: outbox -> socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range client.Outbox() {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	if payload, err := json.Marshal(agg.Snapshot()); err == nil {
		client.Send(payload)
	}

	// Read loop: read-state commands until the socket drops.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "mark_read":
			agg.MarkRead(cmd.ID)
		case "mark_all_read":
			agg.MarkAllRead()
		}
	}

	cancel()
	agg.Detach()
	<-done
	s.hub.Remove(sessionID)
	if err := s.pres.RemoveSession(context.Background(), claims.UserID, sessionID); err != nil {
		s.log.Warnw("presence deregister failed", "admin", claims.UserID, "err", err)
	}
}

// caseListWS re-delivers the full case list for one kind on every change.
func (s *Server) caseListWS(conn *websocket.Conn) {
	defer conn.Close()
	kind, err := parseKind(conn.Params("kind"))
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lists, err := s.store.WatchList(ctx, kind)
	if err != nil {
		s.log.Warnw("case list stream unavailable", "kind", kind, "err", err)
		_ = conn.WriteJSON(map[string]string{"error": "subscription unavailable"})
		return
	}

	// Drain reads so we notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for list := range lists {
		if err := conn.WriteJSON(list); err != nil {
			return
		}
	}
}
