// Package repository translates workflow decisions into atomic Mongo
// operations over the three case collections and exposes push-based
// subscriptions on top of change streams.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
	"github.com/90brandingllc/poveda-portal-sub001/internal/workflow"
)

var ErrNotFound = errors.New("case not found")

const (
	colTickets      = "tickets"
	colEstimates    = "estimates"
	colAppointments = "appointments"
)

type Store struct {
	db  *mongo.Database
	log *zap.SugaredLogger
}

func NewStore(db *mongo.Database, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

func collectionName(kind domain.Kind) string {
	switch kind {
	case domain.KindTicket:
		return colTickets
	case domain.KindEstimate:
		return colEstimates
	case domain.KindAppointment:
		return colAppointments
	}
	return ""
}

func (s *Store) collection(kind domain.Kind) *mongo.Collection {
	return s.db.Collection(collectionName(kind))
}

func newCase(kind domain.Kind) (domain.Case, error) {
	switch kind {
	case domain.KindTicket:
		return &domain.Ticket{}, nil
	case domain.KindEstimate:
		return &domain.Estimate{}, nil
	case domain.KindAppointment:
		return &domain.Appointment{}, nil
	}
	return nil, fmt.Errorf("unknown case kind %q", kind)
}

func decodeRaw(kind domain.Kind, raw bson.Raw) (domain.Case, error) {
	c, err := newCase(kind)
	if err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return c, nil
}

// Insert stores a freshly created case, stamping id, timestamps and the
// initial status for its kind.
func (s *Store) Insert(ctx context.Context, c domain.Case) error {
	base := c.Base()
	now := time.Now().UTC()
	if base.ID == "" {
		base.ID = primitive.NewObjectID().Hex()
	}
	if base.Status == "" {
		base.Status = domain.InitialStatus(c.Kind())
	}
	base.CreatedAt = now
	base.LastUpdated = now
	if base.Messages == nil {
		base.Messages = []domain.Message{}
	}
	if _, err := s.collection(c.Kind()).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert %s: %w", c.Kind(), err)
	}
	return nil
}

// Get loads one case by id.
func (s *Store) Get(ctx context.Context, kind domain.Kind, id string) (domain.Case, error) {
	c, err := newCase(kind)
	if err != nil {
		return nil, err
	}
	if err := s.collection(kind).FindOne(ctx, bson.M{"_id": id}).Decode(c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return c, nil
}

// List returns every case of one kind, most recently active first.
func (s *Store) List(ctx context.Context, kind domain.Kind) ([]domain.Case, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}})
	cur, err := s.collection(kind).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer cur.Close(ctx)

	var out []domain.Case
	for cur.Next(ctx) {
		c, err := decodeRaw(kind, cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// updateDoc builds the single atomic update for a workflow decision. The
// message rides in $push so concurrent appenders from different sessions
// never overwrite each other; status and extra fields are plain $set
// overwrites (last write wins, there is no version token on a case).
func updateDoc(dec workflow.Decision, now time.Time) bson.M {
	set := bson.M{"last_updated": now}
	if dec.Status != "" {
		set["status"] = dec.Status
	}
	for k, v := range dec.Fields {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if dec.Message != nil {
		update["$push"] = bson.M{"messages": *dec.Message}
	}
	return update
}

// ApplyUpdate commits a workflow decision as one update request. A combined
// transition+reply is therefore atomic: either both land or neither does.
func (s *Store) ApplyUpdate(ctx context.Context, kind domain.Kind, id string, dec workflow.Decision) error {
	if !dec.Changed() {
		return nil
	}
	res, err := s.collection(kind).UpdateByID(ctx, id, updateDoc(dec, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends one message to a case thread.
func (s *Store) AppendMessage(ctx context.Context, kind domain.Kind, id string, msg domain.Message) error {
	return s.ApplyUpdate(ctx, kind, id, workflow.Decision{Message: &msg})
}

// SetStatus overwrites a case's status and any extra fields.
func (s *Store) SetStatus(ctx context.Context, kind domain.Kind, id string, status domain.Status, extra map[string]any) error {
	return s.ApplyUpdate(ctx, kind, id, workflow.Decision{Status: status, Fields: extra})
}

// Delete permanently removes a case and its embedded thread. There is no
// undo and no compensating write.
func (s *Store) Delete(ctx context.Context, kind domain.Kind, id string) error {
	res, err := s.collection(kind).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
