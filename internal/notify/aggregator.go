// Package notify aggregates case-creation events from the three collections
// into a single bounded, time-ordered feed. One Aggregator serves one admin
// session; the feed and its read flags live only in memory and die with the
// session.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

const (
	// Window is the trailing lookback bounding which creations are eligible.
	Window = 7 * 24 * time.Hour
	// SeedLimit caps the backfill per source at subscription time.
	SeedLimit = 10
	// FeedLimit caps the merged feed; older entries are evicted, read or not.
	FeedLimit = 50
)

// SourceFunc opens an insert-only case stream for one kind. The repository's
// WatchInserts satisfies it; tests feed plain channels.
type SourceFunc func(ctx context.Context, kind domain.Kind, window time.Duration, seedLimit int64) (<-chan domain.Case, error)

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type Aggregator struct {
	source SourceFunc
	log    *zap.SugaredLogger

	mu       sync.Mutex
	feed     []domain.Notification
	unread   int
	detached bool

	updates chan Snapshot
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(source SourceFunc, log *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		source:  source,
		log:     log,
		updates: make(chan Snapshot, 1),
	}
}

// Attach opens the three subscriptions. A source that cannot be established
// is logged and skipped; the remaining sources keep contributing on their
// own. There is no retry, only a fresh Attach on a new session.
func (a *Aggregator) Attach(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	for _, kind := range []domain.Kind{domain.KindTicket, domain.KindEstimate, domain.KindAppointment} {
		ch, err := a.source(ctx, kind, Window, SeedLimit)
		if err != nil {
			a.log.Warnw("notification source unavailable", "kind", kind, "err", err)
			continue
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for c := range ch {
				a.ingest(c)
			}
		}()
	}
}

// Detach tears the subscriptions down and closes the updates channel. No
// snapshot is emitted afterwards.
func (a *Aggregator) Detach() {
	a.mu.Lock()
	if a.detached {
		a.mu.Unlock()
		return
	}
	a.detached = true
	a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	close(a.updates)
}

// Updates delivers the latest snapshot after each change. The channel
// coalesces: a slow reader only ever sees the newest state.
func (a *Aggregator) Updates() <-chan Snapshot {
	return a.updates
}

func (a *Aggregator) ingest(c domain.Case) {
	base := c.Base()
	if time.Since(base.CreatedAt) > Window {
		return
	}
	n := fromCase(c)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}
	for _, existing := range a.feed {
		if existing.ID == n.ID {
			return
		}
	}
	a.feed = append(a.feed, n)
	sort.SliceStable(a.feed, func(i, j int) bool {
		return a.feed[i].CreatedAt.After(a.feed[j].CreatedAt)
	})
	if len(a.feed) > FeedLimit {
		a.feed = a.feed[:FeedLimit]
	}
	a.recount()
	a.publish()
}

// MarkRead flips one entry's read flag. It is local to this session; no
// other session's feed is affected.
func (a *Aggregator) MarkRead(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}
	changed := false
	for i := range a.feed {
		if a.feed[i].ID == id && !a.feed[i].Read {
			a.feed[i].Read = true
			changed = true
			break
		}
	}
	if changed {
		a.recount()
		a.publish()
	}
}

// MarkAllRead flips every entry and zeroes the unread count. Calling it
// again is a no-op.
func (a *Aggregator) MarkAllRead() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detached {
		return
	}
	changed := false
	for i := range a.feed {
		if !a.feed[i].Read {
			a.feed[i].Read = true
			changed = true
		}
	}
	if changed {
		a.recount()
		a.publish()
	}
}

// Snapshot returns a copy of the current feed and unread count.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	feed := make([]domain.Notification, len(a.feed))
	copy(feed, a.feed)
	return Snapshot{Notifications: feed, UnreadCount: a.unread}
}

func (a *Aggregator) recount() {
	n := 0
	for _, entry := range a.feed {
		if !entry.Read {
			n++
		}
	}
	a.unread = n
}

// publish replaces any undelivered snapshot with the newest one. The channel
// is buffered and this is the only writer (always under mu), so the send
// cannot block.
func (a *Aggregator) publish() {
	select {
	case <-a.updates:
	default:
	}
	a.updates <- a.snapshotLocked()
}

func fromCase(c domain.Case) domain.Notification {
	base := c.Base()
	n := domain.Notification{
		ID:        base.ID,
		Kind:      c.Kind(),
		CreatedAt: base.CreatedAt,
		Source:    c,
	}
	switch v := c.(type) {
	case *domain.Ticket:
		n.Title = "New Support Ticket"
		n.Content = fmt.Sprintf("%s opened a %s ticket", base.Requester.Name, v.Category)
	case *domain.Estimate:
		n.Title = "New Estimate Request"
		n.Content = fmt.Sprintf("%s requested a price estimate", base.Requester.Name)
	case *domain.Appointment:
		n.Title = "New Appointment Request"
		n.Content = fmt.Sprintf("%s booked %s", base.Requester.Name, v.ServicePackage)
	}
	return n
}
