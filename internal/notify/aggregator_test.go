package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

// fakeSources feeds the aggregator from plain channels, forwarding with the
// same cancellation semantics as the repository's change streams.
type fakeSources struct {
	chans map[domain.Kind]chan domain.Case
	fail  map[domain.Kind]error
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		chans: map[domain.Kind]chan domain.Case{
			domain.KindTicket:      make(chan domain.Case),
			domain.KindEstimate:    make(chan domain.Case),
			domain.KindAppointment: make(chan domain.Case),
		},
		fail: map[domain.Kind]error{},
	}
}

func (f *fakeSources) open(ctx context.Context, kind domain.Kind, window time.Duration, seedLimit int64) (<-chan domain.Case, error) {
	if err := f.fail[kind]; err != nil {
		return nil, err
	}
	in := f.chans[kind]
	out := make(chan domain.Case)
	go func() {
		defer close(out)
		for {
			select {
			case c, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func newTestAggregator(t *testing.T, f *fakeSources) *Aggregator {
	t.Helper()
	a := New(f.open, zap.NewNop().Sugar())
	a.Attach(context.Background())
	t.Cleanup(func() {
		for _, ch := range f.chans {
			close(ch)
		}
		a.Detach()
	})
	return a
}

func ticketAt(id string, createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		CaseBase: domain.CaseBase{
			ID:        id,
			Status:    domain.StatusOpen,
			Requester: domain.Requester{Name: "Luis Vega", Email: "luis@example.com"},
			CreatedAt: createdAt,
		},
		Category: "billing",
		Priority: "normal",
	}
}

func waitForFeed(t *testing.T, a *Aggregator, want int) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := a.Snapshot()
		if len(snap.Notifications) == want {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("feed length = %d, want %d", len(snap.Notifications), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewTicketProducesOneNotification(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	created := time.Now().UTC().Add(-2 * time.Minute)
	f.chans[domain.KindTicket] <- ticketAt("t1", created)

	snap := waitForFeed(t, a, 1)
	n := snap.Notifications[0]
	if n.Kind != domain.KindTicket || n.ID != "t1" {
		t.Fatalf("notification = %+v", n)
	}
	if n.Read {
		t.Fatal("new notification arrived already read")
	}
	if snap.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", snap.UnreadCount)
	}

	// A re-delivery of the same document (backfill overlapping the live
	// stream) must not create a second entry.
	f.chans[domain.KindTicket] <- ticketAt("t1", created)
	f.chans[domain.KindEstimate] <- &domain.Estimate{CaseBase: domain.CaseBase{ID: "e1", CreatedAt: time.Now().UTC()}}
	snap = waitForFeed(t, a, 2)
	tickets := 0
	for _, n := range snap.Notifications {
		if n.ID == "t1" {
			tickets++
		}
	}
	if tickets != 1 {
		t.Fatalf("t1 appears %d times in the feed: %+v", tickets, snap.Notifications)
	}
}

func TestStaleCreationIgnored(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	old := &domain.Appointment{CaseBase: domain.CaseBase{ID: "a-old", CreatedAt: time.Now().UTC().Add(-8 * 24 * time.Hour)}}
	fresh := &domain.Appointment{CaseBase: domain.CaseBase{ID: "a-new", CreatedAt: time.Now().UTC()}}
	f.chans[domain.KindAppointment] <- old
	f.chans[domain.KindAppointment] <- fresh

	snap := waitForFeed(t, a, 1)
	if snap.Notifications[0].ID != "a-new" {
		t.Fatalf("feed = %+v, want only the fresh appointment", snap.Notifications)
	}
}

func TestFeedBoundedAndSorted(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < FeedLimit+10; i++ {
		f.chans[domain.KindTicket] <- ticketAt(fmt.Sprintf("t%03d", i), base.Add(time.Duration(i)*time.Second))
	}

	snap := waitForFeed(t, a, FeedLimit)
	for i := 1; i < len(snap.Notifications); i++ {
		if snap.Notifications[i].CreatedAt.After(snap.Notifications[i-1].CreatedAt) {
			t.Fatalf("feed not sorted descending at %d", i)
		}
	}
	// The ten oldest entries were evicted, unread or not.
	if got := snap.Notifications[len(snap.Notifications)-1].ID; got != "t010" {
		t.Fatalf("oldest surviving entry = %s, want t010", got)
	}
	if snap.UnreadCount != FeedLimit {
		t.Fatalf("unread = %d, want %d", snap.UnreadCount, FeedLimit)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	now := time.Now().UTC()
	f.chans[domain.KindTicket] <- ticketAt("t1", now.Add(-time.Minute))
	f.chans[domain.KindTicket] <- ticketAt("t2", now)
	waitForFeed(t, a, 2)

	a.MarkRead("t1")
	snap := a.Snapshot()
	if snap.UnreadCount != 1 {
		t.Fatalf("unread = %d, want 1", snap.UnreadCount)
	}
	for _, n := range snap.Notifications {
		if n.ID == "t1" && !n.Read {
			t.Fatal("t1 still unread after MarkRead")
		}
		if n.ID == "t2" && n.Read {
			t.Fatal("MarkRead flipped more than one entry")
		}
	}

	a.MarkRead("missing")
	if got := a.Snapshot().UnreadCount; got != 1 {
		t.Fatalf("unread after marking missing id = %d, want 1", got)
	}
}

func TestMarkAllReadIdempotent(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		f.chans[domain.KindTicket] <- ticketAt(fmt.Sprintf("t%d", i), now.Add(time.Duration(i)*time.Second))
	}
	waitForFeed(t, a, 3)

	a.MarkAllRead()
	if got := a.Snapshot().UnreadCount; got != 0 {
		t.Fatalf("unread = %d, want 0", got)
	}
	a.MarkAllRead()
	if got := a.Snapshot().UnreadCount; got != 0 {
		t.Fatalf("unread after second MarkAllRead = %d, want 0", got)
	}
}

func TestFailedSourceDegradesSilently(t *testing.T) {
	f := newFakeSources()
	f.fail[domain.KindTicket] = errors.New("stream refused")
	a := newTestAggregator(t, f)

	f.chans[domain.KindEstimate] <- &domain.Estimate{CaseBase: domain.CaseBase{ID: "e1", CreatedAt: time.Now().UTC()}}
	snap := waitForFeed(t, a, 1)
	if snap.Notifications[0].Kind != domain.KindEstimate {
		t.Fatalf("notification = %+v", snap.Notifications[0])
	}
}

func TestDetachClosesUpdates(t *testing.T) {
	f := newFakeSources()
	a := New(f.open, zap.NewNop().Sugar())
	a.Attach(context.Background())

	f.chans[domain.KindTicket] <- ticketAt("t1", time.Now().UTC())
	waitForFeed(t, a, 1)

	a.Detach()
	for {
		if _, ok := <-a.Updates(); !ok {
			break
		}
	}
	// Idempotent.
	a.Detach()
	for _, ch := range f.chans {
		close(ch)
	}
}

func TestUpdatesCoalesce(t *testing.T) {
	f := newFakeSources()
	a := newTestAggregator(t, f)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		f.chans[domain.KindTicket] <- ticketAt(fmt.Sprintf("t%d", i), now.Add(time.Duration(i)*time.Second))
	}
	waitForFeed(t, a, 5)

	// Only the newest snapshot is retained for a slow reader.
	snap := <-a.Updates()
	if len(snap.Notifications) != 5 {
		t.Fatalf("coalesced snapshot has %d entries, want 5", len(snap.Notifications))
	}
}
