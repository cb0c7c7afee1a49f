package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/90brandingllc/poveda-portal-sub001/internal/domain"
)

// WatchInserts opens an insert-only stream for one case kind, seeded with
// the newest documents already inside the trailing window (at most seedLimit
// of them, newest first). The channel closes when the stream errors or the
// context is cancelled; a mid-stream failure is logged and the source simply
// goes quiet, per the best-effort notification contract.
func (s *Store) WatchInserts(ctx context.Context, kind domain.Kind, window time.Duration, seedLimit int64) (<-chan domain.Case, error) {
	col := s.collection(kind)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	stream, err := col.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-window)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(seedLimit)
	cur, err := col.Find(ctx, bson.M{"created_at": bson.M{"$gte": cutoff}}, opts)
	if err != nil {
		stream.Close(context.Background())
		return nil, err
	}
	var seed []domain.Case
	for cur.Next(ctx) {
		c, err := decodeRaw(kind, cur.Current)
		if err != nil {
			cur.Close(ctx)
			stream.Close(context.Background())
			return nil, err
		}
		seed = append(seed, c)
	}
	cur.Close(ctx)

	out := make(chan domain.Case)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for _, c := range seed {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}

		for stream.Next(ctx) {
			var ev struct {
				FullDocument bson.Raw `bson:"fullDocument"`
			}
			if err := stream.Decode(&ev); err != nil {
				s.log.Warnw("insert stream decode failed", "kind", kind, "err", err)
				return
			}
			c, err := decodeRaw(kind, ev.FullDocument)
			if err != nil {
				s.log.Warnw("insert stream document skipped", "kind", kind, "err", err)
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			s.log.Warnw("insert stream ended", "kind", kind, "err", err)
		}
	}()
	return out, nil
}

// WatchList re-delivers the complete, last_updated-ordered case list on
// every underlying change. List views re-render from whole snapshots rather
// than patching deltas, so this is deliberately not an insert-only stream.
func (s *Store) WatchList(ctx context.Context, kind domain.Kind) (<-chan []domain.Case, error) {
	stream, err := s.collection(kind).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, err
	}

	out := make(chan []domain.Case)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		deliver := func() bool {
			list, err := s.List(ctx, kind)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warnw("list re-query failed", "kind", kind, "err", err)
				}
				return false
			}
			select {
			case out <- list:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !deliver() {
			return
		}
		for stream.Next(ctx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			s.log.Warnw("list stream ended", "kind", kind, "err", err)
		}
	}()
	return out, nil
}
