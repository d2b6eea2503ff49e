// Package overlap answers the one query the policy engine and the
// timeline renderer share: which reservations intersect a half-open
// time window on at least one of the given reservables.
package overlap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tessera/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seq is a lazily-consumed reservation sequence, strictly ordered by
// (start, end). The order is a hard precondition of the timeline
// sweep, not an optimization. Restart by re-issuing the query.
type Seq interface {
	Next(ctx context.Context) bool
	Reservation() models.Reservation
	Err() error
	Close(ctx context.Context) error
}

// Store is the reservation-store contract the core depends on.
type Store interface {
	// FindOverlapping returns reservations r with
	// r.Start < end && r.End > start sharing at least one id with
	// reservableIDs, ordered by (start, end) ascending. excludeID,
	// when non-empty, drops that reservation (update-in-place checks).
	FindOverlapping(ctx context.Context, start, end time.Time, reservableIDs []string, excludeID string) (Seq, error)
}

// Intersects reports whether the half-open intervals [aStart, aEnd)
// and [bStart, bEnd) overlap. Boundary touching is not overlapping.
func Intersects(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// SharedReservables returns the sorted set of candidate ids attached
// to at least one of the given reservations.
func SharedReservables(reservations []models.Reservation, candidates []string) []string {
	candidate := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		candidate[id] = true
	}
	seen := make(map[string]bool)
	var shared []string
	for _, res := range reservations {
		for _, id := range res.Reservables {
			if candidate[id] && !seen[id] {
				seen[id] = true
				shared = append(shared, id)
			}
		}
	}
	sort.Strings(shared)
	return shared
}

// Collect drains a sequence. The policy engine uses it; the timeline
// sweep consumes sequences incrementally instead.
func Collect(ctx context.Context, seq Seq) ([]models.Reservation, error) {
	defer seq.Close(ctx)
	var out []models.Reservation
	for seq.Next(ctx) {
		out = append(out, seq.Reservation())
	}
	if err := seq.Err(); err != nil {
		return nil, fmt.Errorf("overlap query: %w", err)
	}
	return out, nil
}

// ---------- Mongo-backed store ----------

type MongoStore struct {
	Coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{Coll: coll}
}

func (s *MongoStore) FindOverlapping(ctx context.Context, start, end time.Time, reservableIDs []string, excludeID string) (Seq, error) {
	if len(reservableIDs) == 0 {
		return emptySeq{}, nil
	}

	filter := bson.M{
		"start":       bson.M{"$lt": end},
		"end":         bson.M{"$gt": start},
		"reservables": bson.M{"$in": reservableIDs},
	}
	if excludeID != "" {
		filter["reservationid"] = bson.M{"$ne": excludeID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "end", Value: 1}})
	cur, err := s.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("overlap query: %w", err)
	}
	return &cursorSeq{cur: cur}, nil
}

type cursorSeq struct {
	cur     *mongo.Cursor
	current models.Reservation
	err     error
}

func (s *cursorSeq) Next(ctx context.Context) bool {
	if !s.cur.Next(ctx) {
		return false
	}
	if err := s.cur.Decode(&s.current); err != nil {
		s.err = err
		return false
	}
	return true
}

func (s *cursorSeq) Reservation() models.Reservation { return s.current }

func (s *cursorSeq) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.cur.Err()
}

func (s *cursorSeq) Close(ctx context.Context) error { return s.cur.Close(ctx) }

type emptySeq struct{}

func (emptySeq) Next(context.Context) bool       { return false }
func (emptySeq) Reservation() models.Reservation { return models.Reservation{} }
func (emptySeq) Err() error                      { return nil }
func (emptySeq) Close(context.Context) error     { return nil }

// ---------- In-memory store ----------

// SliceSeq adapts a slice to Seq. Used by tests and by in-memory
// stores; it does not re-sort, callers hand it ordered data.
type SliceSeq struct {
	items []models.Reservation
	pos   int
}

func NewSliceSeq(items []models.Reservation) *SliceSeq {
	return &SliceSeq{items: items, pos: -1}
}

func (s *SliceSeq) Next(context.Context) bool {
	s.pos++
	return s.pos < len(s.items)
}

func (s *SliceSeq) Reservation() models.Reservation { return s.items[s.pos] }
func (s *SliceSeq) Err() error                      { return nil }
func (s *SliceSeq) Close(context.Context) error     { return nil }

// MemoryStore filters and orders in memory. It exists for tests and
// mirrors the Mongo store's contract exactly.
type MemoryStore struct {
	Reservations []models.Reservation
}

func (m *MemoryStore) FindOverlapping(ctx context.Context, start, end time.Time, reservableIDs []string, excludeID string) (Seq, error) {
	if len(reservableIDs) == 0 {
		return emptySeq{}, nil
	}
	wanted := make(map[string]bool, len(reservableIDs))
	for _, id := range reservableIDs {
		wanted[id] = true
	}

	var hits []models.Reservation
	for _, r := range m.Reservations {
		if r.ReservationID == excludeID {
			continue
		}
		if !Intersects(r.Start, r.End, start, end) {
			continue
		}
		for _, id := range r.Reservables {
			if wanted[id] {
				hits = append(hits, r)
				break
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].Start.Equal(hits[j].Start) {
			return hits[i].Start.Before(hits[j].Start)
		}
		return hits[i].End.Before(hits[j].End)
	})
	return NewSliceSeq(hits), nil
}
