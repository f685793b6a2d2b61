package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/tabula/pkg/evidence"
	"mercator-hq/tabula/pkg/evidence/query"
)

// MemoryStorage implements evidence.Storage in memory. Records are lost on
// restart; use it for tests and for short-lived CLI runs.
type MemoryStorage struct {
	records map[string]*evidence.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query retrieves evidence records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	qc := *q
	if err := query.Validate(&qc); err != nil {
		return nil, err
	}
	query.ApplyDefaults(&qc)

	s.mu.RLock()
	results := []*evidence.Record{}
	for _, record := range s.records {
		if matches(record, &qc) {
			results = append(results, copyRecord(record))
		}
	}
	s.mu.RUnlock()

	sortRecords(results, qc.SortBy, qc.SortOrder)

	if qc.Offset >= len(results) {
		return []*evidence.Record{}, nil
	}
	end := qc.Offset + qc.Limit
	if end > len(results) {
		end = len(results)
	}
	return results[qc.Offset:end], nil
}

// QueryStream streams the result of Query over a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	records, err := s.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()
	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matches(record, q) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matches(record, q) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(r *evidence.Record, q *evidence.Query) bool {
	if q.StartTime != nil && r.EvaluatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.EvaluatedAt.After(*q.EndTime) {
		return false
	}
	if q.Table != "" && r.Table != q.Table {
		return false
	}
	if q.TableVersion != "" && r.TableVersion != q.TableVersion {
		return false
	}
	if q.BatchID != "" && r.BatchID != q.BatchID {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Source != "" && r.Source != q.Source {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

func sortRecords(records []*evidence.Record, by, order string) {
	less := func(a, b *evidence.Record) int {
		switch by {
		case "recorded_at":
			return a.RecordedAt.Compare(b.RecordedAt)
		case "table":
			return strings.Compare(a.Table, b.Table)
		case "duration":
			return cmpInt64(int64(a.Duration), int64(b.Duration))
		default:
			return a.EvaluatedAt.Compare(b.EvaluatedAt)
		}
	}
	desc := order == "desc"
	sort.SliceStable(records, func(i, j int) bool {
		c := less(records[i], records[j])
		if c == 0 {
			return records[i].ID < records[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyRecord(r *evidence.Record) *evidence.Record {
	c := *r
	if r.Fired != nil {
		c.Fired = append([]int(nil), r.Fired...)
	}
	if r.Output != nil {
		c.Output = append([]byte(nil), r.Output...)
	}
	return &c
}
