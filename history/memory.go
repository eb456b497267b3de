package history

import (
	"context"
	"sort"
	"sync"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// MemoryStore is an in-process Store, used by cp-explain and tests.
type MemoryStore struct {
	sync.RWMutex
	series map[schema.OCID][]schema.Record
	// Limit truncates every response to at most Limit records, like a
	// store that answers from a coarser retention would. 0 means no limit.
	Limit int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		series: make(map[schema.OCID][]schema.Record),
	}
}

// Add stores records, keeping the series ordered by timestamp.
func (m *MemoryStore) Add(id schema.OCID, records ...schema.Record) {
	m.Lock()
	s := append(m.series[id], records...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
	m.series[id] = s
	m.Unlock()
}

// Last returns the newest record of the series.
func (m *MemoryStore) Last(id schema.OCID) (schema.Record, bool) {
	m.RLock()
	defer m.RUnlock()
	s := m.series[id]
	if len(s) == 0 {
		return schema.Record{}, false
	}
	return s[len(s)-1], true
}

// Write adds values to their series.
func (m *MemoryStore) Write(ctx context.Context, values []msg.Value) error {
	for _, v := range values {
		m.Add(v.OCID, schema.Record{Timestamp: v.Timestamp, Data: v.Data})
	}
	return nil
}

func (m *MemoryStore) Remove(ids ...schema.OCID) {
	m.Lock()
	for _, id := range ids {
		delete(m.series, id)
	}
	m.Unlock()
}

func (m *MemoryStore) Fetch(ctx context.Context, req msg.FetchRequest) (msg.FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return msg.FetchResponse{}, err
	}
	m.RLock()
	s := m.series[req.ID]
	var window []schema.Record
	if req.Position {
		end := len(s) - int(req.Shift)
		start := end - int(req.Count)
		if start < 0 {
			start = 0
		}
		if end > 0 {
			window = s[start:end]
		}
	} else {
		start := sort.Search(len(s), func(i int) bool { return s[i].Timestamp >= req.Shift })
		end := sort.Search(len(s), func(i int) bool { return s[i].Timestamp > req.Count })
		window = s[start:end]
	}
	out := make([]schema.Record, len(window))
	copy(out, window)
	m.RUnlock()

	gotAll := !req.Position || int64(len(out)) == req.Count
	if m.Limit > 0 && len(out) > m.Limit {
		out = out[len(out)-m.Limit:]
		gotAll = false
	}
	return msg.FetchResponse{Records: out, GotAll: gotAll}, nil
}
