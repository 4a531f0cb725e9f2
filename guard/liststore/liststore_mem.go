package liststore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
)

type MemListStore struct {
	lk   sync.RWMutex
	data map[string][]string
}

var _ ListStore = (*MemListStore)(nil)

func NewMemListStore() *MemListStore {
	return &MemListStore{
		data: make(map[string][]string),
	}
}

func (s *MemListStore) Get(ctx context.Context, key string) ([]string, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return []string{}, nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemListStore) Add(ctx context.Context, key string, terms []string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v := append(s.data[key], terms...)
	s.data[key] = dedupeStrings(v)
	return nil
}

// does not error if terms not in list
func (s *MemListStore) Remove(ctx context.Context, key string, terms []string) error {
	if len(terms) == 0 {
		return nil
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	m := make(map[string]bool, len(s.data[key]))
	for _, t := range s.data[key] {
		m[t] = true
	}
	for _, t := range terms {
		delete(m, t)
	}
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	s.data[key] = out
	return nil
}

// LoadFromFileJSON seeds blocklists from a JSON file mapping community DID to
// term list, for local development and testing.
func (s *MemListStore) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	for key, l := range lists {
		s.data[key] = dedupeStrings(l)
	}
	return nil
}

func dedupeStrings(in []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
