package fonts

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Store persists which font files back which (family, weight) pairs, so
// downloaded fonts are reused across restarts.
type Store struct {
	filePath string
	data     map[string]*Entry
	mu       sync.RWMutex
}

// Entry stores where one registered face came from
type Entry struct {
	Family string `json:"family"`
	Weight Weight `json:"weight"`
	Path   string `json:"path"`
	Source string `json:"source"` // dir, download, system
}

// NewStore opens a catalog file. An empty path keeps the catalog in memory.
func NewStore(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		data:     make(map[string]*Entry),
	}

	if filePath == "" {
		return s, nil
	}
	if err := s.load(); err != nil {
		// If file doesn't exist, that's okay - we'll create it on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load font catalog: %w", err)
		}
	}

	return s, nil
}

// Put records an entry, replacing any previous one for the same key.
func (s *Store) Put(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[storeKey(e.Family, e.Weight)] = &e
	return s.save()
}

// Get returns a copy of the entry for a family and weight.
func (s *Store) Get(family string, weight Weight) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[storeKey(family, weight)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Remove deletes an entry, typically one whose file has gone missing.
func (s *Store) Remove(family string, weight Weight) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(family, weight)
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	// A failed save is non-critical, the entry is gone from memory either way
	_ = s.save()
	return true
}

// All returns every entry sorted by family then weight.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Family != result[j].Family {
			return result[i].Family < result[j].Family
		}
		return result[i].Weight < result[j].Weight
	})
	return result
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &s.data)
}

func (s *Store) save() error {
	if s.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

func storeKey(family string, weight Weight) string {
	return fmt.Sprintf("%s:%d", family, weight)
}
