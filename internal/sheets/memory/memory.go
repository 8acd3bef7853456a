// Package memory is an in-process record backend, seeded with reference
// lists from plain text files.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"keswan/internal/core"
	"keswan/internal/sheets"
)

// SeedFiles maps each reference list to its seed file name.
var SeedFiles = map[sheets.ReferenceList]string{
	sheets.Facilities: "seed_facilities.txt",
	sheets.Officers:   "seed_officers.txt",
	sheets.Villages:   "seed_villages.txt",
}

var defaultFacilities = []string{"Puskeswan Kota", "Puskeswan Utara", "Puskeswan Selatan"}

type Store struct {
	mu      sync.RWMutex
	refs    map[sheets.ReferenceList][]string
	records map[string]core.RawRecord
}

var _ sheets.Store = (*Store)(nil)

func New(refs map[sheets.ReferenceList][]string) *Store {
	s := &Store{
		refs:    make(map[sheets.ReferenceList][]string, len(refs)),
		records: make(map[string]core.RawRecord),
	}
	for list, values := range refs {
		s.refs[list] = Dedupe(values)
	}
	return s
}

// NewFromFiles seeds reference lists from base/seed_*.txt. A missing
// facilities file falls back to a small default list.
func NewFromFiles(base string) *Store {
	refs := make(map[sheets.ReferenceList][]string, len(SeedFiles))
	for list, name := range SeedFiles {
		refs[list] = ReadSeedFile(filepath.Join(base, name))
	}
	if len(refs[sheets.Facilities]) == 0 {
		refs[sheets.Facilities] = defaultFacilities
	}
	return New(refs)
}

// Create stores the record under a fresh id unless it already has one.
func (s *Store) Create(_ context.Context, r core.ServiceRecord) (core.ServiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if _, exists := s.records[r.ID]; exists {
		return core.ServiceRecord{}, fmt.Errorf("record %s already exists", r.ID)
	}
	s.records[r.ID] = toRaw(r)
	return r, nil
}

func (s *Store) Replace(_ context.Context, r core.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, r.ID)
	}
	s.records[r.ID] = toRaw(r)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) GetRaw(_ context.Context, id string) (core.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.records[id]
	if !ok {
		return core.RawRecord{}, fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return raw, nil
}

// ListRaw returns every record ordered by service date, then id.
func (s *Store) ListRaw(_ context.Context) ([]core.RawRecord, error) {
	s.mu.RLock()
	out := make([]core.RawRecord, 0, len(s.records))
	for _, raw := range s.records {
		out = append(out, raw)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].StoredAt.Before(out[j].StoredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) References(_ context.Context, list sheets.ReferenceList) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.refs[list]...), nil
}

// Documents are rebuilt from the record on every write, so callers never
// share maps with the store.
func toRaw(r core.ServiceRecord) core.RawRecord {
	return core.RawRecord{ID: r.ID, StoredAt: r.Date.Time, Fields: r.Fields()}
}

// ReadSeedFile returns the non-empty, non-comment lines of path, deduplicated
// in file order. A missing file yields nil.
func ReadSeedFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return Dedupe(out)
}

// Dedupe trims values and drops blanks and repeats, preserving order.
func Dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
