// Package blacklist maintains the persistent set of domains disqualified
// after repeated fetch failures. The store is loaded once at run start,
// updated through a mutex (single-writer discipline) while batches are in
// flight, and persisted with an atomic replace at run end.
package blacklist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// Store is a threshold-based domain blacklist backed by a JSON file. The
// file maps domain -> {"failures": n, "last_failure": RFC3339}. A domain
// whose failure count reaches the threshold is blacklisted until removed
// manually; a successful fetch never resets the counter.
type Store struct {
	path      string
	threshold int

	mu      sync.Mutex
	records map[string]*domain.DomainRecord
}

// Open loads the store from path, creating an empty one when the file does
// not exist yet. An unreadable or malformed file is a hard error so a run
// never silently starts with half the blacklist missing.
func Open(path string, threshold int) (*Store, error) {
	s := &Store{
		path:      path,
		threshold: threshold,
		records:   make(map[string]*domain.DomainRecord),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read blacklist %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parse blacklist %s: %w", path, err)
	}
	return s, nil
}

// Save writes the store to disk via a temp file and rename so a crash mid
// write cannot corrupt the previous blacklist.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create blacklist dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blacklist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether domain has crossed the failure threshold.
func (s *Store) IsBlacklisted(dom string) bool {
	dom = strings.ToLower(dom)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[dom]
	return ok && rec.Failures >= s.threshold
}

// RecordFailure increments the failure counter for domain and reports
// whether this failure pushed it over the threshold.
func (s *Store) RecordFailure(dom string) (newlyBlacklisted bool) {
	dom = strings.ToLower(dom)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[dom]
	if !ok {
		rec = &domain.DomainRecord{}
		s.records[dom] = rec
	}
	rec.Failures++
	rec.LastFailure = time.Now().UTC()
	return rec.Failures == s.threshold
}

// Remove clears a domain's record, re-admitting it to future candidate
// sets. This is the manual escape hatch; there is no automatic exit.
func (s *Store) Remove(dom string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, strings.ToLower(dom))
}

// Blacklisted returns the domains currently over the threshold, sorted so
// summaries and logs are stable across runs.
func (s *Store) Blacklisted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for dom, rec := range s.records {
		if rec.Failures >= s.threshold {
			out = append(out, dom)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of all records, for diagnostics and tests.
func (s *Store) Snapshot() map[string]domain.DomainRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.DomainRecord, len(s.records))
	for dom, rec := range s.records {
		out[dom] = *rec
	}
	return out
}
