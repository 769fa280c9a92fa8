package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
)

// ErrNoStore is returned by persistence operations when the engine was built
// without a tether directory.
var ErrNoStore = errors.New("engine: session persistence is disabled")

// SessionRecord is the persisted form of a session: its identity plus the
// full conversation.
type SessionRecord struct {
	ID      string     `json:"id"`
	Agent   string     `json:"agent"`
	Created time.Time  `json:"created"`
	Updated time.Time  `json:"updated"`
	Chat    *chat.Chat `json:"chat"`
}

// Store persists sessions as one JSON file each under a directory. Files are
// named <id>.json. Create one with NewStore; the zero value has no directory
// to write to.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory session files are written to.
func (s *Store) Dir() string { return s.dir }

// Save writes the record, replacing any previous version of the session.
func (s *Store) Save(rec SessionRecord) error {
	if err := validateSessionID(rec.ID); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("engine: session store: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: session %s: encode: %w", rec.ID, err)
	}

	if err := os.WriteFile(s.path(rec.ID), data, 0o600); err != nil {
		return fmt.Errorf("engine: session %s: write: %w", rec.ID, err)
	}

	return nil
}

// Load reads one session record by ID.
func (s *Store) Load(id string) (SessionRecord, error) {
	if err := validateSessionID(id); err != nil {
		return SessionRecord{}, err
	}

	data, err := os.ReadFile(s.path(id)) //nolint:gosec // path is store dir + validated id
	if err != nil {
		return SessionRecord{}, fmt.Errorf("engine: session %s: %w", id, err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return SessionRecord{}, fmt.Errorf("engine: session %s: decode: %w", id, err)
	}

	return rec, nil
}

// List returns all persisted sessions, most recently updated first. A store
// directory that does not exist yet lists as empty rather than erroring.
func (s *Store) List() ([]SessionRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("engine: session store: %w", err)
	}

	var recs []SessionRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		rec, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // one unreadable file should not hide the rest
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Updated.After(recs[j].Updated) })

	return recs, nil
}

// Delete removes a persisted session. Deleting a session that does not exist
// is not an error.
func (s *Store) Delete(id string) error {
	if err := validateSessionID(id); err != nil {
		return err
	}

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("engine: session %s: %w", id, err)
	}

	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validateSessionID rejects IDs that could name a file outside the store
// directory. Engine-generated IDs are UUIDs, but Load and Delete also accept
// caller-provided IDs.
func validateSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("engine: invalid session id %q", id)
	}
	return nil
}
