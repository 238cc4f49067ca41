package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
)

// Store is an in-memory Store used by tests and the dev REPL.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	byID     map[string]core.PinRecord
	byFP     map[string]string // fingerprint -> record ID
	settings map[string]core.GuildSettings
}

func New() *Store {
	return &Store{
		now:      time.Now,
		byID:     make(map[string]core.PinRecord),
		byFP:     make(map[string]string),
		settings: make(map[string]core.GuildSettings),
	}
}

func (s *Store) Now() time.Time { return s.now() }

// SetNow overrides the clock; tests only.
func (s *Store) SetNow(f func() time.Time) { s.now = f }

func (s *Store) PutPin(ctx context.Context, rec core.PinRecord) (bool, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byFP[rec.Fingerprint]; dup {
		return false, nil
	}
	s.byID[rec.ID] = rec
	s.byFP[rec.Fingerprint] = rec.ID
	return true, nil
}

func (s *Store) HasFingerprint(ctx context.Context, fp string) (bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byFP[fp]
	return ok, nil
}

func (s *Store) ListPins(ctx context.Context, guildID string, after core.Cursor, limit int) ([]core.PinRecord, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	recs := make([]core.PinRecord, 0, len(s.byID))
	for _, r := range s.byID {
		if guildID != "" && r.GuildID != guildID {
			continue
		}
		if !after.IsZero() && !cursorLess(after, r) {
			continue
		}
		recs = append(recs, r)
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.ArchivedAt.Equal(b.ArchivedAt) {
			return a.ArchivedAt.Before(b.ArchivedAt)
		}
		return a.ID < b.ID
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// cursorLess reports whether r sorts strictly after the cursor position.
func cursorLess(c core.Cursor, r core.PinRecord) bool {
	if !c.ArchivedAt.Equal(r.ArchivedAt) {
		return c.ArchivedAt.Before(r.ArchivedAt)
	}
	return c.ID < r.ID
}

func (s *Store) DeletePin(ctx context.Context, id string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byFP, rec.Fingerprint)
	return nil
}

func (s *Store) CountPins(ctx context.Context, guildID string) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	if guildID == "" {
		return len(s.byID), nil
	}
	n := 0
	for _, r := range s.byID {
		if r.GuildID == guildID {
			n++
		}
	}
	return n, nil
}

func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.byID {
		if r.ArchivedAt.Before(cutoff) {
			delete(s.byID, id)
			delete(s.byFP, r.Fingerprint)
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertSettings(ctx context.Context, set core.GuildSettings) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[set.GuildID] = set
	return nil
}

func (s *Store) GetSettings(ctx context.Context, guildID string) (core.GuildSettings, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.settings[guildID]
	if !ok {
		return core.GuildSettings{}, storage.ErrNotFound
	}
	return set, nil
}

func (s *Store) UpdateSettings(ctx context.Context, guildID string, patch storage.SettingsPatch) (core.GuildSettings, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.settings[guildID]
	if !ok {
		return core.GuildSettings{}, storage.ErrNotFound
	}
	if patch.ArchiveChannelID != nil {
		set.ArchiveChannelID = *patch.ArchiveChannelID
	}
	if patch.Mode != nil {
		set.Mode = *patch.Mode
	}
	s.settings[guildID] = set
	return set, nil
}

func (s *Store) DeleteSettings(ctx context.Context, guildID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, guildID)
	return nil
}
