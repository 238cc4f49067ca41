// Package archive turns pinned messages into stored records and decides
// which pin to relocate when a channel fills up.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
)

// Discord allows 50 pins per channel; start moving pins one short of that so
// the next pin always has a free slot.
const DefaultOverflowThreshold = 49

type Config struct {
	// OverflowThreshold is the pin count at which the selected pin gets
	// moved out to the archive channel.
	OverflowThreshold int

	// RetentionCap bounds stored records per guild; 0 disables eviction.
	RetentionCap int
}

type Service struct {
	store  storage.Store
	filter *core.IgnoreFilter
	log    *zap.Logger
	cfg    Config

	mu        sync.Mutex
	lastMoved map[string]string // guild ID -> message ID the bot just unpinned
}

func New(store storage.Store, filter *core.IgnoreFilter, log *zap.Logger, cfg Config) *Service {
	if cfg.OverflowThreshold <= 0 {
		cfg.OverflowThreshold = DefaultOverflowThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		filter:    filter,
		log:       log,
		cfg:       cfg,
		lastMoved: make(map[string]string),
	}
}

// ArchivePin stores a copy of a pinned message. It reports false with no
// error when the pin is skipped: empty content, matched the ignore filter,
// or identical content already archived.
func (s *Service) ArchivePin(ctx context.Context, msg core.PinnedMessage) (*core.PinRecord, bool, error) {
	normalized := core.Normalize(msg.Content)
	if normalized == "" && len(msg.Attachment) == 0 {
		return nil, false, nil
	}
	if s.filter.ShouldIgnore(normalized) {
		s.log.Debug("pin matched ignore filter",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.MessageID))
		return nil, false, nil
	}

	fp := core.Fingerprint(normalized, msg.Attachment)

	// Cheap pre-check; the store's unique constraint is the real gate.
	if dup, err := s.store.HasFingerprint(ctx, fp); err != nil {
		return nil, false, fmt.Errorf("fingerprint lookup: %w", err)
	} else if dup {
		return nil, false, nil
	}

	rec := core.PinRecord{
		ID:          uuid.NewString(),
		MessageID:   msg.MessageID,
		ChannelID:   msg.ChannelID,
		GuildID:     msg.GuildID,
		AuthorID:    msg.AuthorID,
		AuthorName:  msg.AuthorName,
		Content:     normalized,
		Kind:        core.DetectKind(normalized),
		Fingerprint: fp,
		Attachment:  msg.Attachment,
		ArchivedAt:  s.store.Now(),
	}

	inserted, err := s.store.PutPin(ctx, rec)
	if err != nil {
		return nil, false, fmt.Errorf("store pin: %w", err)
	}
	if !inserted {
		// Lost the race to an identical pin; fine either way.
		return nil, false, nil
	}

	s.log.Info("archived pin",
		zap.String("guild_id", rec.GuildID),
		zap.String("channel_id", rec.ChannelID),
		zap.String("fingerprint", rec.Fingerprint),
		zap.String("kind", string(rec.Kind)))

	if err := s.enforceRetention(ctx, rec.GuildID); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// SelectOverflow picks the pin to relocate once a channel's pin count
// reaches the threshold, honoring the guild's PinMode. It returns nil when
// there is nothing to move: count below threshold, empty input, or the
// candidate is the pin the bot itself just relocated.
func (s *Service) SelectOverflow(settings core.GuildSettings, pins []core.PinnedMessage) *core.PinnedMessage {
	if len(pins) < s.cfg.OverflowThreshold {
		return nil
	}

	pick := pins[0]
	for _, p := range pins[1:] {
		switch settings.Mode {
		case core.PinModeNewest:
			if p.PinnedAt.After(pick.PinnedAt) {
				pick = p
			}
		default: // oldest
			if p.PinnedAt.Before(pick.PinnedAt) {
				pick = p
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMoved[settings.GuildID] == pick.MessageID {
		// Our own unpin still echoing back through the gateway.
		delete(s.lastMoved, settings.GuildID)
		return nil
	}
	s.lastMoved[settings.GuildID] = pick.MessageID
	return &pick
}

// enforceRetention evicts the oldest records beyond the per-guild cap.
func (s *Service) enforceRetention(ctx context.Context, guildID string) error {
	if s.cfg.RetentionCap <= 0 {
		return nil
	}

	n, err := s.store.CountPins(ctx, guildID)
	if err != nil {
		return err
	}
	over := n - s.cfg.RetentionCap
	if over <= 0 {
		return nil
	}

	victims, err := s.store.ListPins(ctx, guildID, core.Cursor{}, over)
	if err != nil {
		return err
	}
	for _, v := range victims {
		if err := s.store.DeletePin(ctx, v.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return err
		}
		s.log.Debug("evicted pin for retention",
			zap.String("guild_id", guildID), zap.String("id", v.ID))
	}
	return nil
}

// Setup creates or replaces a guild's archive settings.
func (s *Service) Setup(ctx context.Context, set core.GuildSettings) error {
	if set.Mode != core.PinModeOldest && set.Mode != core.PinModeNewest {
		return fmt.Errorf("invalid pin mode %d", int(set.Mode))
	}
	return s.store.UpsertSettings(ctx, set)
}

// Update applies a partial settings change; storage.ErrNotFound when the
// guild was never set up.
func (s *Service) Update(ctx context.Context, guildID string, patch storage.SettingsPatch) (core.GuildSettings, error) {
	return s.store.UpdateSettings(ctx, guildID, patch)
}

// Current returns a guild's settings; storage.ErrNotFound when unset.
func (s *Service) Current(ctx context.Context, guildID string) (core.GuildSettings, error) {
	return s.store.GetSettings(ctx, guildID)
}

// Disable removes a guild's settings; the bot stops moving its pins.
func (s *Service) Disable(ctx context.Context, guildID string) error {
	return s.store.DeleteSettings(ctx, guildID)
}

// ExportCursor returns the guild's archived count plus a cursor marking the
// present, for handing to magpiectl as a resume token: listing after it
// yields only records archived later.
func (s *Service) ExportCursor(ctx context.Context, guildID string) (core.Cursor, int, error) {
	n, err := s.store.CountPins(ctx, guildID)
	if err != nil {
		return core.Cursor{}, 0, err
	}
	return core.Cursor{ArchivedAt: s.store.Now()}, n, nil
}
