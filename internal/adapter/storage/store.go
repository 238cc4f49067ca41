package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rooksworth/magpie/internal/core"
)

// ErrNotFound is returned when a record or guild's settings do not exist.
var ErrNotFound = errors.New("not found")

// SettingsPatch carries optional updates; nil fields keep the stored value.
type SettingsPatch struct {
	ArchiveChannelID *string
	Mode             *core.PinMode
}

type Store interface {
	// PutPin inserts a record. It reports false with no error when a record
	// with the same fingerprint already exists.
	PutPin(ctx context.Context, rec core.PinRecord) (bool, error)
	HasFingerprint(ctx context.Context, fp string) (bool, error)

	// ListPins returns records for a guild ordered by (archived_at, id)
	// ascending, strictly after the cursor. guildID == "" means all guilds.
	ListPins(ctx context.Context, guildID string, after core.Cursor, limit int) ([]core.PinRecord, error)
	DeletePin(ctx context.Context, id string) error
	CountPins(ctx context.Context, guildID string) (int, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	UpsertSettings(ctx context.Context, s core.GuildSettings) error
	GetSettings(ctx context.Context, guildID string) (core.GuildSettings, error)
	UpdateSettings(ctx context.Context, guildID string, patch SettingsPatch) (core.GuildSettings, error)
	DeleteSettings(ctx context.Context, guildID string) error

	Now() time.Time
}
