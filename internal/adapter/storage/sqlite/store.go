package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// WAL keeps the gateway handler from blocking on magpiectl reads.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error   { return s.db.Close() }
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS pins (
  id           TEXT PRIMARY KEY,
  message_id   TEXT NOT NULL,
  channel_id   TEXT NOT NULL,
  guild_id     TEXT NOT NULL,
  author_id    TEXT NOT NULL,
  author_name  TEXT NOT NULL,
  content      TEXT NOT NULL,
  kind         TEXT NOT NULL,
  fingerprint  TEXT NOT NULL UNIQUE,
  attachments  TEXT NOT NULL DEFAULT '[]',
  archived_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pins_guild_cursor ON pins(guild_id, archived_at, id);
CREATE INDEX IF NOT EXISTS idx_pins_archived_at  ON pins(archived_at);

CREATE TABLE IF NOT EXISTS guild_settings (
  guild_id    TEXT PRIMARY KEY,
  channel_id  TEXT NOT NULL,
  pin_mode    INTEGER NOT NULL
);
`)
	return err
}

func (s *Store) PutPin(ctx context.Context, rec core.PinRecord) (bool, error) {
	if rec.ID == "" {
		return false, errors.New("record ID required")
	}
	if rec.Fingerprint == "" {
		return false, errors.New("record fingerprint required")
	}

	att, err := json.Marshal(rec.Attachment)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO pins(id, message_id, channel_id, guild_id, author_id, author_name,
                 content, kind, fingerprint, attachments, archived_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO NOTHING
`, rec.ID, rec.MessageID, rec.ChannelID, rec.GuildID, rec.AuthorID, rec.AuthorName,
		rec.Content, string(rec.Kind), rec.Fingerprint, string(att), rec.ArchivedAt.UnixMilli())
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) HasFingerprint(ctx context.Context, fp string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM pins WHERE fingerprint=?`, fp)
	var one int
	switch err := row.Scan(&one); {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) ListPins(ctx context.Context, guildID string, after core.Cursor, limit int) ([]core.PinRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	curAt := int64(-1)
	curID := ""
	if !after.IsZero() {
		curAt = after.ArchivedAt.UnixMilli()
		curID = after.ID
	}

	query := `
SELECT id, message_id, channel_id, guild_id, author_id, author_name,
       content, kind, fingerprint, attachments, archived_at
FROM pins
WHERE (archived_at, id) > (?, ?)
`
	args := []any{curAt, curID}
	if guildID != "" {
		query += ` AND guild_id = ?`
		args = append(args, guildID)
	}
	query += ` ORDER BY archived_at, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.PinRecord, 0, limit)
	for rows.Next() {
		var rec core.PinRecord
		var kind, att string
		var archived int64

		if err := rows.Scan(&rec.ID, &rec.MessageID, &rec.ChannelID, &rec.GuildID,
			&rec.AuthorID, &rec.AuthorName, &rec.Content, &kind, &rec.Fingerprint,
			&att, &archived); err != nil {
			return nil, err
		}
		rec.Kind = core.Kind(kind)
		rec.ArchivedAt = time.UnixMilli(archived)
		if att != "" && att != "[]" {
			if err := json.Unmarshal([]byte(att), &rec.Attachment); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) DeletePin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pins WHERE id=?`, id)
	return err
}

func (s *Store) CountPins(ctx context.Context, guildID string) (int, error) {
	var (
		row *sql.Row
		n   int
	)
	if guildID == "" {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pins`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pins WHERE guild_id=?`, guildID)
	}
	return n, row.Scan(&n)
}

func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pins WHERE archived_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) UpsertSettings(ctx context.Context, set core.GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO guild_settings(guild_id, channel_id, pin_mode)
VALUES(?, ?, ?)
ON CONFLICT(guild_id) DO UPDATE SET
    channel_id = EXCLUDED.channel_id,
    pin_mode = EXCLUDED.pin_mode
`, set.GuildID, set.ArchiveChannelID, int(set.Mode))
	return err
}

func (s *Store) GetSettings(ctx context.Context, guildID string) (core.GuildSettings, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT guild_id, channel_id, pin_mode FROM guild_settings WHERE guild_id=?`, guildID)

	var set core.GuildSettings
	var mode int
	if err := row.Scan(&set.GuildID, &set.ArchiveChannelID, &mode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.GuildSettings{}, storage.ErrNotFound
		}
		return core.GuildSettings{}, err
	}
	set.Mode = core.PinMode(mode)
	return set, nil
}

func (s *Store) UpdateSettings(ctx context.Context, guildID string, patch storage.SettingsPatch) (core.GuildSettings, error) {
	set, err := s.GetSettings(ctx, guildID)
	if err != nil {
		return core.GuildSettings{}, err
	}

	if patch.ArchiveChannelID != nil {
		set.ArchiveChannelID = *patch.ArchiveChannelID
	}
	if patch.Mode != nil {
		set.Mode = *patch.Mode
	}

	if err := s.UpsertSettings(ctx, set); err != nil {
		return core.GuildSettings{}, err
	}
	return set, nil
}

func (s *Store) DeleteSettings(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM guild_settings WHERE guild_id=?`, guildID)
	return err
}
