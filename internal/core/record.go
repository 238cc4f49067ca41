package core

import (
	"time"
)

// PinnedMessage is a pin as seen on the gateway, before archiving.
type PinnedMessage struct {
	MessageID  string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Content    string
	Attachment []string // attachment URLs, in message order
	PinnedAt   time.Time
}

// PinRecord is one archived pin. Records are immutable after creation.
type PinRecord struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	GuildID     string    `json:"guild_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
	Kind        Kind      `json:"kind"`
	Fingerprint string    `json:"fingerprint"`
	Attachment  []string  `json:"attachments,omitempty"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// Cursor marks a position in the archive for keyset pagination.
// The zero Cursor means "from the beginning".
type Cursor struct {
	ArchivedAt time.Time
	ID         string
}

func (c Cursor) IsZero() bool {
	return c.ArchivedAt.IsZero() && c.ID == ""
}
