package core

import "fmt"

type Kind string

const (
	KindText    Kind = "text"
	KindURL     Kind = "url"
	KindCommand Kind = "command"
	KindCode    Kind = "code"
)

// PinMode picks which pin gets moved to the archive channel when a channel
// runs out of pin slots.
type PinMode int

const (
	PinModeOldest PinMode = 1
	PinModeNewest PinMode = 2
)

func (m PinMode) String() string {
	switch m {
	case PinModeOldest:
		return "oldest"
	case PinModeNewest:
		return "newest"
	default:
		return fmt.Sprintf("pinmode(%d)", int(m))
	}
}

func ParsePinMode(s string) (PinMode, error) {
	switch s {
	case "oldest":
		return PinModeOldest, nil
	case "newest":
		return PinModeNewest, nil
	default:
		return 0, fmt.Errorf("unknown pin mode %q", s)
	}
}

// GuildSettings is the per-guild archive configuration.
type GuildSettings struct {
	GuildID          string  `json:"guild_id"`
	ArchiveChannelID string  `json:"archive_channel_id"`
	Mode             PinMode `json:"pin_mode"`
}
