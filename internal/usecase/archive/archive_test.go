package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/adapter/storage/memory"
	"github.com/rooksworth/magpie/internal/core"
)

func pinned(msgID, content string, at time.Time) core.PinnedMessage {
	return core.PinnedMessage{
		MessageID:  msgID,
		ChannelID:  "chan-1",
		GuildID:    "guild-1",
		AuthorID:   "user-1",
		AuthorName: "tester",
		Content:    content,
		PinnedAt:   at,
	}
}

func TestArchivePin_DedupIdempotence(t *testing.T) {
	st := memory.New()
	svc := New(st, nil, zap.NewNop(), Config{})
	ctx := context.Background()

	rec, saved, err := svc.ArchivePin(ctx, pinned("m1", "hello world", time.Now()))
	require.NoError(t, err)
	require.True(t, saved)
	require.NotNil(t, rec)
	assert.Equal(t, core.Fingerprint(core.Normalize("hello world"), nil), rec.Fingerprint)

	// Re-pin of the same message: no second record.
	_, saved, err = svc.ArchivePin(ctx, pinned("m1", "hello world", time.Now()))
	require.NoError(t, err)
	assert.False(t, saved)

	// Different message, identical normalized content: still one record.
	_, saved, err = svc.ArchivePin(ctx, pinned("m2", "  hello \n world ", time.Now()))
	require.NoError(t, err)
	assert.False(t, saved)

	n, err := st.CountPins(ctx, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestArchivePin_SkipsEmptyAndFiltered(t *testing.T) {
	st := memory.New()
	filter, err := core.NewIgnoreFilter([]string{"password="}, false)
	require.NoError(t, err)
	svc := New(st, filter, zap.NewNop(), Config{})
	ctx := context.Background()

	_, saved, err := svc.ArchivePin(ctx, pinned("m1", "   \n ", time.Now()))
	require.NoError(t, err)
	assert.False(t, saved)

	_, saved, err = svc.ArchivePin(ctx, pinned("m2", "my password=hunter2", time.Now()))
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestArchivePin_AttachmentOnly(t *testing.T) {
	st := memory.New()
	svc := New(st, nil, zap.NewNop(), Config{})

	msg := pinned("m1", "", time.Now())
	msg.Attachment = []string{"https://cdn.example/cat.png"}

	rec, saved, err := svc.ArchivePin(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, saved)
	assert.NotEmpty(t, rec.Fingerprint)
}

func TestRetention_EvictsOldest(t *testing.T) {
	st := memory.New()

	clock := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	st.SetNow(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	svc := New(st, nil, zap.NewNop(), Config{RetentionCap: 2})
	ctx := context.Background()

	_, _, err := svc.ArchivePin(ctx, pinned("m1", "one", time.Time{}))
	require.NoError(t, err)
	_, _, err = svc.ArchivePin(ctx, pinned("m2", "two", time.Time{}))
	require.NoError(t, err)
	_, _, err = svc.ArchivePin(ctx, pinned("m3", "three", time.Time{}))
	require.NoError(t, err)

	recs, err := st.ListPins(ctx, "guild-1", core.Cursor{}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "two", recs[0].Content)
	assert.Equal(t, "three", recs[1].Content)
}

func TestSelectOverflow_Modes(t *testing.T) {
	st := memory.New()
	svc := New(st, nil, zap.NewNop(), Config{OverflowThreshold: 3})

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	pins := []core.PinnedMessage{
		pinned("mid", "b", base.Add(time.Hour)),
		pinned("old", "a", base),
		pinned("new", "c", base.Add(2*time.Hour)),
	}

	got := svc.SelectOverflow(core.GuildSettings{GuildID: "g-oldest", Mode: core.PinModeOldest}, pins)
	require.NotNil(t, got)
	assert.Equal(t, "old", got.MessageID)

	got = svc.SelectOverflow(core.GuildSettings{GuildID: "g-newest", Mode: core.PinModeNewest}, pins)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.MessageID)
}

func TestSelectOverflow_BelowThreshold(t *testing.T) {
	svc := New(memory.New(), nil, zap.NewNop(), Config{OverflowThreshold: 5})

	pins := []core.PinnedMessage{pinned("m1", "a", time.Now())}
	assert.Nil(t, svc.SelectOverflow(core.GuildSettings{GuildID: "g1", Mode: core.PinModeOldest}, pins))
}

func TestSelectOverflow_GuardsOwnUnpin(t *testing.T) {
	svc := New(memory.New(), nil, zap.NewNop(), Config{OverflowThreshold: 2})

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	pins := []core.PinnedMessage{
		pinned("old", "a", base),
		pinned("new", "b", base.Add(time.Hour)),
	}
	settings := core.GuildSettings{GuildID: "g1", Mode: core.PinModeOldest}

	first := svc.SelectOverflow(settings, pins)
	require.NotNil(t, first)
	assert.Equal(t, "old", first.MessageID)

	// The unpin echoes back before the pin list visibly changes; the same
	// candidate must not be moved twice.
	assert.Nil(t, svc.SelectOverflow(settings, pins))

	// Once the echo is consumed, selection works again.
	again := svc.SelectOverflow(settings, pins)
	require.NotNil(t, again)
	assert.Equal(t, "old", again.MessageID)
}

func TestSettingsLifecycle(t *testing.T) {
	st := memory.New()
	svc := New(st, nil, zap.NewNop(), Config{})
	ctx := context.Background()

	_, err := svc.Current(ctx, "g1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, svc.Setup(ctx, core.GuildSettings{
		GuildID: "g1", ArchiveChannelID: "c1", Mode: core.PinModeOldest,
	}))

	set, err := svc.Current(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "c1", set.ArchiveChannelID)

	newest := core.PinModeNewest
	set, err = svc.Update(ctx, "g1", storage.SettingsPatch{Mode: &newest})
	require.NoError(t, err)
	assert.Equal(t, core.PinModeNewest, set.Mode)
	assert.Equal(t, "c1", set.ArchiveChannelID)

	require.NoError(t, svc.Disable(ctx, "g1"))
	_, err = svc.Current(ctx, "g1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSetup_RejectsBadMode(t *testing.T) {
	svc := New(memory.New(), nil, zap.NewNop(), Config{})
	err := svc.Setup(context.Background(), core.GuildSettings{GuildID: "g1", ArchiveChannelID: "c1"})
	assert.Error(t, err)
}
