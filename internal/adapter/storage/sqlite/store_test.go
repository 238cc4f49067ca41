package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rooksworth/magpie/internal/adapter/storage"
	"github.com/rooksworth/magpie/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testRecord(content string, at time.Time) core.PinRecord {
	norm := core.Normalize(content)
	return core.PinRecord{
		ID:          uuid.NewString(),
		MessageID:   uuid.NewString(),
		ChannelID:   "chan-1",
		GuildID:     "guild-1",
		AuthorID:    "user-1",
		AuthorName:  "tester",
		Content:     norm,
		Kind:        core.DetectKind(norm),
		Fingerprint: core.Fingerprint(norm, nil),
		ArchivedAt:  at,
	}
}

func TestPutPin_DedupByFingerprint(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first := testRecord("hello world", now)
	inserted, err := st.PutPin(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatalf("expected first insert to succeed")
	}

	// Same normalized content, different message: must not create a second row.
	dup := testRecord("hello  world", now.Add(time.Minute))
	inserted, err = st.PutPin(ctx, dup)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Fatalf("expected duplicate fingerprint to be ignored")
	}

	n, err := st.CountPins(ctx, "guild-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected count=1, got %d", n)
	}

	ok, err := st.HasFingerprint(ctx, first.Fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected fingerprint present")
	}
}

func TestListPins_CursorPagination(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	for i := 0; i < 5; i++ {
		rec := testRecord("msg "+string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
		if _, err := st.PutPin(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	page1, err := st.ListPins(ctx, "guild-1", core.Cursor{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page1))
	}

	cur := core.Cursor{ArchivedAt: page1[1].ArchivedAt, ID: page1[1].ID}
	page2, err := st.ListPins(ctx, "guild-1", cur, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 3 {
		t.Fatalf("expected 3 remaining records, got %d", len(page2))
	}
	if page2[0].ArchivedAt.Before(page1[1].ArchivedAt) {
		t.Fatalf("page2 must start after the cursor")
	}
	for _, r := range page1 {
		if r.ID == page2[0].ID {
			t.Fatalf("pages overlap on %s", r.ID)
		}
	}
}

func TestListPins_GuildFilterAndAttachments(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := testRecord("with attachment", now)
	rec.Attachment = []string{"https://cdn.example/a.png", "https://cdn.example/b.png"}
	rec.Fingerprint = core.Fingerprint(rec.Content, rec.Attachment)
	if _, err := st.PutPin(ctx, rec); err != nil {
		t.Fatal(err)
	}

	other := testRecord("other guild", now)
	other.GuildID = "guild-2"
	if _, err := st.PutPin(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := st.ListPins(ctx, "guild-1", core.Cursor{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record for guild-1, got %d", len(got))
	}
	if len(got[0].Attachment) != 2 {
		t.Fatalf("expected 2 attachments, got %v", got[0].Attachment)
	}

	all, err := st.ListPins(ctx, "", core.Cursor{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records across guilds, got %d", len(all))
	}
}

func TestPruneBefore(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := testRecord("old pin", now.Add(-48*time.Hour))
	fresh := testRecord("fresh pin", now)
	if _, err := st.PutPin(ctx, old); err != nil {
		t.Fatal(err)
	}
	if _, err := st.PutPin(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	n, err := st.PruneBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}

	left, err := st.CountPins(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if left != 1 {
		t.Fatalf("expected 1 remaining, got %d", left)
	}
}

func TestSettings_Lifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.GetSettings(ctx, "g1"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	set := core.GuildSettings{GuildID: "g1", ArchiveChannelID: "c1", Mode: core.PinModeOldest}
	if err := st.UpsertSettings(ctx, set); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetSettings(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got != set {
		t.Fatalf("got %+v, want %+v", got, set)
	}

	// Upsert replaces.
	set.ArchiveChannelID = "c2"
	if err := st.UpsertSettings(ctx, set); err != nil {
		t.Fatal(err)
	}
	got, _ = st.GetSettings(ctx, "g1")
	if got.ArchiveChannelID != "c2" {
		t.Fatalf("expected upsert to replace channel, got %q", got.ArchiveChannelID)
	}

	// Partial update: mode only.
	newest := core.PinModeNewest
	got, err = st.UpdateSettings(ctx, "g1", storage.SettingsPatch{Mode: &newest})
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != core.PinModeNewest || got.ArchiveChannelID != "c2" {
		t.Fatalf("partial update broke settings: %+v", got)
	}

	if err := st.DeleteSettings(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetSettings(ctx, "g1"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if _, err := st.UpdateSettings(ctx, "missing", storage.SettingsPatch{Mode: &newest}); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound updating missing guild, got %v", err)
	}
}
