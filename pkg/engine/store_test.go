package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reedham/tether/pkg/chats/chat"
	"github.com/reedham/tether/pkg/chats/content"
	"github.com/reedham/tether/pkg/chats/message"
	"github.com/reedham/tether/pkg/chats/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id string, updated time.Time) SessionRecord {
	c := chat.New(
		message.NewText("user", role.User, "what is the capital of France?"),
		message.New("bot", role.Assistant,
			content.Text{Text: "Looking that up."},
			content.ToolCall{ID: "c1", Name: "web_search", Arguments: `{"query":"capital of France"}`},
		),
		message.New("bot", role.Tool,
			content.ToolResult{ToolCallID: "c1", Content: "Paris"},
		),
		message.NewText("bot", role.Assistant, "The capital of France is Paris."),
	)

	return SessionRecord{
		ID:      id,
		Agent:   "bot",
		Created: updated.Add(-time.Hour),
		Updated: updated,
		Chat:    c,
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	rec := sampleRecord("s1", time.Now())

	require.NoError(t, store.Save(rec))

	loaded, err := store.Load("s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", loaded.ID)
	assert.Equal(t, "bot", loaded.Agent)
	assert.WithinDuration(t, rec.Updated, loaded.Updated, time.Second)

	require.NotNil(t, loaded.Chat)
	require.Equal(t, 4, loaded.Chat.Len())
	assert.Equal(t, "what is the capital of France?", loaded.Chat.At(0).TextContent())
	assert.Len(t, loaded.Chat.At(1).ToolCalls(), 1)
	assert.Len(t, loaded.Chat.At(2).ToolResults(), 1)
	assert.Equal(t, "The capital of France is Paris.", loaded.Chat.At(3).TextContent())
}

func TestStore_SaveCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "local", "sessions")
	store := NewStore(dir)

	require.NoError(t, store.Save(sampleRecord("s1", time.Now())))

	_, err := os.Stat(filepath.Join(dir, "s1.json"))
	assert.NoError(t, err)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load("nope")
	assert.Error(t, err)
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	now := time.Now()
	require.NoError(t, store.Save(sampleRecord("old", now.Add(-2*time.Hour))))
	require.NoError(t, store.Save(sampleRecord("newest", now)))
	require.NoError(t, store.Save(sampleRecord("middle", now.Add(-time.Hour))))

	// Stray files should not break listing.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))

	recs, err := store.List()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "newest", recs[0].ID)
	assert.Equal(t, "middle", recs[1].ID)
	assert.Equal(t, "old", recs[2].ID)
}

func TestStore_ListNoDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))

	recs, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(sampleRecord("s1", time.Now())))

	require.NoError(t, store.Delete("s1"))

	_, err := store.Load("s1")
	assert.Error(t, err)

	// Deleting again is fine.
	assert.NoError(t, store.Delete("s1"))
}

func TestStore_RejectsPathyIDs(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, id := range []string{"", ".", "..", "../evil", `a\b`, "a/b"} {
		assert.ErrorContains(t, store.Save(SessionRecord{ID: id}), "invalid session id")

		_, err := store.Load(id)
		assert.ErrorContains(t, err, "invalid session id")
	}
}
