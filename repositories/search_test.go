package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/mama165/sdk-go/db"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestSearchIndex_IndexAndSearch(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	index := NewSearchIndex(blugeWriter, log, 50)
	archive := NewMessageArchive(badgerDB, index, log, lo.ToPtr(50))

	// Given: an archived message mentioning websockets
	msg := archivedMessage("room-1", "msg_1", "this message is about websocket transport", time.Now().UTC())
	req.NoError(archive.Store(msg))

	// When: flushing and searching
	req.NoError(index.Flush())
	time.Sleep(50 * time.Millisecond)

	hits, total, err := index.Search(ctx, "websocket", "room-1", 0)

	// Then: the message is found with its stored fields
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal("msg_1", hits[0].ID)
	req.Equal("room-1", hits[0].Room)
	req.Equal("alice", hits[0].Author)
	req.Equal(msg.Text, hits[0].Text)
}

func TestSearchIndex_SearchIsCaseInsensitive(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	index := NewSearchIndex(blugeWriter, log, 50)

	// Given: an indexed message with mixed casing
	req.NoError(index.Index(archivedMessage("room-1", "msg_1", "Deployment Plan for Tomorrow", time.Now().UTC())))
	req.NoError(index.Flush())
	time.Sleep(50 * time.Millisecond)

	// When: searching with a lowercase term
	_, total, err := index.Search(ctx, "deployment", "room-1", 0)

	// Then: the match is found
	req.NoError(err)
	req.Equal(uint64(1), total)
}

func TestSearchIndex_SearchIsScopedToRoom(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	index := NewSearchIndex(blugeWriter, log, 50)

	// Given: the same word indexed in two rooms
	req.NoError(index.Index(archivedMessage("room-1", "msg_a", "budget review", time.Now().UTC())))
	req.NoError(index.Index(archivedMessage("room-2", "msg_b", "budget review", time.Now().UTC())))
	req.NoError(index.Flush())
	time.Sleep(50 * time.Millisecond)

	// When: searching one room
	hits, total, err := index.Search(ctx, "budget", "room-1", 0)

	// Then: only that room's message matches
	req.NoError(err)
	req.Equal(uint64(1), total)
	req.Len(hits, 1)
	req.Equal("msg_a", hits[0].ID)
}

func TestSearchIndex_Pagination(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	index := NewSearchIndex(blugeWriter, log, 3)

	// Given: five matching messages
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("msg_%d", i)
		req.NoError(index.Index(archivedMessage("room-1", id, "incident postmortem notes", time.Now().UTC())))
	}
	req.NoError(index.Flush())
	time.Sleep(50 * time.Millisecond)

	// When: fetching both pages
	first, total, err := index.Search(ctx, "postmortem", "room-1", 0)
	req.NoError(err)
	req.Equal(uint64(5), total)
	req.Len(first, 3)

	second, total, err := index.Search(ctx, "postmortem", "room-1", 3)
	req.NoError(err)
	req.Equal(uint64(5), total)
	req.Len(second, 2)

	// Then: the pages never overlap
	seen := make(map[string]struct{})
	for _, hit := range append(first, second...) {
		_, dup := seen[hit.ID]
		req.False(dup)
		seen[hit.ID] = struct{}{}
	}
}

func TestSearchIndex_EmptyQueryReturnsNothing(t *testing.T) {
	req := require.New(t)
	ctx, log, badgerDB, blugeWriter, err := db.SetupBenchmark(t.TempDir())
	req.NoError(err)
	defer db.CleanupDB(badgerDB, blugeWriter)

	index := NewSearchIndex(blugeWriter, log, 50)
	req.NoError(index.Index(archivedMessage("room-1", "msg_1", "hello there", time.Now().UTC())))
	req.NoError(index.Flush())

	// When: searching with a blank query
	hits, total, err := index.Search(ctx, "   ", "room-1", 0)

	// Then: the search short-circuits
	req.NoError(err)
	req.Zero(total)
	req.Empty(hits)
}
