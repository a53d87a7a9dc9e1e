package room

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// sequenceIDs hands out ids from a fixed list and then repeats the last one.
func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		id := ids[min(i, len(ids)-1)]
		i++

		return id, nil
	}
}

func TestRandomID(t *testing.T) {
	t.Run("Generates codes from the room alphabet", func(t *testing.T) {
		next := RandomID(DefaultIDLength)

		for i := 0; i < 100; i++ {
			id, err := next()
			require.NoError(t, err)
			require.Len(t, id, DefaultIDLength)

			for _, r := range id {
				assert.Contains(t, idAlphabet, string(r))
			}
		}
	})

	t.Run("Falls back to the default length", func(t *testing.T) {
		id, err := RandomID(0)()

		require.NoError(t, err)
		assert.Len(t, id, DefaultIDLength)
	})
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeID("  abc234 "))
	assert.Equal(t, "", NormalizeID(""))
}

func TestDirectory_Create(t *testing.T) {
	t.Run("Creator is seated as X", func(t *testing.T) {
		// Given: an empty directory
		directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01"))

		// When: a room is created
		room, seated, err := directory.Create("c1", alice)

		// Then: the creator holds X and the room is registered
		require.NoError(t, err)
		assert.Equal(t, "ROOM01", room.ID())
		assert.Equal(t, entity.RoleX, seated.Role)

		got, ok := directory.Get("room01")
		require.True(t, ok)
		assert.Same(t, room, got)
	})

	t.Run("Regenerates the id on collision", func(t *testing.T) {
		// Given: a generator that repeats the first id once
		directory := NewDirectory(newTestLogger(), sequenceIDs("AAAAAA", "AAAAAA", "BBBBBB"))
		_, _, err := directory.Create("c1", alice)
		require.NoError(t, err)

		// When: a second room is created
		room, _, err := directory.Create("c2", bob)

		// Then: the colliding id is skipped
		require.NoError(t, err)
		assert.Equal(t, "BBBBBB", room.ID())
		assert.Equal(t, 2, directory.Len())
	})

	t.Run("Fails when every attempt collides", func(t *testing.T) {
		directory := NewDirectory(newTestLogger(), sequenceIDs("AAAAAA"))
		_, _, err := directory.Create("c1", alice)
		require.NoError(t, err)

		_, seated, err := directory.Create("c2", bob)

		require.ErrorIs(t, err, ErrIDSpaceExhausted)
		assert.Equal(t, entity.RoleNone, seated.Role)
		assert.Equal(t, 1, directory.Len())
	})

	t.Run("Propagates generator failures", func(t *testing.T) {
		boom := errors.New("boom")
		directory := NewDirectory(newTestLogger(), func() (string, error) { return "", boom })

		_, _, err := directory.Create("c1", alice)

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, directory.Len())
	})

	t.Run("Uses random ids when no generator is given", func(t *testing.T) {
		directory := NewDirectory(newTestLogger(), nil)

		room, _, err := directory.Create("c1", alice)

		require.NoError(t, err)
		assert.Len(t, room.ID(), DefaultIDLength)
	})
}

func TestDirectory_Join(t *testing.T) {
	t.Run("Second player gets O", func(t *testing.T) {
		// Given: A created a room
		directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01"))
		created, _, err := directory.Create("A", alice)
		require.NoError(t, err)

		// When: B joins using a lower-case code
		joined, seated, err := directory.Join("room01", "B", bob)

		// Then: B is O in the same room
		require.NoError(t, err)
		assert.Same(t, created, joined)
		assert.Equal(t, entity.RoleO, seated.Role)
	})

	t.Run("Unknown room", func(t *testing.T) {
		directory := NewDirectory(newTestLogger(), nil)

		room, seated, err := directory.Join("NOPE00", "A", alice)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Nil(t, room)
		assert.Equal(t, entity.RoleNone, seated.Role)
	})

	t.Run("Room is gone after its last occupant leaves", func(t *testing.T) {
		// Given: a room whose only occupant leaves
		directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01"))
		room, _, err := directory.Create("A", alice)
		require.NoError(t, err)
		room.RemovePlayer("A")

		// When: the directory drops empty rooms
		removed := directory.RemoveIfEmpty(room.ID())

		// Then: joining it fails
		assert.True(t, removed)
		_, _, err = directory.Join("ROOM01", "B", bob)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestDirectory_RemoveIfEmpty(t *testing.T) {
	directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01"))
	room, _, err := directory.Create("A", alice)
	require.NoError(t, err)

	assert.False(t, directory.RemoveIfEmpty("ROOM01"))
	assert.False(t, directory.RemoveIfEmpty("MISSING"))

	room.RemovePlayer("A")
	assert.True(t, directory.RemoveIfEmpty("ROOM01"))
	assert.False(t, directory.RemoveIfEmpty("ROOM01"))
	assert.Equal(t, 0, directory.Len())
}

func TestDirectory_QuickJoin(t *testing.T) {
	t.Run("Picks the first room with space in registration order", func(t *testing.T) {
		// Given: a full room, then two rooms with one player each
		directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01", "ROOM02", "ROOM03", "ROOM04"))
		_, _, err := directory.Create("A", alice)
		require.NoError(t, err)
		_, _, err = directory.Join("ROOM01", "B", bob)
		require.NoError(t, err)
		_, _, err = directory.Create("C", carol)
		require.NoError(t, err)
		_, _, err = directory.Create("D", dave)
		require.NoError(t, err)

		found, ok := directory.FindJoinable()
		require.True(t, ok)
		assert.Equal(t, "ROOM02", found.ID())

		// When: quick play
		room, seated, err := directory.QuickJoin("E", entity.Player{ID: "u-erin", Name: "erin"})

		// Then: the player lands in the oldest room with a free mark
		require.NoError(t, err)
		assert.Equal(t, "ROOM02", room.ID())
		assert.Equal(t, entity.RoleO, seated.Role)
		assert.Equal(t, 3, directory.Len())
	})

	t.Run("Creates a room when none has space", func(t *testing.T) {
		directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01", "ROOM02"))
		_, _, err := directory.Create("A", alice)
		require.NoError(t, err)
		_, _, err = directory.Join("ROOM01", "B", bob)
		require.NoError(t, err)

		_, ok := directory.FindJoinable()
		assert.False(t, ok)

		room, seated, err := directory.QuickJoin("C", carol)

		require.NoError(t, err)
		assert.Equal(t, "ROOM02", room.ID())
		assert.Equal(t, entity.RoleX, seated.Role)
	})
}

func TestDirectory_List(t *testing.T) {
	// Given: three rooms, one of which has emptied out but not yet been removed
	directory := NewDirectory(newTestLogger(), sequenceIDs("ROOM01", "ROOM02", "ROOM03"))
	_, _, err := directory.Create("A", alice)
	require.NoError(t, err)
	_, _, err = directory.Join("ROOM01", "B", bob)
	require.NoError(t, err)
	_, _, err = directory.Join("ROOM01", "C", carol)
	require.NoError(t, err)
	empty, _, err := directory.Create("D", dave)
	require.NoError(t, err)
	empty.RemovePlayer("D")
	_, _, err = directory.Create("E", entity.Player{ID: "u-erin", Name: "erin"})
	require.NoError(t, err)

	// When: listing
	infos := directory.List()

	// Then: the empty room is left out and the order is preserved
	for i := range infos {
		assert.False(t, infos[i].CreatedAt.IsZero())
		infos[i].CreatedAt = time.Time{}
	}
	assert.Equal(t, []Info{
		{ID: "ROOM01", PlayerCount: 2, SpectatorCount: 1, HasSpace: false},
		{ID: "ROOM03", PlayerCount: 1, SpectatorCount: 0, HasSpace: true},
	}, infos)
}

func TestDirectory_ConcurrentJoinAndRemove(t *testing.T) {
	// Given: many rooms that are joined and emptied concurrently
	directory := NewDirectory(newTestLogger(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			connID := fmt.Sprintf("conn-%d", i)
			player := entity.Player{ID: fmt.Sprintf("u-%d", i), Name: connID}

			room, _, err := directory.QuickJoin(connID, player)
			if !assert.NoError(t, err) {
				return
			}

			room.MakeMove(connID, i%entity.BoardSize)
			room.RemovePlayer(connID)
			directory.RemoveIfEmpty(room.ID())
		}()
	}
	wg.Wait()

	// Then: no room outlives its occupants
	assert.Empty(t, directory.List())
	assert.Equal(t, 0, directory.Len())
}
