package room

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	DefaultIDLength = 6

	// no 0/O or 1/I, codes are read aloud and typed by hand
	idAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxIDAttempts = 16
)

var ErrIDSpaceExhausted = errors.New("could not generate a free room id")

// IDGenerator returns a candidate room id. Collisions are re-rolled by the Directory.
type IDGenerator func() (string, error)

// RandomID returns a generator of upper-case codes of the given length.
func RandomID(length int) IDGenerator {
	if length <= 0 {
		length = DefaultIDLength
	}

	alphabetSize := big.NewInt(int64(len(idAlphabet)))

	return func() (string, error) {
		var sb strings.Builder
		sb.Grow(length)

		for i := 0; i < length; i++ {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("failed to read random: %w", err)
			}
			sb.WriteByte(idAlphabet[n.Int64()])
		}

		return sb.String(), nil
	}
}

// NormalizeID makes user-typed room codes comparable with generated ones.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

type Directory struct {
	logger *slog.Logger
	nextID IDGenerator

	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

func NewDirectory(logger *slog.Logger, nextID IDGenerator) *Directory {
	if nextID == nil {
		nextID = RandomID(DefaultIDLength)
	}

	return &Directory{
		logger: logger.With("component", "directory"),
		nextID: nextID,
		rooms:  make(map[string]*Room),
	}
}

// Create registers a fresh room and seats the creator in it.
func (that *Directory) Create(connID string, player entity.Player) (*Room, Assignment, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, err := that.create()
	if err != nil {
		return nil, Assignment{}, err
	}

	return room, room.AssignRole(connID, player), nil
}

func (that *Directory) create() (*Room, error) {
	log := that.logger.With("method", "create")

	for i := 0; i < maxIDAttempts; i++ {
		id, err := that.nextID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room id: %w", err)
		}

		if _, exists := that.rooms[id]; exists {
			log.Debug("room id collision, regenerating", "roomID", id)
			continue
		}

		room := New(that.logger, id)
		that.rooms[id] = room
		that.order = append(that.order, id)

		log.Info("room created", "roomID", id)

		return room, nil
	}

	return nil, ErrIDSpaceExhausted
}

// Join seats a connection in an existing room. The directory stays read-locked
// for the whole call so RemoveIfEmpty cannot drop a room that is being joined.
func (that *Directory) Join(roomID string, connID string, player entity.Player) (*Room, Assignment, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[NormalizeID(roomID)]
	if !ok {
		return nil, Assignment{}, apperror.ErrRoomNotFound
	}

	return room, room.AssignRole(connID, player), nil
}

// QuickJoin seats a connection in the first room with a free mark, creating
// one when none has space.
func (that *Directory) QuickJoin(connID string, player entity.Player) (*Room, Assignment, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.findJoinable()
	if !ok {
		var err error
		if room, err = that.create(); err != nil {
			return nil, Assignment{}, err
		}
	}

	return room, room.AssignRole(connID, player), nil
}

// FindJoinable returns the first room, in registration order, with fewer than two players.
func (that *Directory) FindJoinable() (*Room, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.findJoinable()
}

func (that *Directory) findJoinable() (*Room, bool) {
	for _, id := range that.order {
		if room := that.rooms[id]; room.PlayerCount() < maxPlayers {
			return room, true
		}
	}

	return nil, false
}

func (that *Directory) Get(roomID string) (*Room, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[NormalizeID(roomID)]

	return room, ok
}

// Remove deletes a room. Callers only remove rooms that are empty.
func (that *Directory) Remove(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.remove(NormalizeID(roomID))
}

// RemoveIfEmpty deletes the room when it has no occupants and reports whether it did.
func (that *Directory) RemoveIfEmpty(roomID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := NormalizeID(roomID)

	room, ok := that.rooms[id]
	if !ok || !room.IsEmpty() {
		return false
	}

	that.remove(id)

	return true
}

func (that *Directory) remove(id string) {
	if _, ok := that.rooms[id]; !ok {
		return
	}

	delete(that.rooms, id)

	for i, existing := range that.order {
		if existing == id {
			that.order = append(that.order[:i], that.order[i+1:]...)
			break
		}
	}

	that.logger.Info("room removed", "roomID", id)
}

// List returns non-empty rooms in registration order.
func (that *Directory) List() []Info {
	that.mu.RLock()
	defer that.mu.RUnlock()

	infos := make([]Info, 0, len(that.order))
	for _, id := range that.order {
		info := that.rooms[id].Info()
		if info.PlayerCount == 0 && info.SpectatorCount == 0 {
			continue
		}
		infos = append(infos, info)
	}

	return infos
}

func (that *Directory) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}
