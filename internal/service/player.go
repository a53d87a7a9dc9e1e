package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const maxNameLength = 20

type PlayerService interface {
	Register(ctx context.Context, name string) (*entity.Player, string, error)
	Identify(ctx context.Context, token string) (*entity.Player, error)
}

type playerRepo interface {
	Save(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

type tokenService interface {
	GenerateToken(playerID string) (string, error)
	ParseToken(token string) (string, error)
}

type playerService struct {
	playerRepo playerRepo
	tokens     tokenService
}

func NewPlayerService(playerRepo playerRepo, tokens tokenService) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		tokens:     tokens,
	}
}

// Register stores a guest player under a fresh id and returns a token for it.
func (that *playerService) Register(ctx context.Context, name string) (*entity.Player, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, "", apperror.ErrInvalidName
	}

	player := &entity.Player{
		ID:   uuid.NewString(),
		Name: name,
	}

	if err := that.playerRepo.Save(ctx, player); err != nil {
		return nil, "", fmt.Errorf("failed to save player: %w", err)
	}

	token, err := that.tokens.GenerateToken(player.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return player, token, nil
}

// Identify resolves a token to the player it was issued for.
func (that *playerService) Identify(ctx context.Context, token string) (*entity.Player, error) {
	playerID, err := that.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}
