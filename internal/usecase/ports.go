package usecase

import (
	"context"

	"github.com/stitchweb/stitch/internal/domain"
)

// BoardRepository defines persistence for boards, lists and labels.
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	GetBySlug(ctx context.Context, slug string) (domain.Board, error)
	ListForUser(ctx context.Context, userID uint) ([]domain.Board, error)
	Rename(ctx context.Context, id uint, title string) error
	Delete(ctx context.Context, id uint) error

	CreateList(ctx context.Context, list *domain.List) error
	DeleteList(ctx context.Context, id uint) error
	GetByList(ctx context.Context, listID uint) (domain.Board, error)
}

// CardRepository defines persistence for cards.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	Get(ctx context.Context, id uint) (domain.Card, error)
	Update(ctx context.Context, card domain.Card) error
	Move(ctx context.Context, cardID, toListID uint, position int) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, boardID uint, query string) ([]domain.Card, error)
}

// UserRepository defines persistence/lookup for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id uint) (domain.User, error)
	GetByNickname(ctx context.Context, nickname string) (domain.User, error)
}
