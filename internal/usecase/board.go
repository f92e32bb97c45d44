package usecase

import (
	"context"
	"strings"

	"github.com/stitchweb/stitch/internal/domain"
)

type BoardUsecase struct {
	repo BoardRepository
}

func NewBoardUsecase(repo BoardRepository) *BoardUsecase {
	return &BoardUsecase{repo: repo}
}

func (uc *BoardUsecase) ListForUser(ctx context.Context, p domain.Principal) ([]domain.Board, error) {
	return uc.repo.ListForUser(ctx, p.UserID)
}

// Get loads a board with its lists and cards. Boards are visible to
// their owner only.
func (uc *BoardUsecase) Get(ctx context.Context, p domain.Principal, slug string) (domain.Board, error) {
	board, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Board{}, err
	}
	if board.OwnerID != p.UserID {
		return domain.Board{}, domain.ErrForbidden
	}
	return board, nil
}

func (uc *BoardUsecase) Create(ctx context.Context, p domain.Principal, title string) (domain.Board, error) {
	if p.Anonymous() {
		return domain.Board{}, domain.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Board{}, domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	board := domain.Board{
		Title:   title,
		OwnerID: p.UserID,
	}
	if err := uc.repo.Create(ctx, &board); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

func (uc *BoardUsecase) Rename(ctx context.Context, p domain.Principal, slug, title string) (domain.Board, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Board{}, domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	board, err := uc.Get(ctx, p, slug)
	if err != nil {
		return domain.Board{}, err
	}
	if err := uc.repo.Rename(ctx, board.ID, title); err != nil {
		return domain.Board{}, err
	}
	board.Title = title
	return board, nil
}

// Delete removes a board and, through cascade, its lists and cards.
func (uc *BoardUsecase) Delete(ctx context.Context, p domain.Principal, slug string) error {
	board, err := uc.Get(ctx, p, slug)
	if err != nil {
		return err
	}
	return uc.repo.Delete(ctx, board.ID)
}

func (uc *BoardUsecase) AddList(ctx context.Context, p domain.Principal, slug, title string) (domain.List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.List{}, domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	board, err := uc.Get(ctx, p, slug)
	if err != nil {
		return domain.List{}, err
	}

	list := domain.List{
		BoardID:  board.ID,
		Title:    title,
		Position: len(board.Lists),
	}
	if err := uc.repo.CreateList(ctx, &list); err != nil {
		return domain.List{}, err
	}
	return list, nil
}

// DeleteList removes a list and returns the board it belonged to.
func (uc *BoardUsecase) DeleteList(ctx context.Context, p domain.Principal, listID uint) (domain.Board, error) {
	board, err := uc.repo.GetByList(ctx, listID)
	if err != nil {
		return domain.Board{}, err
	}
	if board.OwnerID != p.UserID {
		return domain.Board{}, domain.ErrForbidden
	}
	if err := uc.repo.DeleteList(ctx, listID); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}
