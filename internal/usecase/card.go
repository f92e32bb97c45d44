package usecase

import (
	"context"
	"strings"

	"github.com/stitchweb/stitch/internal/domain"
)

type CardUsecase struct {
	cards  CardRepository
	boards BoardRepository
}

func NewCardUsecase(cards CardRepository, boards BoardRepository) *CardUsecase {
	return &CardUsecase{cards: cards, boards: boards}
}

// owns resolves the board a list belongs to and checks ownership.
func (uc *CardUsecase) owns(ctx context.Context, p domain.Principal, listID uint) (domain.Board, error) {
	board, err := uc.boards.GetByList(ctx, listID)
	if err != nil {
		return domain.Board{}, err
	}
	if board.OwnerID != p.UserID {
		return domain.Board{}, domain.ErrForbidden
	}
	return board, nil
}

// BoardFor resolves the owning board of a list, enforcing ownership.
func (uc *CardUsecase) BoardFor(ctx context.Context, p domain.Principal, listID uint) (domain.Board, error) {
	return uc.owns(ctx, p, listID)
}

func (uc *CardUsecase) Create(ctx context.Context, p domain.Principal, listID uint, title, body string) (domain.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Card{}, domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	if _, err := uc.owns(ctx, p, listID); err != nil {
		return domain.Card{}, err
	}

	card := domain.Card{
		ListID: listID,
		Title:  title,
		Body:   body,
	}
	if err := uc.cards.Create(ctx, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (uc *CardUsecase) Get(ctx context.Context, p domain.Principal, cardID uint) (domain.Card, error) {
	card, err := uc.cards.Get(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if _, err := uc.owns(ctx, p, card.ListID); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (uc *CardUsecase) Update(ctx context.Context, p domain.Principal, cardID uint, title, body string) (domain.Card, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Card{}, domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}

	card, err := uc.Get(ctx, p, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	card.Title = title
	card.Body = body
	if err := uc.cards.Update(ctx, card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// ToggleDone flips the card's done flag.
func (uc *CardUsecase) ToggleDone(ctx context.Context, p domain.Principal, cardID uint) (domain.Card, error) {
	card, err := uc.Get(ctx, p, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	card.Done = !card.Done
	if err := uc.cards.Update(ctx, card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// Move places a card into a list at the given position. Both lists
// must belong to a board the principal owns; sibling positions are
// renumbered by the repository.
func (uc *CardUsecase) Move(ctx context.Context, p domain.Principal, cardID, toListID uint, position int) (domain.Card, error) {
	card, err := uc.Get(ctx, p, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	from, err := uc.boards.GetByList(ctx, card.ListID)
	if err != nil {
		return domain.Card{}, err
	}
	to, err := uc.owns(ctx, p, toListID)
	if err != nil {
		return domain.Card{}, err
	}
	if from.ID != to.ID {
		return domain.Card{}, domain.ValidationError{Field: "list", Reason: "cannot move across boards"}
	}
	if position < 0 {
		position = 0
	}

	if err := uc.cards.Move(ctx, cardID, toListID, position); err != nil {
		return domain.Card{}, err
	}
	return uc.cards.Get(ctx, cardID)
}

func (uc *CardUsecase) Delete(ctx context.Context, p domain.Principal, cardID uint) error {
	if _, err := uc.Get(ctx, p, cardID); err != nil {
		return err
	}
	return uc.cards.Delete(ctx, cardID)
}

// Search finds cards on a board whose title contains the query,
// feeding the live filter box. An empty query matches everything.
func (uc *CardUsecase) Search(ctx context.Context, p domain.Principal, boardSlug, query string) ([]domain.Card, error) {
	board, err := uc.boards.GetBySlug(ctx, boardSlug)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != p.UserID {
		return nil, domain.ErrForbidden
	}
	return uc.cards.Search(ctx, board.ID, strings.TrimSpace(query))
}
