package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stitchweb/stitch/internal/domain"
)

type mockCardRepo struct {
	cards   map[uint]domain.Card
	updated *domain.Card
	moved   struct {
		cardID, toListID uint
		position         int
	}
	deleted uint
}

func newMockCardRepo() *mockCardRepo {
	return &mockCardRepo{cards: map[uint]domain.Card{}}
}

func (m *mockCardRepo) Create(ctx context.Context, card *domain.Card) error {
	card.ID = uint(len(m.cards) + 1)
	m.cards[card.ID] = *card
	return nil
}

func (m *mockCardRepo) Get(ctx context.Context, id uint) (domain.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return domain.Card{}, domain.NotFoundError{Resource: "card"}
	}
	return card, nil
}

func (m *mockCardRepo) Update(ctx context.Context, card domain.Card) error {
	m.updated = &card
	m.cards[card.ID] = card
	return nil
}

func (m *mockCardRepo) Move(ctx context.Context, cardID, toListID uint, position int) error {
	m.moved.cardID = cardID
	m.moved.toListID = toListID
	m.moved.position = position
	card := m.cards[cardID]
	card.ListID = toListID
	card.Position = position
	m.cards[cardID] = card
	return nil
}

func (m *mockCardRepo) Delete(ctx context.Context, id uint) error {
	m.deleted = id
	delete(m.cards, id)
	return nil
}

func (m *mockCardRepo) Search(ctx context.Context, boardID uint, query string) ([]domain.Card, error) {
	var out []domain.Card
	for _, c := range m.cards {
		if strings.Contains(c.Title, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func ownedBoardRepo() *mockBoardRepo {
	repo := newMockBoardRepo()
	board := domain.Board{ID: 1, Slug: "b-1", OwnerID: owner.UserID}
	repo.boards["b-1"] = board
	repo.byList[10] = board
	repo.byList[11] = board
	return repo
}

func TestCardCreate(t *testing.T) {
	cards := newMockCardRepo()
	uc := NewCardUsecase(cards, ownedBoardRepo())

	card, err := uc.Create(context.Background(), owner, 10, "write docs", "for the release")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if card.ListID != 10 || card.Title != "write docs" {
		t.Fatalf("unexpected card: %+v", card)
	}
}

func TestCardCreateDeniedOnForeignList(t *testing.T) {
	boards := newMockBoardRepo()
	boards.byList[10] = domain.Board{ID: 1, OwnerID: 99}

	uc := NewCardUsecase(newMockCardRepo(), boards)

	_, err := uc.Create(context.Background(), owner, 10, "x", "")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCardToggleDone(t *testing.T) {
	cards := newMockCardRepo()
	cards.cards[5] = domain.Card{ID: 5, ListID: 10, Title: "ship"}

	uc := NewCardUsecase(cards, ownedBoardRepo())

	card, err := uc.ToggleDone(context.Background(), owner, 5)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !card.Done {
		t.Fatalf("expected done after first toggle")
	}

	card, err = uc.ToggleDone(context.Background(), owner, 5)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if card.Done {
		t.Fatalf("expected not done after second toggle")
	}
}

func TestCardMoveWithinBoard(t *testing.T) {
	cards := newMockCardRepo()
	cards.cards[5] = domain.Card{ID: 5, ListID: 10, Title: "ship"}

	uc := NewCardUsecase(cards, ownedBoardRepo())

	card, err := uc.Move(context.Background(), owner, 5, 11, 0)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if card.ListID != 11 {
		t.Fatalf("expected card in list 11, got %d", card.ListID)
	}
	if cards.moved.toListID != 11 || cards.moved.position != 0 {
		t.Fatalf("unexpected move call: %+v", cards.moved)
	}
}

func TestCardMoveAcrossBoardsRejected(t *testing.T) {
	cards := newMockCardRepo()
	cards.cards[5] = domain.Card{ID: 5, ListID: 10, Title: "ship"}

	boards := ownedBoardRepo()
	boards.byList[42] = domain.Board{ID: 2, Slug: "b-2", OwnerID: owner.UserID}

	uc := NewCardUsecase(cards, boards)

	_, err := uc.Move(context.Background(), owner, 5, 42, 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCardDelete(t *testing.T) {
	cards := newMockCardRepo()
	cards.cards[5] = domain.Card{ID: 5, ListID: 10, Title: "ship"}

	uc := NewCardUsecase(cards, ownedBoardRepo())

	if err := uc.Delete(context.Background(), owner, 5); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if cards.deleted != 5 {
		t.Fatalf("expected repo delete of card 5")
	}
}

func TestCardSearchChecksBoardOwnership(t *testing.T) {
	boards := newMockBoardRepo()
	boards.boards["b-2"] = domain.Board{ID: 2, Slug: "b-2", OwnerID: 99}

	uc := NewCardUsecase(newMockCardRepo(), boards)

	_, err := uc.Search(context.Background(), owner, "b-2", "cat")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
