package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/infra/database/models"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	record := models.Card{
		ListID:     card.ListID,
		Title:      card.Title,
		Body:       card.Body,
		Position:   card.Position,
		AssigneeID: card.AssigneeID,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "failed to create card")
	}
	card.ID = record.ID
	card.CDate = record.CDate
	card.MDate = record.MDate
	return nil
}

func (r *CardRepository) Get(ctx context.Context, id uint) (domain.Card, error) {
	var record models.Card
	err := r.db.WithContext(ctx).
		Preload("Labels").
		Take(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Card{}, domain.NotFoundError{Resource: "card"}
		}
		return domain.Card{}, errors.Wrap(err, "failed to load card")
	}
	return cardToDomain(record), nil
}

func (r *CardRepository) Update(ctx context.Context, card domain.Card) error {
	result := r.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", card.ID).
		Updates(map[string]any{
			"title":       card.Title,
			"body":        card.Body,
			"done":        card.Done,
			"assignee_id": card.AssigneeID,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update card")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "card"}
	}
	return nil
}

// Move reseats a card inside toListID at the given position and
// renumbers both affected lists so positions stay dense.
func (r *CardRepository) Move(ctx context.Context, cardID, toListID uint, position int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		err := tx.Take(&card, cardID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFoundError{Resource: "card"}
			}
			return errors.Wrap(err, "failed to lock card")
		}

		fromListID := card.ListID
		if err := tx.Model(&models.Card{}).Where("id = ?", cardID).
			Updates(map[string]any{"list_id": toListID, "position": position}).Error; err != nil {
			return errors.Wrap(err, "failed to move card")
		}

		if err := renumberList(tx, toListID, cardID, position); err != nil {
			return err
		}
		if fromListID != toListID {
			if err := renumberList(tx, fromListID, 0, -1); err != nil {
				return err
			}
		}
		return nil
	})
}

// renumberList rewrites positions 0..n-1 in list order. The moved card
// (if any) is pinned at its requested position; everyone else keeps
// their relative order.
func renumberList(tx *gorm.DB, listID, movedID uint, movedPos int) error {
	var cards []models.Card
	err := tx.
		Where("list_id = ?", listID).
		Order("position, id").
		Find(&cards).Error
	if err != nil {
		return errors.Wrap(err, "failed to load list for renumber")
	}

	ordered := make([]models.Card, 0, len(cards))
	var moved *models.Card
	for i := range cards {
		if cards[i].ID == movedID {
			moved = &cards[i]
			continue
		}
		ordered = append(ordered, cards[i])
	}
	if moved != nil {
		if movedPos < 0 {
			movedPos = 0
		}
		if movedPos > len(ordered) {
			movedPos = len(ordered)
		}
		ordered = append(ordered[:movedPos], append([]models.Card{*moved}, ordered[movedPos:]...)...)
	}

	for i, card := range ordered {
		if card.Position == i {
			continue
		}
		if err := tx.Model(&models.Card{}).Where("id = ?", card.ID).
			Update("position", i).Error; err != nil {
			return errors.Wrap(err, "failed to renumber card")
		}
	}
	return nil
}

func (r *CardRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Card{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete card")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "card"}
	}
	return nil
}

func (r *CardRepository) Search(ctx context.Context, boardID uint, query string) ([]domain.Card, error) {
	var records []models.Card
	err := r.db.WithContext(ctx).
		Preload("Labels").
		Joins("JOIN lists ON lists.id = cards.list_id").
		Where("lists.board_id = ?", boardID).
		Where("cards.title LIKE ? OR cards.body LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("cards.list_id, cards.position, cards.id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to search cards")
	}

	cards := make([]domain.Card, 0, len(records))
	for _, record := range records {
		cards = append(cards, cardToDomain(record))
	}
	return cards, nil
}

func cardToDomain(record models.Card) domain.Card {
	card := domain.Card{
		ID:         record.ID,
		ListID:     record.ListID,
		Title:      record.Title,
		Body:       record.Body,
		Position:   record.Position,
		Done:       record.Done,
		AssigneeID: record.AssigneeID,
		CDate:      record.CDate,
		MDate:      record.MDate,
	}
	for _, label := range record.Labels {
		card.Labels = append(card.Labels, domain.Label{
			ID:      label.ID,
			BoardID: label.BoardID,
			Name:    label.Name,
			Color:   label.Color,
		})
	}
	return card
}
