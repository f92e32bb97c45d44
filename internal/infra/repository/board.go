package repository

import (
	"context"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/infra/database/models"
)

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

func (r *BoardRepository) Create(ctx context.Context, board *domain.Board) error {
	slug, err := gonanoid.Generate(slugAlphabet, 12)
	if err != nil {
		return errors.Wrap(err, "failed to generate board slug")
	}

	record := models.Board{
		Slug:    slug,
		Title:   board.Title,
		OwnerID: board.OwnerID,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "failed to create board")
	}

	board.ID = record.ID
	board.Slug = record.Slug
	board.CDate = record.CDate
	board.MDate = record.MDate
	return nil
}

func (r *BoardRepository) GetBySlug(ctx context.Context, slug string) (domain.Board, error) {
	var record models.Board
	err := r.db.WithContext(ctx).
		Preload("Lists", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Lists.Cards", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Lists.Cards.Labels").
		Where("slug = ?", slug).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Board{}, domain.NotFoundError{Resource: "board"}
		}
		return domain.Board{}, errors.Wrap(err, "failed to load board")
	}
	return boardToDomain(record), nil
}

func (r *BoardRepository) ListForUser(ctx context.Context, userID uint) ([]domain.Board, error) {
	var records []models.Board
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("m_date desc").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list boards")
	}

	boards := make([]domain.Board, 0, len(records))
	for _, record := range records {
		boards = append(boards, boardToDomain(record))
	}
	return boards, nil
}

func (r *BoardRepository) Rename(ctx context.Context, id uint, title string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Board{}).
		Where("id = ?", id).
		Update("title", title)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to rename board")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "board"}
	}
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listIDs []uint
		if err := tx.Model(&models.List{}).Where("board_id = ?", id).Pluck("id", &listIDs).Error; err != nil {
			return errors.Wrap(err, "failed to collect lists")
		}
		if len(listIDs) > 0 {
			if err := tx.Where("list_id IN ?", listIDs).Delete(&models.Card{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete cards")
			}
			if err := tx.Where("board_id = ?", id).Delete(&models.List{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete lists")
			}
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Label{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete labels")
		}
		if err := tx.Delete(&models.Board{}, id).Error; err != nil {
			return errors.Wrap(err, "failed to delete board")
		}
		return nil
	})
}

func (r *BoardRepository) CreateList(ctx context.Context, list *domain.List) error {
	record := models.List{
		BoardID:  list.BoardID,
		Title:    list.Title,
		Position: list.Position,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "failed to create list")
	}
	list.ID = record.ID
	return nil
}

func (r *BoardRepository) DeleteList(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return errors.Wrap(err, "failed to delete cards")
		}
		result := tx.Delete(&models.List{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete list")
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError{Resource: "list"}
		}
		return nil
	})
}

func (r *BoardRepository) GetByList(ctx context.Context, listID uint) (domain.Board, error) {
	var record models.Board
	err := r.db.WithContext(ctx).
		Joins("JOIN lists ON lists.board_id = boards.id").
		Where("lists.id = ?", listID).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Board{}, domain.NotFoundError{Resource: "list"}
		}
		return domain.Board{}, errors.Wrap(err, "failed to resolve list's board")
	}
	return boardToDomain(record), nil
}

func boardToDomain(record models.Board) domain.Board {
	board := domain.Board{
		ID:      record.ID,
		Slug:    record.Slug,
		Title:   record.Title,
		OwnerID: record.OwnerID,
		CDate:   record.CDate,
		MDate:   record.MDate,
	}
	for _, list := range record.Lists {
		board.Lists = append(board.Lists, listToDomain(list))
	}
	return board
}

func listToDomain(record models.List) domain.List {
	list := domain.List{
		ID:       record.ID,
		BoardID:  record.BoardID,
		Title:    record.Title,
		Position: record.Position,
	}
	for _, card := range record.Cards {
		list.Cards = append(list.Cards, cardToDomain(card))
	}
	return list
}
