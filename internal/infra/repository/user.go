package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/infra/database/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	record := models.User{
		Nickname:     user.Nickname,
		PasswordHash: user.PasswordHash,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.Wrap(err, "failed to create user")
	}
	user.ID = record.ID
	user.CDate = record.CDate
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uint) (domain.User, error) {
	var record models.User
	if err := r.db.WithContext(ctx).Take(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, errors.Wrap(err, "failed to load user")
	}
	return userToDomain(record), nil
}

func (r *UserRepository) GetByNickname(ctx context.Context, nickname string) (domain.User, error) {
	var record models.User
	err := r.db.WithContext(ctx).Where("nickname = ?", nickname).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, errors.Wrap(err, "failed to load user")
	}
	return userToDomain(record), nil
}

func userToDomain(record models.User) domain.User {
	return domain.User{
		ID:           record.ID,
		Nickname:     record.Nickname,
		PasswordHash: record.PasswordHash,
		CDate:        record.CDate,
	}
}
