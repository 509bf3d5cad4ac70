package users

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
)

// Repository persists chat users.
type Repository interface {
	Upsert(ctx context.Context, user *models.User) error
	Find(ctx context.Context, chatID int64) (*models.User, error)
	ListChatIDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert inserts the user or refreshes its profile fields on conflict.
func (r *repository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "updated_at"}),
		}).
		Create(user).Error
}

func (r *repository) Find(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListChatIDs returns every known recipient, used by broadcast.
func (r *repository) ListChatIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Order("chat_id ASC").
		Pluck("chat_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
