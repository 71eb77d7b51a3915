package repository

import (
	"context"

	"github.com/nyumba/nyumba-api/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository persists in-app notification rows. Reads are
// served by the identity service, this API only writes.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}
