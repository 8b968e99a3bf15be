package notifications

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	// MarkRead sets read=true only for the recipient's own notification.
	// Marking an already read notification is not an error.
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
}
