package messages

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	UpdateText(ctx context.Context, id, senderID, text string) (*models.Message, error)
	Delete(ctx context.Context, id, senderID string) error
	// ListBetween returns up to limit messages exchanged by the pair, oldest
	// first. A non-nil before only returns messages older than it.
	ListBetween(ctx context.Context, userID, otherID string, limit int, before *time.Time) ([]*models.Message, error)
	ListBroadcasts(ctx context.Context, limit int) ([]*models.Message, error)
	// ListInvolving returns direct messages sent or received by the user,
	// newest first.
	ListInvolving(ctx context.Context, userID string, limit int) ([]*models.Message, error)
	MarkRead(ctx context.Context, recipientID, senderID string) (int64, error)
}
