package rest

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/payments"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/services"
)

type UserService interface {
	Ensure(ctx context.Context, clerkID, name, email string) (*models.User, error)
	Get(ctx context.Context, clerkID string) (*models.User, error)
	UpdateProfile(ctx context.Context, clerkID, name, phone string) (*models.User, error)
}

type ProductService interface {
	Create(ctx context.Context, sellerID string, in models.ProductInput) (*models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, userID, id string, in models.ProductInput) (*models.Product, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, f models.ProductFilter) (*models.ProductPage, error)
}

type FavoriteService interface {
	Add(ctx context.Context, userID, productID string) (*models.Favorite, error)
	Remove(ctx context.Context, userID, productID string) error
	IsFavorite(ctx context.Context, userID, productID string) (bool, error)
	List(ctx context.Context, userID string) ([]*models.Product, error)
}

type BlockService interface {
	BlockProduct(ctx context.Context, userID, productID string) (*models.BlockedProduct, error)
	UnblockProduct(ctx context.Context, userID, productID string) error
	ListBlockedProducts(ctx context.Context, userID string) ([]*models.BlockedProduct, error)
	BlockUser(ctx context.Context, userID, otherID string) (*models.BlockedUser, error)
	UnblockUser(ctx context.Context, userID, otherID string) error
	ListBlockedUsers(ctx context.Context, userID string) ([]*models.BlockedUser, error)
	Status(ctx context.Context, userID, otherID string) (models.BlockStatus, error)
}

type NotificationService interface {
	SubmitOffer(ctx context.Context, buyerID, buyerName, productID string, amount float64) (*models.Notification, error)
	List(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type MessageService interface {
	realtime.FrameHandler
	Send(ctx context.Context, senderID string, recipientID *string, text string) (*models.Message, error)
	Conversation(ctx context.Context, userID, otherID string, limit int, before *time.Time) (*services.ConversationView, error)
	Conversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	Broadcasts(ctx context.Context, limit int) ([]*models.Message, error)
	Edit(ctx context.Context, senderID, id, text string) (*models.Message, error)
	Delete(ctx context.Context, senderID, id string) error
	MarkRead(ctx context.Context, userID, otherID string) (int64, error)
}

type CheckoutService interface {
	CreateSession(ctx context.Context, buyerID, productID string) (*payments.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (services.WebhookOutcome, error)
}

type OrderService interface {
	List(ctx context.Context, userID, role string) ([]*models.Order, error)
	GetBySession(ctx context.Context, userID, sessionID string) (*models.Order, error)
}

type UploadService interface {
	Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.UploadResult, error)
	PresignUpload(ctx context.Context, userID, contentType string, size int64) (*models.UploadResult, error)
}
