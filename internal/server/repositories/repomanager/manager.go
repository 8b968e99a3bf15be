package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/blocks"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/messages"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/orders"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/products"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Products(db dbx.DBTX) products.Repository
	Favorites(db dbx.DBTX) favorites.Repository
	Blocks(db dbx.DBTX) blocks.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	Messages(db dbx.DBTX) messages.Repository
	Orders(db dbx.DBTX) orders.Repository
}
