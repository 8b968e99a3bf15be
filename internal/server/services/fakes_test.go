package services

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/payments"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/blocks"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/favorites"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/messages"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/orders"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/products"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type nopLogger = logging.Nop

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeRepoManager hands out in-memory repositories regardless of the handle
// passed in, so transactional code paths share state with the rest.
type fakeRepoManager struct {
	users         *fakeUsersRepo
	products      *fakeProductsRepo
	favorites     *fakeFavoritesRepo
	blocks        *fakeBlocksRepo
	notifications *fakeNotificationsRepo
	messages      *fakeMessagesRepo
	orders        *fakeOrdersRepo
}

func newFakeRepoManager() *fakeRepoManager {
	rm := &fakeRepoManager{
		users:         &fakeUsersRepo{byClerk: map[string]*models.User{}},
		products:      &fakeProductsRepo{byID: map[string]*models.Product{}},
		favorites:     &fakeFavoritesRepo{pairs: map[[2]string]time.Time{}},
		blocks:        &fakeBlocksRepo{users: map[[2]string]bool{}, products: map[[2]string]bool{}},
		notifications: &fakeNotificationsRepo{byID: map[string]*models.Notification{}},
		messages:      &fakeMessagesRepo{byID: map[string]*models.Message{}},
		orders:        &fakeOrdersRepo{bySession: map[string]*models.Order{}},
	}
	rm.favorites.products = rm.products
	return rm
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeRepoManager) Products(dbx.DBTX) products.Repository           { return m.products }
func (m *fakeRepoManager) Favorites(dbx.DBTX) favorites.Repository         { return m.favorites }
func (m *fakeRepoManager) Blocks(dbx.DBTX) blocks.Repository               { return m.blocks }
func (m *fakeRepoManager) Notifications(dbx.DBTX) notifications.Repository { return m.notifications }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository           { return m.messages }
func (m *fakeRepoManager) Orders(dbx.DBTX) orders.Repository               { return m.orders }

// --- users ---

type fakeUsersRepo struct {
	byClerk map[string]*models.User
	err     error
}

func (r *fakeUsersRepo) Ensure(_ context.Context, u *models.User) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if got, ok := r.byClerk[u.ClerkID]; ok {
		return got, nil
	}
	cp := *u
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.byClerk[u.ClerkID] = &cp
	return &cp, nil
}

func (r *fakeUsersRepo) GetByClerkID(_ context.Context, clerkID string) (*models.User, error) {
	if u, ok := r.byClerk[clerkID]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) UpdateProfile(_ context.Context, clerkID, name, phone string) (*models.User, error) {
	u, ok := r.byClerk[clerkID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Name, u.Phone = name, phone
	return u, nil
}

// --- products ---

type fakeProductsRepo struct {
	byID       map[string]*models.Product
	lastFilter models.ProductFilter
	listErr    error
	markErr    error
}

func (r *fakeProductsRepo) add(sellerID string, price float64) *models.Product {
	p := &models.Product{
		ID: uuid.NewString(), Title: "Bike", Price: price, SellerID: sellerID,
		Status: common.ProductStatusAvailable, Images: []string{}, CreatedAt: time.Now(),
	}
	r.byID[p.ID] = p
	return p
}

func (r *fakeProductsRepo) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	cp := *p
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeProductsRepo) GetByID(_ context.Context, id string) (*models.Product, error) {
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeProductsRepo) Update(_ context.Context, p *models.Product) (*models.Product, error) {
	cur, ok := r.byID[p.ID]
	if !ok || cur.SellerID != p.SellerID {
		return nil, common.ErrorNotFound
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	r.byID[p.ID] = &cp
	return &cp, nil
}

func (r *fakeProductsRepo) Delete(_ context.Context, id, sellerID string) error {
	p, ok := r.byID[id]
	if !ok || p.SellerID != sellerID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeProductsRepo) List(_ context.Context, f models.ProductFilter) ([]*models.Product, int, error) {
	r.lastFilter = f
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []*models.Product
	for _, p := range r.byID {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, p.ID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeProductsRepo) MarkSold(_ context.Context, id string) error {
	if r.markErr != nil {
		return r.markErr
	}
	p, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Status = common.ProductStatusSold
	return nil
}

// --- favorites ---

type fakeFavoritesRepo struct {
	pairs    map[[2]string]time.Time
	products *fakeProductsRepo
}

func (r *fakeFavoritesRepo) Add(_ context.Context, userID, productID string) (*models.Favorite, error) {
	if r.products != nil {
		if _, ok := r.products.byID[productID]; !ok {
			return nil, common.ErrorNotFound
		}
	}
	k := [2]string{userID, productID}
	if _, ok := r.pairs[k]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.pairs[k] = time.Now()
	return &models.Favorite{UserID: userID, ProductID: productID, CreatedAt: r.pairs[k]}, nil
}

func (r *fakeFavoritesRepo) Remove(_ context.Context, userID, productID string) error {
	k := [2]string{userID, productID}
	if _, ok := r.pairs[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.pairs, k)
	return nil
}

func (r *fakeFavoritesRepo) Exists(_ context.Context, userID, productID string) (bool, error) {
	_, ok := r.pairs[[2]string{userID, productID}]
	return ok, nil
}

func (r *fakeFavoritesRepo) ListProducts(_ context.Context, userID string) ([]*models.Product, error) {
	out := []*models.Product{}
	for k := range r.pairs {
		if k[0] == userID && r.products != nil {
			if p, ok := r.products.byID[k[1]]; ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// --- blocks ---

type fakeBlocksRepo struct {
	users     map[[2]string]bool
	products  map[[2]string]bool
	statusErr error
}

func (r *fakeBlocksRepo) BlockProduct(_ context.Context, userID, productID string) (*models.BlockedProduct, error) {
	k := [2]string{userID, productID}
	if r.products[k] {
		return nil, common.ErrorAlreadyExists
	}
	r.products[k] = true
	return &models.BlockedProduct{UserID: userID, ProductID: productID, BlockedAt: time.Now()}, nil
}

func (r *fakeBlocksRepo) UnblockProduct(_ context.Context, userID, productID string) error {
	k := [2]string{userID, productID}
	if !r.products[k] {
		return common.ErrorNotFound
	}
	delete(r.products, k)
	return nil
}

func (r *fakeBlocksRepo) ListBlockedProducts(_ context.Context, userID string) ([]*models.BlockedProduct, error) {
	out := []*models.BlockedProduct{}
	for k := range r.products {
		if k[0] == userID {
			out = append(out, &models.BlockedProduct{UserID: userID, ProductID: k[1]})
		}
	}
	return out, nil
}

func (r *fakeBlocksRepo) BlockUser(_ context.Context, userID, otherID string) (*models.BlockedUser, error) {
	k := [2]string{userID, otherID}
	if r.users[k] {
		return nil, common.ErrorAlreadyExists
	}
	r.users[k] = true
	return &models.BlockedUser{UserID: userID, BlockedUserID: otherID, BlockedAt: time.Now()}, nil
}

func (r *fakeBlocksRepo) UnblockUser(_ context.Context, userID, otherID string) error {
	k := [2]string{userID, otherID}
	if !r.users[k] {
		return common.ErrorNotFound
	}
	delete(r.users, k)
	return nil
}

func (r *fakeBlocksRepo) ListBlockedUsers(_ context.Context, userID string) ([]*models.BlockedUser, error) {
	out := []*models.BlockedUser{}
	for k := range r.users {
		if k[0] == userID {
			out = append(out, &models.BlockedUser{UserID: userID, BlockedUserID: k[1]})
		}
	}
	return out, nil
}

func (r *fakeBlocksRepo) Status(_ context.Context, userID, otherID string) (models.BlockStatus, error) {
	if r.statusErr != nil {
		return models.BlockStatus{}, r.statusErr
	}
	return models.BlockStatus{
		Blocked:   r.users[[2]string{userID, otherID}],
		BlockedBy: r.users[[2]string{otherID, userID}],
	}, nil
}

// --- notifications ---

type fakeNotificationsRepo struct {
	byID       map[string]*models.Notification
	countCalls int
	markCalls  int
	// afterCount runs once the count is taken, before it is returned
	afterCount func()
}

func (r *fakeNotificationsRepo) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	cp := *n
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	r.byID[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeNotificationsRepo) GetByID(_ context.Context, id string) (*models.Notification, error) {
	if n, ok := r.byID[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeNotificationsRepo) ListByRecipient(_ context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	out := []*models.Notification{}
	for _, n := range r.byID {
		if n.RecipientUserID == recipientID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationsRepo) CountUnread(_ context.Context, recipientID string) (int, error) {
	r.countCalls++
	c := 0
	for _, n := range r.byID {
		if n.RecipientUserID == recipientID && !n.Read {
			c++
		}
	}
	if r.afterCount != nil {
		r.afterCount()
	}
	return c, nil
}

func (r *fakeNotificationsRepo) MarkRead(_ context.Context, id, recipientID string) error {
	r.markCalls++
	n, ok := r.byID[id]
	if !ok || n.RecipientUserID != recipientID {
		return common.ErrorNotFound
	}
	n.Read = true
	return nil
}

func (r *fakeNotificationsRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	var c int64
	for _, n := range r.byID {
		if n.RecipientUserID == recipientID && !n.Read {
			n.Read = true
			c++
		}
	}
	return c, nil
}

func (r *fakeNotificationsRepo) Delete(_ context.Context, id, recipientID string) error {
	n, ok := r.byID[id]
	if !ok || n.RecipientUserID != recipientID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

// --- messages ---

type fakeMessagesRepo struct {
	byID  map[string]*models.Message
	clock time.Time
}

func (r *fakeMessagesRepo) tick() time.Time {
	if r.clock.IsZero() {
		r.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeMessagesRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	cp := *m
	cp.ID = uuid.NewString()
	cp.Timestamp = r.tick()
	r.byID[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeMessagesRepo) GetByID(_ context.Context, id string) (*models.Message, error) {
	if m, ok := r.byID[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeMessagesRepo) UpdateText(_ context.Context, id, senderID, text string) (*models.Message, error) {
	m, ok := r.byID[id]
	if !ok || m.SenderID != senderID {
		return nil, common.ErrorNotFound
	}
	ts := r.tick()
	m.Text, m.EditedAt = text, &ts
	cp := *m
	return &cp, nil
}

func (r *fakeMessagesRepo) Delete(_ context.Context, id, senderID string) error {
	m, ok := r.byID[id]
	if !ok || m.SenderID != senderID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeMessagesRepo) sorted(keep func(*models.Message) bool) []*models.Message {
	out := []*models.Message{}
	for _, m := range r.byID {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func between(m *models.Message, a, b string) bool {
	if m.RecipientID == nil {
		return false
	}
	return (m.SenderID == a && *m.RecipientID == b) || (m.SenderID == b && *m.RecipientID == a)
}

func (r *fakeMessagesRepo) ListBetween(_ context.Context, userID, otherID string, limit int, before *time.Time) ([]*models.Message, error) {
	out := r.sorted(func(m *models.Message) bool {
		return between(m, userID, otherID) && (before == nil || m.Timestamp.Before(*before))
	})
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessagesRepo) ListBroadcasts(_ context.Context, limit int) ([]*models.Message, error) {
	out := r.sorted(func(m *models.Message) bool { return m.RecipientID == nil })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessagesRepo) ListInvolving(_ context.Context, userID string, limit int) ([]*models.Message, error) {
	out := r.sorted(func(m *models.Message) bool {
		return m.RecipientID != nil && (m.SenderID == userID || *m.RecipientID == userID)
	})
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessagesRepo) MarkRead(_ context.Context, recipientID, senderID string) (int64, error) {
	var n int64
	for _, m := range r.byID {
		if m.SenderID == senderID && m.RecipientID != nil && *m.RecipientID == recipientID && m.ReadAt == nil {
			ts := r.tick()
			m.ReadAt = &ts
			n++
		}
	}
	return n, nil
}

// --- orders ---

type fakeOrdersRepo struct {
	bySession map[string]*models.Order
	getErr    error
	// raceOnCreate simulates a concurrent delivery inserting first.
	raceOnCreate bool
}

func (r *fakeOrdersRepo) GetBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if o, ok := r.bySession[sessionID]; ok {
		return o, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeOrdersRepo) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	if r.raceOnCreate {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.bySession[o.StripeSessionID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	cp := *o
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.bySession[cp.StripeSessionID] = &cp
	return &cp, nil
}

func (r *fakeOrdersRepo) list(keep func(*models.Order) bool) []*models.Order {
	out := []*models.Order{}
	for _, o := range r.bySession {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func (r *fakeOrdersRepo) ListByBuyer(_ context.Context, buyerID string) ([]*models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *fakeOrdersRepo) ListBySeller(_ context.Context, sellerID string) ([]*models.Order, error) {
	return r.list(func(o *models.Order) bool { return o.SellerID == sellerID }), nil
}

// --- platforms ---

type pushed struct {
	Event realtime.Event
	To    []string
	All   bool
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []pushed
	err    error
}

func (p *fakePusher) SendToUsers(_ context.Context, ev realtime.Event, userIDs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{Event: ev, To: userIDs})
	return p.err
}

func (p *fakePusher) Broadcast(_ context.Context, ev realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{Event: ev, All: true})
	return p.err
}

func (p *fakePusher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.pushes))
	for _, ps := range p.pushes {
		out = append(out, ps.Event.Type)
	}
	return out
}

type published struct {
	Topic, Key string
	Payload    any
}

type fakePublisher struct {
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.events = append(p.events, published{Topic: topic, Key: key, Payload: payload})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) topics() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

type fakeIndex struct {
	indexed   []string
	deleted   []string
	ids       []string
	searchErr error
	indexErr  error
}

func (i *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	i.indexed = append(i.indexed, p.ID)
	return i.indexErr
}

func (i *fakeIndex) DeleteProduct(_ context.Context, id string) error {
	i.deleted = append(i.deleted, id)
	return nil
}

func (i *fakeIndex) SearchProductIDs(context.Context, models.ProductFilter) ([]string, error) {
	return i.ids, i.searchErr
}

type fakeGateway struct {
	lastReq  payments.CheckoutRequest
	session  *payments.CheckoutSession
	createEr error

	event    *payments.WebhookEvent
	parseErr error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	g.lastReq = req
	if g.createEr != nil {
		return nil, g.createEr
	}
	return g.session, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (*payments.WebhookEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	if g.event == nil {
		return nil, errors.New("no event configured")
	}
	return g.event, nil
}
