package services

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/events"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bazaar/internal/server/search"
)

const (
	MaxProductImages = 10
	maxTitleLen      = 200
	maxDescLen       = 5000

	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ProductService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	index       search.Index
	events      events.Publisher
	logger      logging.Logger
}

// NewProductService builds the listing service. index may be nil, in which
// case text queries run in SQL.
func NewProductService(db *sql.DB, repomanager repomanager.RepositoryManager, index search.Index,
	publisher events.Publisher, logger logging.Logger) *ProductService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ProductService{
		db:          db,
		repomanager: repomanager,
		index:       index,
		events:      publisher,
		logger:      logger.With("module", "products"),
	}
}

func validateProductInput(in *models.ProductInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Condition = strings.TrimSpace(in.Condition)

	if in.Title == "" {
		return validationError("title is required")
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLen {
		return validationError("title is longer than %d characters", maxTitleLen)
	}
	if utf8.RuneCountInString(in.Description) > maxDescLen {
		return validationError("description is longer than %d characters", maxDescLen)
	}
	if !validAmount(in.Price, 0, true) {
		return validationError("price must be between 0 and %.2f", MaxAmount)
	}
	if len(in.Images) > MaxProductImages {
		return validationError("at most %d images are allowed", MaxProductImages)
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			return validationError("image url must not be empty")
		}
	}
	if in.Images == nil {
		in.Images = []string{}
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, sellerID string, in models.ProductInput) (*models.Product, error) {
	if err := requireUser(sellerID); err != nil {
		return nil, err
	}
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Products(s.db).Create(ctx, &models.Product{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Condition:   in.Condition,
		Images:      in.Images,
		SellerID:    sellerID,
		Status:      common.ProductStatusAvailable,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "product created", "product_id", p.ID, "seller_id", sellerID)
	s.afterWrite(ctx, events.TopicProductCreated, p)
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	if err := requireID("product", id); err != nil {
		return nil, err
	}
	return s.repomanager.Products(s.db).GetByID(ctx, id)
}

// owned loads the product and checks userID is its seller.
func (s *ProductService) owned(ctx context.Context, userID, id string) (*models.Product, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != userID {
		return nil, common.ErrorForbidden
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, userID, id string, in models.ProductInput) (*models.Product, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}

	p.Title = in.Title
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Condition = in.Condition
	p.Images = in.Images

	p, err = s.repomanager.Products(s.db).Update(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "product updated", "product_id", p.ID)
	s.afterWrite(ctx, events.TopicProductUpdated, p)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, userID, id string) error {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repomanager.Products(s.db).Delete(ctx, p.ID, userID); err != nil {
		return err
	}

	s.logger.Info(ctx, "product deleted", "product_id", p.ID)
	if s.index != nil {
		if err := s.index.DeleteProduct(ctx, p.ID); err != nil {
			s.logger.Warn(ctx, "search index delete failed", "product_id", p.ID, "error", err)
		}
	}
	if err := s.events.Publish(ctx, events.TopicProductDeleted, p.ID, map[string]string{"id": p.ID}); err != nil {
		s.logger.Warn(ctx, "event publish failed", "topic", events.TopicProductDeleted, "error", err)
	}
	return nil
}

// afterWrite keeps the search index and event stream in step with a stored
// product. Failures are logged; the database write already succeeded.
func (s *ProductService) afterWrite(ctx context.Context, topic string, p *models.Product) {
	if s.index != nil {
		if err := s.index.IndexProduct(ctx, p); err != nil {
			s.logger.Warn(ctx, "search index update failed", "product_id", p.ID, "error", err)
		}
	}
	if err := s.events.Publish(ctx, topic, p.ID, p); err != nil {
		s.logger.Warn(ctx, "event publish failed", "topic", topic, "error", err)
	}
}

// NormalizeFilter applies paging bounds, the default status and the default
// sort order.
func NormalizeFilter(f models.ProductFilter) (models.ProductFilter, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Limit = common.ClampLimit(f.Limit, DefaultPageSize, MaxPageSize)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Status == "" {
		f.Status = common.ProductStatusAvailable
	}
	switch f.Sort {
	case models.SortNewest, models.SortPriceAsc, models.SortPriceDesc:
	default:
		f.Sort = models.SortNewest
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, validationError("minPrice is greater than maxPrice")
	}
	return f, nil
}

func (s *ProductService) List(ctx context.Context, f models.ProductFilter) (*models.ProductPage, error) {
	f, err := NormalizeFilter(f)
	if err != nil {
		return nil, err
	}

	if s.index != nil && f.Query != "" {
		ids, err := s.index.SearchProductIDs(ctx, f)
		if err != nil {
			s.logger.Warn(ctx, "search index query failed, falling back to SQL", "error", err)
		} else {
			f.IDs = ids
			f.Query = ""
		}
	}

	items, total, err := s.repomanager.Products(s.db).List(ctx, f)
	if err != nil {
		return nil, err
	}

	return &models.ProductPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
