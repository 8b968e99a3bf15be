// Package search keeps a full-text product index in Elasticsearch. Postgres
// stays the source of truth: the index only resolves text queries to ids.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/elastic/go-elasticsearch/v8"
)

// MaxHits bounds how many ids a text query resolves to.
const MaxHits = 1000

type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// SearchProductIDs returns ids of products matching the text query and
	// the structured parts of f, best match first.
	SearchProductIDs(ctx context.Context, f models.ProductFilter) ([]string, error)
}

type ElasticIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewElasticIndex(addr, index string) (*ElasticIndex, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &ElasticIndex{es: es, index: index}, nil
}

// mapping keeps the filter fields as keyword so term queries match the exact
// values Postgres stores (mixed-case user ids, multi-word categories).
var mapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"title":       map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"price":       map[string]any{"type": "double"},
			"category":    map[string]any{"type": "keyword"},
			"condition":   map[string]any{"type": "keyword"},
			"sellerId":    map[string]any{"type": "keyword"},
			"status":      map[string]any{"type": "keyword"},
		},
	},
}

// EnsureIndex creates the index with its explicit mapping unless it exists.
// It must run before the first document is indexed, otherwise Elasticsearch
// infers a text mapping for the filter fields.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists([]string{e.index}, e.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", e.index, err)
	}
	res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode != http.StatusNotFound:
		return fmt.Errorf("check index %s: %s", e.index, res.Status())
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = e.es.Indices.Create(e.index,
		e.es.Indices.Create.WithBody(bytes.NewReader(body)),
		e.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		// another instance won the race
		var out struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		if json.NewDecoder(res.Body).Decode(&out) == nil && strings.Contains(out.Error.Type, "already_exists") {
			return nil
		}
		return fmt.Errorf("create index %s: %s", e.index, res.Status())
	}
	return nil
}

type document struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Condition   string  `json:"condition"`
	SellerID    string  `json:"sellerId"`
	Status      string  `json:"status"`
}

func (e *ElasticIndex) IndexProduct(ctx context.Context, p *models.Product) error {
	body, err := json.Marshal(document{
		ID: p.ID, Title: p.Title, Description: p.Description, Price: p.Price,
		Category: p.Category, Condition: p.Condition, SellerID: p.SellerID, Status: p.Status,
	})
	if err != nil {
		return err
	}

	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithDocumentID(p.ID),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index product %s: %s", p.ID, res.Status())
	}
	return nil
}

func (e *ElasticIndex) DeleteProduct(ctx context.Context, id string) error {
	res, err := e.es.Delete(e.index, id, e.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete product %s: %s", id, res.Status())
	}
	return nil
}

func (e *ElasticIndex) SearchProductIDs(ctx context.Context, f models.ProductFilter) ([]string, error) {
	body, err := json.Marshal(buildQuery(f))
	if err != nil {
		return nil, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithSize(MaxHits),
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search products: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func buildQuery(f models.ProductFilter) map[string]any {
	must := []any{}
	if f.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  f.Query,
				"fields": []string{"title^2", "description"},
			},
		})
	}

	filter := []any{}
	term := func(field, value string) {
		if value != "" {
			filter = append(filter, map[string]any{"term": map[string]any{field: value}})
		}
	}
	// status is left to Postgres, which is authoritative for it
	term("category", f.Category)
	term("condition", f.Condition)
	term("sellerId", f.SellerID)

	price := map[string]any{}
	if f.MinPrice != nil {
		price["gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter = append(filter, map[string]any{"range": map[string]any{"price": price}})
	}

	return map[string]any{
		"_source": false,
		"query": map[string]any{
			"bool": map[string]any{
				"must":   must,
				"filter": filter,
			},
		},
	}
}
