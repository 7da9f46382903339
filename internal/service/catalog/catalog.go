package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/search"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/internal/util"
	"github.com/prockx/storefront/pkg/logging"
)

// Index is the full-text side of the catalog.
type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q search.Query) (int64, []uuid.UUID, error)
}

type Service struct {
	Repo   *repo.GormRepo
	Index  Index
	Events events.Publisher
}

func (s *Service) List(ctx context.Context, q transport.ProductQuery) (*transport.ProductList, error) {
	page := max(q.Page, 1)
	offset, limit := util.Calculate(page, q.Limit)

	var (
		total int64
		items []models.Product
		err   error
	)
	if q.Search != "" && s.Index != nil {
		total, items, err = s.searchIndex(ctx, q, offset, limit)
		if err != nil {
			logging.FromContext(ctx).Warn("product_search_fallback", "reason", "index unavailable", "error", err)
		}
	}
	if items == nil {
		total, items, err = s.Repo.ListProducts(ctx, repo.ProductFilter{
			Category: q.Category,
			Brand:    q.Brand,
			Search:   q.Search,
			MinPrice: q.MinPrice,
			MaxPrice: q.MaxPrice,
			InStock:  q.InStock,
			Featured: q.Featured,
			Offset:   offset,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}
	}

	pages := util.Pages(total, limit)
	return &transport.ProductList{
		Products: items,
		Pagination: transport.PageMeta{
			Page:    page,
			Pages:   pages,
			Total:   total,
			HasNext: page < pages,
			HasPrev: page > 1,
		},
	}, nil
}

func (s *Service) searchIndex(ctx context.Context, q transport.ProductQuery, offset, limit int) (int64, []models.Product, error) {
	total, ids, err := s.Index.Search(ctx, search.Query{
		Text:     q.Search,
		Category: q.Category,
		Brand:    q.Brand,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		InStock:  q.InStock,
		Featured: q.Featured,
		From:     offset,
		Size:     limit,
	})
	if err != nil {
		return 0, nil, err
	}
	items, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.Repo.Categories(ctx)
}

func (s *Service) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	prod := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Brand:       strings.TrimSpace(req.Brand),
		Images:      req.Images,
		Stock:       req.Stock,
		Rating:      req.Rating,
		NumReviews:  req.NumReviews,
		Tags:        req.Tags,
		IsFeatured:  req.IsFeatured,
		Discount:    req.Discount,
	}
	if err := Validate(prod); err != nil {
		return nil, err
	}

	created, err := s.Repo.CreateProduct(ctx, prod)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "product_created", created)
	return created, nil
}

func (s *Service) Patch(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	current, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *current
	applyPatch(&merged, req)
	if req.Stock == nil {
		// orders may have oversold it; only a stock edit is held to the floor
		merged.Stock = max(merged.Stock, 0)
	}
	if err := Validate(&merged); err != nil {
		return nil, err
	}

	prod, err := s.Repo.PatchProduct(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "product_updated", prod)
	return prod, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	l := logging.FromContext(ctx)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			l.Warn("product_index_error", "product_id", id, "error", err)
		}
	}
	s.publish(ctx, events.ProductChanged{Type: "product_deleted", ProductID: id, At: time.Now().UTC()})
	return nil
}

func (s *Service) afterWrite(ctx context.Context, kind string, p *models.Product) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("product_index_error", "product_id", p.ID, "error", err)
		}
	}
	s.publish(ctx, events.ProductChanged{Type: kind, ProductID: p.ID, Name: p.Name, At: time.Now().UTC()})
}

func (s *Service) publish(ctx context.Context, ev events.ProductChanged) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, events.TopicProducts, ev.ProductID.String(), ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicProducts, "error", err)
	}
}

func applyPatch(p *models.Product, req transport.PatchProductRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Rating != nil {
		p.Rating = *req.Rating
	}
	if req.Discount != nil {
		p.Discount = *req.Discount
	}
}

// Validate checks the admin-editable product fields.
func Validate(p *models.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", apperr.ErrInvalidRequest)
	case utf8.RuneCountInString(p.Name) > 100:
		return fmt.Errorf("%w: name must be at most 100 characters", apperr.ErrInvalidRequest)
	case p.Description == "":
		return fmt.Errorf("%w: description is required", apperr.ErrInvalidRequest)
	case utf8.RuneCountInString(p.Description) > 2000:
		return fmt.Errorf("%w: description must be at most 2000 characters", apperr.ErrInvalidRequest)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", apperr.ErrInvalidRequest)
	case !slices.Contains(models.Categories, p.Category):
		return fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidRequest, p.Category)
	case strings.TrimSpace(p.Brand) == "":
		return fmt.Errorf("%w: brand is required", apperr.ErrInvalidRequest)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be >= 0", apperr.ErrInvalidRequest)
	case p.Rating < 0 || p.Rating > 5:
		return fmt.Errorf("%w: rating must be between 0 and 5", apperr.ErrInvalidRequest)
	case p.Discount < 0 || p.Discount > 100:
		return fmt.Errorf("%w: discount must be between 0 and 100", apperr.ErrInvalidRequest)
	}
	return nil
}
