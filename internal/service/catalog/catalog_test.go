package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/search"
	"github.com/prockx/storefront/internal/testutil"
	"github.com/prockx/storefront/internal/transport"
)

type fakeIndex struct {
	indexed []uuid.UUID
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, q search.Query) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

type recorder struct {
	topics []string
	events []any
}

func (r *recorder) Publish(_ context.Context, topic, _ string, ev any) error {
	r.topics = append(r.topics, topic)
	r.events = append(r.events, ev)
	return nil
}

func newService(t *testing.T) (*Service, *fakeIndex, *recorder) {
	t.Helper()
	idx := &fakeIndex{}
	rec := &recorder{}
	return &Service{Repo: repo.New(testutil.NewDB(t)), Index: idx, Events: rec}, idx, rec
}

func validCreate() transport.CreateProductRequest {
	return transport.CreateProductRequest{
		Name:        "Phone",
		Description: "A phone",
		Price:       decimal.NewFromInt(1000),
		Category:    "electronics",
		Brand:       "Acme",
		Images:      []string{"phone.png"},
		Stock:       5,
		Discount:    10,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() models.Product {
		return models.Product{Name: "n", Description: "d", Price: decimal.NewFromInt(1), Category: "books", Brand: "b"}
	}
	tests := []struct {
		name   string
		mutate func(p *models.Product)
	}{
		{"empty name", func(p *models.Product) { p.Name = "" }},
		{"long name", func(p *models.Product) { p.Name = string(make([]rune, 101)) }},
		{"negative price", func(p *models.Product) { p.Price = decimal.NewFromInt(-1) }},
		{"bad category", func(p *models.Product) { p.Category = "toys" }},
		{"no brand", func(p *models.Product) { p.Brand = " " }},
		{"negative stock", func(p *models.Product) { p.Stock = -1 }},
		{"rating too high", func(p *models.Product) { p.Rating = 5.5 }},
		{"discount too high", func(p *models.Product) { p.Discount = 101 }},
	}

	ok := base()
	require.NoError(t, Validate(&ok))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			assert.ErrorIs(t, Validate(&p), apperr.ErrInvalidRequest)
		})
	}
}

func TestCreate_IndexesAndPublishes(t *testing.T) {
	svc, idx, rec := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(900).Equal(p.DiscountedPrice))
	assert.Equal(t, []uuid.UUID{p.ID}, idx.indexed)
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.TopicProducts, rec.topics[0])
	assert.Equal(t, "product_created", rec.events[0].(events.ProductChanged).Type)

	bad := validCreate()
	bad.Category = "weapons"
	_, err = svc.Create(ctx, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestPatch(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	price := decimal.NewFromInt(1200)
	got, err := svc.Patch(ctx, p.ID, transport.PatchProductRequest{Price: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(got.Price))
	assert.Equal(t, "Phone", got.Name)

	neg := -2
	_, err = svc.Patch(ctx, p.ID, transport.PatchProductRequest{Stock: &neg})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	_, err = svc.Patch(ctx, uuid.New(), transport.PatchProductRequest{Price: &price})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPatch_OversoldProductStillEditable(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	_, _, err = svc.Repo.DecrementStock(ctx, p.ID, 9)
	require.NoError(t, err)

	name := "Phone 2"
	got, err := svc.Patch(ctx, p.ID, transport.PatchProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, -4, got.Stock)
}

func TestDelete(t *testing.T) {
	svc, idx, rec := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []uuid.UUID{p.ID}, idx.deleted)
	assert.Equal(t, "product_deleted", rec.events[len(rec.events)-1].(events.ProductChanged).Type)

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), apperr.ErrNotFound)
}

func TestList_PaginationMeta(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, validCreate())
		require.NoError(t, err)
	}

	out, err := svc.List(ctx, transport.ProductQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Products, 2)
	assert.Equal(t, transport.PageMeta{Page: 2, Pages: 3, Total: 5, HasNext: true, HasPrev: true}, out.Pagination)
}

func TestList_SearchUsesIndex(t *testing.T) {
	svc, idx, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	idx.hits = []uuid.UUID{a.ID}

	out, err := svc.List(ctx, transport.ProductQuery{Search: "zzz-not-in-db-text", Limit: 10})
	require.NoError(t, err)
	require.Len(t, out.Products, 1)
	assert.Equal(t, a.ID, out.Products[0].ID)
}

func TestList_SearchFallsBackToDatabase(t *testing.T) {
	svc, idx, _ := newService(t)
	ctx := context.Background()
	idx.err = errors.New("cluster down")

	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	out, err := svc.List(ctx, transport.ProductQuery{Search: "phone", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, out.Products, 1)

	out, err = svc.List(ctx, transport.ProductQuery{Search: "tablet", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, out.Products)
}

func TestCategories(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	book := validCreate()
	book.Category = "books"
	_, err = svc.Create(ctx, book)
	require.NoError(t, err)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"books", "electronics"}, cats)
}
