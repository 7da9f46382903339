package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prockx/storefront/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newIndex(t *testing.T, rt roundTripFunc) *Index {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: rt,
	})
	require.NoError(t, err)
	return New(es, "products")
}

func TestQueryBody_Filters(t *testing.T) {
	lo := decimal.NewFromInt(10)
	body := Query{Text: "phone", Category: "electronics", MinPrice: &lo, InStock: true, Size: 12}.body()

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"multi_match"`)
	assert.Contains(t, s, `"category.keyword":"electronics"`)
	assert.Contains(t, s, `"gte":10`)
	assert.Contains(t, s, `"stock":{"gt":0}`)
	assert.NotContains(t, s, "is_featured")
}

func TestIndex_Search(t *testing.T) {
	id := uuid.New()
	var gotBody map[string]any

	idx := newIndex(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/products/_search", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		return respond(200, `{"hits":{"total":{"value":7},"hits":[{"_id":"`+id.String()+`"},{"_id":"not-a-uuid"}]}}`), nil
	})

	total, ids, err := idx.Search(context.Background(), Query{Text: "phone", From: 0, Size: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	assert.Equal(t, []uuid.UUID{id}, ids)
	assert.EqualValues(t, 5, gotBody["size"])
}

func TestIndex_IndexAndDelete(t *testing.T) {
	p := &models.Product{ID: uuid.New(), Name: "Phone", Price: decimal.RequireFromString("99.90"), Stock: 2}
	var paths []string
	var indexed bytes.Buffer

	idx := newIndex(t, func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			_, _ = io.Copy(&indexed, r.Body)
			return respond(201, `{"result":"created"}`), nil
		}
		return respond(404, `{"result":"not_found"}`), nil
	})

	require.NoError(t, idx.IndexProduct(context.Background(), p))
	require.NoError(t, idx.DeleteProduct(context.Background(), p.ID))

	require.Len(t, paths, 2)
	assert.Contains(t, paths[0], "/products/_doc/"+p.ID.String())
	assert.Equal(t, "DELETE /products/_doc/"+p.ID.String(), paths[1])
	assert.Contains(t, indexed.String(), `"price":99.9`)
}

func TestIndex_SearchError(t *testing.T) {
	idx := newIndex(t, func(r *http.Request) (*http.Response, error) {
		return respond(500, `{"error":"boom"}`), nil
	})
	_, _, err := idx.Search(context.Background(), Query{Text: "x", Size: 1})
	assert.Error(t, err)
}
