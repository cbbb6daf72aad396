// Package catalog reads products from the remote REST catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/catalog-gate/internal/domain"
	"github.com/spec-kit/catalog-gate/internal/upstream"
)

const (
	// DefaultBaseURL is the public catalog API.
	DefaultBaseURL = "https://dummyjson.com"
	// DefaultLimit is the page size used when none is given.
	DefaultLimit = 20
	// DefaultTimeout bounds each catalog request.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrNotFound is returned for an unknown product id.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidArgument is returned for out-of-range paging or ids.
	ErrInvalidArgument = errors.New("invalid catalog argument")
)

// Client fetches products.
type Client interface {
	List(ctx context.Context, limit, skip int) (*domain.ProductPage, error)
	GetByID(ctx context.Context, id int) (*domain.Product, error)
}

type httpClient struct {
	baseURL string
	client  upstream.Client
}

// NewHTTPClient returns a Client for a dummyjson-compatible API.
func NewHTTPClient(baseURL string, timeout time.Duration) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  upstream.Client{Timeout: timeout},
	}
}

func (c *httpClient) List(ctx context.Context, limit, skip int) (*domain.ProductPage, error) {
	if limit < 0 || skip < 0 {
		return nil, ErrInvalidArgument
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))

	var page domain.ProductPage
	if err := c.client.GetJSON(ctx, c.baseURL+"/products?"+q.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &page, nil
}

func (c *httpClient) GetByID(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidArgument
	}

	var product domain.Product
	err := c.client.GetJSON(ctx, c.baseURL+"/products/"+strconv.Itoa(id), nil, &product)
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == 404 {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}
