package goShop

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ProductFilter narrows the product list. Empty fields are not sent.
type ProductFilter struct {
	Search   string
	Category string
}

func (f ProductFilter) values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if s := strings.TrimSpace(f.Category); s != "" {
		v.Set("category", s)
	}
	return v
}

// Products lists the catalog. It does not require a session.
func (c *Client) Products(ctx context.Context, filter ProductFilter) ([]Product, error) {
	params := filter.values()
	return cachedQuery[[]Product](ctx, c, paramsKey(QueryProducts, params), false, func(ctx context.Context, out *[]Product) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/products/", query: params}, out)
	})
}

// Product returns one product by id.
func (c *Client) Product(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return nil, invalidArgument("product id must be positive, got %d", id)
	}
	return cachedQuery[*Product](ctx, c, idKey(QueryProduct, id), false, func(ctx context.Context, out **Product) error {
		return c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/products/%d/", id)}, out)
	})
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return cachedQuery[[]Category](ctx, c, Key(QueryCategories), false, func(ctx context.Context, out *[]Category) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/categories/"}, out)
	})
}
