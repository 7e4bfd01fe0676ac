package goShop

import (
	"context"
	"fmt"
	"net/http"
)

const (
	taxRatePercent        = 10
	freeShippingThreshold = 5000 // cents; shipping is free strictly above it
	flatShippingCents     = 1000
)

// CartSummary is the checkout arithmetic for a cart, in cents.
type CartSummary struct {
	Items    int
	Subtotal int64
	Tax      int64
	Shipping int64
	Total    int64
	// FreeShippingRemaining is how much more qualifies for free shipping; zero for an
	// empty cart or once the threshold is reached.
	FreeShippingRemaining int64
}

// percentOf returns percent% of cents, rounded half away from zero like ParseAmount.
func percentOf(cents, percent int64) int64 {
	v := cents * percent
	if v < 0 {
		return -((-v + 50) / 100)
	}
	return (v + 50) / 100
}

// SummarizeCart computes tax (10%, rounded half away from zero to the cent), shipping (free above 50.00,
// otherwise 10.00) and the total from the cart's total_price.
func SummarizeCart(cart Cart) (CartSummary, error) {
	subtotal, err := cart.TotalPrice.Cents()
	if err != nil {
		return CartSummary{}, err
	}

	s := CartSummary{
		Items:    cart.TotalItems,
		Subtotal: subtotal,
		Tax:      percentOf(subtotal, taxRatePercent),
		Shipping: flatShippingCents,
	}
	if subtotal > freeShippingThreshold {
		s.Shipping = 0
	}
	if subtotal > 0 && subtotal < freeShippingThreshold {
		s.FreeShippingRemaining = freeShippingThreshold - subtotal
	}
	s.Total = s.Subtotal + s.Tax + s.Shipping
	return s, nil
}

// Cart returns the caller's cart.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	return cachedQuery[*Cart](ctx, c, Key(QueryCart), true, func(ctx context.Context, out **Cart) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/cart/"}, out)
	})
}

// CartItems returns the items of the caller's cart.
func (c *Client) CartItems(ctx context.Context) ([]CartItem, error) {
	return cachedQuery[[]CartItem](ctx, c, Key(QueryCartItems), true, func(ctx context.Context, out *[]CartItem) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/cart/items/"}, out)
	})
}

type addToCartRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// AddToCart adds quantity units of a product. A quantity of 0 adds one.
func (c *Client) AddToCart(ctx context.Context, productID, quantity int) (*CartItem, error) {
	if productID <= 0 {
		return nil, invalidArgument("product id must be positive, got %d", productID)
	}
	if quantity < 0 {
		return nil, invalidArgument("quantity must not be negative, got %d", quantity)
	}
	if quantity == 0 {
		quantity = 1
	}

	var item CartItem
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/cart/items/",
		body:   addToCartRequest{ProductID: productID, Quantity: quantity},
	}, &item)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(ctx, Key(QueryCart), Key(QueryCartItems))
	return &item, nil
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem sets the quantity of a cart item.
func (c *Client) UpdateCartItem(ctx context.Context, itemID, quantity int) (*CartItem, error) {
	if itemID <= 0 {
		return nil, invalidArgument("cart item id must be positive, got %d", itemID)
	}
	if quantity < 1 {
		return nil, invalidArgument("quantity must be at least 1, got %d", quantity)
	}

	var item CartItem
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/cart/items/%d/", itemID),
		body:   updateCartItemRequest{Quantity: quantity},
	}, &item)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(ctx, Key(QueryCart), Key(QueryCartItems))
	return &item, nil
}

// RemoveFromCart deletes a cart item.
func (c *Client) RemoveFromCart(ctx context.Context, itemID int) error {
	if itemID <= 0 {
		return invalidArgument("cart item id must be positive, got %d", itemID)
	}
	if err := c.do(ctx, call{method: http.MethodDelete, path: fmt.Sprintf("/cart/items/%d/", itemID)}, nil); err != nil {
		return err
	}
	c.cache.invalidate(ctx, Key(QueryCart), Key(QueryCartItems))
	return nil
}

// ClearCart empties the caller's cart.
func (c *Client) ClearCart(ctx context.Context) error {
	if err := c.do(ctx, call{method: http.MethodDelete, path: "/cart/clear/"}, nil); err != nil {
		return err
	}
	c.cache.invalidate(ctx, Key(QueryCart), Key(QueryCartItems))
	return nil
}
