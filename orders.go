package goShop

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Orders lists the signed-in user's orders.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	return cachedQuery[[]Order](ctx, c, Key(QueryOrders), true, func(ctx context.Context, out *[]Order) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/orders/"}, out)
	})
}

// Order returns one of the signed-in user's orders.
func (c *Client) Order(ctx context.Context, id int) (*Order, error) {
	if id <= 0 {
		return nil, invalidArgument("order id must be positive, got %d", id)
	}
	return cachedQuery[*Order](ctx, c, idKey(QueryOrder, id), true, func(ctx context.Context, out **Order) error {
		return c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/orders/%d/", id)}, out)
	})
}

// CreateOrder checks out the current cart. The cart, order list and order stats are
// invalidated.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if strings.TrimSpace(req.ShippingAddress) == "" || strings.TrimSpace(req.ShippingPhone) == "" {
		return nil, invalidArgument("shipping address and phone are required")
	}

	var order Order
	err := c.do(ctx, call{method: http.MethodPost, path: "/orders/", body: req}, &order)
	if err != nil {
		c.emitAudit(ctx, AuditOrderCreated, c.currentUserID(), false, err, nil)
		return nil, err
	}
	c.cache.invalidate(ctx, Key(QueryOrders), Key(QueryCart), Key(QueryCartItems), Key(QueryUserStats))
	c.metrics.Inc(MetricOrderCreated)
	c.emitAudit(ctx, AuditOrderCreated, c.currentUserID(), true, nil, map[string]string{
		"order_id":     strconv.Itoa(order.ID),
		"order_number": order.OrderNumber,
		"total":        string(order.TotalAmount),
	})
	return &order, nil
}

// AdminOrderFilter narrows the admin order list. Empty fields are not sent.
type AdminOrderFilter struct {
	Status OrderStatus
	User   string
}

// AdminOrders lists all orders. The backend rejects non-staff callers.
func (c *Client) AdminOrders(ctx context.Context, filter AdminOrderFilter) ([]Order, error) {
	params := url.Values{}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, invalidArgument("unknown order status %q", filter.Status)
		}
		params.Set("status", string(filter.Status))
	}
	if u := strings.TrimSpace(filter.User); u != "" {
		params.Set("user", u)
	}
	return cachedQuery[[]Order](ctx, c, paramsKey(QueryAdminOrders, params), true, func(ctx context.Context, out *[]Order) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/admin/orders/", query: params}, out)
	})
}

// AdminOrder returns any order by id.
func (c *Client) AdminOrder(ctx context.Context, id int) (*Order, error) {
	if id <= 0 {
		return nil, invalidArgument("order id must be positive, got %d", id)
	}
	return cachedQuery[*Order](ctx, c, idKey(QueryAdminOrder, id), true, func(ctx context.Context, out **Order) error {
		return c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/admin/orders/%d/", id)}, out)
	})
}

type updateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// UpdateOrderStatus moves an order to status and invalidates the admin views of it.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int, status OrderStatus) (*Order, error) {
	if id <= 0 {
		return nil, invalidArgument("order id must be positive, got %d", id)
	}
	if !status.Valid() {
		return nil, invalidArgument("unknown order status %q", status)
	}

	var order Order
	err := c.do(ctx, call{
		method: http.MethodPatch,
		path:   fmt.Sprintf("/admin/orders/%d/status/", id),
		body:   updateOrderStatusRequest{Status: status},
	}, &order)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(ctx, Key(QueryAdminOrders), idKey(QueryAdminOrder, id), Key(QueryAdminStats))
	c.emitAudit(ctx, AuditOrderStatusUpdated, c.currentUserID(), true, nil, map[string]string{
		"order_id": strconv.Itoa(id),
		"status":   string(status),
	})
	return &order, nil
}

// AdminDashboard returns store-wide totals.
func (c *Client) AdminDashboard(ctx context.Context) (*DashboardStats, error) {
	return cachedQuery[*DashboardStats](ctx, c, Key(QueryAdminStats), true, func(ctx context.Context, out **DashboardStats) error {
		return c.do(ctx, call{method: http.MethodGet, path: "/admin/dashboard/"}, out)
	})
}
