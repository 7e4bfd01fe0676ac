package fakeapi

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	freeShippingCents = 5000
	flatShippingCents = 1000
	taxRatePercent    = 10
)

type createOrderBody struct {
	ShippingAddress string   `json:"shipping_address"`
	ShippingPhone   string   `json:"shipping_phone"`
	ShippingCost    *float64 `json:"shipping_cost"`
	TaxAmount       *float64 `json:"tax_amount"`
	Notes           string   `json:"notes"`
}

type statusBody struct {
	Status string `json:"status"`
}

type orderStatsJSON struct {
	TotalOrders     int     `json:"total_orders"`
	PendingOrders   int     `json:"pending_orders"`
	CompletedOrders int     `json:"completed_orders"`
	TotalSpent      float64 `json:"total_spent"`
}

type dashboardJSON struct {
	TotalOrders      int     `json:"total_orders"`
	PendingOrders    int     `json:"pending_orders"`
	TotalRevenue     float64 `json:"total_revenue"`
	TotalUsers       int     `json:"total_users"`
	TotalProducts    int     `json:"total_products"`
	LowStockProducts int     `json:"low_stock_products"`
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func (s *Server) orderJSONLocked(o *order, withUser bool) orderJSON {
	out := orderJSON{
		ID:              o.ID,
		OrderNumber:     o.Number,
		Status:          o.Status,
		ShippingAddress: optional(o.ShippingAddress),
		ShippingPhone:   o.ShippingPhone,
		Subtotal:        formatCents(o.SubtotalCents),
		ShippingCost:    formatCents(o.ShippingCents),
		TaxAmount:       formatCents(o.TaxCents),
		TotalAmount:     formatCents(o.TotalCents),
		OrderDate:       o.OrderDate,
		ShippedDate:     o.ShippedDate,
		DeliveredDate:   o.DeliveredDate,
		UpdatedAt:       o.UpdatedAt,
		Notes:           optional(o.Notes),
		Items:           make([]orderItemJSON, 0, len(o.Items)),
	}
	if withUser {
		if acct := s.accounts[o.UserID]; acct != nil {
			u := acct.json()
			out.User = &u
		}
	}
	for _, item := range o.Items {
		out.TotalItems += item.Quantity
		out.Items = append(out.Items, orderItemJSON{
			ID:         item.ID,
			Order:      o.ID,
			Product:    s.productJSONLocked(s.products[item.ProductID]),
			Quantity:   item.Quantity,
			UnitPrice:  formatCents(item.UnitCents),
			TotalPrice: formatCents(item.UnitCents * int64(item.Quantity)),
			CreatedAt:  item.CreatedAt,
		})
	}
	return out
}

func (s *Server) ordersLocked(keep func(*order) bool) []*order {
	out := make([]*order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Server) listOrders(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.ordersLocked(func(o *order) bool { return o.UserID == acct.ID })
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, s.orderJSONLocked(o, false))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getOrder(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o == nil || o.UserID != acct.ID {
		return notFound()
	}
	return c.JSON(http.StatusOK, s.orderJSONLocked(o, false))
}

// createOrder checks out the caller's cart. Shipping and tax default to the storefront
// rules when the client does not send them. Stock is reserved and the cart emptied.
func (s *Server) createOrder(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	var body createOrderBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	problems := map[string]string{}
	if strings.TrimSpace(body.ShippingAddress) == "" {
		problems["shipping_address"] = "This field is required."
	}
	if strings.TrimSpace(body.ShippingPhone) == "" {
		problems["shipping_phone"] = "This field is required."
	}
	if len(problems) > 0 {
		return fieldErrors(c, problems)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ct := s.cartLocked(acct)
	if len(ct.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Cart is empty.")
	}

	now := s.now().UTC()
	o := &order{
		ID:              s.newIDLocked(),
		UserID:          acct.ID,
		Number:          "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		Status:          "P",
		ShippingAddress: body.ShippingAddress,
		ShippingPhone:   body.ShippingPhone,
		Notes:           body.Notes,
		OrderDate:       now,
		UpdatedAt:       now,
	}
	for _, item := range ct.Items {
		p := s.products[item.ProductID]
		if item.Quantity > p.Quantity-p.Reserved {
			return echo.NewHTTPError(http.StatusBadRequest, "Insufficient stock for "+p.Name+".")
		}
	}
	for _, item := range ct.Items {
		p := s.products[item.ProductID]
		p.Reserved += item.Quantity
		o.SubtotalCents += p.PriceCents * int64(item.Quantity)
		o.Items = append(o.Items, orderItem{
			ID:        s.newIDLocked(),
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitCents: p.PriceCents,
			CreatedAt: now,
		})
	}

	if body.ShippingCost != nil {
		o.ShippingCents = toCents(*body.ShippingCost)
	} else if o.SubtotalCents <= freeShippingCents {
		o.ShippingCents = flatShippingCents
	}
	if body.TaxAmount != nil {
		o.TaxCents = toCents(*body.TaxAmount)
	} else {
		o.TaxCents = (o.SubtotalCents*taxRatePercent + 50) / 100
	}
	o.TotalCents = o.SubtotalCents + o.ShippingCents + o.TaxCents

	s.orders[o.ID] = o
	ct.Items = nil
	ct.UpdatedAt = now
	return c.JSON(http.StatusCreated, s.orderJSONLocked(o, false))
}

func (s *Server) orderStats(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats orderStatsJSON
	var spent int64
	for _, o := range s.orders {
		if o.UserID != acct.ID {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case "P":
			stats.PendingOrders++
		case "D":
			stats.CompletedOrders++
		}
		if o.Status != "CA" {
			spent += o.TotalCents
		}
	}
	stats.TotalSpent = float64(spent) / 100
	return c.JSON(http.StatusOK, stats)
}

// adminListOrders filters by status code and by user id or username.
func (s *Server) adminListOrders(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !orderStatuses[status] {
		return fieldErrors(c, map[string]string{"status": "Select a valid choice. " + status + " is not one of the available choices."})
	}
	user := strings.TrimSpace(c.QueryParam("user"))

	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.ordersLocked(func(o *order) bool {
		if status != "" && o.Status != status {
			return false
		}
		if user != "" {
			acct := s.accounts[o.UserID]
			if acct == nil || (strconv.Itoa(acct.ID) != user && !strings.EqualFold(acct.Username, user)) {
				return false
			}
		}
		return true
	})
	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, s.orderJSONLocked(o, true))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) adminGetOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o == nil {
		return notFound()
	}
	return c.JSON(http.StatusOK, s.orderJSONLocked(o, true))
}

// adminUpdateStatus stamps the shipped and delivered dates on the matching transitions.
// Cancelling releases reserved stock.
func (s *Server) adminUpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body statusBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	if !orderStatuses[body.Status] {
		return fieldErrors(c, map[string]string{"status": "Select a valid choice. " + body.Status + " is not one of the available choices."})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o == nil {
		return notFound()
	}
	now := s.now().UTC()
	switch body.Status {
	case "S":
		o.ShippedDate = &now
	case "D":
		o.DeliveredDate = &now
	case "CA":
		if o.Status != "CA" {
			for _, item := range o.Items {
				if p := s.products[item.ProductID]; p != nil {
					p.Reserved -= item.Quantity
				}
			}
		}
	}
	o.Status = body.Status
	o.UpdatedAt = now
	return c.JSON(http.StatusOK, s.orderJSONLocked(o, true))
}

func (s *Server) adminDashboard(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out dashboardJSON
	var revenue int64
	for _, o := range s.orders {
		out.TotalOrders++
		if o.Status == "P" {
			out.PendingOrders++
		}
		if o.Status != "CA" {
			revenue += o.TotalCents
		}
	}
	out.TotalRevenue = float64(revenue) / 100
	out.TotalUsers = len(s.accounts)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		out.TotalProducts++
		if p.Quantity-p.Reserved <= p.Reorder {
			out.LowStockProducts++
		}
	}
	return c.JSON(http.StatusOK, out)
}
