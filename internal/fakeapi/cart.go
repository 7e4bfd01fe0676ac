package fakeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type addItemBody struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// cartLocked returns the account's cart, creating it on first use.
func (s *Server) cartLocked(acct *account) *cart {
	if ct, ok := s.carts[acct.ID]; ok {
		return ct
	}
	now := s.now().UTC()
	ct := &cart{ID: s.newIDLocked(), UserID: acct.ID, CreatedAt: now, UpdatedAt: now}
	s.carts[acct.ID] = ct
	return ct
}

func (s *Server) cartItemJSONLocked(ct *cart, item *cartItem) cartItemJSON {
	p := s.products[item.ProductID]
	return cartItemJSON{
		ID:         item.ID,
		Cart:       ct.ID,
		Product:    s.productJSONLocked(p),
		Quantity:   item.Quantity,
		TotalPrice: formatCents(p.PriceCents * int64(item.Quantity)),
		CreatedAt:  item.CreatedAt,
		UpdatedAt:  item.UpdatedAt,
	}
}

func (s *Server) cartJSONLocked(acct *account, ct *cart) cartJSON {
	out := cartJSON{
		ID:        ct.ID,
		User:      acct.json(),
		Items:     make([]cartItemJSON, 0, len(ct.Items)),
		CreatedAt: ct.CreatedAt,
		UpdatedAt: ct.UpdatedAt,
	}
	var total int64
	for _, item := range ct.Items {
		out.Items = append(out.Items, s.cartItemJSONLocked(ct, item))
		out.TotalItems += item.Quantity
		total += s.products[item.ProductID].PriceCents * int64(item.Quantity)
	}
	out.TotalPrice = formatCents(total)
	return out
}

func (s *Server) getCart(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.cartJSONLocked(acct, s.cartLocked(acct)))
}

func (s *Server) listCartItems(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ct := s.cartLocked(acct)
	out := make([]cartItemJSON, 0, len(ct.Items))
	for _, item := range ct.Items {
		out = append(out, s.cartItemJSONLocked(ct, item))
	}
	return c.JSON(http.StatusOK, out)
}

// addCartItem merges quantities when the product is already in the cart.
func (s *Server) addCartItem(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	var body addItemBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	if body.Quantity < 0 {
		return fieldErrors(c, map[string]string{"quantity": "Ensure this value is greater than or equal to 1."})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[body.ProductID]
	if p == nil || !p.Active {
		return fieldErrors(c, map[string]string{"product_id": "Invalid product."})
	}
	ct := s.cartLocked(acct)
	now := s.now().UTC()

	var item *cartItem
	for _, existing := range ct.Items {
		if existing.ProductID == p.ID {
			item = existing
			break
		}
	}
	quantity := body.Quantity
	if item != nil {
		quantity += item.Quantity
	}
	if quantity > p.Quantity-p.Reserved {
		return echo.NewHTTPError(http.StatusBadRequest, "Insufficient stock.")
	}
	if item == nil {
		item = &cartItem{ID: s.newIDLocked(), ProductID: p.ID, CreatedAt: now}
		ct.Items = append(ct.Items, item)
	}
	item.Quantity = quantity
	item.UpdatedAt = now
	ct.UpdatedAt = now
	return c.JSON(http.StatusCreated, s.cartItemJSONLocked(ct, item))
}

func (s *Server) findItemLocked(ct *cart, id int) (int, *cartItem) {
	for i, item := range ct.Items {
		if item.ID == id {
			return i, item
		}
	}
	return -1, nil
}

func (s *Server) updateCartItem(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var body quantityBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body.")
	}
	if body.Quantity < 1 {
		return fieldErrors(c, map[string]string{"quantity": "Ensure this value is greater than or equal to 1."})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ct := s.cartLocked(acct)
	_, item := s.findItemLocked(ct, id)
	if item == nil {
		return notFound()
	}
	p := s.products[item.ProductID]
	if body.Quantity > p.Quantity-p.Reserved {
		return echo.NewHTTPError(http.StatusBadRequest, "Insufficient stock.")
	}
	item.Quantity = body.Quantity
	item.UpdatedAt = s.now().UTC()
	ct.UpdatedAt = item.UpdatedAt
	return c.JSON(http.StatusOK, s.cartItemJSONLocked(ct, item))
}

func (s *Server) removeCartItem(c echo.Context) error {
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
	ct := s.cartLocked(acct)
	i, item := s.findItemLocked(ct, id)
	if item == nil {
		return notFound()
	}
	ct.Items = append(ct.Items[:i], ct.Items[i+1:]...)
	ct.UpdatedAt = s.now().UTC()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) clearCart(c echo.Context) error {
	acct, err := s.currentAccount(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	ct := s.cartLocked(acct)
	ct.Items = nil
	ct.UpdatedAt = s.now().UTC()
	s.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}
