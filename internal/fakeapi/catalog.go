package fakeapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func (s *Server) seed() error {
	now := s.now().UTC()
	desc := func(v string) *string { return &v }

	s.mu.Lock()
	electronics := categoryJSON{ID: s.newIDLocked(), Name: "Electronics", Description: desc("Gadgets and accessories"), CreatedAt: now, UpdatedAt: now}
	books := categoryJSON{ID: s.newIDLocked(), Name: "Books", CreatedAt: now, UpdatedAt: now}
	s.categories = []categoryJSON{electronics, books}

	for _, p := range []product{
		{Name: "Wireless Mouse", CategoryID: electronics.ID, Description: "2.4GHz optical mouse", PriceCents: 1999, SKU: "EL-MOUSE", Quantity: 40, Reorder: 5},
		{Name: "Mechanical Keyboard", CategoryID: electronics.ID, PriceCents: 8950, SKU: "EL-KEYB", Quantity: 3, Reorder: 5},
		{Name: "USB-C Cable", CategoryID: electronics.ID, PriceCents: 799, SKU: "EL-CABLE", Quantity: 100, Reorder: 20},
		{Name: "The Go Programming Language", CategoryID: books.ID, PriceCents: 3499, SKU: "BK-GOPL", Quantity: 12, Reorder: 2},
	} {
		p.ID = s.newIDLocked()
		p.Active = true
		p.CreatedAt, p.UpdatedAt = now, now
		s.products[p.ID] = &p
	}
	s.mu.Unlock()

	if _, err := s.AddUser("admin", "admin@example.com", "admin-password", "admin"); err != nil {
		return err
	}
	_, err := s.AddUser("alice", "alice@example.com", "alice-password", "customer")
	return err
}

// AddProduct adds an active product and returns its id.
func (s *Server) AddProduct(name string, categoryID int, priceCents int64, quantity int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	p := &product{
		ID:         s.newIDLocked(),
		Name:       name,
		CategoryID: categoryID,
		PriceCents: priceCents,
		Active:     true,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.products[p.ID] = p
	return p.ID
}

func (s *Server) categoryLocked(id int) categoryJSON {
	for _, cat := range s.categories {
		if cat.ID == id {
			return cat
		}
	}
	return categoryJSON{ID: id}
}

func (s *Server) productJSONLocked(p *product) productJSON {
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Category:    s.categoryLocked(p.CategoryID),
		Suppliers:   []supplierJSON{},
		Description: optional(p.Description),
		Price:       formatCents(p.PriceCents),
		SKU:         optional(p.SKU),
		IsActive:    p.Active,
		InStock:     p.Quantity-p.Reserved > 0,
		Inventory: &inventoryJSON{
			ID:                p.ID,
			Quantity:          p.Quantity,
			ReservedQuantity:  p.Reserved,
			ReorderLevel:      p.Reorder,
			AvailableQuantity: p.Quantity - p.Reserved,
			UpdatedAt:         p.UpdatedAt,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (s *Server) listCategories(c echo.Context) error {
	s.mu.Lock()
	out := append([]categoryJSON(nil), s.categories...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

// listProducts filters by a case-insensitive name search and by category id or name.
func (s *Server) listProducts(c echo.Context) error {
	search := strings.ToLower(strings.TrimSpace(c.QueryParam("search")))
	category := strings.TrimSpace(c.QueryParam("category"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]productJSON, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if category != "" {
			cat := s.categoryLocked(p.CategoryID)
			if strconv.Itoa(cat.ID) != category && !strings.EqualFold(cat.Name, category) {
				continue
			}
		}
		out = append(out, s.productJSONLocked(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	if p == nil || !p.Active {
		return notFound()
	}
	return c.JSON(http.StatusOK, s.productJSONLocked(p))
}
