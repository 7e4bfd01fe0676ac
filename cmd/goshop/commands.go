package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	goShop "github.com/MrEthical07/goShop"
)

type command func(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error

var commands = map[string]command{
	"login":        cmdLogin,
	"register":     cmdRegister,
	"logout":       cmdLogout,
	"whoami":       cmdWhoAmI,
	"categories":   cmdCategories,
	"products":     cmdProducts,
	"product":      cmdProduct,
	"cart":         cmdCart,
	"add":          cmdAdd,
	"update":       cmdUpdate,
	"remove":       cmdRemove,
	"clear":        cmdClear,
	"summary":      cmdSummary,
	"checkout":     cmdCheckout,
	"orders":       cmdOrders,
	"order":        cmdOrder,
	"stats":        cmdStats,
	"admin-orders": cmdAdminOrders,
	"set-status":   cmdSetStatus,
	"dashboard":    cmdDashboard,
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func subFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%s: %v", fs.Name(), err)
	}
	return nil
}

func intArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, usagef("missing %s", name)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, usagef("invalid %s %q", name, args[i])
	}
	return n, nil
}

func passwordFrom(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("GOSHOP_PASSWORD")
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdLogin(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	fs := subFlags("login")
	user := fs.String("u", "", "username")
	pw := fs.String("p", "", "password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *user == "" {
		return usagef("login: -u is required")
	}
	resp, err := c.Login(ctx, goShop.LoginRequest{Username: *user, Password: passwordFrom(*pw)})
	if err != nil {
		return err
	}
	name := *user
	if resp.User != nil {
		name = resp.User.Username
	}
	fmt.Fprintf(out, "signed in as %s\n", name)
	return nil
}

func cmdRegister(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	fs := subFlags("register")
	var req goShop.RegisterRequest
	fs.StringVar(&req.Username, "u", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	pw := fs.String("p", "", "password")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	req.Password = passwordFrom(*pw)
	if _, err := c.Register(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(out, "registered and signed in as %s\n", req.Username)
	return nil
}

func cmdLogout(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	if err := c.Logout(ctx); err != nil {
		fmt.Fprintln(out, "signed out locally")
		return err
	}
	fmt.Fprintln(out, "signed out")
	return nil
}

func cmdWhoAmI(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	user, err := c.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s <%s>", user.Username, user.Email)
	if claims, err := c.AccessClaims(); err == nil {
		fmt.Fprintf(out, " role=%s token_expires=%s", claims.Role, claims.Expiry().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out)
	return nil
}

func cmdCategories(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	cats, err := c.Categories(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%d\t%s\n", cat.ID, cat.Name)
	}
	return tw.Flush()
}

func cmdProducts(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	fs := subFlags("products")
	var filter goShop.ProductFilter
	fs.StringVar(&filter.Search, "search", "", "search text")
	fs.StringVar(&filter.Category, "category", "", "category id or name")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	products, err := c.Products(ctx, filter)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range products {
		stock := "out"
		if p.InStock {
			stock = "in"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category.Name, p.Price, stock)
	}
	return tw.Flush()
}

func cmdProduct(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	id, err := intArg(args, 0, "product id")
	if err != nil {
		return err
	}
	p, err := c.Product(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, p)
}

func printCart(out io.Writer, cart *goShop.Cart) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tTOTAL")
	for _, it := range cart.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", it.ID, it.Product.Name, it.Quantity, it.TotalPrice)
	}
	fmt.Fprintf(tw, "\t\t%d\t%s\n", cart.TotalItems, cart.TotalPrice)
	return tw.Flush()
}

func cmdCart(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	cart, err := c.Cart(ctx)
	if err != nil {
		return err
	}
	return printCart(out, cart)
}

func cmdAdd(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	productID, err := intArg(args, 0, "product id")
	if err != nil {
		return err
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = intArg(args, 1, "quantity"); err != nil {
			return err
		}
	}
	item, err := c.AddToCart(ctx, productID, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cart item %d: %s x%d\n", item.ID, item.Product.Name, item.Quantity)
	return nil
}

func cmdUpdate(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	itemID, err := intArg(args, 0, "item id")
	if err != nil {
		return err
	}
	qty, err := intArg(args, 1, "quantity")
	if err != nil {
		return err
	}
	item, err := c.UpdateCartItem(ctx, itemID, qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cart item %d: %s x%d\n", item.ID, item.Product.Name, item.Quantity)
	return nil
}

func cmdRemove(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	itemID, err := intArg(args, 0, "item id")
	if err != nil {
		return err
	}
	if err := c.RemoveFromCart(ctx, itemID); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed cart item %d\n", itemID)
	return nil
}

func cmdClear(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	if err := c.ClearCart(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "cart cleared")
	return nil
}

func cmdSummary(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	cart, err := c.Cart(ctx)
	if err != nil {
		return err
	}
	s, err := goShop.SummarizeCart(*cart)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Items\t%d\t\n", s.Items)
	fmt.Fprintf(tw, "Subtotal\t%s\t\n", goShop.FormatCents(s.Subtotal))
	fmt.Fprintf(tw, "Tax\t%s\t\n", goShop.FormatCents(s.Tax))
	fmt.Fprintf(tw, "Shipping\t%s\t\n", goShop.FormatCents(s.Shipping))
	fmt.Fprintf(tw, "Total\t%s\t\n", goShop.FormatCents(s.Total))
	if err := tw.Flush(); err != nil {
		return err
	}
	if s.FreeShippingRemaining > 0 {
		fmt.Fprintf(out, "add %s more for free shipping\n", goShop.FormatCents(s.FreeShippingRemaining))
	}
	return nil
}

func cmdCheckout(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	fs := subFlags("checkout")
	var req goShop.CreateOrderRequest
	fs.StringVar(&req.ShippingAddress, "address", "", "shipping address")
	fs.StringVar(&req.ShippingPhone, "phone", "", "contact phone")
	fs.StringVar(&req.Notes, "notes", "", "order notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	order, err := c.CreateOrder(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s placed: %s (%s)\n", order.OrderNumber, order.TotalAmount, order.Status.Label())
	return nil
}

func printOrders(out io.Writer, orders []goShop.Order) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tSTATUS\tITEMS\tTOTAL\tDATE")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.OrderNumber, o.Status.Label(), o.TotalItems, o.TotalAmount, o.OrderDate.Format("2006-01-02"))
	}
	return tw.Flush()
}

func cmdOrders(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	orders, err := c.Orders(ctx)
	if err != nil {
		return err
	}
	return printOrders(out, orders)
}

func cmdOrder(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	id, err := intArg(args, 0, "order id")
	if err != nil {
		return err
	}
	order, err := c.Order(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, order)
}

func cmdStats(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	stats, err := c.OrderStats(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, stats)
}

func cmdAdminOrders(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	fs := subFlags("admin-orders")
	status := fs.String("status", "", "status code or label")
	var filter goShop.AdminOrderFilter
	fs.StringVar(&filter.User, "user", "", "user id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *status != "" {
		s, ok := goShop.ParseOrderStatus(*status)
		if !ok {
			return usagef("unknown status %q", *status)
		}
		filter.Status = s
	}
	orders, err := c.AdminOrders(ctx, filter)
	if err != nil {
		return err
	}
	return printOrders(out, orders)
}

func cmdSetStatus(ctx context.Context, c *goShop.Client, args []string, out io.Writer) error {
	id, err := intArg(args, 0, "order id")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return usagef("missing status")
	}
	status, ok := goShop.ParseOrderStatus(args[1])
	if !ok {
		return usagef("unknown status %q", args[1])
	}
	order, err := c.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "order %s is now %s\n", order.OrderNumber, order.Status.Label())
	return nil
}

func cmdDashboard(ctx context.Context, c *goShop.Client, _ []string, out io.Writer) error {
	stats, err := c.AdminDashboard(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, stats)
}
