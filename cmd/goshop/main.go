package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/metrics/export/prometheus"
	"github.com/MrEthical07/goShop/session"
	"github.com/nats-io/nats.go"
)

const usage = `usage: goshop [flags] <command> [args]

commands:
  login -u USER [-p PASSWORD]        sign in (password also read from GOSHOP_PASSWORD)
  register -u USER -email EMAIL [-p PASSWORD] [-first NAME] [-last NAME]
  logout                             sign out and forget the stored tokens
  whoami                             show the signed-in user
  categories                         list categories
  products [-search TEXT] [-category ID|NAME]
  product ID                         show one product
  cart                               show the cart
  add PRODUCT_ID [QTY]               add a product to the cart
  update ITEM_ID QTY                 change a cart item's quantity
  remove ITEM_ID                     remove a cart item
  clear                              empty the cart
  summary                            cart totals with tax and shipping
  checkout -address TEXT -phone TEXT [-notes TEXT]
  orders                             list your orders
  order ID                           show one order
  stats                              your order statistics
  admin-orders [-status CODE] [-user ID]
  set-status ORDER_ID STATUS         change an order's status (admin)
  dashboard                          store statistics (admin)

flags:
`

type options struct {
	configPath  string
	envFile     string
	sessionPath string
	baseURL     string
	natsURL     string
	metrics     bool
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("goshop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.configPath, "config", os.Getenv("GOSHOP_CONFIG"), "YAML config file")
	fs.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded before the environment is read")
	fs.StringVar(&opts.sessionPath, "session", defaultSessionPath(), "token file")
	fs.StringVar(&opts.baseURL, "base-url", "", "API base URL; overrides config and "+goShop.EnvBaseURL)
	fs.StringVar(&opts.natsURL, "nats-url", os.Getenv("GOSHOP_NATS_URL"), "publish audit events to this NATS server")
	fs.BoolVar(&opts.metrics, "metrics", false, "print client metrics to stderr on exit")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "goshop: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	client, cleanup, err := newClient(ctx, opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "goshop: %v\n", err)
		return 1
	}
	err = cmd(ctx, client, fs.Args()[1:], stdout)
	cleanup()

	if opts.metrics {
		fmt.Fprint(stderr, prometheus.New(client).Render())
	}
	if err != nil {
		return report(stderr, err)
	}
	return 0
}

func newClient(ctx context.Context, opts options, stderr io.Writer) (*goShop.Client, func(), error) {
	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg, err := goShop.LoadConfig(opts.configPath, envFiles...)
	if err != nil {
		return nil, nil, err
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}

	if err := os.MkdirAll(filepath.Dir(opts.sessionPath), 0o700); err != nil {
		return nil, nil, fmt.Errorf("session dir: %w", err)
	}
	store, err := session.NewFileStore(opts.sessionPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var conn *nats.Conn
	var sink goShop.AuditSink
	if opts.natsURL != "" {
		conn, err = nats.Connect(opts.natsURL, nats.Name("goshop-cli"))
		if err != nil {
			return nil, nil, fmt.Errorf("nats: %w", err)
		}
		sink = goShop.NewNATSAuditSink(conn, "")
		cfg.Audit.Enabled = true
	}

	b := goShop.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithLogger(logger).
		WithLoginRedirector(goShop.LoginRedirectorFunc(func(_ context.Context, path string) {
			fmt.Fprintf(stderr, "session expired; sign in again with `goshop login` (%s)\n", path)
		}))
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	client, err := b.Build()
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, nil, err
	}
	if err := client.LoadSession(ctx); err != nil {
		client.Close()
		if conn != nil {
			conn.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		client.Close()
		if conn != nil {
			_ = conn.Drain()
		}
	}
	return client, cleanup, nil
}

func defaultSessionPath() string {
	if p := os.Getenv("GOSHOP_SESSION_FILE"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".goshop-session.json"
	}
	return filepath.Join(dir, "goshop", "session.json")
}

// report prints err and maps it to an exit code: 3 when a sign-in is needed, 1 otherwise.
func report(w io.Writer, err error) int {
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(w, "goshop: %v\n", err)
		return 2
	}
	if apiErr, ok := goShop.AsAPIError(err); ok {
		fmt.Fprintf(w, "goshop: %s (status %d)\n", apiErr.Message, apiErr.Status)
		if apiErr.Details != nil {
			fmt.Fprintf(w, "  details: %v\n", apiErr.Details)
		}
	} else {
		fmt.Fprintf(w, "goshop: %v\n", err)
	}
	if goShop.IsUnauthorized(err) || errors.Is(err, goShop.ErrNotAuthenticated) {
		return 3
	}
	return 1
}
