package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/sevakendra/mel/internal/api"
	"github.com/sevakendra/mel/internal/config"
	"github.com/sevakendra/mel/internal/db"
	"github.com/sevakendra/mel/internal/jobs"
	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/memstore"
	"github.com/sevakendra/mel/internal/model"
	"github.com/sevakendra/mel/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

const usage = `Usage: mel [flags] [command]

Commands:
  serve                   run the HTTP API (default)
  overdue [-as-of DATE]   list rentals overdue on DATE (default: today)
  export [-o PATH] [-status rented|returned]
                          write rentals as CSV (default: stdout)

Flags:
  -d, -db <path>          SQLite database path (default: mel.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -s, -store <kind>       equipment and rental store: sqlite or memory
  -tz <zone>              time zone that decides today's date (default: Asia/Kolkata)
  -h, -help               show this help and exit

Every flag can also be set with a MEL_ environment variable or a .env file.
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("mel", flag.ContinueOnError)

	fs.StringVar(&cfg.DB, "db", cfg.DB, "")
	fs.StringVar(&cfg.DB, "d", cfg.DB, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")

	fs.StringVar(&cfg.Log, "log", cfg.Log, "")
	fs.StringVar(&cfg.Log, "l", cfg.Log, "")

	fs.StringVar(&cfg.Store, "store", cfg.Store, "")
	fs.StringVar(&cfg.Store, "s", cfg.Store, "")

	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "")

	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	command, args := "serve", fs.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	switch command {
	case "serve":
		err = serve(cfg)
	case "overdue":
		err = overdue(cfg, args)
	case "export":
		err = exportRentals(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fs.Usage()
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			slog.Error("command failed", "command", command, "error", err)
			os.Exit(1)
		}
	}
}

// app holds what every command needs.
type app struct {
	db     *sql.DB
	ledger *ledger.Ledger
	loc    *time.Location
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp opens (and on first run creates) the database and builds the
// ledger over the configured store.
func openApp(cfg config.Config) (*app, error) {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DB); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DB, cfg.AdminUser)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.DB, cfg.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	// Schema and migrations are idempotent.
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		database.Close()
		return nil, err
	}

	var s ledger.Store
	switch cfg.Store {
	case config.StoreMemory:
		s = memstore.New()
	default:
		s = store.NewSQL(database)
	}

	l := ledger.New(s,
		ledger.WithLocation(loc),
		ledger.WithAtomicWrites(cfg.AtomicWrites),
		ledger.WithLogger(slog.Default()))

	slog.Info("database ready", "path", cfg.DB, "store", cfg.Store, "timezone", loc.String(), "atomic", l.Atomic())
	return &app{db: database, ledger: l, loc: loc}, nil
}

func serve(cfg config.Config) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), a.db)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	if cfg.OverdueSchedule != "" {
		scheduler := jobs.NewScheduler(a.ledger, a.loc, slog.Default())
		if err := scheduler.ScheduleOverdueReport(cfg.OverdueSchedule); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.Config{
		DB:         a.db,
		Ledger:     a.ledger,
		JWTSecret:  jwtSecret,
		Photos:     cfg.Store == config.StoreSQLite,
		LoginRate:  rate.Limit(cfg.LoginRate),
		LoginBurst: cfg.LoginBurst,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// initDatabase creates a new database, runs the migrations, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(database); err != nil {
		return fail(fmt.Errorf("migrating schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
