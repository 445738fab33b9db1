package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sift"
	"github.com/fwojciec/sift/goquery"
	sifthttp "github.com/fwojciec/sift/http"
	"github.com/fwojciec/sift/rod"
	siftslog "github.com/fwojciec/sift/slog"
	"github.com/fwojciec/sift/sqlite"
	"github.com/fwojciec/sift/yaml"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loadEnv(os.Stderr)

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadEnv reads a .env file from the working directory when present.
func loadEnv(stderr io.Writer) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: failed to read .env: %v\n", err)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// Directory of user YAML profiles added to the builtin ones.
	ProfileDir string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	RunService sift.RunService
	Profiles   *yaml.Registry
	Sources    sift.SourceFactory
	Fetcher    sift.Fetcher
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:     defaultDBPath(),
		ProfileDir: defaultProfileDir(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    time.Now,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sift"),
		kong.Description("Extract, enrich and select records from listing pages"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sift --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	if m.Profiles == nil {
		registry, err := loadProfiles(m.ProfileDir)
		if err != nil {
			fmt.Fprintf(stderr, "Hint: Set SIFT_PROFILE_DIR to use a different profile directory\n")
			return err
		}
		m.Profiles = registry
	}
	deps.Profiles = m.Profiles

	if cmd == "scrape" || cmd == "runs" || cmd == "show" || cmd == "history" || cmd == "delete" {
		if m.RunService == nil {
			m.DB = sqlite.NewDB(m.DBPath)
			if err := m.DB.Open(); err != nil {
				fmt.Fprintf(stderr, "Hint: Set SIFT_DB to use a different database path\n")
				return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
			}
			defer m.Close()
			m.RunService = sqlite.NewRunService(m.DB)
		}
		deps.DB = m.DB
		deps.Runs = siftslog.NewLoggingRunService(m.RunService, logger)
	}

	// Wire command-specific dependencies based on command
	switch cmd {
	case "scrape":
		sources := m.Sources
		if sources == nil {
			locale := ""
			if p, err := m.Profiles.Get(cli.Scrape.Profile); err == nil {
				locale = p.Locale
			}
			if cli.Scrape.Static {
				sources = &goquery.SourceFactory{Fetcher: sifthttp.NewFetcher(sifthttp.WithAcceptLanguage(locale))}
			} else {
				manager, err := rod.NewBrowserManager(rod.WithLanguage(locale))
				if err != nil {
					fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or use --static")
					return fmt.Errorf("failed to start browser: %w", err)
				}
				defer manager.Close()
				sources = manager
			}
		}
		deps.Sources = siftslog.NewLoggingFactory(sources, logger)
	case "detect":
		fetcher := m.Fetcher
		if fetcher == nil {
			if cli.Detect.Browser {
				manager, err := rod.NewBrowserManager()
				if err != nil {
					fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
					return fmt.Errorf("failed to start browser: %w", err)
				}
				defer manager.Close()
				fetcher = rod.NewFetcher(manager)
			} else {
				fetcher = sifthttp.NewFetcher()
			}
		}
		deps.Fetcher = siftslog.NewLoggingFetcher(fetcher, logger)
	}

	return kongCtx.Run(deps)
}

// loadProfiles returns the builtin profiles overlaid with those in dir.
func loadProfiles(dir string) (*yaml.Registry, error) {
	registry, err := yaml.Builtin()
	if err != nil {
		return nil, fmt.Errorf("failed to load builtin profiles: %w", err)
	}
	if dir == "" {
		return registry, nil
	}
	profiles, err := yaml.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		registry.Add(p)
	}
	return registry, nil
}

func defaultDBPath() string {
	if path := os.Getenv("SIFT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sift.db"
	}
	dir := filepath.Join(home, ".sift")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "sift.db")
}

func defaultProfileDir() string {
	if dir := os.Getenv("SIFT_PROFILE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sift", "profiles")
}
