package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mycelica/folio/internal/api"
	"mycelica/folio/internal/config"
	"mycelica/folio/internal/db"
	"mycelica/folio/internal/logging"
	"mycelica/folio/internal/metrics"
	"mycelica/folio/internal/pages"
)

// DBFile is the database name looked for in the working directory and its parents.
const DBFile = ".folio.db"

var (
	dbPath     string
	configPath string
	jsonOut    bool
	logLevel   string
	projectRef string
)

var rootCmd = &cobra.Command{
	Use:           "folio",
	Short:         "Page hierarchy and content blocks for documentation projects",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// errReported marks an error already written to stdout as a JSON envelope.
var errReported = errors.New("reported")

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to "+DBFile+" database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to folio.yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON {data, error}")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "", "Project id or slug")
}

// DiscoverDB finds the database path using priority: env > flag > config > walk-up > XDG fallback
func DiscoverDB(cfg *config.Config) (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("FOLIO_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. Config file
	if cfg.Database != "" {
		if _, err := os.Stat(cfg.Database); err == nil {
			return cfg.Database, nil
		}
	}

	// 4. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DBFile)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 5. XDG fallback
	if xdgPath, err := xdgDB(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no %s found (set FOLIO_DB, use --db, or run `folio init`)", DBFile)
}

func xdgDB() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "folio", "folio.db"), nil
}

// app is everything a command needs, built from config and flags.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      *db.DB
	repo    *pages.Repository
	metrics *metrics.PrometheusRecorder
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// openApp discovers and opens the database.
func openApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := DiscoverDB(cfg)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log, path)
}

func newApp(cfg *config.Config, log zerolog.Logger, path string) (*app, error) {
	d, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Msg("database opened")

	rec := metrics.NewPrometheusRecorder(nil)
	repo := pages.NewRepository(d, pages.Options{
		Principal:       cfg.Principal,
		SlugMaxAttempts: cfg.SlugMaxAttempts,
		Logger:          log.With().Str("component", "pages").Logger(),
		Metrics:         rec,
	})
	return &app{cfg: cfg, log: log, db: d, repo: repo, metrics: rec}, nil
}

// Close writes the metrics textfile, if configured, and closes the database.
func (a *app) Close() {
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.log.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("writing metrics textfile")
		}
	}
	a.db.Close()
}

// project resolves --project. With a single project in the database the
// flag may be omitted.
func (a *app) project(ctx context.Context) (*db.Project, error) {
	if projectRef != "" {
		return a.repo.GetProject(ctx, projectRef)
	}
	all, err := a.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 1 {
		return &all[0], nil
	}
	return nil, fmt.Errorf("%d projects found; pass --project", len(all))
}

// ResolvePage finds a page by full ID, ID prefix, or slug path ("/guide/install").
func (a *app) ResolvePage(ctx context.Context, reference string) (*db.Page, error) {
	if strings.HasPrefix(reference, "/") {
		project, err := a.project(ctx)
		if err != nil {
			return nil, err
		}
		return a.repo.ResolvePath(ctx, project.ID, reference)
	}

	// 1. Exact ID match
	page, err := a.repo.Get(ctx, reference)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, pages.ErrNotFound) {
		return nil, err
	}

	// 2. ID prefix match (≥6 hex/dash chars)
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := a.repo.FindByIDPrefix(ctx, reference, 10)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 1:
			return &matches[0], nil
		case 0:
		default:
			lines := make([]string, len(matches))
			for i, m := range matches {
				lines[i] = fmt.Sprintf("  %s %s", truncID(m.ID), m.Title)
			}
			return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a full page ID instead",
				reference, len(matches), strings.Join(lines, "\n"))
		}
	}

	return nil, fmt.Errorf("page %s: %w", reference, pages.ErrNotFound)
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

// emit prints a command result. With --json the {data, error} envelope goes
// to stdout, errors included; otherwise human prints the data.
func emit[T any](data T, err error, human func(T)) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(api.Wrap(data, err)); encErr != nil {
			return encErr
		}
		if err != nil {
			return errReported
		}
		return nil
	}
	if err != nil {
		return err
	}
	human(data)
	return nil
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// back off to a rune boundary
	truncated := s[:max]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}

func optionalString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
