package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `create` and `validate` look when run from the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrator applies the clip schema through a goose provider. Every command
// runs against a fixed filesystem, so the binaries never depend on their
// working directory.
type Migrator struct {
	provider *goose.Provider
}

// Result is one applied (or rolled back) migration.
type Result struct {
	Version   int64
	Path      string
	Direction string
	Empty     bool
}

// Status is the applied state of one migration file.
type Status struct {
	Version int64
	Path    string
	State   string
}

// New returns a Migrator for the schema compiled into the binary.
func New(db *sql.DB) (*Migrator, error) {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return NewFromFS(db, sub)
}

// NewFromDir reads migrations from disk instead of the embedded copy.
func NewFromDir(db *sql.DB, dir string) (*Migrator, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	return NewFromFS(db, os.DirFS(dir))
}

func NewFromFS(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	// the clip schema relies on postgres enums and partial indexes
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]Result, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return toResults(results), fmt.Errorf("goose up: %w", err)
	}
	return toResults(results), nil
}

func (m *Migrator) Down(ctx context.Context) (Result, error) {
	res, err := m.provider.Down(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("goose down: %w", err)
	}
	return toResult(res), nil
}

// Redo rolls back the latest migration and applies it again.
func (m *Migrator) Redo(ctx context.Context) ([]Result, error) {
	down, err := m.Down(ctx)
	if err != nil {
		return nil, err
	}
	up, err := m.provider.UpByOne(ctx)
	if err != nil {
		return []Result{down}, fmt.Errorf("goose up-by-one: %w", err)
	}
	return []Result{down, toResult(up)}, nil
}

func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(statuses))
	for _, st := range statuses {
		if st == nil || st.Source == nil {
			continue
		}
		out = append(out, Status{Version: st.Source.Version, Path: st.Source.Path, State: string(st.State)})
	}
	return out, nil
}

// HasPending reports whether any migration has not been applied yet.
func (m *Migrator) HasPending(ctx context.Context) (bool, error) {
	pending, err := m.provider.HasPending(ctx)
	if err != nil {
		return false, fmt.Errorf("goose pending check: %w", err)
	}
	return pending, nil
}

// To migrates up or down until the database sits at targetVersion
// (YYYYMMDDHHMMSS).
func (m *Migrator) To(ctx context.Context, targetVersion string) ([]Result, error) {
	if targetVersion == "" {
		return nil, fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := m.provider.UpTo(ctx, target)
		if err != nil {
			return toResults(results), fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return toResults(results), nil
	default:
		results, err := m.provider.DownTo(ctx, target)
		if err != nil {
			return toResults(results), fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return toResults(results), nil
	}
}

func toResults(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, res := range in {
		if res == nil {
			continue
		}
		out = append(out, toResult(res))
	}
	return out
}

func toResult(res *goose.MigrationResult) Result {
	if res == nil || res.Source == nil {
		return Result{}
	}
	return Result{
		Version:   res.Source.Version,
		Path:      res.Source.Path,
		Direction: res.Direction,
		Empty:     res.Empty,
	}
}
