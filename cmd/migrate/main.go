package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded schema")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if handled, err := runOffline(*cmd, *dir, *name); handled {
		if err != nil {
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
			os.Exit(1)
		}
		return
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)
	logg = logger.ForApp("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	var migrator *migrate.Migrator
	if *dir != "" {
		migrator, err = migrate.NewFromDir(sqlDB, *dir)
	} else {
		migrator, err = migrate.New(sqlDB)
	}
	requireResource(ctx, logg, "migrator", err)

	if err := runOnline(ctx, logg, migrator, *cmd, *version); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
}

// runOffline handles the commands that only touch the filesystem.
func runOffline(cmd, dir, name string) (bool, error) {
	switch cmd {
	case "create":
		if name == "" {
			return true, fmt.Errorf("missing -name")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			return true, err
		}
		fmt.Println("created migration:", path)
		return true, nil
	case "validate":
		var err error
		if dir == "" {
			err = migrate.ValidateEmbedded()
		} else {
			err = migrate.ValidateDir(dir)
		}
		if err != nil {
			return true, err
		}
		fmt.Println("migration validation passed")
		return true, nil
	default:
		return false, nil
	}
}

func runOnline(ctx context.Context, logg *logger.Logger, migrator *migrate.Migrator, cmd, version string) error {
	var (
		results []migrate.Result
		err     error
	)
	switch cmd {
	case "up":
		results, err = migrator.Up(ctx)
	case "down":
		var res migrate.Result
		res, err = migrator.Down(ctx)
		results = []migrate.Result{res}
	case "redo":
		results, err = migrator.Redo(ctx)
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version")
		}
		results, err = migrator.To(ctx, version)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			fmt.Printf("%-8s %d %s\n", st.State, st.Version, st.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}

	for _, res := range results {
		if res.Version == 0 {
			continue
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":   res.Version,
			"file":      res.Path,
			"direction": res.Direction,
		}), "migration applied")
	}
	if err == nil && len(results) == 0 {
		logg.Info(ctx, "nothing to migrate")
	}
	return err
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
