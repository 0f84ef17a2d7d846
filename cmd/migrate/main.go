package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/wayfarer-backend/pkg/config"
	"github.com/angelmondragon/wayfarer-backend/pkg/db"
	"github.com/angelmondragon/wayfarer-backend/pkg/instance"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
	"github.com/angelmondragon/wayfarer-backend/pkg/migrate"
)

type invocation struct {
	dir     string
	name    string
	version string
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, sqlDB *sql.DB, in invocation) error
}

var commands = map[string]command{
	"up": {needsDB: true, run: func(ctx context.Context, sqlDB *sql.DB, in invocation) error {
		if in.dir == migrate.DefaultDir {
			if err := migrate.ValidateEmbedded(); err != nil {
				return err
			}
		}
		return migrate.Run(ctx, sqlDB, in.dir, "up")
	}},
	"down": {needsDB: true, run: func(ctx context.Context, sqlDB *sql.DB, in invocation) error {
		return migrate.Run(ctx, sqlDB, in.dir, "down")
	}},
	"status": {needsDB: true, run: func(ctx context.Context, sqlDB *sql.DB, in invocation) error {
		return migrate.Run(ctx, sqlDB, in.dir, "status")
	}},
	"version": {needsDB: true, run: func(ctx context.Context, sqlDB *sql.DB, in invocation) error {
		if in.version == "" {
			return fmt.Errorf("-version is required")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, in.dir, in.version)
	}},
	"create": {run: func(_ context.Context, _ *sql.DB, in invocation) error {
		if in.name == "" {
			return fmt.Errorf("-name is required")
		}
		path, err := migrate.CreateSQLMigration(in.dir, in.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	}},
	"validate": {run: func(_ context.Context, _ *sql.DB, in invocation) error {
		if err := migrate.ValidateDir(in.dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}},
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	_ = godotenv.Load()

	in := invocation{}
	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&in.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&in.name, "name", "", "migration name (create)")
	flag.StringVar(&in.version, "version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q, want %s\n", *cmdName, commandNames())
		os.Exit(2)
	}

	var sqlDB *sql.DB
	if cmd.needsDB {
		cfg, err := config.Load()
		fatalIf(ctx, logg, "load config", err)

		logg = logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Format:      cfg.App.LogFormat,
		})
		ctx = logg.WithFields(ctx, map[string]any{
			"env":      cfg.App.Env,
			"instance": instance.ID(),
		})

		dbClient, err := db.New(ctx, cfg.DB, logg)
		fatalIf(ctx, logg, "connect database", err)
		defer dbClient.Close()

		sqlDB, err = dbClient.DB().DB()
		fatalIf(ctx, logg, "open sql handle", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmdName, "dir": in.dir})
	logg.Info(ctx, "running migration command")
	if err := cmd.run(ctx, sqlDB, in); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command finished")
}

func fatalIf(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step, err)
	os.Exit(1)
}
