package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store/sqlite"
	"github.com/jessevdk/go-flags"
	_ "github.com/mattn/go-sqlite3"
)

type config struct {
	DBPath string `long:"db" env:"MIGRATIONS_DB" default:"indexer.db" description:"path to the SQLite index database"`
	Down   bool   `long:"down" description:"roll back all migrations instead of applying"`
	Steps  int    `long:"steps" description:"apply this many migrations, negative rolls back"`
}

func main() {
	cfg := config{}
	if _, err := flags.Parse(&cfg); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(ctx, cfg); err != nil {
		log.Fatalf("migration run failed: %v", err)
	}
}

func runMigrations(ctx context.Context, cfg config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := sqlite.NewMigrator(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Printf("migration source close error: %v", srcErr)
		}
		if dbErr != nil {
			log.Printf("migration database close error: %v", dbErr)
		}
	}()

	switch {
	case cfg.Steps != 0:
		err = m.Steps(cfg.Steps)
	case cfg.Down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("no migrations to apply")
			return nil
		}
		return err
	}

	log.Println("migrations applied successfully")
	return nil
}
