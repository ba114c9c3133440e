// Command seed replaces the profile and project tables with the content of
// a seed document.
//
//	seed -yes [-file db.json]
//
// Every existing profile and project is deleted first. Other tables are
// left alone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aTrapDeer/portfolio-api/internal/config"
	"github.com/aTrapDeer/portfolio-api/internal/database"
	"github.com/aTrapDeer/portfolio-api/internal/logging"
	"github.com/aTrapDeer/portfolio-api/internal/seed"
)

var errNotConfirmed = errors.New("refusing to delete existing profiles and projects without -yes")

func main() {
	file := flag.String("file", "", "seed document (defaults to seed_path from the configuration)")
	yes := flag.Bool("yes", false, "confirm that every profile and project may be deleted")
	flag.Parse()

	if err := run(*file, *yes); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, confirmed bool) error {
	if !confirmed {
		return errNotConfirmed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.SeedPath
	}

	log, err := logging.New(cfg.LogLevel, "seed")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Read the document before touching the database.
	doc, err := seed.Load(file)
	if err != nil {
		return err
	}
	log.Info("seed document loaded",
		zap.String("file", file),
		zap.Bool("profile", doc.Profile != nil),
		zap.Int("projects", len(doc.Projects)))

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	res, err := seed.Import(ctx, db, doc, seed.Options{
		AdminPassword: cfg.AdminPassword,
		Logger:        log,
	})
	if err != nil {
		log.Error("import failed",
			zap.Int("profiles_created", res.ProfilesCreated),
			zap.Int("projects_created", res.ProjectsCreated),
			zap.Error(err))
		return err
	}

	log.Info("import complete",
		zap.Int("profiles_created", res.ProfilesCreated),
		zap.Int("projects_created", res.ProjectsCreated),
		zap.Int64("profiles", res.ProfileCount),
		zap.Int64("projects", res.ProjectCount))
	return nil
}
