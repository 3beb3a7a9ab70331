package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quicklink/app/internal/config"
	"quicklink/app/internal/data/database"
	"quicklink/app/internal/data/migrations"
	dataspeeddial "quicklink/app/internal/data/speeddial"
	"quicklink/app/internal/domain/speeddial"
	"quicklink/app/internal/launcher"
	presentationhttp "quicklink/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

type Result struct {
	Launcher   *launcher.Launcher
	HTTPServer *presentationhttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// Build opens and migrates the store, wires the speed dial services and the
// web adapter, and points the navigator at the first page.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	if deps.Logger == nil {
		return Result{}, eris.New("logger is required")
	}

	db, err := database.Open(database.Options{
		Path:   deps.Config.DBPath,
		Logger: database.NewGormLogger(deps.Logger),
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := database.Close(db); closeErr != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := migrations.MigrateSpeedDial(ctx, db, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running speed dial migrations"))
	}

	pageRepo, err := dataspeeddial.NewPageRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page repository"))
	}

	linkRepo, err := dataspeeddial.NewLinkRepository(db, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating link repository"))
	}

	pages, err := speeddial.NewPageService(pageRepo, deps.Logger, deps.SentryHub)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page service"))
	}

	links, err := speeddial.NewLinkService(speeddial.LinkServiceOptions{
		Links:         linkRepo,
		Pages:         pageRepo,
		MaxImageBytes: int(deps.Config.MaxImageBytes),
		Logger:        deps.Logger,
		SentryHub:     deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating link service"))
	}

	nav, err := speeddial.NewNavigator(pages)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating navigator"))
	}

	startPage, err := nav.Start(ctx)
	if err != nil {
		return closeOnError(eris.Wrap(err, "loading initial page"))
	}

	app, err := launcher.New(launcher.Options{
		Pages:     pages,
		Links:     links,
		Navigator: nav,
		Logger:    deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating launcher"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		Launcher:      app,
		Database:      db,
		Logger:        deps.Logger,
		SentryHub:     deps.SentryHub,
		MaxImageBytes: deps.Config.MaxImageBytes,
		AllowedHosts:  deps.Config.AllowedHosts,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	deps.Logger.WithFields(logrus.Fields{
		"component": "bootstrap",
		"page_id":   startPage,
		"db_path":   deps.Config.DBPath,
	}).Info("launcher ready")

	cleanup := func() error {
		httpServer.Close()
		return database.Close(db)
	}

	return Result{
		Launcher:   app,
		HTTPServer: httpServer,
		Database:   db,
		Cleanup:    cleanup,
	}, nil
}
