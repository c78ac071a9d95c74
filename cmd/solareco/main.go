package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulthvt/solareco/pkg/api"
	"github.com/paulthvt/solareco/pkg/log"
	"github.com/paulthvt/solareco/pkg/monitor"
	"github.com/paulthvt/solareco/pkg/server"
	"github.com/paulthvt/solareco/pkg/session"
	"github.com/paulthvt/solareco/pkg/settings"
	"github.com/paulthvt/solareco/pkg/storage"
	"github.com/paulthvt/solareco/pkg/types"

	"github.com/levenlabs/go-lflag"
)

func main() {
	// init packages
	client := api.Configured()
	db := storage.Configured()

	store := settings.NewStore(db)
	sessions := session.NewManager(client, store)

	monitors := &monitor.Set{
		Realtime: monitor.NewRealtime(client, store, sessions),
		Daily:    monitor.NewDaily(client, store, sessions),
		Price:    monitor.NewPrice(client, sessions),
	}

	weatherUnits := lflag.String("weather-units", "metric", "Unit system for weather forecasts (metric or imperial)")
	weatherLang := lflag.String("weather-lang", "en", "Language for weather descriptions")

	srv := server.Configured(client, store, sessions, monitors)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: log.LevelFromLLog(),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if err := store.Load(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load settings", "error", err)
		os.Exit(1)
	}

	// the history monitor restores the persisted dashboard unit, so it is
	// built after settings are loaded
	monitors.Weather = monitor.NewWeather(client, store, sessions, *weatherUnits, *weatherLang)
	monitors.History = monitor.NewHistory(client, store, sessions, []types.Measure{
		types.MeasureProduction,
		types.MeasureConsumption,
	})

	if ok, err := sessions.TryAutoLogin(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "auto-login failed", "error", err)
	} else if ok {
		log.Ctx(ctx).InfoContext(ctx, "auto-login succeeded")
	} else {
		log.Ctx(ctx).InfoContext(ctx, "no remembered user, waiting for login")
	}

	monitors.Run(ctx)

	// Run blocks until the context is canceled or an error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
