package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/config"
	"github.com/Dosada05/tournament-portal/handlers"
	"github.com/Dosada05/tournament-portal/metrics"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	api "github.com/Dosada05/tournament-portal/routes"
	"github.com/Dosada05/tournament-portal/views"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cliApp := &cli.App{
		Name:  "portal",
		Usage: "web portal for tournament brackets backed by the PHP REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newBracketCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP portal",
		Action: func(c *cli.Context) error {
			return serve(c.Context, newLogger(c))
		},
	}
}

func serve(parent context.Context, logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		return err
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Duration("poll_interval", cfg.PollInterval))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorsSet := metrics.New(registry)

	app, err := newApplication(ctx, cfg, logger, collectorsSet)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		return err
	}

	// Опрос открытых сеток живёт столько же, сколько процесс.
	app.poller.Start(ctx)
	logger.Info("bracket poller started", slog.Duration("interval", cfg.PollInterval))

	// Инициализация обработчиков HTTP
	tournamentHandler := handlers.NewTournamentHandler(app.tournaments, app.detail, app.poller, logger, cfg.PollInterval, app.bracket.UploadsEnabled())
	bracketHandler := handlers.NewBracketHandler(app.bracket, logger)
	healthHandler := handlers.NewHealthHandler(app.poller, logger)

	if len(cfg.CSRFAuthKey) == 0 {
		logger.Warn("CSRF_AUTH_KEY not set, using a random key: form tokens reset on restart")
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		Sessions:       app.sessions,
		Logger:         logger,
		Gatherer:       registry,
		AllowedOrigins: cfg.CORSOrigins,
		MutationRPS:    cfg.MutationRPS,
		RequestTimeout: cfg.BackendTimeout * 3,
		Static:         views.Static(),
		CSRFKey:        cfg.CSRFAuthKey,
		PublicHTTPS:    cfg.PublicHTTPS,
	}, tournamentHandler, bracketHandler, healthHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.BackendTimeout*3 + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		stop()
		app.poller.Wait()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return err
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		app.poller.Wait()
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
	return nil
}

func newBracketCommand() *cli.Command {
	return &cli.Command{
		Name:      "bracket",
		Usage:     "print the bracket and champion of a tournament",
		ArgsUsage: "<tournament-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "cookie", Usage: "session cookie forwarded to the backend, name=value"},
		},
		Action: func(c *cli.Context) error {
			id := strings.TrimSpace(c.Args().First())
			if id == "" {
				return cli.Exit("tournament id is required", 2)
			}

			// Команда пишет в stdout, поэтому журнал уходит в stderr.
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app, err := newApplication(c.Context, cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx := repositories.WithCookies(c.Context, parseCookies(c.StringSlice("cookie")))
			snap, err := app.detail.Load(ctx, models.ID(id))
			if err != nil {
				return err
			}
			view := brackets.BuildView(snap.Tournament, snap.Matches, snap.RoundTitles, snap.Champion)
			return printBracket(c.App.Writer, view)
		},
	}
}

func parseCookies(raw []string) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}

func printBracket(w io.Writer, view brackets.View) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", view.Tournament.Name, view.Tournament.BracketType.Label())
	if view.Empty {
		b.WriteString("Bracket no generado\n")
	}
	for _, round := range view.Rounds {
		fmt.Fprintf(&b, "\n%s\n", round.Title)
		for _, m := range round.Matches {
			fmt.Fprintf(&b, "  #%d  %s %d - %d %s  [%s]\n",
				m.MatchNumber,
				brackets.TeamDisplayName(m, 1), m.Score1, m.Score2, brackets.TeamDisplayName(m, 2),
				m.Status.Label())
		}
	}
	if c := view.Champion; c != nil {
		suffix := ""
		if c.IsManual {
			suffix = " (designado)"
		}
		fmt.Fprintf(&b, "\nCampeón: %s%s\n", c.Name, suffix)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
