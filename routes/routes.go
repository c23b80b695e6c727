package routes

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-portal/docs"
	"github.com/Dosada05/tournament-portal/handlers"
	"github.com/Dosada05/tournament-portal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"
)

type Options struct {
	Sessions       middleware.SessionResolver
	Logger         *slog.Logger
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	MutationRPS    float64
	RequestTimeout time.Duration
	Static         fs.FS
	// CSRFKey подписывает cookie с CSRF-токеном; без ключа берётся случайный.
	CSRFKey     []byte
	PublicHTTPS bool
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	bracketHandler *handlers.BracketHandler,
	healthHandler *handlers.HealthHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	if opts.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(opts.RequestTimeout))
	}

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.CSRFHeader},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Служебные маршруты без сессии.
	router.Get("/healthz", healthHandler.Healthz)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(docs.SwaggerJSON)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if opts.Static != nil {
		router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(opts.Static))))
	}

	limit := rate.Inf
	if opts.MutationRPS > 0 {
		limit = rate.Limit(opts.MutationRPS)
	}
	limiter := middleware.NewIPRateLimiter(limit, burstFor(opts.MutationRPS))

	csrfKey := opts.CSRFKey
	if len(csrfKey) == 0 {
		csrfKey = securecookie.GenerateRandomKey(32)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.LimitMultipart(handlers.MaxUploadBytes))
		r.Use(middleware.CSRF(middleware.CSRFOptions{
			AuthKey:        csrfKey,
			Secure:         opts.PublicHTTPS,
			TrustedOrigins: opts.AllowedOrigins,
		}, opts.Logger))
		r.Use(middleware.Session(opts.Sessions, opts.Logger))
		r.Use(middleware.RateLimit(limiter))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/tournaments", http.StatusSeeOther)
		})

		// HTML-страницы и формы.
		r.Get("/tournaments", tournamentHandler.ListPage)
		r.Get("/tournaments/{tournamentID}", tournamentHandler.DetailPage)
		r.Post("/tournaments/{tournamentID}/refresh", tournamentHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/tournaments", tournamentHandler.Create)
			r.Post("/tournaments/{tournamentID}/delete", tournamentHandler.Delete)

			// HTML-формы умеют только GET и POST, поэтому у каждого изменения свой путь.
			r.Post("/tournaments/{tournamentID}/generate", bracketHandler.GenerateBracket)
			r.Post("/tournaments/{tournamentID}/matches", bracketHandler.CreateMatch)
			r.Post("/tournaments/{tournamentID}/matches/{matchID}", bracketHandler.UpdateMatch)
			r.Post("/tournaments/{tournamentID}/matches/{matchID}/delete", bracketHandler.DeleteMatch)
			r.Post("/tournaments/{tournamentID}/matches/{matchID}/teams", bracketHandler.RenameTeam)
			r.Post("/tournaments/{tournamentID}/matches/{matchID}/images", bracketHandler.UploadMatchImage)
			r.Post("/tournaments/{tournamentID}/rounds/{round}", bracketHandler.RenameRound)
			r.Post("/tournaments/{tournamentID}/champion", bracketHandler.SetChampion)
			r.Post("/tournaments/{tournamentID}/champion/clear", bracketHandler.ClearChampion)
		})

		// JSON API с теми же операциями.
		r.Get("/api/session", healthHandler.Session)
		r.Get("/api/tournaments", tournamentHandler.ListJSON)
		r.Get("/api/tournaments/{tournamentID}", tournamentHandler.DetailJSON)
		r.Post("/api/tournaments/{tournamentID}/refresh", tournamentHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/api/tournaments", tournamentHandler.Create)
			r.Delete("/api/tournaments/{tournamentID}", tournamentHandler.Delete)
			r.Post("/api/tournaments/{tournamentID}/generate", bracketHandler.GenerateBracket)
			r.Post("/api/tournaments/{tournamentID}/matches", bracketHandler.CreateMatch)
			r.Put("/api/tournaments/{tournamentID}/matches/{matchID}", bracketHandler.UpdateMatch)
			r.Delete("/api/tournaments/{tournamentID}/matches/{matchID}", bracketHandler.DeleteMatch)
			r.Put("/api/tournaments/{tournamentID}/matches/{matchID}/teams", bracketHandler.RenameTeam)
			r.Post("/api/tournaments/{tournamentID}/matches/{matchID}/images", bracketHandler.UploadMatchImage)
			r.Put("/api/tournaments/{tournamentID}/rounds/{round}", bracketHandler.RenameRound)
			r.Put("/api/tournaments/{tournamentID}/champion", bracketHandler.SetChampion)
			r.Delete("/api/tournaments/{tournamentID}/champion", bracketHandler.ClearChampion)
		})
	})
}

func burstFor(rps float64) int {
	if rps <= 0 {
		return 1
	}
	if b := int(rps * 2); b > 1 {
		return b
	}
	return 1
}
