package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-portal/config"
	"github.com/Dosada05/tournament-portal/metrics"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/services"
	"github.com/Dosada05/tournament-portal/storage"
)

// application - собранные зависимости, общие для serve и bracket.
type application struct {
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *metrics.Collectors
	sessions    repositories.SessionRepository
	detail      *services.DetailService
	tournaments *services.TournamentService
	bracket     *services.BracketService
	poller      *services.Poller
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, collectors *metrics.Collectors) (*application, error) {
	client, err := repositories.NewClient(repositories.ClientConfig{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.BackendTimeout,
		RPS:      cfg.BackendRPS,
		Burst:    cfg.BackendBurst,
		Observer: collectors,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	logger.Info("backend client initialized", slog.String("base_url", cfg.APIBaseURL))

	// Инициализация загрузчика файлов (Cloudflare R2), если он настроен.
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("Cloudflare R2 not configured, match image uploads disabled")
	}

	// Инициализация репозиториев
	tournamentRepo := repositories.NewRESTTournamentRepository(client)
	participantRepo := repositories.NewRESTParticipantRepository(client)
	matchRepo := repositories.NewRESTMatchRepository(client)
	imageRepo := repositories.NewRESTMatchImageRepository(client)
	titleRepo := repositories.NewRESTRoundTitleRepository(client)
	championRepo := repositories.NewRESTChampionRepository(client)
	sessionRepo := repositories.NewRESTSessionRepository(client)

	// Инициализация сервисов
	detailService := services.NewDetailService(
		tournamentRepo,
		participantRepo,
		matchRepo,
		imageRepo,
		titleRepo,
		championRepo,
		collectors,
		logger,
		services.DetailServiceConfig{
			PollInterval:     cfg.PollInterval,
			RefreshDelay:     cfg.RefreshDelay,
			ImageConcurrency: cfg.ImageFetchConcurrency,
		},
	)

	return &application{
		cfg:         cfg,
		logger:      logger,
		metrics:     collectors,
		sessions:    sessionRepo,
		detail:      detailService,
		tournaments: services.NewTournamentService(tournamentRepo, detailService, logger),
		bracket:     services.NewBracketService(detailService, matchRepo, titleRepo, championRepo, imageRepo, uploader, logger),
		poller:      services.NewPoller(detailService, collectors, logger, cfg.PollInterval),
	}, nil
}
