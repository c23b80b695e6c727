package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
)

// TournamentService обслуживает список турниров.
type TournamentService struct {
	tournaments repositories.TournamentRepository
	detail      *DetailService
	logger      *slog.Logger
}

func NewTournamentService(tournaments repositories.TournamentRepository, detail *DetailService, logger *slog.Logger) *TournamentService {
	return &TournamentService{
		tournaments: tournaments,
		detail:      detail,
		logger:      logger,
	}
}

func (s *TournamentService) List(ctx context.Context) ([]models.Tournament, error) {
	return s.tournaments.List(ctx)
}

// Create проверяет форму и создаёт турнир. Возвращает id нового турнира.
func (s *TournamentService) Create(ctx context.Context, in CreateTournamentInput) (models.ID, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	id, err := s.tournaments.Create(ctx, repositories.CreateTournamentParams{
		Name:            in.Name,
		Description:     in.Description,
		Type:            in.Type,
		TeamSize:        in.TeamSize,
		MaxParticipants: in.MaxParticipants,
		BracketType:     in.BracketType,
		Maps:            in.Maps,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "tournament created", slog.String("tournament_id", id.String()), slog.String("name", in.Name))
	return id, nil
}

func (s *TournamentService) Delete(ctx context.Context, id models.ID) error {
	if err := s.tournaments.Delete(ctx, id); err != nil {
		return err
	}
	if s.detail != nil {
		s.detail.Evict(id)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", id.String()))
	return nil
}
