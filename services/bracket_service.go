package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dosada05/tournament-portal/brackets"
	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/Dosada05/tournament-portal/storage"
)

// BracketService выполняет изменения сетки. Каждое изменение - отдельный
// запрос к бэкенду; локальный кэш меняется только после подтверждения, после
// чего планируется обновление данных.
type BracketService struct {
	detail    *DetailService
	matches   repositories.MatchRepository
	titles    repositories.RoundTitleRepository
	champions repositories.ChampionRepository
	images    repositories.MatchImageRepository
	uploader  storage.FileUploader
	logger    *slog.Logger

	inflight sync.Map
}

func NewBracketService(
	detail *DetailService,
	matches repositories.MatchRepository,
	titles repositories.RoundTitleRepository,
	champions repositories.ChampionRepository,
	images repositories.MatchImageRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *BracketService {
	return &BracketService{
		detail:    detail,
		matches:   matches,
		titles:    titles,
		champions: champions,
		images:    images,
		uploader:  uploader,
		logger:    logger,
	}
}

// UploadsEnabled reports whether match screenshots can be uploaded.
func (s *BracketService) UploadsEnabled() bool {
	return s.uploader != nil
}

// acquire не даёт отправить одно и то же изменение дважды, пока первое
// ещё не завершилось. Несвязанные изменения идут параллельно.
func (s *BracketService) acquire(key string) (func(), error) {
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return nil, fmt.Errorf("%w: %s", ErrMutationInProgress, key)
	}
	return func() { s.inflight.Delete(key) }, nil
}

func (s *BracketService) current(ctx context.Context, tournamentID models.ID) (Snapshot, error) {
	return s.detail.Load(ctx, tournamentID)
}

func (s *BracketService) CreateMatch(ctx context.Context, tournamentID models.ID, in CreateMatchInput) (*models.Match, error) {
	snap, err := s.current(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	teamMode := snap.Tournament.IsTeamMode()
	if err := in.Validate(teamMode); err != nil {
		return nil, err
	}
	if in.MatchNumber == 0 {
		in.MatchNumber = brackets.NextMatchNumber(snap.Matches, in.Round)
	}

	release, err := s.acquire("create-match:" + tournamentID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	params := repositories.CreateMatchParams{
		TournamentID: tournamentID,
		Round:        in.Round,
		MatchNumber:  in.MatchNumber,
		ScheduledAt:  in.ScheduledAt,
	}
	if teamMode {
		params.Team1Participants = in.Team1Participants
		params.Team2Participants = in.Team2Participants
	} else {
		p1, p2 := in.Participant1ID, in.Participant2ID
		params.Participant1ID = &p1
		params.Participant2ID = &p2
	}

	created, err := s.matches.Create(ctx, params)
	if err != nil {
		return nil, err
	}

	var match *models.Match
	switch {
	case created.Record != nil:
		m := created.Record.Resolve(teamMode)
		match = &m
	case !created.ID.IsZero():
		m := buildLocalMatch(snap.DetailState, created.ID, tournamentID, in, teamMode)
		match = &m
	}
	if match != nil {
		s.detail.Patch(tournamentID, func(st *DetailState) {
			st.Matches = append(st.Matches, *match)
		})
	}
	s.detail.ScheduleRefresh(ctx, tournamentID)

	s.logger.InfoContext(ctx, "match created",
		slog.String("tournament_id", tournamentID.String()),
		slog.Int("round", in.Round),
		slog.Int("match_number", in.MatchNumber))
	return match, nil
}

// buildLocalMatch собирает матч из кэша, когда бэкенд вернул только id.
func buildLocalMatch(st DetailState, id, tournamentID models.ID, in CreateMatchInput, teamMode bool) models.Match {
	m := models.Match{
		ID:           id,
		TournamentID: tournamentID,
		Round:        in.Round,
		MatchNumber:  in.MatchNumber,
		Status:       models.MatchPending,
		ScheduledAt:  in.ScheduledAt,
	}
	if teamMode {
		m.Side1 = models.Side{Kind: models.SideTeam, Members: lookupParticipants(st, in.Team1Participants)}
		m.Side2 = models.Side{Kind: models.SideTeam, Members: lookupParticipants(st, in.Team2Participants)}
		return m
	}
	m.Side1 = models.Side{Kind: models.SideSolo}
	m.Side2 = models.Side{Kind: models.SideSolo}
	if p, ok := st.ParticipantByID(in.Participant1ID); ok {
		m.Side1.Participant = &p
	}
	if p, ok := st.ParticipantByID(in.Participant2ID); ok {
		m.Side2.Participant = &p
	}
	return m
}

func lookupParticipants(st DetailState, ids []models.ID) []models.Participant {
	members := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		if p, ok := st.ParticipantByID(id); ok {
			members = append(members, p)
		}
	}
	return members
}

// UpdateMatch сохраняет результат матча. Победитель вычисляется здесь по
// счёту и отправляется бэкенду как есть.
func (s *BracketService) UpdateMatch(ctx context.Context, tournamentID, matchID models.ID, in UpdateMatchInput) (*models.Match, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.current(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	match, ok := snap.MatchByID(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	release, err := s.acquire("match:" + matchID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := brackets.DeriveWinner(match, in.Status, in.Score1, in.Score2)
	params := repositories.UpdateMatchParams{
		MatchID:     matchID,
		Score1:      in.Score1,
		Score2:      in.Score2,
		Status:      in.Status,
		WinnerID:    outcome.WinnerID,
		WinnerTeam:  outcome.WinnerTeam,
		MapPlayed:   in.MapPlayed,
		ScheduledAt: in.ScheduledAt,
		Notes:       in.Notes,
	}
	if err := s.matches.Update(ctx, params); err != nil {
		return nil, err
	}

	match.Score1, match.Score2 = in.Score1, in.Score2
	match.Status = in.Status
	match.WinnerID, match.WinnerTeam = outcome.WinnerID, outcome.WinnerTeam
	match.MapPlayed, match.ScheduledAt, match.Notes = in.MapPlayed, in.ScheduledAt, in.Notes

	s.detail.Patch(tournamentID, func(st *DetailState) {
		replaceMatch(st, match)
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return &match, nil
}

func replaceMatch(st *DetailState, match models.Match) {
	for i := range st.Matches {
		if st.Matches[i].ID == match.ID {
			st.Matches[i] = match
			return
		}
	}
}

func (s *BracketService) DeleteMatch(ctx context.Context, tournamentID, matchID models.ID) error {
	release, err := s.acquire("match:" + matchID.String())
	if err != nil {
		return err
	}
	defer release()

	if err := s.matches.Delete(ctx, matchID); err != nil {
		return err
	}

	s.detail.Patch(tournamentID, func(st *DetailState) {
		kept := st.Matches[:0:0]
		for _, m := range st.Matches {
			if m.ID != matchID {
				kept = append(kept, m)
			}
		}
		st.Matches = kept
		delete(st.Images, matchID)
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	s.logger.InfoContext(ctx, "match deleted", slog.String("tournament_id", tournamentID.String()), slog.String("match_id", matchID.String()))
	return nil
}

func (s *BracketService) RenameRound(ctx context.Context, tournamentID models.ID, in RenameRoundInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	release, err := s.acquire(fmt.Sprintf("round:%s:%d", tournamentID, in.Round))
	if err != nil {
		return err
	}
	defer release()

	if err := s.titles.Update(ctx, tournamentID, in.Round, in.Title); err != nil {
		return err
	}
	s.detail.Patch(tournamentID, func(st *DetailState) {
		if st.RoundTitles == nil {
			st.RoundTitles = models.RoundTitles{}
		}
		st.RoundTitles[in.Round] = in.Title
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return nil
}

func (s *BracketService) RenameTeam(ctx context.Context, tournamentID, matchID models.ID, in RenameTeamInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	snap, err := s.current(ctx, tournamentID)
	if err != nil {
		return err
	}
	match, ok := snap.MatchByID(matchID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	release, err := s.acquire("match:" + matchID.String())
	if err != nil {
		return err
	}
	defer release()

	params := repositories.UpdateMatchTeamsParams{MatchID: matchID}
	name := in.Name
	if in.Side == 1 {
		params.Team1CustomName = &name
		match.Side1.CustomName = name
	} else {
		params.Team2CustomName = &name
		match.Side2.CustomName = name
	}
	if err := s.matches.UpdateTeams(ctx, params); err != nil {
		return err
	}

	s.detail.Patch(tournamentID, func(st *DetailState) {
		replaceMatch(st, match)
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return nil
}

func (s *BracketService) SetChampion(ctx context.Context, tournamentID models.ID, in SetChampionInput) (*models.ManualChampion, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	release, err := s.acquire("champion:" + tournamentID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	champion := models.ManualChampion{Type: in.Type, Name: in.Name}
	if in.Type == models.ChampionTeam {
		champion.TeamParticipants = in.TeamParticipants
	} else {
		id := in.ParticipantID
		champion.ParticipantID = &id
	}
	if err := s.champions.Set(ctx, tournamentID, champion); err != nil {
		return nil, err
	}

	s.detail.Patch(tournamentID, func(st *DetailState) {
		c := champion
		st.Champion = &c
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	s.logger.InfoContext(ctx, "champion designated", slog.String("tournament_id", tournamentID.String()), slog.String("name", champion.Name))
	return &champion, nil
}

func (s *BracketService) ClearChampion(ctx context.Context, tournamentID models.ID) error {
	release, err := s.acquire("champion:" + tournamentID.String())
	if err != nil {
		return err
	}
	defer release()

	if err := s.champions.Clear(ctx, tournamentID); err != nil {
		return err
	}
	s.detail.Patch(tournamentID, func(st *DetailState) {
		st.Champion = nil
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return nil
}

// GenerateBracket просит бэкенд построить сетку; алгоритм целиком на его стороне.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID models.ID) error {
	release, err := s.acquire("generate:" + tournamentID.String())
	if err != nil {
		return err
	}
	defer release()

	if err := s.matches.GenerateBracket(ctx, tournamentID); err != nil {
		return err
	}
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return nil
}

// UploadMatchImage загружает скриншот матча в хранилище и регистрирует его
// публичный URL на бэкенде.
func (s *BracketService) UploadMatchImage(ctx context.Context, tournamentID, matchID models.ID, in UploadMatchImageInput) (*models.MatchImage, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ext, err := GetExtensionFromContentType(in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	snap, err := s.current(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	match, ok := snap.MatchByID(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	key := storage.MatchImageKey(match.ID.String(), ext)
	uploaded, err := s.uploader.Upload(ctx, key, in.ContentType, in.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image for match %s: %w", matchID, err)
	}

	image, err := s.images.Add(ctx, repositories.AddMatchImageParams{
		MatchID:     matchID,
		ImageType:   in.ImageType,
		ImageURL:    uploaded.Location,
		Description: in.Description,
	})
	if err != nil {
		// Бэкенд не принял запись - объект в хранилище больше никому не нужен.
		if delErr := s.uploader.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned match image", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, err
	}

	s.detail.Patch(tournamentID, func(st *DetailState) {
		if st.Images == nil {
			st.Images = map[models.ID][]models.MatchImage{}
		}
		st.Images[matchID] = append(st.Images[matchID], *image)
	})
	s.detail.ScheduleRefresh(ctx, tournamentID)
	return image, nil
}
