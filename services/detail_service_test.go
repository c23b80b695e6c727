package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Dosada05/tournament-portal/models"
	"github.com/Dosada05/tournament-portal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchIDs(matches []models.Match) []models.ID {
	ids := make([]models.ID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestDetailServiceLoad(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	snap, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, "Copa Norte", snap.Tournament.Name)
	assert.Len(t, snap.Participants, 3)
	require.Len(t, snap.Matches, 1)
	assert.Equal(t, models.SideSolo, snap.Matches[0].Side1.Kind)
	assert.Equal(t, models.ID("20"), snap.Matches[0].Side2.ParticipantID())
	assert.Len(t, snap.Images["100"], 1)
	assert.Equal(t, "Semifinal", snap.RoundTitles[1])
	assert.Nil(t, snap.Champion)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.Stale)
	assert.Equal(t, uint64(1), snap.Generation)

	assert.Equal(t, []refreshCall{{trigger: "load", result: "applied"}}, r.observer.results())
}

func TestDetailServiceLoadUsesCache(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, 1, r.tournaments.getCalls)
}

func TestDetailServiceLoadNotFound(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "99")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.Equal(t, []refreshCall{{trigger: "load", result: "failed"}}, r.observer.results())

	_, ok := svc.Snapshot("99")
	assert.False(t, ok)
}

func TestDetailServiceLoadToleratesSecondaryFailures(t *testing.T) {
	r := newTestRepos(soloTournament())
	r.participants.err = errors.New("boom")
	r.titles.err = errors.New("boom")
	svc, _, _ := newTestDetail(r)

	snap, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)
	assert.Empty(t, snap.Participants)
	assert.NotNil(t, snap.RoundTitles)
	assert.Len(t, snap.Matches, 1)
}

func TestDetailServiceTeamTournamentResolvesTeams(t *testing.T) {
	tour := models.Tournament{ID: "2", Name: "Liga 2v2", TeamSize: 2, BracketType: models.BracketSingleElimination}
	r := newTestRepos(tour)
	r.matches.setRecords([]models.MatchRecord{{
		ID: "300", TournamentID: "2", Round: 1, MatchNumber: 1,
		Team1Participants: []models.Participant{{ID: "10"}, {ID: "20"}},
		Team2Participants: []models.Participant{{ID: "30"}},
		Status:            models.MatchPending,
	}})
	svc, _, _ := newTestDetail(r)

	snap, err := svc.Load(context.Background(), "2")
	require.NoError(t, err)
	require.Len(t, snap.Matches, 1)
	assert.Equal(t, models.SideTeam, snap.Matches[0].Side1.Kind)
	assert.Equal(t, []models.ID{"10", "20"}, snap.Matches[0].Side1.MemberIDs())
}

func TestDetailServiceRefreshApplies(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, clk := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	r.matches.setRecords([]models.MatchRecord{
		{ID: "100", Round: 1, MatchNumber: 1, Status: models.MatchCompleted},
		{ID: "101", Round: 1, MatchNumber: 2, Status: models.MatchPending},
	})
	clk.Advance(5 * time.Second)

	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	snap, ok := svc.Snapshot("1")
	require.True(t, ok)
	assert.Equal(t, []models.ID{"100", "101"}, matchIDs(snap.Matches))
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, clk.Now(), snap.RefreshedAt)
	assert.False(t, snap.IsRefreshing)
	assert.Contains(t, r.observer.results(), refreshCall{trigger: "manual", result: "applied"})
}

func TestDetailServicePatchWinsOverInFlightRefresh(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	// Обновление стартует до патча, но отвечает после него со старыми данными.
	g := newGate()
	r.matches.setListGate(g)
	r.matches.setRecords(nil)

	done := make(chan error, 1)
	go func() {
		done <- svc.RefreshTournamentData(context.Background(), "1", TriggerPoll)
	}()
	<-g.entered

	snap, _ := svc.Snapshot("1")
	assert.True(t, snap.IsRefreshing)

	applied := svc.Patch("1", func(st *DetailState) {
		st.Matches = append(st.Matches, models.Match{ID: "patched", Round: 1, MatchNumber: 2})
	})
	require.True(t, applied)

	close(g.release)
	require.NoError(t, <-done)

	snap, _ = svc.Snapshot("1")
	assert.Equal(t, []models.ID{"100", "patched"}, matchIDs(snap.Matches))
	assert.Equal(t, uint64(3), snap.Generation)
	assert.False(t, snap.IsRefreshing)
	assert.Contains(t, r.observer.results(), refreshCall{trigger: "poll", result: "discarded"})
}

func TestDetailServiceOlderRefreshDiscarded(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	// Первое обновление зависает, второе успевает применить свежие данные.
	g := newGate()
	r.matches.setListGate(g)
	r.matches.setRecords([]models.MatchRecord{{ID: "old", Round: 1, MatchNumber: 1}})

	done := make(chan error, 1)
	go func() {
		done <- svc.RefreshTournamentData(context.Background(), "1", TriggerPoll)
	}()
	<-g.entered

	r.matches.setListGate(nil)
	r.matches.setRecords([]models.MatchRecord{{ID: "new", Round: 1, MatchNumber: 1}})
	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	close(g.release)
	require.NoError(t, <-done)

	snap, _ := svc.Snapshot("1")
	assert.Equal(t, []models.ID{"new"}, matchIDs(snap.Matches))
}

func TestDetailServiceRefreshFailureKeepsState(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	before, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	r.participants.err = errors.New("participants down")
	r.matches.listErr = errors.New("matches down")

	err = svc.RefreshTournamentData(context.Background(), "1", TriggerManual)
	require.Error(t, err)

	after, ok := svc.Snapshot("1")
	require.True(t, ok)
	assert.Equal(t, before.Matches, after.Matches)
	assert.Equal(t, before.Participants, after.Participants)
	assert.Equal(t, before.Generation, after.Generation)
	assert.Contains(t, r.observer.results(), refreshCall{trigger: "manual", result: "failed"})
}

func TestDetailServicePartialRefresh(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	r.participants.err = errors.New("participants down")
	r.matches.setRecords([]models.MatchRecord{{ID: "100"}, {ID: "101"}})

	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	snap, _ := svc.Snapshot("1")
	assert.Len(t, snap.Participants, 3, "participants keep the previous value")
	assert.Equal(t, []models.ID{"100", "101"}, matchIDs(snap.Matches))
}

func TestDetailServiceKeepsImagesWhenImageFetchFails(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	r.images.listErr = errors.New("images down")
	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	snap, _ := svc.Snapshot("1")
	assert.Len(t, snap.Images["100"], 1)
}

func TestDetailServiceRefreshLoadsUnknownTournament(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	snap, ok := svc.Snapshot("1")
	require.True(t, ok)
	assert.Equal(t, "Copa Norte", snap.Tournament.Name)
}

func TestDetailServiceStaleness(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, clk := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	snap, _ := svc.Snapshot("1")
	assert.False(t, snap.Stale)

	clk.Advance(31 * time.Second)
	snap, _ = svc.Snapshot("1")
	assert.True(t, snap.Stale)
}

func TestDetailServiceScheduleRefresh(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, sched, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(repositories.WithCookies(context.Background(), []*http.Cookie{{Name: "PHPSESSID", Value: "admin"}}))
	svc.ScheduleRefresh(reqCtx, "1")
	require.Equal(t, 1, sched.count())
	assert.Equal(t, []time.Duration{time.Second}, sched.delays)

	// Запрос, выполнивший изменение, уже завершён к моменту обновления.
	cancel()
	sched.runAll()
	assert.Contains(t, r.observer.results(), refreshCall{trigger: "mutation", result: "applied"})

	cookies := r.matches.lastCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "admin", cookies[0].Value)
}

func TestDetailServiceSnapshotIsCopy(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	snap, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	snap.Matches[0].Score1 = 99
	snap.RoundTitles[1] = "changed"
	snap.Images["100"] = nil

	again, _ := svc.Snapshot("1")
	assert.Equal(t, 0, again.Matches[0].Score1)
	assert.Equal(t, "Semifinal", again.RoundTitles[1])
	assert.Len(t, again.Images["100"], 1)
}

func TestDetailServiceEvict(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	svc.Evict("1")
	_, ok := svc.Snapshot("1")
	assert.False(t, ok)
	assert.False(t, svc.Patch("1", func(*DetailState) {}))
}

func TestDetailServicePollKeepsTournamentRecord(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	renamed := soloTournament()
	renamed.Name = "Copa Norte Final"
	renamed.Status = models.StatusCompleted
	r.tournaments.replace(renamed)
	r.titles.setTitles(models.RoundTitles{1: "Cuartos"})
	r.champions.set(&models.ManualChampion{Type: models.ChampionIndividual, Name: "Ana"})

	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerPoll))

	snap, _ := svc.Snapshot("1")
	assert.Equal(t, "Copa Norte", snap.Tournament.Name)
	assert.Equal(t, "Semifinal", snap.RoundTitles[1])
	assert.Nil(t, snap.Champion)
	assert.Equal(t, 1, r.tournaments.gets())
}

func TestDetailServiceManualRefreshRevalidatesTournament(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, clk := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	renamed := soloTournament()
	renamed.Name = "Copa Norte Final"
	r.tournaments.replace(renamed)
	r.titles.setTitles(models.RoundTitles{1: "Cuartos", 2: "Final"})
	r.champions.set(&models.ManualChampion{Type: models.ChampionIndividual, Name: "Ana"})
	clk.Advance(10 * time.Second)

	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerManual))

	snap, _ := svc.Snapshot("1")
	assert.Equal(t, "Copa Norte Final", snap.Tournament.Name)
	assert.Equal(t, models.RoundTitles{1: "Cuartos", 2: "Final"}, snap.RoundTitles)
	require.NotNil(t, snap.Champion)
	assert.Equal(t, "Ana", snap.Champion.Name)
	assert.Equal(t, clk.Now(), snap.LoadedAt)
}

func TestDetailServiceStaleLoadRevalidatesInBackground(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, clk := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	renamed := soloTournament()
	renamed.Name = "Copa Norte Final"
	r.tournaments.replace(renamed)

	// Периодический опрос не продлевает запись турнира.
	clk.Advance(31 * time.Second)
	require.NoError(t, svc.RefreshTournamentData(context.Background(), "1", TriggerPoll))

	snap, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Copa Norte", snap.Tournament.Name, "stale data is served while revalidating")

	require.Eventually(t, func() bool {
		for _, c := range r.observer.results() {
			if c == (refreshCall{trigger: "stale", result: "applied"}) {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	snap, _ = svc.Snapshot("1")
	assert.Equal(t, "Copa Norte Final", snap.Tournament.Name)
	assert.Equal(t, 2, r.tournaments.gets())
}

func TestDetailServiceManualRefreshEvictsDeletedTournament(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	_, err := svc.Load(context.Background(), "1")
	require.NoError(t, err)

	r.tournaments.replace(models.Tournament{ID: "2", Name: "Otra"})
	err = svc.RefreshTournamentData(context.Background(), "1", TriggerManual)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, ok := svc.Snapshot("1")
	assert.False(t, ok)
}

func TestDetailServiceMutationDuringColdLoad(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)
	bracket := NewBracketService(svc, r.matches, r.titles, r.champions, r.images, nil, discardLogger())

	g := newGate()
	r.matches.setListGate(g)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Load(context.Background(), "1")
		done <- err
	}()
	<-g.entered

	require.NoError(t, bracket.RenameRound(context.Background(), "1", RenameRoundInput{Round: 1, Title: "Cuartos"}))
	assert.False(t, svc.Patch("1", func(st *DetailState) { st.Tournament.Name = "patched" }))

	_, ok := svc.Snapshot("1")
	assert.False(t, ok, "state is not visible before the first load completes")

	close(g.release)
	require.NoError(t, <-done)

	snap, ok := svc.Snapshot("1")
	require.True(t, ok)
	assert.Equal(t, "Copa Norte", snap.Tournament.Name)
	assert.Len(t, snap.Matches, 1)
	assert.Len(t, snap.Participants, 3)
	assert.Equal(t, uint64(1), snap.Generation)
}

func TestDetailServiceFailedLoadLeavesNoEntry(t *testing.T) {
	r := newTestRepos(soloTournament())
	svc, _, _ := newTestDetail(r)

	for _, id := range []models.ID{"97", "98", "99", "99"} {
		_, err := svc.Load(context.Background(), id)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	}

	r.tournaments.listErr = errors.New("backend down")
	_, err := svc.Load(context.Background(), "1")
	require.Error(t, err)

	svc.mu.Lock()
	assert.Empty(t, svc.entries)
	svc.mu.Unlock()
}
