package repository

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/minesweeper/internal/game"
	"github.com/vancomm/minesweeper/internal/mines"
)

var testStart = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, difficulty string, params mines.GameParams) *game.Session {
	t.Helper()
	now := testStart
	s, err := game.New(difficulty, params, rand.New(rand.NewPCG(1, 2)), func() time.Time { return now })
	require.NoError(t, err)
	return s
}

func setupSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "minesweeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func setupBolt(t *testing.T) *Bolt {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "minesweeper.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func eachRepository(t *testing.T, test func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) { test(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { test(t, setupSQLite(t)) })
	t.Run("bolt", func(t *testing.T) { test(t, setupBolt(t)) })
}

func TestCreateAndFetch(t *testing.T) {
	eachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		s := newSession(t, "Easy", mines.GameParams{Cols: 9, Rows: 9, MineCount: 10})

		created, err := repo.CreateGameSession(ctx, s)
		require.NoError(t, err)
		assert.NotZero(t, created.GameSessionID)

		fetched, err := repo.FetchGameSession(ctx, created.GameSessionID)
		require.NoError(t, err)
		assert.Equal(t, "Easy", fetched.Difficulty)
		assert.Equal(t, 9, fetched.Width)
		assert.Equal(t, 9, fetched.Height)
		assert.Equal(t, 10, fetched.MineCount)
		assert.False(t, fetched.Dead)
		assert.False(t, fetched.Won)
		assert.Nil(t, fetched.StartedAt)
		assert.Equal(t, created.State, fetched.State)

		restored, err := fetched.Session(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, s.Board.String(), restored.Board.String())

		_, err = repo.FetchGameSession(ctx, created.GameSessionID+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdate(t *testing.T) {
	eachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		s := newSession(t, "Tiny", mines.GameParams{Cols: 3, Rows: 3, MineCount: 0})
		created, err := repo.CreateGameSession(ctx, s)
		require.NoError(t, err)

		require.NoError(t, s.Reveal(0, 0))
		require.True(t, s.Won())

		updated, err := repo.UpdateGameSession(ctx, created.GameSessionID, s)
		require.NoError(t, err)
		assert.True(t, updated.Won)
		assert.False(t, updated.Dead)
		require.NotNil(t, updated.StartedAt)
		require.NotNil(t, updated.EndedAt)
		assert.True(t, testStart.Equal(*updated.StartedAt))

		_, err = repo.UpdateGameSession(ctx, created.GameSessionID+100, s)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRecordHighscore(t *testing.T) {
	eachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		s := newSession(t, "Tiny", mines.GameParams{Cols: 3, Rows: 3, MineCount: 0})
		created, err := repo.CreateGameSession(ctx, s)
		require.NoError(t, err)

		_, ok := NewHighscore(created.GameSessionID, s)
		assert.False(t, ok, "unfinished games have no score")

		require.NoError(t, s.Reveal(0, 0))
		h, ok := NewHighscore(created.GameSessionID, s)
		require.True(t, ok)

		require.NoError(t, repo.RecordHighscore(ctx, h))
		assert.ErrorIs(t, repo.RecordHighscore(ctx, h), ErrDuplicate)

		h.GameSessionID += 100
		assert.ErrorIs(t, repo.RecordHighscore(ctx, h), ErrNotFound)
	})
}

func TestGetHighscores(t *testing.T) {
	eachRepository(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		_, err := BestTime(ctx, repo, HighscoreFilter{})
		assert.ErrorIs(t, err, ErrNotFound)

		easy := mines.GameParams{Cols: 9, Rows: 9, MineCount: 10}
		hard := mines.GameParams{Cols: 30, Rows: 20, MineCount: 99}
		record := func(difficulty string, params mines.GameParams, playtime int64) int64 {
			created, err := repo.CreateGameSession(ctx, newSession(t, difficulty, params))
			require.NoError(t, err)
			require.NoError(t, repo.RecordHighscore(ctx, Highscore{
				GameSessionID: created.GameSessionID,
				Difficulty:    difficulty,
				Width:         params.Cols,
				Height:        params.Rows,
				MineCount:     params.MineCount,
				PlaytimeMs:    playtime,
				RecordedAt:    testStart.Add(time.Duration(playtime) * time.Millisecond),
			}))
			return created.GameSessionID
		}
		slow := record("Easy", easy, 30_000)
		fast := record("Easy", easy, 12_500)
		record("Hard", hard, 5_000)

		all, err := repo.GetHighscores(ctx, HighscoreFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, int64(5_000), all[0].PlaytimeMs)

		difficulty := "Easy"
		scores, err := repo.GetHighscores(ctx, HighscoreFilter{Difficulty: &difficulty})
		require.NoError(t, err)
		require.Len(t, scores, 2)
		assert.Equal(t, fast, scores[0].GameSessionID)
		assert.Equal(t, slow, scores[1].GameSessionID)
		assert.Equal(t, easy, scores[0].Params())

		best, err := BestTime(ctx, repo, HighscoreFilter{GameParams: &easy})
		require.NoError(t, err)
		assert.Equal(t, fast, best.GameSessionID)
		assert.True(t, testStart.Add(12500*time.Millisecond).Equal(best.RecordedAt))

		limited, err := repo.GetHighscores(ctx, HighscoreFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})
}

func TestBoltSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "minesweeper.bolt")

	repo, err := OpenBolt(path)
	require.NoError(t, err)
	created, err := repo.CreateGameSession(ctx, newSession(t, "Easy", mines.GameParams{Cols: 9, Rows: 9, MineCount: 10}))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = OpenBolt(path)
	require.NoError(t, err)
	defer repo.Close()
	fetched, err := repo.FetchGameSession(ctx, created.GameSessionID)
	require.NoError(t, err)
	assert.Equal(t, created.State, fetched.State)

	next, err := repo.CreateGameSession(ctx, newSession(t, "Easy", mines.GameParams{Cols: 9, Rows: 9, MineCount: 10}))
	require.NoError(t, err)
	assert.Greater(t, next.GameSessionID, created.GameSessionID)
}
