package repository

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vancomm/minesweeper/internal/game"
)

// Memory keeps everything in process. It is the default storage and the one
// handler tests run against.
type Memory struct {
	mu         sync.Mutex
	nextID     int64
	sessions   map[int64]GameSession
	highscores map[int64]Highscore
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions:   make(map[int64]GameSession),
		highscores: make(map[int64]Highscore),
		now:        time.Now,
	}
}

func (m *Memory) CreateGameSession(ctx context.Context, s *game.Session) (*GameSession, error) {
	row, err := sessionColumns(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now().UTC()
	row.GameSessionID = m.nextID
	row.CreatedAt, row.UpdatedAt = now, now
	m.sessions[row.GameSessionID] = row
	return &row, nil
}

func (m *Memory) FetchGameSession(ctx context.Context, gameSessionID int64) (*GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[gameSessionID]
	if !ok {
		return nil, ErrNotFound
	}
	row.State = bytes.Clone(row.State)
	return &row, nil
}

func (m *Memory) UpdateGameSession(
	ctx context.Context, gameSessionID int64, s *game.Session,
) (*GameSession, error) {
	update, err := sessionColumns(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[gameSessionID]
	if !ok {
		return nil, ErrNotFound
	}
	update.GameSessionID = gameSessionID
	update.CreatedAt = row.CreatedAt
	update.UpdatedAt = m.now().UTC()
	m.sessions[gameSessionID] = update
	return &update, nil
}

func (m *Memory) RecordHighscore(ctx context.Context, h Highscore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[h.GameSessionID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.highscores[h.GameSessionID]; ok {
		return ErrDuplicate
	}
	m.highscores[h.GameSessionID] = h
	return nil
}

func (m *Memory) GetHighscores(ctx context.Context, filter HighscoreFilter) ([]Highscore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scores := make([]Highscore, 0)
	for _, h := range m.highscores {
		if filter.match(h) {
			scores = append(scores, h)
		}
	}
	slices.SortFunc(scores, compareHighscores)
	if filter.Limit > 0 && len(scores) > filter.Limit {
		scores = scores[:filter.Limit]
	}
	return scores, nil
}

func (m *Memory) Close() error {
	return nil
}

func compareHighscores(a, b Highscore) int {
	switch {
	case a.PlaytimeMs != b.PlaytimeMs:
		return cmp.Compare(a.PlaytimeMs, b.PlaytimeMs)
	case !a.RecordedAt.Equal(b.RecordedAt):
		return a.RecordedAt.Compare(b.RecordedAt)
	default:
		return cmp.Compare(a.GameSessionID, b.GameSessionID)
	}
}
