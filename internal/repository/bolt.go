package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vancomm/minesweeper/internal/game"
)

var (
	sessionBucket   = []byte("game_session")
	highscoreBucket = []byte("highscore")
)

// Bolt keeps gob encoded rows in a bbolt file, keyed by the big-endian
// game session id.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionBucket, highscoreBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}
	return &Bolt{db: db, now: time.Now}, nil
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func put(b *bolt.Bucket, id int64, value any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}
	return b.Put(itob(id), buf.Bytes())
}

// get decodes the row stored under id into value. The bucket memory is only
// valid inside the transaction, so decoding happens here.
func get(b *bolt.Bucket, id int64, value any) error {
	v := b.Get(itob(id))
	if v == nil {
		return ErrNotFound
	}
	return gob.NewDecoder(bytes.NewReader(v)).Decode(value)
}

func (s *Bolt) CreateGameSession(ctx context.Context, session *game.Session) (*GameSession, error) {
	row, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		now := s.now().UTC()
		row.GameSessionID = int64(seq)
		row.CreatedAt, row.UpdatedAt = now, now
		return put(b, row.GameSessionID, row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Bolt) FetchGameSession(ctx context.Context, gameSessionID int64) (*GameSession, error) {
	var row GameSession
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx.Bucket(sessionBucket), gameSessionID, &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Bolt) UpdateGameSession(
	ctx context.Context, gameSessionID int64, session *game.Session,
) (*GameSession, error) {
	update, err := sessionColumns(session)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		var row GameSession
		if err := get(b, gameSessionID, &row); err != nil {
			return err
		}
		update.GameSessionID = gameSessionID
		update.CreatedAt = row.CreatedAt
		update.UpdatedAt = s.now().UTC()
		return put(b, gameSessionID, update)
	})
	if err != nil {
		return nil, err
	}
	return &update, nil
}

func (s *Bolt) RecordHighscore(ctx context.Context, h Highscore) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(sessionBucket).Get(itob(h.GameSessionID)) == nil {
			return ErrNotFound
		}
		b := tx.Bucket(highscoreBucket)
		if b.Get(itob(h.GameSessionID)) != nil {
			return ErrDuplicate
		}
		return put(b, h.GameSessionID, h)
	})
}

func (s *Bolt) GetHighscores(ctx context.Context, filter HighscoreFilter) ([]Highscore, error) {
	scores := make([]Highscore, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(highscoreBucket).ForEach(func(k, v []byte) error {
			var h Highscore
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&h); err != nil {
				return err
			}
			if filter.match(h) {
				scores = append(scores, h)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(scores, compareHighscores)
	if filter.Limit > 0 && len(scores) > filter.Limit {
		scores = scores[:filter.Limit]
	}
	return scores, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}
