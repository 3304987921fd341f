package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const tokenKeyInfo = "minesweeper game token v1"

var ErrTokenMismatch = errors.New("token does not belong to this game")

// GameClaims prove that the bearer created the game session.
type GameClaims struct {
	GameSessionID int64 `json:"game_session_id"`
	jwt.RegisteredClaims
}

type GameTokens struct {
	secret        []byte
	signingMethod jwt.SigningMethod
	tokenLifetime time.Duration
}

// deriveKey stretches the configured secret into the HS256 signing key.
func deriveKey(secret []byte) []byte {
	key := make([]byte, sha256.Size)
	// a single hash length is far below the HKDF output limit
	_, _ = io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(tokenKeyInfo)), key)
	return key
}

func NewGameTokensWithSecret(secret []byte, lifetime time.Duration) *GameTokens {
	return &GameTokens{
		secret:        deriveKey(secret),
		signingMethod: jwt.SigningMethodHS256,
		tokenLifetime: lifetime,
	}
}

// NewGameTokens reads GAME_TOKEN_SECRET (or GAME_TOKEN_SECRET_FILE) and the
// optional GAME_TOKEN_LIFETIME duration (24h by default).
func NewGameTokens() (*GameTokens, error) {
	secret, err := lookupSecret("GAME_TOKEN_SECRET")
	if err != nil {
		return nil, err
	}
	if len(secret) < 16 {
		return nil, fmt.Errorf("GAME_TOKEN_SECRET must be at least 16 bytes")
	}

	lifetime := 24 * time.Hour
	if s, ok := os.LookupEnv("GAME_TOKEN_LIFETIME"); ok && s != "" {
		lifetime, err = time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid GAME_TOKEN_LIFETIME: %w", err)
		}
	}

	return NewGameTokensWithSecret([]byte(secret), lifetime), nil
}

func (t *GameTokens) Sign(gameSessionID int64) (string, error) {
	now := time.Now()
	claims := GameClaims{
		GameSessionID: gameSessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(gameSessionID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.tokenLifetime)),
		},
	}
	return jwt.NewWithClaims(t.signingMethod, claims).SignedString(t.secret)
}

func (t *GameTokens) Parse(tokenString string) (*GameClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&GameClaims{},
		func(*jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{t.signingMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*GameClaims)
	if !ok {
		return nil, fmt.Errorf("malformed claims")
	}
	return claims, nil
}

// Authorize checks that tokenString was issued for gameSessionID.
func (t *GameTokens) Authorize(tokenString string, gameSessionID int64) error {
	claims, err := t.Parse(tokenString)
	if err != nil {
		return err
	}
	if claims.GameSessionID != gameSessionID {
		return ErrTokenMismatch
	}
	return nil
}
