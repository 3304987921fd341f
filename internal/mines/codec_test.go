package mines

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodedBoardKeepsPlaying(t *testing.T) {
	b, err := NewBoard(9, 9, 10, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.NoError(t, b.Reveal(4, 4))
	b.ToggleFlag(0, 0)

	buf, err := b.Bytes()
	require.NoError(t, err)
	decoded, err := DecodeBoard(buf)
	require.NoError(t, err)

	assert.Equal(t, b.Cells(), decoded.Cells())
	assert.Equal(t, b.Params(), decoded.Params())
	assert.Equal(t, Placed, decoded.Phase())
	assert.Equal(t, b.RevealedCount(), decoded.RevealedCount())
	assert.Equal(t, b.String(), decoded.String())

	// both copies must react to the same move in the same way
	b.ToggleFlag(0, 0)
	decoded.ToggleFlag(0, 0)
	safe := b.SafeUnrevealed()
	require.NotEmpty(t, safe)
	for _, p := range safe {
		require.NoError(t, b.Reveal(p.Col, p.Row))
		require.NoError(t, decoded.Reveal(p.Col, p.Row))
	}
	assert.True(t, b.Won())
	assert.True(t, decoded.Won())
	assert.Equal(t, b.Cells(), decoded.Cells())
}

func TestDecodeUnplacedBoard(t *testing.T) {
	b, err := NewBoard(4, 4, 3, nil)
	require.NoError(t, err)
	buf, err := b.Bytes()
	require.NoError(t, err)

	decoded, err := DecodeBoard(buf)
	require.NoError(t, err)
	assert.Equal(t, Unplaced, decoded.Phase())
	assert.Equal(t, -1, decoded.exploded)

	require.NoError(t, decoded.Reveal(0, 0))
	assert.Equal(t, Placed, decoded.Phase())
}

func TestDecodeBoardRejectsGarbage(t *testing.T) {
	_, err := DecodeBoard([]byte("not a board"))
	assert.Error(t, err)
}
