package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backRank = "2r4k/6pp/8/8/8/8/4R1PP/4R1K1 w - - 0 1"

func TestApplySANAndUCI(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Load(backRank))

	san, err := b.Apply("e2e8")
	require.NoError(t, err)
	assert.Equal(t, "Re8", Strip(san))
	assert.Equal(t, "black", b.Turn())

	san, err = b.Apply("Rxe8")
	require.NoError(t, err)
	assert.Equal(t, "Rxe8", Strip(san))

	san, err = b.Apply("Rxe8#")
	require.NoError(t, err)
	assert.Equal(t, "Rxe8", Strip(san))
	assert.True(t, b.Checkmate())
	assert.Len(t, b.History(), 3)
}

func TestApplyIllegal(t *testing.T) {
	b := NewBoard()
	_, err := b.Apply("e2e5")
	require.ErrorIs(t, err, ErrIllegalMove)
	assert.Empty(t, b.History())
}

func TestUndoRestoresPosition(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Load(backRank))
	before := b.FEN()

	_, err := b.Apply("Re8+")
	require.NoError(t, err)
	require.NoError(t, b.Undo())

	assert.Equal(t, before, b.FEN())
	assert.Empty(t, b.History())
	assert.NoError(t, b.Undo())
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.Load("8/P7/8/8/8/8/k7/4K3 w - - 0 1"))

	san, err := b.Apply("a7a8")
	require.NoError(t, err)
	assert.Equal(t, "a8=Q", Strip(san))
}

func TestUCIConversion(t *testing.T) {
	b := NewBoard()
	uci, ok := b.UCI("Nf3")
	require.True(t, ok)
	assert.Equal(t, "g1f3", uci)

	_, ok = b.UCI("Nf6")
	assert.False(t, ok)
}

func TestLoadRejectsBadFEN(t *testing.T) {
	b := NewBoard()
	assert.Error(t, b.Load("not a fen"))
}
