package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomSource(t *testing.T) {
	for _, name := range []string{"", RandomSourceCrypto, RandomSourceBlock, RandomSourceSeeded} {
		src, err := NewRandomSource(name, 1)
		require.NoError(t, err, name)
		assert.NotNil(t, src)
	}

	_, err := NewRandomSource("dice", 1)
	assert.Error(t, err)
}

func TestRandomSources_StayInRange(t *testing.T) {
	ctx := context.Background()
	draw := DrawContext{
		LotteryID:    1,
		Round:        1,
		Participants: []common.Address{testAlice, testBob, testOwner},
		Pot:          big.NewInt(30),
	}

	sources := map[string]RandomSource{
		"crypto": CryptoRandomSource{},
		"block":  NewBlockEntropySource(time.Now),
		"seeded": NewSeededRandomSource(7),
	}

	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				idx, err := src.Intn(ctx, draw, len(draw.Participants))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, idx, 0)
				assert.Less(t, idx, len(draw.Participants))
			}

			_, err := src.Intn(ctx, draw, 0)
			assert.Error(t, err)
		})
	}
}

func TestBlockEntropySource_DeterministicForSameInputs(t *testing.T) {
	ctx := context.Background()
	fixed := time.Unix(1700000000, 0)
	src := NewBlockEntropySource(func() time.Time { return fixed })
	draw := DrawContext{LotteryID: 1, Round: 3, Participants: []common.Address{testAlice, testBob}, Pot: big.NewInt(20)}

	first, err := src.Intn(ctx, draw, 1000)
	require.NoError(t, err)
	second, err := src.Intn(ctx, draw, 1000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSeededRandomSource_Reproducible(t *testing.T) {
	ctx := context.Background()
	a := NewSeededRandomSource(99)
	b := NewSeededRandomSource(99)

	for i := 0; i < 50; i++ {
		x, err := a.Intn(ctx, DrawContext{}, 10)
		require.NoError(t, err)
		y, err := b.Intn(ctx, DrawContext{}, 10)
		require.NoError(t, err)
		assert.Equal(t, x, y)
	}
}
