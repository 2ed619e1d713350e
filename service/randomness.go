package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Randomness source names accepted by NewRandomSource
const (
	RandomSourceCrypto = "crypto"
	RandomSourceBlock  = "block"
	RandomSourceSeeded = "seeded"
)

// DrawContext is the round state a draw is taken over
type DrawContext struct {
	LotteryID    int64
	Round        int64
	Participants []common.Address
	Pot          *big.Int
}

// RandomSource picks the winning participant index
type RandomSource interface {
	// Intn returns a value in [0, n)
	Intn(ctx context.Context, draw DrawContext, n int) (int, error)
}

// RandomSourceFunc adapts a function to RandomSource
type RandomSourceFunc func(ctx context.Context, draw DrawContext, n int) (int, error)

func (f RandomSourceFunc) Intn(ctx context.Context, draw DrawContext, n int) (int, error) {
	return f(ctx, draw, n)
}

// NewRandomSource builds the named source. seed is only used by "seeded".
func NewRandomSource(name string, seed int64) (RandomSource, error) {
	switch name {
	case "", RandomSourceCrypto:
		return CryptoRandomSource{}, nil
	case RandomSourceBlock:
		return NewBlockEntropySource(time.Now), nil
	case RandomSourceSeeded:
		return NewSeededRandomSource(seed), nil
	default:
		return nil, fmt.Errorf("unknown randomness source %q", name)
	}
}

// CryptoRandomSource draws from the operating system CSPRNG
type CryptoRandomSource struct{}

func (CryptoRandomSource) Intn(_ context.Context, _ DrawContext, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot draw from %d participants", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random index: %w", err)
	}
	return int(v.Int64()), nil
}

// BlockEntropySource hashes the clock and the round state with keccak256.
// Anyone who knows the inputs can predict the result, so it is only suitable
// for demos that want reproducible "on-chain style" draws.
type BlockEntropySource struct {
	now func() time.Time
}

func NewBlockEntropySource(now func() time.Time) *BlockEntropySource {
	return &BlockEntropySource{now: now}
}

func (s *BlockEntropySource) Intn(_ context.Context, draw DrawContext, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot draw from %d participants", n)
	}

	buf := make([]byte, 0, 24+len(draw.Participants)*common.AddressLength+32)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.now().Unix()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(draw.LotteryID))
	buf = binary.BigEndian.AppendUint64(buf, uint64(draw.Round))
	for _, p := range draw.Participants {
		buf = append(buf, p.Bytes()...)
	}
	if draw.Pot != nil {
		buf = append(buf, common.LeftPadBytes(draw.Pot.Bytes(), 32)...)
	}

	h := new(big.Int).SetBytes(crypto.Keccak256(buf))
	return int(h.Mod(h, big.NewInt(int64(n))).Int64()), nil
}

// SeededRandomSource is deterministic for a given seed
type SeededRandomSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func NewSeededRandomSource(seed int64) *SeededRandomSource {
	return &SeededRandomSource{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *SeededRandomSource) Intn(_ context.Context, _ DrawContext, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot draw from %d participants", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n), nil
}
