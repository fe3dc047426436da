// Package approval holds payment.Approver implementations.
package approval

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/flcdrg/aspire-non-dotnet/internal/domain/payment"
)

const DefaultRate = 0.8

// RandomApprover approves a payment with a fixed probability.
type RandomApprover struct {
	mu     sync.Mutex
	random *rand.Rand
	rate   float64
}

var _ payment.Approver = (*RandomApprover)(nil)

// NewRandom returns an approver that approves with probability rate, clamped to [0,1].
func NewRandom(rate float64) *RandomApprover {
	return NewRandomWithSource(rate, rand.NewSource(time.Now().UnixNano()))
}

func NewRandomWithSource(rate float64, src rand.Source) *RandomApprover {
	a := &RandomApprover{random: rand.New(src)}
	a.SetRate(rate)
	return a
}

func (a *RandomApprover) Decide(ctx context.Context, _ float64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	return a.random.Float64() < a.rate, nil
}

func (a *RandomApprover) SetRate(rate float64) {
	a.mu.Lock()
	if rate < 0 || math.IsNaN(rate) {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	a.rate = rate
	a.mu.Unlock()
}

func (a *RandomApprover) Rate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}
