package payment

import (
	"context"
	"errors"
	"math"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusDeclined Status = "declined"
)

var ErrInvalidAmount = errors.New("payment: amount must be a finite number")

// Approver decides whether a payment of amount is approved.
type Approver interface {
	Decide(ctx context.Context, amount float64) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, amount float64) (bool, error)

func (f ApproverFunc) Decide(ctx context.Context, amount float64) (bool, error) {
	return f(ctx, amount)
}

// ValidateAmount accepts any finite amount; the approver owns every other rule.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

func StatusFor(approved bool) Status {
	if approved {
		return StatusSuccess
	}
	return StatusDeclined
}
