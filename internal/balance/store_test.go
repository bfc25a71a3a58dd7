package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitNeverOverdraws(t *testing.T) {
	s := NewStore()
	s.Set("a", decimal.NewFromInt(100))

	require.NoError(t, s.Debit("a", decimal.NewFromInt(60)))
	assert.True(t, s.Get("a").Equal(decimal.NewFromInt(40)))

	err := s.Debit("a", decimal.NewFromInt(41))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, s.Get("a").Equal(decimal.NewFromInt(40)), "failed debit must not change the balance")

	require.NoError(t, s.Debit("a", decimal.NewFromInt(40)))
	assert.True(t, s.Get("a").IsZero())
}

func TestCreditAndDebitRejectNonPositiveAmounts(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Credit("a", decimal.Zero))
	assert.Error(t, s.Credit("a", decimal.NewFromInt(-5)))
	assert.Error(t, s.Debit("a", decimal.Zero))
}

func TestSetClampsNegative(t *testing.T) {
	s := NewStore()
	s.Set("a", decimal.NewFromInt(-10))
	assert.True(t, s.Get("a").IsZero())
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Set("a", decimal.NewFromInt(100))
	s.Remove("a")
	assert.True(t, s.Get("a").IsZero())
}
