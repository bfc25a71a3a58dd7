package ledger

import (
	"context"
	"testing"
	"time"

	"lv-papertrade/internal/model"
	"lv-papertrade/internal/quote"
	"lv-papertrade/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(symbol, price string) quote.Quote {
	return quote.Quote{Symbol: symbol, Price: dec(price), Timestamp: time.Now().UTC()}
}

func TestLimitBuyFillsAtOrBelowLimit(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.50")

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideBuy,
		Kind:       types.OrderKindLimit,
		Qty:        dec("10"),
		LimitPrice: ptr("175.00"),
	})
	require.NoError(t, err)

	// Quote above the limit leaves it pending.
	l.ApplyQuote(ctx, tick("AAPL", "176.00"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusPending, got.Status)

	// Quote through the limit fills at the limit price, not the quote.
	l.ApplyQuote(ctx, tick("AAPL", "174.20"))
	got = mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusOpen, got.Status)
	assert.True(t, got.EntryPrice.Equal(dec("175.00")))

	summary, _ := l.AccountSummary("u1")
	assert.True(t, summary.Balance.Equal(dec("8250.00")), "balance: %s", summary.Balance)
}

func TestLimitSellFillsAtOrAboveLimit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideSell,
		Kind:       types.OrderKindLimit,
		Qty:        dec("5"),
		LimitPrice: ptr("185.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "184.00"))
	assert.Equal(t, types.PositionStatusPending, mustGet(t, l, pos.ID).Status)

	l.ApplyQuote(ctx, tick("AAPL", "185.50"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusOpen, got.Status)
	assert.True(t, got.EntryPrice.Equal(dec("185.00")))
}

func TestStopBuyTriggersAtOrAboveStop(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID: "u1",
		Symbol:    "AAPL",
		Side:      types.SideBuy,
		Kind:      types.OrderKindStop,
		Qty:       dec("2"),
		StopPrice: ptr("185.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "184.99"))
	assert.Equal(t, types.PositionStatusPending, mustGet(t, l, pos.ID).Status)

	// Plain stops fill at the quote that armed them.
	l.ApplyQuote(ctx, tick("AAPL", "186.20"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusOpen, got.Status)
	assert.True(t, got.EntryPrice.Equal(dec("186.20")))
}

func TestStopLimitRequiresBothConditions(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideBuy,
		Kind:       types.OrderKindStopLimit,
		Qty:        dec("1"),
		StopPrice:  ptr("185.00"),
		LimitPrice: ptr("187.00"),
	})
	require.NoError(t, err)

	// Past the stop but above the limit: no fill.
	l.ApplyQuote(ctx, tick("AAPL", "188.00"))
	assert.Equal(t, types.PositionStatusPending, mustGet(t, l, pos.ID).Status)

	// Between stop and limit: fills at the limit price.
	l.ApplyQuote(ctx, tick("AAPL", "186.00"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusOpen, got.Status)
	assert.True(t, got.EntryPrice.Equal(dec("187.00")))
}

func TestUnfundedFillCancelsOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.ResetBalance(ctx, "u1", dec("100")))

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideBuy,
		Kind:       types.OrderKindLimit,
		Qty:        dec("10"),
		LimitPrice: ptr("175.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "174.00"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusCancelled, got.Status)

	summary, _ := l.AccountSummary("u1")
	assert.True(t, summary.Balance.Equal(dec("100")))

	// A later crossing quote must not resurrect it.
	l.ApplyQuote(ctx, tick("AAPL", "170.00"))
	assert.Equal(t, types.PositionStatusCancelled, mustGet(t, l, pos.ID).Status)
}

func TestStopLossClosesLong(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.00")

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID: "u1",
		Symbol:    "AAPL",
		Side:      types.SideBuy,
		Kind:      types.OrderKindMarket,
		Qty:       dec("10"),
		StopLoss:  ptr("175.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "176.00"))
	assert.Equal(t, types.PositionStatusOpen, mustGet(t, l, pos.ID).Status)

	l.ApplyQuote(ctx, tick("AAPL", "174.50"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusClosed, got.Status)
	// Settles at the triggering quote.
	require.NotNil(t, got.ClosePrice)
	assert.True(t, got.ClosePrice.Equal(dec("174.50")))
	assert.True(t, got.RealizedPnL.Equal(dec("-55.00")), "pnl: %s", got.RealizedPnL)
}

func TestTakeProfitClosesLong(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.00")

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideBuy,
		Kind:       types.OrderKindMarket,
		Qty:        dec("10"),
		TakeProfit: ptr("190.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "191.00"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusClosed, got.Status)
	assert.True(t, got.ClosePrice.Equal(dec("191.00")))
	assert.True(t, got.RealizedPnL.Equal(dec("110.00")))
}

func TestTakeProfitWinsWhenQuoteCrossesBoth(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.00")

	long, err := l.OpenPosition(ctx, OpenRequest{
		AccountID:  "u1",
		Symbol:     "AAPL",
		Side:       types.SideBuy,
		Kind:       types.OrderKindMarket,
		Qty:        dec("10"),
		StopLoss:   ptr("175.00"),
		TakeProfit: ptr("190.00"),
	})
	require.NoError(t, err)

	// 195 is above the take-profit; a gap that extreme could also have blown
	// through the stop on the way. The take-profit is evaluated first and the
	// position closes exactly once, at the triggering quote.
	l.ApplyQuote(ctx, tick("AAPL", "195.00"))
	got := mustGet(t, l, long.ID)
	assert.Equal(t, types.PositionStatusClosed, got.Status)
	assert.True(t, got.ClosePrice.Equal(dec("195.00")), "close: %s", got.ClosePrice)
	assert.True(t, got.RealizedPnL.Equal(dec("150.00")))
}

func TestStopLossClosesShort(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.00")

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID: "u1",
		Symbol:    "AAPL",
		Side:      types.SideSell,
		Kind:      types.OrderKindMarket,
		Qty:       dec("10"),
		StopLoss:  ptr("185.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("AAPL", "186.00"))
	got := mustGet(t, l, pos.ID)
	assert.Equal(t, types.PositionStatusClosed, got.Status)
	assert.True(t, got.ClosePrice.Equal(dec("186.00")))
	assert.True(t, got.RealizedPnL.Equal(dec("-60.00")))
}

func TestQuoteForOtherSymbolIsIgnored(t *testing.T) {
	l, feed := newTestLedger(t)
	ctx := context.Background()
	feed.set("AAPL", "180.00")

	pos, err := l.OpenPosition(ctx, OpenRequest{
		AccountID: "u1",
		Symbol:    "AAPL",
		Side:      types.SideBuy,
		Kind:      types.OrderKindMarket,
		Qty:       dec("1"),
		StopLoss:  ptr("175.00"),
	})
	require.NoError(t, err)

	l.ApplyQuote(ctx, tick("MSFT", "1.00"))
	assert.Equal(t, types.PositionStatusOpen, mustGet(t, l, pos.ID).Status)
}

func mustGet(t *testing.T, l *Ledger, positionID string) model.Position {
	t.Helper()
	positions, err := l.ListPositions("u1", nil)
	require.NoError(t, err)
	for _, pos := range positions {
		if pos.ID == positionID {
			return pos
		}
	}
	t.Fatalf("position %s not found", positionID)
	return model.Position{}
}
