package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

var opened = time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC)

func TestEnsureCreatesFlatPosition(t *testing.T) {
	l := New()
	_, ok := l.Get("AAPL")
	require.False(t, ok)

	p := l.Ensure("AAPL")
	assert.True(t, p.Flat())
	_, ok = l.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestSet(t *testing.T) {
	cases := []struct {
		name      string
		code      string
		qty, cost float64
		want      models.Position
	}{
		{
			name: "long recomputes average",
			code: "AAPL", qty: 10, cost: 1005,
			want: models.Position{Quantity: 10, TotalCost: 1005, AverageCost: 100.5, OpenDate: opened},
		},
		{
			name: "short keeps sign convention",
			code: "USD", qty: -5, cost: -400,
			want: models.Position{Quantity: -5, TotalCost: -400, AverageCost: 80, OpenDate: opened},
		},
		{
			name: "exact zero resets cost",
			code: "AAPL", qty: 0, cost: 12.5,
			want: models.Position{},
		},
		{
			name: "dust with tiny cost snaps fully",
			code: "AAPL", qty: 5e-5, cost: 5e-5,
			want: models.Position{},
		},
		{
			name: "dust with visible cost keeps residual",
			code: "AAPL", qty: -3e-5, cost: 0.42,
			want: models.Position{TotalCost: 0.42},
		},
		{
			name: "btc dust below 100 SEK snaps",
			code: "BTC", qty: 0.0015, cost: 80,
			want: models.Position{},
		},
		{
			name: "btc dust above 100 SEK keeps residual",
			code: "BTC", qty: 0.0015, cost: 150,
			want: models.Position{TotalCost: 150},
		},
		{
			name: "btc above dust threshold is a position",
			code: "BTC", qty: 0.003, cost: 3000,
			want: models.Position{Quantity: 0.003, TotalCost: 3000, AverageCost: 1e6, OpenDate: opened},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := New()
			got := l.Set(tc.code, tc.qty, tc.cost, opened)
			assert.Equal(t, tc.want.Quantity, got.Quantity)
			assert.InDelta(t, tc.want.TotalCost, got.TotalCost, 1e-9)
			assert.InDelta(t, tc.want.AverageCost, got.AverageCost, 1e-6)
			assert.Equal(t, tc.want.OpenDate, got.OpenDate)

			stored, ok := l.Get(tc.code)
			require.True(t, ok)
			assert.Equal(t, got, stored)
		})
	}
}

func TestAverageCostInvariant(t *testing.T) {
	l := New()
	qty, cost := 0.0, 0.0
	buys := []struct{ q, p, c float64 }{{10, 100, 5}, {3, 97.25, 1}, {0.5, 120, 0}, {7, 88.8, 2.5}}
	for _, b := range buys {
		qty += b.q
		cost += b.q*b.p + b.c
		p := l.Set("ERIC", qty, cost, opened)
		assert.InDelta(t, p.TotalCost, p.Quantity*p.AverageCost, 1e-9)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := New()
	l.Set("AAPL", 5, 502.5, opened)
	l.Set("USD", -301, -3010, opened)
	l.Set("ERIC", 0, 0, time.Time{})

	open := l.Open()
	require.Len(t, open, 2)
	require.NotContains(t, open, "ERIC")

	reloaded := FromSnapshot(open)
	assert.Equal(t, open, reloaded.Open())
	assert.Equal(t, []string{"AAPL", "USD"}, reloaded.Symbols())
}

func TestFromSnapshotRecomputesAverage(t *testing.T) {
	l := FromSnapshot(map[string]models.Position{
		"SAND": {Quantity: 4, TotalCost: 1000, AverageCost: 1},
		"VOLV": {Quantity: 0, TotalCost: 0, AverageCost: 3, OpenDate: opened},
	})
	p, _ := l.Get("SAND")
	assert.InDelta(t, 250, p.AverageCost, 1e-9)
	p, _ = l.Get("VOLV")
	assert.Zero(t, p.AverageCost)
	assert.True(t, p.OpenDate.IsZero())
}
