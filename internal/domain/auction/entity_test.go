package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProduct_AcceptsPrice(t *testing.T) {
	p := &Product{Name: "Hoodie", StartPoint: 50}

	assert.False(t, p.AcceptsPrice(49))
	assert.True(t, p.AcceptsPrice(50), "start point itself is acceptable")
	assert.True(t, p.AcceptsPrice(200))
}

func TestProduct_AcceptsPrice_FreeLot(t *testing.T) {
	p := &Product{Name: "Sticker", StartPoint: 0}

	assert.True(t, p.AcceptsPrice(0))
}

func TestProduct_Validate(t *testing.T) {
	valid := &Product{Name: "Hoodie", StartPoint: 10, Amount: 3}
	assert.NoError(t, valid.Validate())

	unnamed := &Product{StartPoint: 10, Amount: 3}
	assert.ErrorIs(t, unnamed.Validate(), ErrMissingProductName)

	negStart := &Product{Name: "Hoodie", StartPoint: -1, Amount: 3}
	assert.ErrorIs(t, negStart.Validate(), ErrNegativeCounter)

	negAmount := &Product{Name: "Hoodie", StartPoint: 10, Amount: -1}
	assert.ErrorIs(t, negAmount.Validate(), ErrNegativeCounter)
}

func TestAuction_StartsAt(t *testing.T) {
	a := &Auction{
		Date: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Time: time.Date(0, 1, 1, 17, 30, 0, 0, time.UTC),
	}

	got := a.StartsAt()
	assert.Equal(t, time.Date(2026, 9, 12, 17, 30, 0, 0, time.UTC), got)
}

func TestAuction_StartsAt_OrdersByDateThenTime(t *testing.T) {
	morning := &Auction{
		Date: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Time: time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	evening := &Auction{
		Date: time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Time: time.Date(0, 1, 1, 19, 0, 0, 0, time.UTC),
	}
	nextDay := &Auction{
		Date: time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		Time: time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC),
	}

	assert.True(t, morning.StartsAt().Before(evening.StartsAt()))
	assert.True(t, evening.StartsAt().Before(nextDay.StartsAt()))
}
