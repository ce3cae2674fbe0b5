package position

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
)

func (f *fakeReader) setPool(pool common.Address) {
	f.set("factory", "getPool", []interface{}{token0, token1, big.NewInt(3000)}, multicall.Succeeded([]interface{}{pool}))
}

func (f *fakeReader) setPoolState(tick int64, spacing int64) {
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	f.set("pool", "slot0", nil, multicall.Succeeded([]interface{}{
		sqrtPrice,
		big.NewInt(tick),
		uint16(0),
		uint16(1),
		uint16(1),
		uint8(0),
		true,
	}))
	f.set("pool", "tickSpacing", nil, multicall.Succeeded([]interface{}{big.NewInt(spacing)}))
}

func TestPreviewPosition(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()
	r.setPosition(7, -887220, 887220)
	r.setPool(poolAddr)
	r.setPoolState(0, 60)

	res := agg.Preview(r, PreviewRequest{TokenID: big.NewInt(7)})

	require.True(t, res.Done())
	require.True(t, res.Found)
	preview := res.Item
	assert.Equal(t, model.PreviewPosition, preview.Kind)
	assert.Equal(t, "7", preview.Position.TokenID)
	assert.Equal(t, poolAddr.Hex(), preview.Pool)
	assert.Equal(t, int32(0), preview.CurrentTick)
	assert.True(t, preview.InRange)
	assert.Equal(t, model.TicksAtLimit{Lower: true, Upper: true}, preview.TicksAtLimit)
	assert.Zero(t, preview.RentalDurationSecs)
	assert.Zero(t, preview.RentalExpiresAt)
}

func TestPreviewRental(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()
	r.setPosition(7, -600, 600)
	r.setPool(poolAddr)
	r.setPoolState(600, 60)

	res := agg.Preview(r, PreviewRequest{
		TokenID:            big.NewInt(7),
		RentalDurationSecs: 86400,
		RentalPriceInEth:   "0.05",
	})

	require.True(t, res.Found)
	preview := res.Item
	assert.Equal(t, model.PreviewRental, preview.Kind)
	assert.False(t, preview.InRange, "upper tick is exclusive")
	assert.Equal(t, model.TicksAtLimit{}, preview.TicksAtLimit)
	assert.Equal(t, uint64(86400), preview.RentalDurationSecs)
	assert.Equal(t, "0.05", preview.RentalPriceInEth)
	assert.Equal(t, uint64(testNow.Unix())+86400, preview.RentalExpiresAt)
}

func TestPreviewWaitsForEachStage(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()

	res := agg.Preview(r, PreviewRequest{TokenID: big.NewInt(7)})
	assert.True(t, res.Loading)
	assert.Empty(t, r.issuedFor("factory"))

	r.setPosition(7, -600, 600)
	res = agg.Preview(r, PreviewRequest{TokenID: big.NewInt(7)})
	assert.True(t, res.Loading)
	assert.Len(t, r.issuedFor("factory.getPool"), 1)
	assert.Empty(t, r.issuedFor("pool."))

	r.setPool(poolAddr)
	res = agg.Preview(r, PreviewRequest{TokenID: big.NewInt(7)})
	assert.True(t, res.Loading)
	assert.Len(t, r.issuedFor("pool.slot0"), 1)
	assert.Len(t, r.issuedFor("pool.tickSpacing"), 1)
}

func TestPreviewMissingPool(t *testing.T) {
	r := newFakeReader()
	r.setPosition(7, -600, 600)
	r.setPool(common.Address{})

	strict := newTestAggregator(t, DefaultPolicy()).Preview(r, PreviewRequest{TokenID: big.NewInt(7)})
	assert.True(t, strict.Loading)
	assert.False(t, strict.Ready)

	lenient := newTestAggregator(t, Policy{FailureMode: BestEffort}).Preview(r, PreviewRequest{TokenID: big.NewInt(7)})
	assert.True(t, lenient.Done())
	assert.False(t, lenient.Found)
}

func TestRentalStatus(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	live := &model.Rental{ExpiryDate: "1700000100"}
	expired := &model.Rental{ExpiryDate: "1699999999"}

	assert.Equal(t, BadgeActive, RentalStatus(live, true, now))
	assert.Equal(t, BadgeInactive, RentalStatus(live, false, now))
	assert.Equal(t, BadgeInactive, RentalStatus(expired, true, now))
	assert.Equal(t, BadgeInactive, RentalStatus(nil, true, now))
}
