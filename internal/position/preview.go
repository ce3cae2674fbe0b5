package position

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rentalScope/internal/contract"
	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
)

// PreviewRequest describes what the review screen is about to show.
// A positive RentalDurationSecs turns the preview into a rental offer.
type PreviewRequest struct {
	TokenID            *big.Int
	RentalDurationSecs uint64
	RentalPriceInEth   string
}

// Preview resolves the review data for a position: the position itself, its pool,
// whether the pool's current tick is inside the range, and whether the range bounds
// sit at the usable tick limits.
func (a *Aggregator) Preview(r multicall.Reader, req PreviewRequest) SingleResult[model.Preview] {
	pos := a.PositionByID(r, req.TokenID)
	if !pos.Ready {
		return SingleResult[model.Preview]{Loading: pos.Loading}
	}
	if !pos.Found {
		return SingleResult[model.Preview]{Loading: pos.Loading, Ready: true}
	}

	fee := new(big.Int).SetUint64(uint64(pos.Item.Fee))
	poolState := r.Call(a.contracts.Factory, "getPool",
		common.HexToAddress(pos.Item.Token0),
		common.HexToAddress(pos.Item.Token1),
		fee,
	)
	if poolState.Loading() {
		return SingleResult[model.Preview]{Loading: true}
	}

	var pool common.Address
	if poolState.Succeeded() {
		addr, err := decodeAddress(poolState.Values)
		switch {
		case err != nil:
			poolState = multicall.Failed(err)
		case addr == (common.Address{}):
			poolState = multicall.Failed(errNoPool)
		default:
			pool = addr
		}
	}
	if poolState.Failed() {
		a.logger.Debug("pool lookup failed", zap.String("token_id", pos.Item.TokenID), zap.Error(poolState.Err))
		return unresolved[model.Preview](a.policy)
	}

	poolHandle, err := contract.NewPool(pool)
	if err != nil {
		return unresolved[model.Preview](a.policy)
	}
	states := []multicall.CallState{
		r.Call(poolHandle, "slot0"),
		r.Call(poolHandle, "tickSpacing"),
	}
	summary := summarize(states)
	if summary.pending {
		return SingleResult[model.Preview]{Loading: true}
	}
	if summary.failed {
		return unresolved[model.Preview](a.policy)
	}

	tick, err := decodeSlot0Tick(states[0].Values)
	if err != nil {
		return unresolved[model.Preview](a.policy)
	}
	spacing, err := decodeTickSpacing(states[1].Values)
	if err != nil {
		return unresolved[model.Preview](a.policy)
	}

	preview := model.Preview{
		Kind:        model.PreviewPosition,
		Position:    pos.Item,
		Pool:        pool.Hex(),
		CurrentTick: tick,
		InRange:     pos.Item.TickLower <= tick && tick < pos.Item.TickUpper,
		TicksAtLimit: model.TicksAtLimit{
			Lower: pos.Item.TickLower == contract.NearestUsableTick(contract.MinTick, spacing),
			Upper: pos.Item.TickUpper == contract.NearestUsableTick(contract.MaxTick, spacing),
		},
	}
	if req.RentalDurationSecs > 0 {
		preview.Kind = model.PreviewRental
		preview.RentalDurationSecs = req.RentalDurationSecs
		preview.RentalPriceInEth = req.RentalPriceInEth
		preview.RentalExpiresAt = uint64(a.now().Unix()) + req.RentalDurationSecs
	}

	return SingleResult[model.Preview]{Ready: true, Found: true, Item: preview}
}


// BadgeStatus is the rental state shown next to a rented position.
type BadgeStatus string

const (
	BadgeActive   BadgeStatus = "active"
	BadgeInactive BadgeStatus = "inactive"
)

// RentalStatus is active only while the account is renting and the rental has not expired.
func RentalStatus(rental *model.Rental, renting bool, now time.Time) BadgeStatus {
	if renting && rental != nil && rental.Active(now) {
		return BadgeActive
	}
	return BadgeInactive
}
