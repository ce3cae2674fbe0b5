package model

import (
	"math/big"
	"time"
)

// Rental is one rental agreement held by the rental escrow.
type Rental struct {
	ExpiryDate         string `json:"expiry_date"`
	OriginalOwner      string `json:"original_owner"`
	Renter             string `json:"renter"`
	TokenID            string `json:"token_id"`
	UniswapPoolAddress string `json:"uniswap_pool_address"`
}

// Active reports whether the rental has not expired at now, in whole seconds.
func (r Rental) Active(now time.Time) bool {
	expiry, ok := new(big.Int).SetString(r.ExpiryDate, 10)
	if !ok {
		return false
	}
	return expiry.Cmp(big.NewInt(now.Unix())) >= 0
}
