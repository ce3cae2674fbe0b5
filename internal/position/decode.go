package position

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rentalScope/internal/contract"
	"rentalScope/internal/model"
)

// maxOwnedPositions bounds the per-index fan-out a single balance can trigger.
const maxOwnedPositions = 1 << 16

type rentInfo struct {
	expiry        *big.Int
	originalOwner common.Address
	renter        common.Address
	tokenID       *big.Int
	pool          common.Address
}

func (r rentInfo) record() model.Rental {
	return model.Rental{
		ExpiryDate:         r.expiry.String(),
		OriginalOwner:      r.originalOwner.Hex(),
		Renter:             r.renter.Hex(),
		TokenID:            r.tokenID.String(),
		UniswapPoolAddress: r.pool.Hex(),
	}
}

func expectArity(values []interface{}, n int) error {
	if len(values) != n {
		return fmt.Errorf("expected %d values, got %d", n, len(values))
	}
	return nil
}

func decodeUint(values []interface{}) (*big.Int, error) {
	if err := expectArity(values, 1); err != nil {
		return nil, err
	}
	v, err := contract.AsBigInt(values[0])
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative uint: %s", v)
	}
	return v, nil
}

func decodeBalance(values []interface{}) (int, error) {
	balance, err := decodeUint(values)
	if err != nil {
		return 0, err
	}
	if !balance.IsInt64() || balance.Int64() > maxOwnedPositions {
		return 0, fmt.Errorf("balance out of range: %s", balance)
	}
	return int(balance.Int64()), nil
}

func decodeUintSlice(values []interface{}) ([]*big.Int, error) {
	if err := expectArity(values, 1); err != nil {
		return nil, err
	}
	return contract.AsBigIntSlice(values[0])
}

func decodeAddress(values []interface{}) (common.Address, error) {
	if err := expectArity(values, 1); err != nil {
		return common.Address{}, err
	}
	return contract.AsAddress(values[0])
}

func decodeInt24(value interface{}) (int32, error) {
	v, err := contract.AsBigInt(value)
	if err != nil {
		return 0, err
	}
	return contract.Int24FromBig(v)
}

// decodePosition maps a positions(tokenId) tuple. The id used for the lookup is authoritative.
func decodePosition(tokenID *big.Int, values []interface{}) (model.Position, error) {
	if err := expectArity(values, 12); err != nil {
		return model.Position{}, err
	}

	ints := make(map[int]*big.Int, 7)
	for _, i := range []int{0, 4, 7, 8, 9, 10, 11} {
		v, err := contract.AsBigInt(values[i])
		if err != nil {
			return model.Position{}, fmt.Errorf("field %d: %w", i, err)
		}
		if v.Sign() < 0 {
			return model.Position{}, fmt.Errorf("field %d: negative value %s", i, v)
		}
		ints[i] = v
	}

	addrs := make(map[int]common.Address, 3)
	for _, i := range []int{1, 2, 3} {
		addr, err := contract.AsAddress(values[i])
		if err != nil {
			return model.Position{}, fmt.Errorf("field %d: %w", i, err)
		}
		addrs[i] = addr
	}

	fee, err := contract.Uint24FromBig(ints[4])
	if err != nil {
		return model.Position{}, fmt.Errorf("fee: %w", err)
	}
	tickLower, err := decodeInt24(values[5])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpper, err := decodeInt24(values[6])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	if tickLower > tickUpper {
		return model.Position{}, fmt.Errorf("tick lower %d above tick upper %d", tickLower, tickUpper)
	}

	return model.Position{
		TokenID:                  tokenID.String(),
		Fee:                      fee,
		FeeGrowthInside0LastX128: ints[8].String(),
		FeeGrowthInside1LastX128: ints[9].String(),
		Liquidity:                ints[7].String(),
		Nonce:                    ints[0].String(),
		Operator:                 addrs[1].Hex(),
		TickLower:                tickLower,
		TickUpper:                tickUpper,
		Token0:                   addrs[2].Hex(),
		Token1:                   addrs[3].Hex(),
		TokensOwed0:              ints[10].String(),
		TokensOwed1:              ints[11].String(),
	}, nil
}

// decodeRentInfo maps a tokenIdToRentInfo tuple.
func decodeRentInfo(values []interface{}) (rentInfo, error) {
	if err := expectArity(values, 5); err != nil {
		return rentInfo{}, err
	}
	expiry, err := contract.AsBigInt(values[0])
	if err != nil {
		return rentInfo{}, fmt.Errorf("expiry: %w", err)
	}
	originalOwner, err := contract.AsAddress(values[1])
	if err != nil {
		return rentInfo{}, fmt.Errorf("original owner: %w", err)
	}
	renter, err := contract.AsAddress(values[2])
	if err != nil {
		return rentInfo{}, fmt.Errorf("renter: %w", err)
	}
	tokenID, err := contract.AsBigInt(values[3])
	if err != nil {
		return rentInfo{}, fmt.Errorf("token id: %w", err)
	}
	pool, err := contract.AsAddress(values[4])
	if err != nil {
		return rentInfo{}, fmt.Errorf("pool: %w", err)
	}
	return rentInfo{
		expiry:        expiry,
		originalOwner: originalOwner,
		renter:        renter,
		tokenID:       tokenID,
		pool:          pool,
	}, nil
}

// decodeSlot0Tick extracts the current tick from a slot0 tuple.
func decodeSlot0Tick(values []interface{}) (int32, error) {
	if err := expectArity(values, 7); err != nil {
		return 0, err
	}
	return decodeInt24(values[1])
}

func decodeTickSpacing(values []interface{}) (int32, error) {
	if err := expectArity(values, 1); err != nil {
		return 0, err
	}
	spacing, err := decodeInt24(values[0])
	if err != nil {
		return 0, err
	}
	if spacing <= 0 {
		return 0, fmt.Errorf("non-positive tick spacing %d", spacing)
	}
	return spacing, nil
}
