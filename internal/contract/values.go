package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Tick bounds of the V3 protocol.
const (
	MinTick = -887272
	MaxTick = 887272
)

// AsAddress coerces an unpacked ABI value into an address.
func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		if v == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// AsBigInt coerces an unpacked ABI integer into a fresh *big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil int")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// AsBigIntSlice coerces an unpacked uint256[] into fresh values.
func AsBigIntSlice(value interface{}) ([]*big.Int, error) {
	items, ok := value.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported int slice type %T", value)
	}
	out := make([]*big.Int, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("nil int at %d", i)
		}
		out = append(out, new(big.Int).Set(item))
	}
	return out, nil
}

// Int24FromBig range-checks a signed 24-bit value.
func Int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}

// Uint24FromBig range-checks an unsigned 24-bit value.
func Uint24FromBig(value *big.Int) (uint32, error) {
	if value.Sign() < 0 || value.BitLen() > 24 {
		return 0, fmt.Errorf("uint24 overflow: %s", value.String())
	}
	return uint32(value.Uint64()), nil
}

// NearestUsableTick rounds tick to the closest multiple of spacing inside the tick bounds.
func NearestUsableTick(tick int32, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}
	rounded := roundDiv(tick, spacing) * spacing
	if rounded < MinTick {
		return rounded + spacing
	}
	if rounded > MaxTick {
		return rounded - spacing
	}
	return rounded
}

// roundDiv rounds a/b to the nearest integer, halves toward positive infinity.
func roundDiv(a, b int32) int32 {
	q := a / b
	r := a % b
	if r < 0 {
		r = -r
	}
	if 2*r >= b {
		if a < 0 {
			if 2*r > b {
				q--
			}
		} else {
			q++
		}
	}
	return q
}
