package position

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rentalScope/internal/contract"
	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
)

// TokenMeta reads ERC20 metadata for token. Decimals is required; symbol and name are
// best effort and left empty when the token does not return strings for them.
func (a *Aggregator) TokenMeta(r multicall.Reader, token common.Address) SingleResult[model.TokenMeta] {
	h, err := contract.NewERC20(token)
	if err != nil {
		return unresolved[model.TokenMeta](a.policy)
	}

	states := []multicall.CallState{
		r.Call(h, "decimals"),
		r.Call(h, "symbol"),
		r.Call(h, "name"),
	}
	if summarize(states).pending {
		return SingleResult[model.TokenMeta]{Loading: true}
	}

	if !states[0].Succeeded() {
		a.logger.Debug("decimals call failed", zap.String("token", token.Hex()), zap.Error(states[0].Err))
		return unresolved[model.TokenMeta](a.policy)
	}
	decimals, err := decodeUint(states[0].Values)
	if err != nil || decimals.BitLen() > 8 {
		a.logger.Debug("malformed decimals", zap.String("token", token.Hex()), zap.Error(err))
		return unresolved[model.TokenMeta](a.policy)
	}

	meta := model.TokenMeta{
		Address:  token.Hex(),
		Decimals: uint8(decimals.Uint64()),
		Symbol:   decodeString(states[1]),
		Name:     decodeString(states[2]),
	}
	return SingleResult[model.TokenMeta]{Ready: true, Found: true, Item: meta}
}

// TokenPair resolves both tokens of a position, token0 first.
func (a *Aggregator) TokenPair(r multicall.Reader, pos model.Position) Result[model.TokenMeta] {
	items := make([]model.TokenMeta, 0, 2)
	loading := false
	complete := true
	for _, token := range []string{pos.Token0, pos.Token1} {
		res := a.TokenMeta(r, common.HexToAddress(token))
		if !res.Ready {
			loading = loading || res.Loading
			complete = false
			continue
		}
		if res.Found {
			items = append(items, res.Item)
		}
	}
	if !complete {
		return notReady[model.TokenMeta](loading)
	}
	return ready(items, false)
}

func decodeString(state multicall.CallState) string {
	if !state.Succeeded() || len(state.Values) != 1 {
		return ""
	}
	s, _ := state.Values[0].(string)
	return s
}
