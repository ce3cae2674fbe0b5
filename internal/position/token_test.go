package position

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
)

func (f *fakeReader) setToken(decimals uint8, symbol, name string) {
	f.set("erc20", "decimals", nil, multicall.Succeeded([]interface{}{decimals}))
	f.set("erc20", "symbol", nil, multicall.Succeeded([]interface{}{symbol}))
	f.set("erc20", "name", nil, multicall.Succeeded([]interface{}{name}))
}

func TestTokenMeta(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()

	pending := agg.TokenMeta(r, token0)
	assert.True(t, pending.Loading)
	assert.Len(t, r.issuedFor("erc20."), 3)

	r.setToken(18, "WETH", "Wrapped Ether")
	res := agg.TokenMeta(r, token0)
	require.True(t, res.Done())
	assert.Equal(t, model.TokenMeta{Address: token0.Hex(), Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"}, res.Item)
}

func TestTokenMetaToleratesMissingStrings(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()
	r.set("erc20", "decimals", nil, multicall.Succeeded([]interface{}{uint8(6)}))
	r.set("erc20", "symbol", nil, multicall.Failed(errors.New("abi: cannot unmarshal")))
	r.set("erc20", "name", nil, multicall.Failed(errors.New("execution reverted")))

	res := agg.TokenMeta(r, token1)

	require.True(t, res.Found)
	assert.Equal(t, uint8(6), res.Item.Decimals)
	assert.Empty(t, res.Item.Symbol)
	assert.Empty(t, res.Item.Name)
}

func TestTokenMetaRequiresDecimals(t *testing.T) {
	r := newFakeReader()
	r.set("erc20", "decimals", nil, multicall.Failed(errors.New("execution reverted")))
	r.set("erc20", "symbol", nil, multicall.Succeeded([]interface{}{"X"}))
	r.set("erc20", "name", nil, multicall.Succeeded([]interface{}{"X"}))

	strict := newTestAggregator(t, DefaultPolicy()).TokenMeta(r, token0)
	assert.True(t, strict.Loading)
	assert.False(t, strict.Ready)

	lenient := newTestAggregator(t, Policy{FailureMode: BestEffort}).TokenMeta(r, token0)
	assert.True(t, lenient.Done())
	assert.False(t, lenient.Found)
}

func TestTokenPair(t *testing.T) {
	agg := newTestAggregator(t, DefaultPolicy())
	r := newFakeReader()
	pos := model.Position{Token0: token0.Hex(), Token1: common.HexToAddress("0x0c").Hex()}

	assert.True(t, agg.TokenPair(r, pos).Loading)

	// The fake keys reads by contract name, so both tokens share the canned answers.
	r.setToken(18, "TKN", "Token")
	res := agg.TokenPair(r, pos)
	require.True(t, res.Done())
	require.Len(t, res.Items, 2)
	assert.Equal(t, token0.Hex(), res.Items[0].Address)
	assert.Equal(t, pos.Token1, res.Items[1].Address)
}
