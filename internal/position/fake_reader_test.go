package position

import (
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"rentalScope/internal/contract"
	"rentalScope/internal/multicall"
)

var (
	accountX = common.HexToAddress("0x1111111111111111111111111111111111111111")
	accountY = common.HexToAddress("0x2222222222222222222222222222222222222222")
	token0   = common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	token1   = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
	poolAddr = common.HexToAddress("0x9999999999999999999999999999999999999999")

	testNow = time.Unix(1_700_000_000, 0)
)

// fakeReader serves canned states keyed by contract, method and arguments, and records
// every read it is asked to issue.
type fakeReader struct {
	states map[string]multicall.CallState
	issued []string
}

func newFakeReader() *fakeReader {
	return &fakeReader{states: make(map[string]multicall.CallState)}
}

func callKey(contractName, method string, args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	return fmt.Sprintf("%s.%s(%s)", contractName, method, strings.Join(parts, ","))
}

func (f *fakeReader) set(contractName, method string, args []interface{}, state multicall.CallState) {
	f.states[callKey(contractName, method, args)] = state
}

func (f *fakeReader) Call(h contract.Handle, method string, args ...interface{}) multicall.CallState {
	key := callKey(h.Name, method, args)
	f.issued = append(f.issued, key)
	if st, ok := f.states[key]; ok {
		return st
	}
	return multicall.Pending()
}

func (f *fakeReader) CallMany(h contract.Handle, method string, argSets [][]interface{}) []multicall.CallState {
	out := make([]multicall.CallState, 0, len(argSets))
	for _, args := range argSets {
		if args == nil {
			out = append(out, multicall.Pending())
			continue
		}
		out = append(out, f.Call(h, method, args...))
	}
	return out
}

func (f *fakeReader) issuedFor(prefix string) []string {
	var out []string
	for _, key := range f.issued {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out
}

func (f *fakeReader) setBalance(account common.Address, n int64) {
	f.set("position_manager", "balanceOf", []interface{}{account}, multicall.Succeeded([]interface{}{big.NewInt(n)}))
}

func (f *fakeReader) setTokenOfOwner(account common.Address, index int64, id int64) {
	f.set("position_manager", "tokenOfOwnerByIndex", []interface{}{account, big.NewInt(index)},
		multicall.Succeeded([]interface{}{big.NewInt(id)}))
}

func (f *fakeReader) setPosition(id int64, tickLower, tickUpper int64) {
	f.set("position_manager", "positions", []interface{}{big.NewInt(id)}, multicall.Succeeded(positionValues(id, tickLower, tickUpper)))
}

func (f *fakeReader) setRentalIDs(ids ...int64) {
	values := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		values = append(values, big.NewInt(id))
	}
	f.set("rent_router", "getRentalsInProgress", nil, multicall.Succeeded([]interface{}{values}))
}

func (f *fakeReader) setRentInfo(rentalID int64, renter common.Address, tokenID int64, expiry int64) {
	f.set("rental_escrow", "tokenIdToRentInfo", []interface{}{big.NewInt(rentalID)}, multicall.Succeeded([]interface{}{
		big.NewInt(expiry),
		accountY,
		renter,
		big.NewInt(tokenID),
		poolAddr,
	}))
}

// positionValues mimics the unpacked positions() tuple. The struct carries a bogus token id
// so tests can check the lookup id wins.
func positionValues(id int64, tickLower, tickUpper int64) []interface{} {
	return []interface{}{
		big.NewInt(id * 10),
		common.HexToAddress("0x0000000000000000000000000000000000000000"),
		token0,
		token1,
		big.NewInt(3000),
		big.NewInt(tickLower),
		big.NewInt(tickUpper),
		big.NewInt(1_000_000 + id),
		big.NewInt(11),
		big.NewInt(22),
		big.NewInt(33),
		big.NewInt(44),
	}
}

func newTestAggregator(t *testing.T, policy Policy) *Aggregator {
	t.Helper()
	set, err := contract.NewSet(contract.Addresses{
		PositionManager: common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88"),
		RentRouter:      common.HexToAddress("0x5555555555555555555555555555555555555555"),
		RentalEscrow:    common.HexToAddress("0x6666666666666666666666666666666666666666"),
		Factory:         common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	})
	require.NoError(t, err)
	return NewAggregator(set, policy, func() time.Time { return testNow }, nil)
}

func addr(a common.Address) *common.Address { return &a }
