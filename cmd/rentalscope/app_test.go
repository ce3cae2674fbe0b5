package main

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalScope/internal/config"
	"rentalScope/internal/model"
	"rentalScope/internal/position"
)

func TestParsePolicy(t *testing.T) {
	policy, err := parsePolicy(config.Config{FailureMode: "best-effort", EnforceExpiry: true})
	require.NoError(t, err)
	assert.Equal(t, position.Policy{FailureMode: position.BestEffort, EnforceExpiry: true}, policy)

	policy, err = parsePolicy(config.Config{})
	require.NoError(t, err)
	assert.Equal(t, position.AllOrNothing, policy.FailureMode)

	_, err = parsePolicy(config.Config{FailureMode: "sometimes"})
	assert.EqualError(t, err, "unknown failure mode: sometimes")
}

func TestParseContractsRequiresEveryAddress(t *testing.T) {
	cfg := config.Config{
		PositionManager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		RentRouter:      "0x5555555555555555555555555555555555555555",
		RentalEscrow:    "0x6666666666666666666666666666666666666666",
	}
	_, err := parseContracts(cfg)
	assert.EqualError(t, err, "factory address is required")

	cfg.Factory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	addrs, err := parseContracts(cfg)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(cfg.Factory), addrs.Factory)
}

func TestParseTokenID(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("token-id", "", "")

	_, err := parseTokenID(cmd)
	assert.EqualError(t, err, "token id is required")

	require.NoError(t, cmd.Flags().Set("token-id", "0x10"))
	id, err := parseTokenID(cmd)
	require.NoError(t, err)
	assert.Equal(t, int64(16), id.Int64())

	require.NoError(t, cmd.Flags().Set("token-id", "-1"))
	_, err = parseTokenID(cmd)
	assert.Error(t, err)
}

func TestSameRecordsIgnoresObservedAt(t *testing.T) {
	prev := []model.Record{{Kind: model.KindRentals, Ready: true, ObservedAt: "2024-01-01T00:00:00Z"}}
	next := []model.Record{{Kind: model.KindRentals, Ready: true, ObservedAt: "2024-01-01T00:00:12Z"}}
	assert.True(t, sameRecords(prev, next))

	next[0].Rentals = []model.Rental{{TokenID: "7"}}
	assert.False(t, sameRecords(prev, next))
	assert.False(t, sameRecords(nil, next))
	assert.Equal(t, "2024-01-01T00:00:00Z", prev[0].ObservedAt)
}

func TestStalledError(t *testing.T) {
	assert.NoError(t, stalledError([]model.Record{{Ready: true}}))

	err := stalledError([]model.Record{{Ready: true}, {Loading: true}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, position.ErrStalled))
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestPerAccountKeepsOrder(t *testing.T) {
	x := common.HexToAddress("0x1111111111111111111111111111111111111111")
	y := common.HexToAddress("0x2222222222222222222222222222222222222222")

	records, err := perAccount(context.Background(), []*common.Address{&x, &y}, func(_ context.Context, account *common.Address) (model.Record, error) {
		return model.Record{Account: account.Hex()}, nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, x.Hex(), records[0].Account)
	assert.Equal(t, y.Hex(), records[1].Account)

	records, err = perAccount(context.Background(), nil, func(_ context.Context, account *common.Address) (model.Record, error) {
		assert.Nil(t, account)
		return model.Record{Ready: true}, nil
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFindRental(t *testing.T) {
	rentals := []model.Rental{{TokenID: "7"}, {TokenID: "8"}}
	assert.Equal(t, "8", findRental(rentals, "8").TokenID)
	assert.Nil(t, findRental(rentals, "9"))
}
