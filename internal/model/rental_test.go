package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentalActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 999_000_000)

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{name: "future expiry", expiry: "1700000100", want: true},
		{name: "expires this second", expiry: "1700000000", want: true},
		{name: "expired", expiry: "1699999999", want: false},
		{name: "beyond uint64", expiry: "340282366920938463463374607431768211455", want: true},
		{name: "garbage", expiry: "soon", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rental{ExpiryDate: tt.expiry}.Active(now))
		})
	}
}

func TestPositionJSONStringFields(t *testing.T) {
	data, err := json.Marshal(Position{
		TokenID:   "12345678901234567890123",
		Liquidity: "5000000000000000000",
		TickLower: -60,
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.IsType(t, "", decoded["token_id"])
	assert.IsType(t, "", decoded["liquidity"])
	assert.Equal(t, float64(-60), decoded["tick_lower"])
}
