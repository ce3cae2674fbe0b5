package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalScope/internal/model"
)

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "", 1)
	require.EqualError(t, err, "pg dsn is required")
}

func TestPutRecordsSkipsUnreadyRecords(t *testing.T) {
	s := &Store{chainID: 1}

	err := s.PutRecords(context.Background(), []model.Record{
		{Kind: model.KindPositions, Loading: true, Positions: []model.Position{{TokenID: "7"}}},
		{Kind: model.KindRentals, Ready: true},
	})
	require.NoError(t, err)
}

func TestParseObservedAt(t *testing.T) {
	ts := parseObservedAt("2024-01-02T03:04:05Z")
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts.UTC())

	before := time.Now().Add(-time.Second)
	assert.True(t, parseObservedAt("garbage").After(before))
}

func TestSchemaCreatesTables(t *testing.T) {
	assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS positions"))
	assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS rentals"))
}
