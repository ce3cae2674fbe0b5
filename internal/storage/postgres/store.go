package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentalScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store persists resolved positions and rentals in Postgres.
type Store struct {
	pool    *pgxpool.Pool
	chainID uint64
}

func NewStore(ctx context.Context, dsn string, chainID uint64) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, chainID: chainID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutRecords upserts the positions and rentals of every ready record.
func (s *Store) PutRecords(ctx context.Context, records []model.Record) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		if !rec.Ready {
			continue
		}
		observedAt := parseObservedAt(rec.ObservedAt)

		var owner *string
		if rec.Kind == model.KindPositions && rec.Account != "" {
			account := rec.Account
			owner = &account
		}
		for _, pos := range rec.Positions {
			queuePosition(batch, s.chainID, owner, pos, observedAt)
		}
		if rec.Preview != nil {
			queuePosition(batch, s.chainID, nil, rec.Preview.Position, observedAt)
		}
		for _, rental := range rec.Rentals {
			queueRental(batch, s.chainID, rental, observedAt)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}
	}
	return nil
}

func queuePosition(batch *pgx.Batch, chainID uint64, owner *string, pos model.Position, observedAt time.Time) {
	batch.Queue(`
		INSERT INTO positions (
			chain_id, token_id, owner, operator, token0, token1, fee, tick_lower, tick_upper,
			liquidity, nonce, fee_growth_inside0_last_x128, fee_growth_inside1_last_x128,
			tokens_owed0, tokens_owed1, observed_at, created_at, updated_at
		) VALUES (
			$1, $2::text::numeric, $3, $4, $5, $6, $7, $8, $9,
			$10::text::numeric, $11::text::numeric, $12::text::numeric, $13::text::numeric,
			$14::text::numeric, $15::text::numeric, $16, now(), now()
		)
		ON CONFLICT (chain_id, token_id)
		DO UPDATE SET
			owner = COALESCE(EXCLUDED.owner, positions.owner),
			operator = EXCLUDED.operator,
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			fee = EXCLUDED.fee,
			tick_lower = EXCLUDED.tick_lower,
			tick_upper = EXCLUDED.tick_upper,
			liquidity = EXCLUDED.liquidity,
			nonce = EXCLUDED.nonce,
			fee_growth_inside0_last_x128 = EXCLUDED.fee_growth_inside0_last_x128,
			fee_growth_inside1_last_x128 = EXCLUDED.fee_growth_inside1_last_x128,
			tokens_owed0 = EXCLUDED.tokens_owed0,
			tokens_owed1 = EXCLUDED.tokens_owed1,
			observed_at = GREATEST(positions.observed_at, EXCLUDED.observed_at),
			updated_at = now()
	`,
		int64(chainID),
		pos.TokenID,
		owner,
		pos.Operator,
		pos.Token0,
		pos.Token1,
		int32(pos.Fee),
		pos.TickLower,
		pos.TickUpper,
		pos.Liquidity,
		pos.Nonce,
		pos.FeeGrowthInside0LastX128,
		pos.FeeGrowthInside1LastX128,
		pos.TokensOwed0,
		pos.TokensOwed1,
		observedAt,
	)
}

func queueRental(batch *pgx.Batch, chainID uint64, rental model.Rental, observedAt time.Time) {
	batch.Queue(`
		INSERT INTO rentals (
			chain_id, token_id, renter, original_owner, pool_address, expiry_date,
			observed_at, created_at, updated_at
		) VALUES ($1, $2::text::numeric, $3, $4, $5, $6::text::numeric, $7, now(), now())
		ON CONFLICT (chain_id, token_id)
		DO UPDATE SET
			renter = EXCLUDED.renter,
			original_owner = EXCLUDED.original_owner,
			pool_address = EXCLUDED.pool_address,
			expiry_date = EXCLUDED.expiry_date,
			observed_at = GREATEST(rentals.observed_at, EXCLUDED.observed_at),
			updated_at = now()
	`,
		int64(chainID),
		rental.TokenID,
		rental.Renter,
		rental.OriginalOwner,
		rental.UniswapPoolAddress,
		rental.ExpiryDate,
		observedAt,
	)
}

func parseObservedAt(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Now().UTC()
}
