package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"rentalScope/internal/config"
	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
	"rentalScope/internal/position"
)

func runPositions(cmd *cobra.Command, _ []string) error {
	return runCommand(cmd, func(ctx context.Context, a *app, agg *position.Aggregator) ([]model.Record, error) {
		accounts, err := parseAccounts(a.cfg)
		if err != nil {
			return nil, err
		}
		return perAccount(ctx, accounts, func(ctx context.Context, account *common.Address) (model.Record, error) {
			res, err := await(ctx, a, "positions_by_owner", func(r multicall.Reader) position.Result[model.Position] {
				return agg.PositionsByOwner(r, account)
			})
			if err != nil {
				return model.Record{}, err
			}
			return model.Record{
				Kind:      model.KindPositions,
				Account:   accountHex(account),
				Loading:   res.Loading,
				Ready:     res.Ready,
				Positions: res.Items,
			}, nil
		})
	})
}

func runPosition(cmd *cobra.Command, _ []string) error {
	return runCommand(cmd, func(ctx context.Context, a *app, agg *position.Aggregator) ([]model.Record, error) {
		tokenID, err := parseTokenID(cmd)
		if err != nil {
			return nil, err
		}
		res, err := await(ctx, a, "position_by_id", func(r multicall.Reader) position.SingleResult[model.Position] {
			return agg.PositionByID(r, tokenID)
		})
		if err != nil {
			return nil, err
		}
		rec := model.Record{Kind: model.KindPosition, Loading: res.Loading, Ready: res.Ready}
		if res.Found {
			rec.Positions = []model.Position{res.Item}
		}
		return []model.Record{rec}, nil
	})
}

func runRentals(cmd *cobra.Command, _ []string) error {
	withPositions, _ := cmd.Flags().GetBool("with-positions")
	return runCommand(cmd, func(ctx context.Context, a *app, agg *position.Aggregator) ([]model.Record, error) {
		accounts, err := parseAccounts(a.cfg)
		if err != nil {
			return nil, err
		}
		return perAccount(ctx, accounts, func(ctx context.Context, account *common.Address) (model.Record, error) {
			rentals, err := await(ctx, a, "rentals_for_account", func(r multicall.Reader) position.Result[model.Rental] {
				return agg.RentalsForAccount(r, account)
			})
			if err != nil {
				return model.Record{}, err
			}
			rec := model.Record{
				Kind:    model.KindRentals,
				Account: accountHex(account),
				Loading: rentals.Loading,
				Ready:   rentals.Ready,
				Rentals: rentals.Items,
			}
			if !withPositions || !rentals.Done() {
				return rec, nil
			}

			active, err := await(ctx, a, "active_rentals", func(r multicall.Reader) position.Result[model.Position] {
				return agg.ActiveRentals(r, account)
			})
			if err != nil {
				return model.Record{}, err
			}
			rec.Kind = model.KindActiveRentals
			rec.Loading = active.Loading
			rec.Ready = active.Ready
			rec.Positions = active.Items
			return rec, nil
		})
	})
}

func runReview(cmd *cobra.Command, _ []string) error {
	duration, _ := cmd.Flags().GetUint64("rental-duration")
	price, _ := cmd.Flags().GetString("rental-price")
	return runCommand(cmd, func(ctx context.Context, a *app, agg *position.Aggregator) ([]model.Record, error) {
		tokenID, err := parseTokenID(cmd)
		if err != nil {
			return nil, err
		}
		req := position.PreviewRequest{
			TokenID:            tokenID,
			RentalDurationSecs: duration,
			RentalPriceInEth:   price,
		}
		res, err := await(ctx, a, "preview", func(r multicall.Reader) position.SingleResult[model.Preview] {
			return agg.Preview(r, req)
		})
		if err != nil {
			return nil, err
		}
		rec := model.Record{Kind: model.KindPreview, Loading: res.Loading, Ready: res.Ready}
		if !res.Found {
			return []model.Record{rec}, nil
		}
		preview := res.Item
		rec.Preview = &preview

		tokens, err := await(ctx, a, "token_pair", func(r multicall.Reader) position.Result[model.TokenMeta] {
			return agg.TokenPair(r, preview.Position)
		})
		if err != nil {
			return nil, err
		}
		rec.Tokens = tokens.Items

		accounts, err := parseAccounts(a.cfg)
		if err != nil || len(accounts) == 0 {
			return []model.Record{rec}, err
		}
		account := accounts[0]
		rec.Account = accountHex(account)

		rentals, err := await(ctx, a, "rentals_for_account", func(r multicall.Reader) position.Result[model.Rental] {
			return agg.RentalsForAccount(r, account)
		})
		if err != nil {
			return nil, err
		}
		rental := findRental(rentals.Items, preview.Position.TokenID)
		rec.Badge = string(position.RentalStatus(rental, rental != nil, agg.Now()))
		return []model.Record{rec}, nil
	})
}

// perAccount resolves every account concurrently and keeps the input order.
func perAccount(ctx context.Context, accounts []*common.Address, resolve func(context.Context, *common.Address) (model.Record, error)) ([]model.Record, error) {
	if len(accounts) == 0 {
		accounts = []*common.Address{nil}
	}
	records := make([]model.Record, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			rec, err := resolve(gctx, account)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", accountHex(account), err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseAccounts(cfg config.Config) ([]*common.Address, error) {
	parsed, err := config.ParseAddresses(cfg.Accounts)
	if err != nil {
		return nil, err
	}
	accounts := make([]*common.Address, 0, len(parsed))
	for i := range parsed {
		accounts = append(accounts, &parsed[i])
	}
	return accounts, nil
}

func parseTokenID(cmd *cobra.Command) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString("token-id")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("token id is required")
	}
	id, ok := new(big.Int).SetString(raw, 0)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id: %s", raw)
	}
	return id, nil
}

func findRental(rentals []model.Rental, tokenID string) *model.Rental {
	for i := range rentals {
		if rentals[i].TokenID == tokenID {
			return &rentals[i]
		}
	}
	return nil
}

func accountHex(account *common.Address) string {
	if account == nil {
		return ""
	}
	return account.Hex()
}
