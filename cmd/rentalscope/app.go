package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rentalScope/internal/chain"
	"rentalScope/internal/config"
	"rentalScope/internal/contract"
	"rentalScope/internal/metrics"
	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
	"rentalScope/internal/position"
	"rentalScope/internal/storage"
	"rentalScope/internal/storage/postgres"
)

// app is the wiring shared by every command: one chain client, one read store drained by one
// fetcher, and the sinks records are written to.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	client    *chain.Client
	chainID   uint64
	contracts contract.Set
	multicall common.Address
	policy    position.Policy
	store     *multicall.Store
	metrics   *metrics.Metrics
	sink      storage.Storage
	closers   []func()
}

// evaluation resolves one round of records against the shared store.
type evaluation func(ctx context.Context, a *app, agg *position.Aggregator) ([]model.Record, error)

func runCommand(cmd *cobra.Command, eval evaluation) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)

	fetcher, err := multicall.NewFetcher(multicall.FetcherConfig{
		Multicall:    a.multicall,
		BatchSize:    cfg.BatchSize,
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, a.store, a.client, a.metrics, logger)
	if err != nil {
		cancelRun()
		return err
	}

	g.Go(func() error {
		if err := fetcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("fetcher: %w", err)
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return a.metrics.Serve(runCtx, cfg.MetricsAddr, logger)
		})
	}
	g.Go(func() error {
		defer cancelRun()
		return a.loop(runCtx, eval)
	})

	return g.Wait()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	addrs, err := parseContracts(cfg)
	if err != nil {
		return nil, err
	}
	contracts, err := contract.NewSet(addrs)
	if err != nil {
		return nil, err
	}
	policy, err := parsePolicy(cfg)
	if err != nil {
		return nil, err
	}
	multicallAddr, err := config.ParseOptionalAddress("multicall", cfg.Multicall)
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	a := &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		contracts: contracts,
		multicall: multicallAddr,
		policy:    policy,
		metrics:   metrics.New("rentalscope"),
		closers:   []func(){client.Close},
	}
	a.store = multicall.NewStore(a.metrics)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	a.chainID = chainID.Uint64()

	var sinks storage.Multi
	if cfg.Out == "" || cfg.Out == "-" {
		sinks = append(sinks, storage.NewJsonlWriter(os.Stdout))
	} else {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN, a.chainID)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		sinks = append(sinks, pg)
	}
	a.sink = sinks

	logger.Info("rentalscope start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", a.chainID),
		zap.String("position_manager", addrs.PositionManager.Hex()),
		zap.String("rent_router", addrs.RentRouter.Hex()),
		zap.String("rental_escrow", addrs.RentalEscrow.Hex()),
		zap.String("factory", addrs.Factory.Hex()),
		zap.String("multicall", cfg.Multicall),
		zap.String("failure_mode", cfg.FailureMode),
		zap.Bool("enforce_expiry", cfg.EnforceExpiry),
		zap.Bool("follow", cfg.Follow),
	)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loop evaluates once, or keeps revalidating in follow mode and writes every changed round.
func (a *app) loop(ctx context.Context, eval evaluation) error {
	var last []model.Record
	for {
		records, err := a.evaluate(ctx, eval)
		if err != nil {
			if !a.cfg.Follow || ctx.Err() != nil {
				return err
			}
			a.logger.Warn("evaluation failed", zap.Error(err))
		}
		if len(records) > 0 && !sameRecords(last, records) {
			if err := a.sink.PutRecords(ctx, records); err != nil {
				return fmt.Errorf("write records: %w", err)
			}
			last = records
		}

		if !a.cfg.Follow {
			return stalledError(records)
		}

		timer := time.NewTimer(a.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		a.store.Refresh()
		if err := a.store.WaitIdle(ctx); err != nil {
			return nil
		}
	}
}

func (a *app) evaluate(ctx context.Context, eval evaluation) ([]model.Record, error) {
	evalCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	now := time.Now()
	if a.cfg.ChainTime {
		head, err := a.client.HeadTime(evalCtx)
		if err != nil {
			return nil, fmt.Errorf("head time: %w", err)
		}
		now = head
	}
	agg := position.NewAggregator(a.contracts, a.policy, func() time.Time { return now }, a.logger)

	records, err := eval(evalCtx, a, agg)
	if err != nil {
		return nil, err
	}
	observedAt := now.UTC().Format(time.RFC3339)
	for i := range records {
		records[i].ChainID = a.chainID
		records[i].ObservedAt = observedAt
	}
	return records, nil
}

// await runs a resolver to completion. A stalled result is returned as is so that it can
// still be reported.
func await[R position.Outcome](ctx context.Context, a *app, name string, resolve func(multicall.Reader) R) (R, error) {
	out, err := position.Await(ctx, a.store, name, a.metrics, resolve)
	if errors.Is(err, position.ErrStalled) {
		a.logger.Warn("result stalled on failed reads", zap.String("resolver", name))
		return out, nil
	}
	return out, err
}

func stalledError(records []model.Record) error {
	stalled := 0
	for _, rec := range records {
		if !rec.Ready || rec.Loading {
			stalled++
		}
	}
	if stalled > 0 {
		return fmt.Errorf("%d of %d results did not resolve: %w", stalled, len(records), position.ErrStalled)
	}
	return nil
}

func sameRecords(prev, next []model.Record) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		a, b := prev[i], next[i]
		a.ObservedAt, b.ObservedAt = "", ""
		if !reflect.DeepEqual(a, b) {
			return false
		}
	}
	return true
}

func parseContracts(cfg config.Config) (contract.Addresses, error) {
	var (
		addrs contract.Addresses
		err   error
	)
	if addrs.PositionManager, err = config.ParseAddress("position-manager", cfg.PositionManager); err != nil {
		return addrs, err
	}
	if addrs.RentRouter, err = config.ParseAddress("rent-router", cfg.RentRouter); err != nil {
		return addrs, err
	}
	if addrs.RentalEscrow, err = config.ParseAddress("rental-escrow", cfg.RentalEscrow); err != nil {
		return addrs, err
	}
	if addrs.Factory, err = config.ParseAddress("factory", cfg.Factory); err != nil {
		return addrs, err
	}
	return addrs, nil
}

func parsePolicy(cfg config.Config) (position.Policy, error) {
	policy := position.Policy{EnforceExpiry: cfg.EnforceExpiry}
	switch cfg.FailureMode {
	case "", "all-or-nothing":
		policy.FailureMode = position.AllOrNothing
	case "best-effort":
		policy.FailureMode = position.BestEffort
	default:
		return policy, fmt.Errorf("unknown failure mode: %s", cfg.FailureMode)
	}
	return policy, nil
}
