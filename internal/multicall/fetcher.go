package multicall

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rentalScope/internal/contract"
	"rentalScope/internal/metrics"
)

const (
	modeMulticall = "multicall"
	modeDirect    = "direct"
)

// Caller performs eth_call. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetcherConfig controls how queued reads are dispatched.
type FetcherConfig struct {
	// Multicall is the Multicall3 address. Zero means every read is its own eth_call.
	Multicall    common.Address
	BatchSize    int
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Fetcher settles the reads queued in a Store.
type Fetcher struct {
	cfg          FetcherConfig
	store        *Store
	caller       Caller
	multicallABI abi.ABI
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

type multicallCall struct {
	Target   common.Address `json:"target"`
	CallData []byte         `json:"callData"`
}

type multicallResult struct {
	Success    bool   `json:"success"`
	ReturnData []byte `json:"returnData"`
}

func NewFetcher(cfg FetcherConfig, store *Store, caller Caller, m *metrics.Metrics, logger *zap.Logger) (*Fetcher, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if caller == nil {
		return nil, fmt.Errorf("caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	parsed, err := contract.MulticallABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	return &Fetcher{
		cfg:          cfg,
		store:        store,
		caller:       caller,
		multicallABI: parsed,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Run dispatches queued reads until ctx is cancelled.
func (f *Fetcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.store.wake:
		}

		if err := f.Flush(ctx); err != nil {
			return err
		}
	}
}

// Flush dispatches everything currently queued and waits for it to settle.
func (f *Fetcher) Flush(ctx context.Context) error {
	calls := f.store.take()
	if len(calls) == 0 {
		return nil
	}

	batches, err := chunk(calls, f.cfg.BatchSize)
	if err != nil {
		return err
	}

	f.logger.Debug("dispatch reads", zap.Int("calls", len(calls)), zap.Int("batches", len(batches)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			f.store.settle(batch, f.dispatch(gctx, batch))
			return nil
		})
	}
	return g.Wait()
}

func (f *Fetcher) dispatch(ctx context.Context, batch []Call) []CallState {
	if f.cfg.Multicall == (common.Address{}) || len(batch) == 1 {
		return f.direct(ctx, batch)
	}

	states, err := f.aggregate(ctx, batch)
	if err != nil {
		f.logger.Warn("multicall batch failed", zap.Int("calls", len(batch)), zap.Error(err))
		return failAll(len(batch), err)
	}
	return states
}

func (f *Fetcher) aggregate(ctx context.Context, batch []Call) ([]CallState, error) {
	calls := make([]multicallCall, 0, len(batch))
	for _, call := range batch {
		calls = append(calls, multicallCall{Target: call.Handle.Address, CallData: call.Data})
	}

	data, err := f.multicallABI.Pack("tryAggregate", false, calls)
	if err != nil {
		return nil, fmt.Errorf("pack tryAggregate: %w", err)
	}

	to := f.cfg.Multicall
	var resp []byte
	start := time.Now()
	err = withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, f.onRetry, func(ctx context.Context) error {
		var err error
		resp, err = f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return err
	})
	f.metrics.BatchSent(modeMulticall, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("call tryAggregate: %w", err)
	}

	values, err := f.multicallABI.Unpack("tryAggregate", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack tryAggregate: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("tryAggregate returned %d values", len(values))
	}
	results, ok := abi.ConvertType(values[0], new([]multicallResult)).(*[]multicallResult)
	if !ok {
		return nil, fmt.Errorf("unexpected tryAggregate result type %T", values[0])
	}
	if len(*results) != len(batch) {
		return nil, fmt.Errorf("tryAggregate returned %d results for %d calls", len(*results), len(batch))
	}

	states := make([]CallState, len(batch))
	for i, res := range *results {
		if !res.Success {
			states[i] = Failed(fmt.Errorf("%s.%s reverted", batch[i].Handle.Name, batch[i].Method))
			continue
		}
		states[i] = decode(batch[i], res.ReturnData)
	}
	return states, nil
}

func (f *Fetcher) direct(ctx context.Context, batch []Call) []CallState {
	states := make([]CallState, len(batch))
	for i, call := range batch {
		to := call.Handle.Address
		var resp []byte
		start := time.Now()
		err := withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, f.onRetry, func(ctx context.Context) error {
			var err error
			resp, err = f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: call.Data}, nil)
			return err
		})
		f.metrics.BatchSent(modeDirect, time.Since(start))
		if err != nil {
			f.logger.Warn("call failed",
				zap.String("contract", call.Handle.Name),
				zap.String("method", call.Method),
				zap.Error(err),
			)
			states[i] = Failed(err)
			continue
		}
		states[i] = decode(call, resp)
	}
	return states
}

func (f *Fetcher) onRetry(attempt int, err error) {
	f.metrics.Retried()
	f.logger.Warn("eth_call failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
}

func decode(call Call, data []byte) CallState {
	if len(data) == 0 {
		return Failed(fmt.Errorf("%s.%s returned no data", call.Handle.Name, call.Method))
	}
	values, err := call.Handle.Unpack(call.Method, data)
	if err != nil {
		return Failed(err)
	}
	return Succeeded(values)
}

func failAll(n int, err error) []CallState {
	states := make([]CallState, n)
	for i := range states {
		states[i] = Failed(err)
	}
	return states
}
