// Package position resolves positions and rentals from contract read states.
//
// Every resolver is a pure function of the Reader snapshot it is given: it never blocks,
// never mutates a previously returned Result, and issues reads only through the Reader.
// Each stage (balance, per-index ids, position structs) is a barrier for the next one.
package position

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rentalScope/internal/contract"
	"rentalScope/internal/model"
	"rentalScope/internal/multicall"
)

// Aggregator joins position manager and rental reads into domain records.
type Aggregator struct {
	contracts contract.Set
	policy    Policy
	now       func() time.Time
	logger    *zap.Logger
}

func NewAggregator(contracts contract.Set, policy Policy, now func() time.Time, logger *zap.Logger) *Aggregator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		contracts: contracts,
		policy:    policy,
		now:       now,
		logger:    logger,
	}
}

// Now returns the time rental expiry is compared against.
func (a *Aggregator) Now() time.Time { return a.now() }

// PositionsByOwner lists the positions owned by account. A nil account resolves to an empty list.
func (a *Aggregator) PositionsByOwner(r multicall.Reader, account *common.Address) Result[model.Position] {
	if account == nil {
		return ready[model.Position](nil, false)
	}
	pm := a.contracts.PositionManager

	balanceState := r.Call(pm, "balanceOf", *account)
	if balanceState.Loading() {
		return notReady[model.Position](true)
	}

	balance := 0
	if balanceState.Succeeded() {
		n, err := decodeBalance(balanceState.Values)
		if err != nil {
			a.logger.Debug("malformed balance", zap.String("account", account.Hex()), zap.Error(err))
			balanceState = multicall.Failed(err)
		} else {
			balance = n
		}
	}
	if balanceState.Failed() {
		if a.policy.FailureMode == AllOrNothing {
			return notReady[model.Position](true)
		}
		return ready[model.Position](nil, false)
	}

	argSets := make([][]interface{}, 0, balance)
	for i := 0; i < balance; i++ {
		argSets = append(argSets, []interface{}{*account, big.NewInt(int64(i))})
	}
	idStates := r.CallMany(pm, "tokenOfOwnerByIndex", argSets)

	tokenIDs := make([]*big.Int, 0, len(idStates))
	idSummary := summarize(idStates)
	for i, st := range idStates {
		if !st.Succeeded() {
			continue
		}
		id, err := decodeUint(st.Values)
		if err != nil {
			a.logger.Debug("malformed token id", zap.String("account", account.Hex()), zap.Int("index", i), zap.Error(err))
			idSummary.failed = true
			continue
		}
		tokenIDs = append(tokenIDs, id)
	}
	if !a.policy.settled(idSummary) {
		return notReady[model.Position](a.policy.loading(idSummary))
	}

	return a.PositionsByIDs(r, tokenIDs)
}

// PositionsByIDs reads one position per id, in input order. Duplicate ids yield duplicate records.
func (a *Aggregator) PositionsByIDs(r multicall.Reader, tokenIDs []*big.Int) Result[model.Position] {
	if len(tokenIDs) == 0 {
		return ready[model.Position](nil, false)
	}

	argSets := make([][]interface{}, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		argSets = append(argSets, []interface{}{id})
	}
	states := r.CallMany(a.contracts.PositionManager, "positions", argSets)

	summary := summarize(states)
	if !a.policy.settled(summary) {
		return notReady[model.Position](a.policy.loading(summary))
	}

	positions := make([]model.Position, 0, len(states))
	for i, st := range states {
		if !st.Succeeded() {
			continue
		}
		pos, err := decodePosition(tokenIDs[i], st.Values)
		if err != nil {
			a.logger.Debug("malformed position", zap.String("token_id", tokenIDs[i].String()), zap.Error(err))
			if a.policy.FailureMode == AllOrNothing {
				return notReady[model.Position](true)
			}
			continue
		}
		positions = append(positions, pos)
	}
	return ready(positions, false)
}

// PositionByID reads a single position. A nil id never resolves.
func (a *Aggregator) PositionByID(r multicall.Reader, tokenID *big.Int) SingleResult[model.Position] {
	if tokenID == nil {
		return SingleResult[model.Position]{}
	}
	res := a.PositionsByIDs(r, []*big.Int{tokenID})
	out := SingleResult[model.Position]{Loading: res.Loading, Ready: res.Ready}
	if res.Ready && len(res.Items) == 1 {
		out.Found = true
		out.Item = res.Items[0]
	}
	return out
}

// RentalsForAccount lists in-progress rentals whose renter is account.
func (a *Aggregator) RentalsForAccount(r multicall.Reader, account *common.Address) Result[model.Rental] {
	infos := a.rentalsForAccount(r, account)
	if !infos.Ready {
		return notReady[model.Rental](infos.Loading)
	}
	rentals := make([]model.Rental, 0, len(infos.Items))
	for _, info := range infos.Items {
		rentals = append(rentals, info.record())
	}
	return ready(rentals, infos.Loading)
}

// ActiveRentals resolves the positions behind the rentals account is currently renting.
func (a *Aggregator) ActiveRentals(r multicall.Reader, account *common.Address) Result[model.Position] {
	infos := a.rentalsForAccount(r, account)
	if !infos.Ready {
		return notReady[model.Position](infos.Loading)
	}
	tokenIDs := make([]*big.Int, 0, len(infos.Items))
	for _, info := range infos.Items {
		tokenIDs = append(tokenIDs, info.tokenID)
	}
	res := a.PositionsByIDs(r, tokenIDs)
	res.Loading = res.Loading || infos.Loading
	return res
}

func (a *Aggregator) rentalsForAccount(r multicall.Reader, account *common.Address) Result[rentInfo] {
	if account == nil {
		return ready[rentInfo](nil, false)
	}

	idsState := r.Call(a.contracts.RentRouter, "getRentalsInProgress")
	routerSummary := batchState{pending: idsState.Loading(), failed: idsState.Failed()}

	var rentalIDs []*big.Int
	if idsState.Succeeded() {
		ids, err := decodeUintSlice(idsState.Values)
		if err != nil {
			a.logger.Debug("malformed rental ids", zap.Error(err))
			routerSummary.failed = true
		} else {
			rentalIDs = ids
		}
	}

	var argSets [][]interface{}
	switch {
	case rentalIDs != nil:
		argSets = make([][]interface{}, 0, len(rentalIDs))
		for _, id := range rentalIDs {
			argSets = append(argSets, []interface{}{id})
		}
	case routerSummary.pending || a.policy.FailureMode == AllOrNothing:
		// Ids unknown: one absent-argument slot keeps the info stage observable as pending.
		argSets = [][]interface{}{nil}
	}
	infoStates := r.CallMany(a.contracts.RentalEscrow, "tokenIdToRentInfo", argSets)

	infoSummary := summarize(infoStates)
	combined := batchState{
		pending: routerSummary.pending || infoSummary.pending,
		failed:  routerSummary.failed || infoSummary.failed,
	}
	if !a.policy.settled(combined) {
		return notReady[rentInfo](a.policy.loading(combined))
	}

	now := big.NewInt(a.now().Unix())
	infos := make([]rentInfo, 0, len(infoStates))
	for i, st := range infoStates {
		if !st.Succeeded() {
			continue
		}
		info, err := decodeRentInfo(st.Values)
		if err != nil {
			a.logger.Debug("malformed rent info", zap.String("rental_id", rentalIDs[i].String()), zap.Error(err))
			if a.policy.FailureMode == AllOrNothing {
				return notReady[rentInfo](true)
			}
			continue
		}
		if info.renter != *account {
			continue
		}
		if a.policy.EnforceExpiry && info.expiry.Cmp(now) < 0 {
			continue
		}
		infos = append(infos, info)
	}
	return ready(infos, false)
}
