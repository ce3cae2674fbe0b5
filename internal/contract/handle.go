package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Handle binds a deployed contract address to the ABI used to talk to it.
type Handle struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// Pack encodes a method call against the handle's ABI.
func (h Handle) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := h.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s.%s: %w", h.Name, method, err)
	}
	return data, nil
}

// Unpack decodes return data for a method.
func (h Handle) Unpack(method string, data []byte) ([]interface{}, error) {
	values, err := h.ABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s.%s: %w", h.Name, method, err)
	}
	return values, nil
}

func newHandle(name string, address common.Address, load func() (abi.ABI, error)) (Handle, error) {
	parsed, err := load()
	if err != nil {
		return Handle{}, fmt.Errorf("parse %s abi: %w", name, err)
	}
	return Handle{Name: name, Address: address, ABI: parsed}, nil
}

func NewPositionManager(address common.Address) (Handle, error) {
	return newHandle("position_manager", address, PositionManagerABI)
}

func NewRentRouter(address common.Address) (Handle, error) {
	return newHandle("rent_router", address, RentRouterABI)
}

func NewRentalEscrow(address common.Address) (Handle, error) {
	return newHandle("rental_escrow", address, RentalEscrowABI)
}

func NewFactory(address common.Address) (Handle, error) {
	return newHandle("factory", address, FactoryABI)
}

// NewPool builds a handle for a V3 pool discovered at runtime.
func NewPool(address common.Address) (Handle, error) {
	return newHandle("pool", address, PoolABI)
}

// NewERC20 builds a metadata handle for a position's token.
func NewERC20(address common.Address) (Handle, error) {
	return newHandle("erc20", address, ERC20ABI)
}

// Set groups the handles the aggregator reads from.
type Set struct {
	PositionManager Handle
	RentRouter      Handle
	RentalEscrow    Handle
	Factory         Handle
}

// Addresses lists the deployed contract addresses.
type Addresses struct {
	PositionManager common.Address
	RentRouter      common.Address
	RentalEscrow    common.Address
	Factory         common.Address
}

// NewSet builds all handles from their addresses.
func NewSet(addrs Addresses) (Set, error) {
	var (
		set Set
		err error
	)
	if set.PositionManager, err = NewPositionManager(addrs.PositionManager); err != nil {
		return Set{}, err
	}
	if set.RentRouter, err = NewRentRouter(addrs.RentRouter); err != nil {
		return Set{}, err
	}
	if set.RentalEscrow, err = NewRentalEscrow(addrs.RentalEscrow); err != nil {
		return Set{}, err
	}
	if set.Factory, err = NewFactory(addrs.Factory); err != nil {
		return Set{}, err
	}
	return set, nil
}
