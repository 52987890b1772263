package adapter

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/prajalsharma/venft-marketplace/internal/entity"
)

var (
	ErrUnsupportedCollection = errors.New("unsupported collection")
	ErrInvalidVeBtcAddress   = errors.New("invalid veBTC address")
	ErrInvalidVeMezoAddress  = errors.New("invalid veMEZO address")
)

// VotingEscrow is the read-only surface a lock contract presents: the locked
// principal with its expiry, and the position's current voting weight.
type VotingEscrow interface {
	Locked(tokenId uint64) (*big.Int, uint64, error)
	VotingPower(tokenId uint64) (*big.Int, error)
}

// Service translates a collection+token pair into economically meaningful
// figures, independent of any marketplace listing state.
type Service interface {
	GetIntrinsicValue(collection common.Address, tokenId uint64) (*big.Int, uint64, error)
	GetVotingPower(collection common.Address, tokenId uint64) (*big.Int, error)
	IsExpired(collection common.Address, tokenId uint64) (bool, error)
	GetTimeRemaining(collection common.Address, tokenId uint64) (uint64, error)
	IsSupported(collection common.Address) bool
}

type service struct {
	veBtc   common.Address
	veMezo  common.Address
	escrows map[common.Address]VotingEscrow
	now     func() uint64
}

func NewService(veBtc, veMezo common.Address, btcEscrow, mezoEscrow VotingEscrow, now func() uint64) (Service, error) {
	if veBtc == (common.Address{}) {
		return nil, ErrInvalidVeBtcAddress
	}
	if veMezo == (common.Address{}) {
		return nil, ErrInvalidVeMezoAddress
	}

	return service{
		veBtc:  veBtc,
		veMezo: veMezo,
		escrows: map[common.Address]VotingEscrow{
			veBtc:  btcEscrow,
			veMezo: mezoEscrow,
		},
		now: now,
	}, nil
}

// GetIntrinsicValue returns the position's redeemable principal and its lock
// end timestamp.
func (s service) GetIntrinsicValue(collection common.Address, tokenId uint64) (*big.Int, uint64, error) {
	escrow, ok := s.escrows[collection]
	if !ok {
		return nil, 0, ErrUnsupportedCollection
	}

	return escrow.Locked(tokenId)
}

func (s service) GetVotingPower(collection common.Address, tokenId uint64) (*big.Int, error) {
	escrow, ok := s.escrows[collection]
	if !ok {
		return nil, ErrUnsupportedCollection
	}

	return escrow.VotingPower(tokenId)
}

func (s service) IsExpired(collection common.Address, tokenId uint64) (bool, error) {
	_, lockEnd, err := s.GetIntrinsicValue(collection, tokenId)
	if err != nil {
		return false, err
	}

	return lockEnd <= s.now(), nil
}

func (s service) GetTimeRemaining(collection common.Address, tokenId uint64) (uint64, error) {
	_, lockEnd, err := s.GetIntrinsicValue(collection, tokenId)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if lockEnd <= now {
		return 0, nil
	}

	return lockEnd - now, nil
}

func (s service) IsSupported(collection common.Address) bool {
	_, ok := s.escrows[collection]
	return ok
}

// CalculateDiscount reports how far below intrinsic value a list price sits,
// in basis points. Premium listings report zero, never a negative value.
func CalculateDiscount(listPrice, intrinsicValue *big.Int) uint64 {
	if intrinsicValue == nil || intrinsicValue.Sign() == 0 {
		return 0
	}
	if listPrice.Cmp(intrinsicValue) >= 0 {
		return 0
	}

	diff := new(big.Int).Sub(intrinsicValue, listPrice)
	diff.Mul(diff, new(big.Int).SetUint64(entity.BpsDenominator))
	diff.Div(diff, intrinsicValue)

	return diff.Uint64()
}
