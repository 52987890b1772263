package router

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/entity"
	"github.com/prajalsharma/venft-marketplace/internal/event"
	"github.com/prajalsharma/venft-marketplace/internal/ledger"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrFeeTooHigh          = errors.New("fee too high")
	ErrUnsupportedToken    = errors.New("unsupported token")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInsufficientPayment = errors.New("insufficient payment")
)

// Service splits a gross amount into protocol fee and seller proceeds and
// disburses both atomically, for native and ERC-20 payments alike.
type Service interface {
	CalculateFee(amount *big.Int) (*big.Int, *big.Int)
	RoutePayment(payer, seller, token common.Address, amount, value *big.Int) error
	Route(tx *ledger.Tx, payer, seller, token common.Address, amount, value *big.Int) error

	SetProtocolFee(caller common.Address, bps uint64) error
	SetFeeRecipient(caller, recipient common.Address) error
	SetTokenSupport(caller, token common.Address, supported bool) error

	Address() common.Address
	Admin() common.Address
	FeeRecipient() common.Address
	ProtocolFeeBps() uint64
	IsTokenSupported(token common.Address) bool
}

type service struct {
	mu sync.RWMutex

	ledger *ledger.Ledger
	events *event.Manager

	addr            common.Address
	admin           common.Address
	feeRecipient    common.Address
	protocolFeeBps  uint64
	supportedTokens map[common.Address]bool
}

// NewService wires a router at addr. The buyer grants the router's address
// the token allowance it pulls ERC-20 payments from. BTC (native sentinel),
// MEZO and MUSD are supported from the start.
func NewService(l *ledger.Ledger, events *event.Manager, addr, feeRecipient, admin, musd common.Address, initialFeeBps uint64) (Service, error) {
	if feeRecipient == (common.Address{}) || admin == (common.Address{}) {
		return nil, ErrInvalidAddress
	}
	if initialFeeBps > entity.MaxProtocolFeeBps {
		return nil, ErrFeeTooHigh
	}

	return &service{
		ledger:         l,
		events:         events,
		addr:           addr,
		admin:          admin,
		feeRecipient:   feeRecipient,
		protocolFeeBps: initialFeeBps,
		supportedTokens: map[common.Address]bool{
			entity.BtcAddress:  true,
			entity.MezoAddress: true,
			musd:               true,
		},
	}, nil
}

// CalculateFee splits amount into (fee, sellerAmount). The two always sum
// back to amount exactly.
func (s *service) CalculateFee(amount *big.Int) (*big.Int, *big.Int) {
	s.mu.RLock()
	bps := s.protocolFeeBps
	s.mu.RUnlock()

	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	fee.Div(fee, new(big.Int).SetUint64(entity.BpsDenominator))
	sellerAmount := new(big.Int).Sub(amount, fee)

	return fee, sellerAmount
}

// RoutePayment settles a payment as its own transaction. value is the native
// amount attached by the caller; it is ignored for ERC-20 payments.
func (s *service) RoutePayment(payer, seller, token common.Address, amount, value *big.Int) error {
	return s.ledger.Execute(func(tx *ledger.Tx) error {
		return s.Route(tx, payer, seller, token, amount, value)
	})
}

// Route settles a payment inside an already-running transaction, so a caller
// orchestrating a larger settlement keeps the whole thing atomic.
func (s *service) Route(tx *ledger.Tx, payer, seller, token common.Address, amount, value *big.Int) error {
	if !s.IsTokenSupported(token) {
		return ErrUnsupportedToken
	}
	if amount == nil || amount.Sign() == 0 {
		return ErrInvalidAmount
	}
	if seller == (common.Address{}) {
		return ErrInvalidAddress
	}

	fee, sellerAmount := s.CalculateFee(amount)
	recipient := s.FeeRecipient()

	if token == entity.BtcAddress {
		if value == nil || value.Cmp(amount) < 0 {
			return ErrInsufficientPayment
		}
		if err := tx.NativeTransfer(payer, seller, sellerAmount); err != nil {
			return err
		}
		if err := tx.NativeTransfer(payer, recipient, fee); err != nil {
			return err
		}
	} else {
		if err := tx.TokenTransferFrom(token, s.addr, payer, seller, sellerAmount); err != nil {
			return err
		}
		if err := tx.TokenTransferFrom(token, s.addr, payer, recipient, fee); err != nil {
			return err
		}
	}

	zap.L().With(
		zap.String("payer", payer.Hex()),
		zap.String("seller", seller.Hex()),
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
	).Info("Payment routed")

	tx.Emit(event.PaymentRoutedEvent, event.PaymentRouted{
		Payer:  payer,
		Seller: seller,
		Token:  token,
		Amount: new(big.Int).Set(amount),
		Fee:    fee,
	})

	return nil
}

func (s *service) SetProtocolFee(caller common.Address, bps uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if bps > entity.MaxProtocolFeeBps {
		return ErrFeeTooHigh
	}

	s.mu.Lock()
	old := s.protocolFeeBps
	s.protocolFeeBps = bps
	s.mu.Unlock()

	zap.L().With(zap.Uint64("old", old), zap.Uint64("new", bps)).Info("Protocol fee updated")
	s.events.EmitEvent(event.ProtocolFeeUpdatedEvent, event.ProtocolFeeUpdated{OldBps: old, NewBps: bps})

	return nil
}

func (s *service) SetFeeRecipient(caller, recipient common.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return ErrInvalidAddress
	}

	s.mu.Lock()
	s.feeRecipient = recipient
	s.mu.Unlock()

	return nil
}

func (s *service) SetTokenSupport(caller, token common.Address, supported bool) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	s.supportedTokens[token] = supported
	s.mu.Unlock()

	return nil
}

func (s *service) requireAdmin(caller common.Address) error {
	if caller != s.admin {
		return ErrUnauthorized
	}

	return nil
}

func (s *service) Address() common.Address {
	return s.addr
}

func (s *service) Admin() common.Address {
	return s.admin
}

func (s *service) FeeRecipient() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.feeRecipient
}

func (s *service) ProtocolFeeBps() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.protocolFeeBps
}

func (s *service) IsTokenSupported(token common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.supportedTokens[token]
}
