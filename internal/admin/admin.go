package admin

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/event"
	"github.com/prajalsharma/venft-marketplace/internal/router"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidAddress = errors.New("invalid address")
)

// Service is the marketplace's central authorization and circuit-breaker
// state: admin identity, the pause flag, the approved-collection set, and the
// currently bound payment router.
type Service interface {
	Admin() common.Address
	Paused() (bool, string)
	EmergencyPause(caller common.Address, reason string) error
	Unpause(caller common.Address) error

	AddCollection(caller, collection common.Address) error
	IsCollectionApproved(collection common.Address) bool
	Collections() []common.Address

	SetPaymentRouter(caller common.Address, r router.Service) error
	Router() router.Service
}

type service struct {
	mu sync.RWMutex

	events *event.Manager

	admin       common.Address
	paused      bool
	pauseReason string
	collections map[common.Address]bool
	ordered     []common.Address
	router      router.Service
}

// NewService builds the registry. In mainnet mode the configured veBTC and
// veMEZO collections come pre-registered; testnet deployments start empty and
// register mocks through AddCollection.
func NewService(events *event.Manager, adminAddr common.Address, testnet bool, veBtc, veMezo common.Address) (Service, error) {
	if adminAddr == (common.Address{}) {
		return nil, ErrInvalidAddress
	}

	s := &service{
		events:      events,
		admin:       adminAddr,
		collections: make(map[common.Address]bool),
	}

	if !testnet {
		s.collections[veBtc] = true
		s.collections[veMezo] = true
		s.ordered = append(s.ordered, veBtc, veMezo)
	}

	return s, nil
}

func (s *service) Admin() common.Address {
	return s.admin
}

func (s *service) Paused() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paused, s.pauseReason
}

func (s *service) EmergencyPause(caller common.Address, reason string) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	s.paused = true
	s.pauseReason = reason
	s.mu.Unlock()

	zap.L().With(zap.String("reason", reason)).Warn("Marketplace paused")
	s.events.EmitEvent(event.PausedEvent, event.Paused{Reason: reason})

	return nil
}

func (s *service) Unpause(caller common.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	s.paused = false
	s.pauseReason = ""
	s.mu.Unlock()

	zap.L().Info("Marketplace unpaused")
	s.events.EmitEvent(event.UnpausedEvent, event.Unpaused{})

	return nil
}

func (s *service) AddCollection(caller, collection common.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if collection == (common.Address{}) {
		return ErrInvalidAddress
	}

	s.mu.Lock()
	if !s.collections[collection] {
		s.collections[collection] = true
		s.ordered = append(s.ordered, collection)
	}
	s.mu.Unlock()

	zap.L().With(zap.String("collection", collection.Hex())).Info("Collection approved")

	return nil
}

func (s *service) IsCollectionApproved(collection common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collections[collection]
}

func (s *service) Collections() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Address, len(s.ordered))
	copy(out, s.ordered)

	return out
}

// SetPaymentRouter rebinds the router. The marketplace resolves the router
// through this registry on every purchase, so rebinding takes effect
// immediately without a marketplace redeploy.
func (s *service) SetPaymentRouter(caller common.Address, r router.Service) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}

	s.mu.Lock()
	s.router = r
	s.mu.Unlock()

	return nil
}

func (s *service) Router() router.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.router
}

func (s *service) requireAdmin(caller common.Address) error {
	if caller != s.admin {
		return ErrUnauthorized
	}

	return nil
}
