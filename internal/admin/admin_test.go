package admin

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/prajalsharma/venft-marketplace/internal/event"
)

var (
	adminAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	stranger  = common.HexToAddress("0x0000000000000000000000000000000000000002")

	veBtc  = common.HexToAddress("0x0000000000000000000000000000000000000020")
	veMezo = common.HexToAddress("0x0000000000000000000000000000000000000021")
)

func newTestnetService(t *testing.T) Service {
	t.Helper()

	s, err := NewService(event.NewManager(), adminAddr, true, veBtc, veMezo)
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestNewServiceRejectsZeroAdmin(t *testing.T) {
	_, err := NewService(event.NewManager(), common.Address{}, true, veBtc, veMezo)
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("NewService() error = %v, want ErrInvalidAddress", err)
	}
}

func TestTestnetStartsEmpty(t *testing.T) {
	s := newTestnetService(t)

	if s.IsCollectionApproved(veBtc) || s.IsCollectionApproved(veMezo) {
		t.Error("testnet registry should start without approved collections")
	}
	if got := s.Collections(); len(got) != 0 {
		t.Errorf("Collections() = %v, want empty", got)
	}
}

func TestMainnetPreRegistersCollections(t *testing.T) {
	s, err := NewService(event.NewManager(), adminAddr, false, veBtc, veMezo)
	if err != nil {
		t.Fatal(err)
	}

	if !s.IsCollectionApproved(veBtc) || !s.IsCollectionApproved(veMezo) {
		t.Error("mainnet registry should pre-register veBTC and veMEZO")
	}
	got := s.Collections()
	if len(got) != 2 || got[0] != veBtc || got[1] != veMezo {
		t.Errorf("Collections() = %v, want [veBtc veMezo]", got)
	}
}

func TestAddCollection(t *testing.T) {
	s := newTestnetService(t)

	if err := s.AddCollection(stranger, veBtc); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin AddCollection() error = %v, want ErrUnauthorized", err)
	}
	if err := s.AddCollection(adminAddr, common.Address{}); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("AddCollection(zero) error = %v, want ErrInvalidAddress", err)
	}

	if err := s.AddCollection(adminAddr, veBtc); err != nil {
		t.Fatal(err)
	}
	if !s.IsCollectionApproved(veBtc) {
		t.Error("collection not approved after AddCollection")
	}

	// Re-adding is idempotent.
	if err := s.AddCollection(adminAddr, veBtc); err != nil {
		t.Fatal(err)
	}
	if got := s.Collections(); len(got) != 1 {
		t.Errorf("Collections() = %v, want a single entry", got)
	}
}

func TestPauseAndUnpause(t *testing.T) {
	events := event.NewManager()
	s, err := NewService(events, adminAddr, true, veBtc, veMezo)
	if err != nil {
		t.Fatal(err)
	}

	var pauses, unpauses int
	events.AddEventListener(event.PausedEvent, func(msg interface{}) {
		pauses++
		if p := msg.(event.Paused); p.Reason != "oracle outage" {
			t.Errorf("Paused reason = %q, want %q", p.Reason, "oracle outage")
		}
	})
	events.AddEventListener(event.UnpausedEvent, func(msg interface{}) { unpauses++ })

	if err := s.EmergencyPause(stranger, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin EmergencyPause() error = %v, want ErrUnauthorized", err)
	}
	if paused, _ := s.Paused(); paused {
		t.Error("registry paused after unauthorized call")
	}

	if err := s.EmergencyPause(adminAddr, "oracle outage"); err != nil {
		t.Fatal(err)
	}
	paused, reason := s.Paused()
	if !paused || reason != "oracle outage" {
		t.Errorf("Paused() = (%v, %q), want (true, %q)", paused, reason, "oracle outage")
	}

	if err := s.Unpause(stranger); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin Unpause() error = %v, want ErrUnauthorized", err)
	}

	if err := s.Unpause(adminAddr); err != nil {
		t.Fatal(err)
	}
	paused, reason = s.Paused()
	if paused || reason != "" {
		t.Errorf("Paused() after unpause = (%v, %q), want (false, \"\")", paused, reason)
	}

	if pauses != 1 || unpauses != 1 {
		t.Errorf("event counts = (%d paused, %d unpaused), want (1, 1)", pauses, unpauses)
	}
}

func TestSetPaymentRouter(t *testing.T) {
	s := newTestnetService(t)

	if s.Router() != nil {
		t.Error("router should start unbound")
	}
	if err := s.SetPaymentRouter(stranger, nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-admin SetPaymentRouter() error = %v, want ErrUnauthorized", err)
	}
	if err := s.SetPaymentRouter(adminAddr, nil); err != nil {
		t.Fatal(err)
	}
}
