package ledger

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/prajalsharma/venft-marketplace/internal/event"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownToken          = errors.New("unknown token")
	ErrUnknownCollection     = errors.New("unknown collection")
	ErrUnknownLock           = errors.New("unknown lock")
	ErrNotOwner              = errors.New("not the owner")
	ErrNotApproved           = errors.New("transfer caller is not owner nor approved")
)

// Ledger holds native balances, ERC-20 token books and voting-escrow
// collections behind a single mutex. Every mutation runs through Execute,
// which serialises callers and rolls the whole state back when the supplied
// function fails - the all-or-nothing settlement model the marketplace
// depends on.
type Ledger struct {
	mu          sync.Mutex
	now         uint64
	native      map[common.Address]*big.Int
	tokens      map[common.Address]*token
	collections map[common.Address]*collection
	events      *event.Manager
}

// Tx is handed to the function running inside Execute. All mutations go
// through it so "inside a transaction" is visible in the type system. Events
// emitted through the Tx are held back until the transaction commits; a
// rolled-back transaction leaves no log behind, like a reverted call.
type Tx struct {
	l       *Ledger
	pending []pendingEvent
}

type pendingEvent struct {
	eventType event.Type
	msg       interface{}
}

func New(events *event.Manager) *Ledger {
	return &Ledger{
		now:         uint64(time.Now().Unix()),
		native:      make(map[common.Address]*big.Int),
		tokens:      make(map[common.Address]*token),
		collections: make(map[common.Address]*collection),
		events:      events,
	}
}

// Execute runs fn against a snapshot of the ledger. On error the snapshot is
// restored, so a failing settlement leaves no partial state behind.
func (l *Ledger) Execute(fn func(tx *Tx) error) error {
	l.mu.Lock()
	snap := l.snapshot()
	tx := &Tx{l: l}

	err := fn(tx)
	if err != nil {
		l.restore(snap)
	}
	l.mu.Unlock()

	if err != nil {
		return err
	}

	// Dispatched after the lock is released so a listener may read the ledger.
	if l.events != nil {
		for _, pe := range tx.pending {
			l.events.EmitEvent(pe.eventType, pe.msg)
		}
	}

	return nil
}

// Emit queues an event for dispatch when the transaction commits.
func (tx *Tx) Emit(eventType event.Type, msg interface{}) {
	tx.pending = append(tx.pending, pendingEvent{eventType: eventType, msg: msg})
}

// View runs fn with the ledger locked but without snapshotting. fn must not
// mutate state.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return fn(&Tx{l: l})
}

func (l *Ledger) Now() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.now
}

func (l *Ledger) SetNow(now uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now = now
}

// Advance moves the clock forward, mirroring evm_increaseTime.
func (l *Ledger) Advance(seconds uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now += seconds
}

func (tx *Tx) Now() uint64 {
	return tx.l.now
}

type snapshotState struct {
	native      map[common.Address]*big.Int
	tokens      map[common.Address]*token
	collections map[common.Address]*collection
}

func (l *Ledger) snapshot() snapshotState {
	native := make(map[common.Address]*big.Int, len(l.native))
	for addr, bal := range l.native {
		native[addr] = new(big.Int).Set(bal)
	}

	tokens := make(map[common.Address]*token, len(l.tokens))
	for addr, t := range l.tokens {
		tokens[addr] = t.copy()
	}

	collections := make(map[common.Address]*collection, len(l.collections))
	for addr, c := range l.collections {
		collections[addr] = c.copy()
	}

	return snapshotState{native: native, tokens: tokens, collections: collections}
}

func (l *Ledger) restore(snap snapshotState) {
	l.native = snap.native
	l.tokens = snap.tokens
	l.collections = snap.collections
}

// FundNative credits an address with native funds. Test and genesis helper.
func (l *Ledger) FundNative(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, ok := l.native[addr]
	if !ok {
		bal = new(big.Int)
		l.native[addr] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) NativeBalance(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.nativeBalance(addr))
}

func (l *Ledger) nativeBalance(addr common.Address) *big.Int {
	if bal, ok := l.native[addr]; ok {
		return bal
	}

	return new(big.Int)
}

func (tx *Tx) NativeBalance(addr common.Address) *big.Int {
	return new(big.Int).Set(tx.l.nativeBalance(addr))
}

// NativeTransfer moves native funds between two addresses.
func (tx *Tx) NativeTransfer(from, to common.Address, amount *big.Int) error {
	bal := tx.l.nativeBalance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	tx.l.native[from] = new(big.Int).Sub(bal, amount)
	toBal := tx.l.nativeBalance(to)
	tx.l.native[to] = new(big.Int).Add(toBal, amount)

	return nil
}
