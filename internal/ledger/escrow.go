package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// collection models a vote-escrow NFT contract: each token is a locked
// position with a principal amount and an expiry, and voting power decays
// linearly towards the lock end.
type collection struct {
	name        string
	symbol      string
	maxLock     uint64
	nextTokenId uint64
	locks       map[uint64]*lock
	approvals   map[uint64]common.Address
	operators   map[common.Address]map[common.Address]bool
}

type lock struct {
	owner  common.Address
	amount *big.Int
	end    uint64
}

func (c *collection) copy() *collection {
	locks := make(map[uint64]*lock, len(c.locks))
	for id, lk := range c.locks {
		locks[id] = &lock{owner: lk.owner, amount: new(big.Int).Set(lk.amount), end: lk.end}
	}

	approvals := make(map[uint64]common.Address, len(c.approvals))
	for id, addr := range c.approvals {
		approvals[id] = addr
	}

	operators := make(map[common.Address]map[common.Address]bool, len(c.operators))
	for owner, ops := range c.operators {
		copied := make(map[common.Address]bool, len(ops))
		for op, approved := range ops {
			copied[op] = approved
		}
		operators[owner] = copied
	}

	return &collection{
		name:        c.name,
		symbol:      c.symbol,
		maxLock:     c.maxLock,
		nextTokenId: c.nextTokenId,
		locks:       locks,
		approvals:   approvals,
		operators:   operators,
	}
}

func (c *collection) isApprovedOrOwner(spender common.Address, tokenId uint64) bool {
	lk, ok := c.locks[tokenId]
	if !ok {
		return false
	}

	if lk.owner == spender {
		return true
	}
	if c.approvals[tokenId] == spender {
		return true
	}

	return c.operators[lk.owner][spender]
}

// RegisterCollection creates a voting-escrow collection at the given address.
// maxLock is the longest permitted lock duration in seconds; voting power
// decays against it.
func (l *Ledger) RegisterCollection(addr common.Address, name, symbol string, maxLock uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.collections[addr] = &collection{
		name:      name,
		symbol:    symbol,
		maxLock:   maxLock,
		locks:     make(map[uint64]*lock),
		approvals: make(map[uint64]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

// CreateLock mints a locked position and returns its token id.
func (l *Ledger) CreateLock(collectionAddr, owner common.Address, amount *big.Int, end uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return 0, ErrUnknownCollection
	}

	tokenId := c.nextTokenId
	c.nextTokenId++
	c.locks[tokenId] = &lock{owner: owner, amount: new(big.Int).Set(amount), end: end}

	return tokenId, nil
}

func (l *Ledger) OwnerOf(collectionAddr common.Address, tokenId uint64) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ownerOf(collectionAddr, tokenId)
}

func (l *Ledger) ownerOf(collectionAddr common.Address, tokenId uint64) (common.Address, error) {
	c, ok := l.collections[collectionAddr]
	if !ok {
		return common.Address{}, ErrUnknownCollection
	}

	lk, ok := c.locks[tokenId]
	if !ok {
		return common.Address{}, ErrUnknownLock
	}

	return lk.owner, nil
}

func (tx *Tx) OwnerOf(collectionAddr common.Address, tokenId uint64) (common.Address, error) {
	return tx.l.ownerOf(collectionAddr, tokenId)
}

// Locked returns a position's principal amount and lock end.
func (l *Ledger) Locked(collectionAddr common.Address, tokenId uint64) (*big.Int, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return nil, 0, ErrUnknownCollection
	}

	lk, ok := c.locks[tokenId]
	if !ok {
		return nil, 0, ErrUnknownLock
	}

	return new(big.Int).Set(lk.amount), lk.end, nil
}

// VotingPowerOf returns the position's current voting weight: the principal
// scaled by remaining lock time over the collection's maximum lock.
func (l *Ledger) VotingPowerOf(collectionAddr common.Address, tokenId uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return nil, ErrUnknownCollection
	}

	lk, ok := c.locks[tokenId]
	if !ok {
		return nil, ErrUnknownLock
	}

	if lk.end <= l.now || c.maxLock == 0 {
		return new(big.Int), nil
	}

	remaining := new(big.Int).SetUint64(lk.end - l.now)
	power := new(big.Int).Mul(lk.amount, remaining)

	return power.Div(power, new(big.Int).SetUint64(c.maxLock)), nil
}

// ApproveNFT grants a single-token transfer approval.
func (l *Ledger) ApproveNFT(collectionAddr, caller, to common.Address, tokenId uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return ErrUnknownCollection
	}

	lk, ok := c.locks[tokenId]
	if !ok {
		return ErrUnknownLock
	}

	if caller != lk.owner && !c.operators[lk.owner][caller] {
		return ErrNotOwner
	}

	c.approvals[tokenId] = to

	return nil
}

// SetApprovalForAll grants or revokes a collection-wide operator approval.
func (l *Ledger) SetApprovalForAll(collectionAddr, owner, operator common.Address, approved bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return ErrUnknownCollection
	}

	if _, ok := c.operators[owner]; !ok {
		c.operators[owner] = make(map[common.Address]bool)
	}
	c.operators[owner][operator] = approved

	return nil
}

func (l *Ledger) GetApproved(collectionAddr common.Address, tokenId uint64) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return common.Address{}, ErrUnknownCollection
	}

	return c.approvals[tokenId], nil
}

// IsApprovedOrOwner reports whether spender may transfer the given token.
func (l *Ledger) IsApprovedOrOwner(collectionAddr, spender common.Address, tokenId uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.collections[collectionAddr]
	if !ok {
		return false, ErrUnknownCollection
	}

	return c.isApprovedOrOwner(spender, tokenId), nil
}

// NFTTransferFrom moves a position from its owner to another address. The
// operator must be the owner, token-approved, or a collection-wide operator.
// Single-token approval clears on transfer.
func (tx *Tx) NFTTransferFrom(collectionAddr, operator, from, to common.Address, tokenId uint64) error {
	c, ok := tx.l.collections[collectionAddr]
	if !ok {
		return ErrUnknownCollection
	}

	lk, ok := c.locks[tokenId]
	if !ok {
		return ErrUnknownLock
	}

	if lk.owner != from {
		return ErrNotOwner
	}
	if !c.isApprovedOrOwner(operator, tokenId) {
		return ErrNotApproved
	}

	lk.owner = to
	delete(c.approvals, tokenId)

	return nil
}
