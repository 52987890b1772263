package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type token struct {
	name       string
	symbol     string
	decimals   uint8
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func (t *token) copy() *token {
	balances := make(map[common.Address]*big.Int, len(t.balances))
	for addr, bal := range t.balances {
		balances[addr] = new(big.Int).Set(bal)
	}

	allowances := make(map[common.Address]map[common.Address]*big.Int, len(t.allowances))
	for owner, spenders := range t.allowances {
		copied := make(map[common.Address]*big.Int, len(spenders))
		for spender, amount := range spenders {
			copied[spender] = new(big.Int).Set(amount)
		}
		allowances[owner] = copied
	}

	return &token{
		name:       t.name,
		symbol:     t.symbol,
		decimals:   t.decimals,
		balances:   balances,
		allowances: allowances,
	}
}

func (t *token) balanceOf(addr common.Address) *big.Int {
	if bal, ok := t.balances[addr]; ok {
		return bal
	}

	return new(big.Int)
}

func (t *token) allowance(owner, spender common.Address) *big.Int {
	if spenders, ok := t.allowances[owner]; ok {
		if amount, ok := spenders[spender]; ok {
			return amount
		}
	}

	return new(big.Int)
}

// RegisterToken creates an ERC-20 book at the given address.
func (l *Ledger) RegisterToken(addr common.Address, name, symbol string, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens[addr] = &token{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits token units to an address. Test and genesis helper.
func (l *Ledger) Mint(tokenAddr, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}

	bal := t.balanceOf(to)
	t.balances[to] = new(big.Int).Add(bal, amount)

	return nil
}

func (l *Ledger) BalanceOf(tokenAddr, addr common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return nil, ErrUnknownToken
	}

	return new(big.Int).Set(t.balanceOf(addr)), nil
}

func (tx *Tx) BalanceOf(tokenAddr, addr common.Address) (*big.Int, error) {
	t, ok := tx.l.tokens[tokenAddr]
	if !ok {
		return nil, ErrUnknownToken
	}

	return new(big.Int).Set(t.balanceOf(addr)), nil
}

// Approve sets the spender allowance for the caller's token balance.
func (l *Ledger) Approve(tokenAddr, owner, spender common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}

	if _, ok := t.allowances[owner]; !ok {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)

	return nil
}

func (l *Ledger) Allowance(tokenAddr, owner, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenAddr]
	if !ok {
		return nil, ErrUnknownToken
	}

	return new(big.Int).Set(t.allowance(owner, spender)), nil
}

// TokenTransferFrom moves tokens from an owner using the spender's allowance.
func (tx *Tx) TokenTransferFrom(tokenAddr, spender, from, to common.Address, amount *big.Int) error {
	t, ok := tx.l.tokens[tokenAddr]
	if !ok {
		return ErrUnknownToken
	}

	if spender != from {
		allowance := t.allowance(from, spender)
		if allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		t.allowances[from][spender] = new(big.Int).Sub(allowance, amount)
	}

	bal := t.balanceOf(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	t.balances[from] = new(big.Int).Sub(bal, amount)
	toBal := t.balanceOf(to)
	t.balances[to] = new(big.Int).Add(toBal, amount)

	return nil
}
