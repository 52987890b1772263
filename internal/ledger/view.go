package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EscrowView exposes a single collection's lock reads, matching the view
// surface a lock contract presents on chain.
type EscrowView struct {
	l    *Ledger
	addr common.Address
}

func (l *Ledger) EscrowView(addr common.Address) *EscrowView {
	return &EscrowView{l: l, addr: addr}
}

func (v *EscrowView) Locked(tokenId uint64) (*big.Int, uint64, error) {
	return v.l.Locked(v.addr, tokenId)
}

func (v *EscrowView) VotingPower(tokenId uint64) (*big.Int, error) {
	return v.l.VotingPowerOf(v.addr, tokenId)
}
