package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type Type string

const (
	ListedEvent             Type = "Listed"
	PurchasedEvent          Type = "Purchased"
	CancelledEvent          Type = "Cancelled"
	PriceUpdatedEvent       Type = "PriceUpdated"
	PaymentRoutedEvent      Type = "PaymentRouted"
	ProtocolFeeUpdatedEvent Type = "ProtocolFeeUpdated"
	PausedEvent             Type = "Paused"
	UnpausedEvent           Type = "Unpaused"
)

type Listed struct {
	ListingId    uint64
	Seller       common.Address
	Collection   common.Address
	TokenId      uint64
	Price        *big.Int
	PaymentToken common.Address
}

type Purchased struct {
	ListingId uint64
	Buyer     common.Address
	Seller    common.Address
	Price     *big.Int
}

type Cancelled struct {
	ListingId uint64
}

type PriceUpdated struct {
	ListingId uint64
	OldPrice  *big.Int
	NewPrice  *big.Int
}

// PaymentRouted is the authoritative settlement record for a routed payment.
type PaymentRouted struct {
	Payer  common.Address
	Seller common.Address
	Token  common.Address
	Amount *big.Int
	Fee    *big.Int
}

type ProtocolFeeUpdated struct {
	OldBps uint64
	NewBps uint64
}

type Paused struct {
	Reason string
}

type Unpaused struct{}
