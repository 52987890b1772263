package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

// Listing is the per-id marketplace record. The NFT itself never moves at
// listing time; the marketplace only holds transfer approval (escrowless).
type Listing struct {
	Id           uint64         `json:"listingId"`
	Seller       common.Address `json:"seller"`
	Collection   common.Address `json:"collection"`
	TokenId      uint64         `json:"tokenId"`
	Price        *big.Int       `json:"price"`
	PaymentToken common.Address `json:"paymentToken"`
	CreatedAt    uint64         `json:"createdAt"`
	Active       bool           `json:"active"`
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.Id, l.Collection)
}

func CreateListingSlug(listingId uint64, collection common.Address) string {
	return slug.Make(fmt.Sprintf("listing-%d-%s", listingId, collection.Hex()))
}

// ListingWithValue merges a listing with live valuation reads.
type ListingWithValue struct {
	Listing        Listing  `json:"listing"`
	IntrinsicValue *big.Int `json:"intrinsicValue"`
	LockEnd        uint64   `json:"lockEnd"`
	VotingPower    *big.Int `json:"votingPower"`
	DiscountBps    uint64   `json:"discountBps"`
}
