package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/prajalsharma/venft-marketplace/internal/entity"
)

type floorKey struct {
	collection   common.Address
	paymentToken common.Address
}

type floorEntry struct {
	price     *big.Int
	listingId uint64
}

// The floor cache is maintained incrementally: a new listing or a price drop
// is an O(1) compare, and only losing the current floor listing (cancel, buy,
// price raise) forces a rescan of the book.

// GetFloorPrice returns the lowest active listing price for the pair, or
// zero when no active listing matches.
func (s *service) GetFloorPrice(collection, paymentToken common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.floor[floorKey{collection: collection, paymentToken: paymentToken}]
	if !ok {
		return new(big.Int)
	}

	return new(big.Int).Set(entry.price)
}

// callers hold s.mu
func (s *service) floorOnList(listing *entity.Listing) {
	key := floorKey{collection: listing.Collection, paymentToken: listing.PaymentToken}

	entry, ok := s.floor[key]
	if !ok || listing.Price.Cmp(entry.price) < 0 {
		s.floor[key] = &floorEntry{price: new(big.Int).Set(listing.Price), listingId: listing.Id}
	}
}

func (s *service) floorOnRemove(listing *entity.Listing) {
	key := floorKey{collection: listing.Collection, paymentToken: listing.PaymentToken}

	entry, ok := s.floor[key]
	if !ok || entry.listingId != listing.Id {
		return
	}

	s.rescanFloor(key)
}

func (s *service) floorOnPriceChange(listing *entity.Listing, oldPrice *big.Int) {
	key := floorKey{collection: listing.Collection, paymentToken: listing.PaymentToken}

	entry, ok := s.floor[key]
	if !ok {
		s.floor[key] = &floorEntry{price: new(big.Int).Set(listing.Price), listingId: listing.Id}
		return
	}

	if listing.Price.Cmp(entry.price) < 0 {
		entry.price = new(big.Int).Set(listing.Price)
		entry.listingId = listing.Id
		return
	}

	// The floor listing raised its own price; someone else may be floor now.
	if entry.listingId == listing.Id && listing.Price.Cmp(oldPrice) > 0 {
		s.rescanFloor(key)
	}
}

func (s *service) rescanFloor(key floorKey) {
	var best *floorEntry
	for _, listing := range s.listings {
		if !listing.Active || listing.Collection != key.collection || listing.PaymentToken != key.paymentToken {
			continue
		}
		if best == nil || listing.Price.Cmp(best.price) < 0 {
			best = &floorEntry{price: new(big.Int).Set(listing.Price), listingId: listing.Id}
		}
	}

	if best == nil {
		delete(s.floor, key)
		return
	}

	s.floor[key] = best
}
