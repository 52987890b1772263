package marketplace

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/adapter"
	"github.com/prajalsharma/venft-marketplace/internal/admin"
	"github.com/prajalsharma/venft-marketplace/internal/entity"
	"github.com/prajalsharma/venft-marketplace/internal/event"
	"github.com/prajalsharma/venft-marketplace/internal/ledger"
)

var (
	ErrPaused                = errors.New("marketplace paused")
	ErrNotOwner              = errors.New("not the owner")
	ErrNotApproved           = errors.New("marketplace not approved for transfer")
	ErrListingNotFound       = errors.New("listing not found")
	ErrListingNotActive      = errors.New("listing not active")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrUnsupportedCollection = errors.New("unsupported collection")
	ErrUnsupportedToken      = errors.New("unsupported token")
	ErrReentrancy            = errors.New("reentrant purchase")
	ErrNoRouter              = errors.New("payment router not set")
)

// Service is the listing state machine and purchase orchestrator. Listings
// are escrowless: the NFT stays with the seller and the marketplace holds
// only transfer approval, so ownership at purchase time is the authoritative
// check and a stale listing self-invalidates when bought.
type Service interface {
	ListNFT(caller, collection common.Address, tokenId uint64, price *big.Int, paymentToken common.Address) (uint64, error)
	BuyNFT(caller common.Address, listingId uint64, value *big.Int) error
	CancelListing(caller common.Address, listingId uint64) error
	UpdatePrice(caller common.Address, listingId uint64, newPrice *big.Int) error

	NextListingId() uint64
	GetListing(listingId uint64) (entity.Listing, error)
	GetListingWithValue(listingId uint64) (entity.ListingWithValue, error)
	GetActiveListings(collection common.Address, offset, limit uint64) ([]entity.Listing, uint64)
	GetUserListings(user common.Address) []entity.Listing
	GetFloorPrice(collection, paymentToken common.Address) *big.Int
}

type service struct {
	mu sync.RWMutex

	ledger  *ledger.Ledger
	adapter adapter.Service
	admin   admin.Service
	events  *event.Manager

	addr     common.Address
	listings []*entity.Listing
	busy     map[uint64]bool
	floor    map[floorKey]*floorEntry
}

func NewService(l *ledger.Ledger, valueAdapter adapter.Service, adminService admin.Service, events *event.Manager, addr common.Address) Service {
	return &service{
		ledger:  l,
		adapter: valueAdapter,
		admin:   adminService,
		events:  events,
		addr:    addr,
		busy:    make(map[uint64]bool),
		floor:   make(map[floorKey]*floorEntry),
	}
}

// ListNFT creates an escrowless listing and returns its id. The seller must
// own the token and must already have approved the marketplace to transfer
// it; the NFT itself does not move.
func (s *service) ListNFT(caller, collection common.Address, tokenId uint64, price *big.Int, paymentToken common.Address) (uint64, error) {
	if err := s.requireNotPaused(); err != nil {
		return 0, err
	}
	if !s.admin.IsCollectionApproved(collection) {
		return 0, ErrUnsupportedCollection
	}
	if price == nil || price.Sign() == 0 {
		return 0, ErrInvalidAmount
	}
	if r := s.admin.Router(); r != nil && !r.IsTokenSupported(paymentToken) {
		return 0, ErrUnsupportedToken
	}

	owner, err := s.ledger.OwnerOf(collection, tokenId)
	if err != nil {
		return 0, err
	}
	if owner != caller {
		return 0, ErrNotOwner
	}

	approved, err := s.ledger.IsApprovedOrOwner(collection, s.addr, tokenId)
	if err != nil {
		return 0, err
	}
	if !approved {
		return 0, ErrNotApproved
	}

	listing := &entity.Listing{
		Seller:       caller,
		Collection:   collection,
		TokenId:      tokenId,
		Price:        new(big.Int).Set(price),
		PaymentToken: paymentToken,
		CreatedAt:    s.ledger.Now(),
		Active:       true,
	}

	s.mu.Lock()
	listing.Id = uint64(len(s.listings))
	s.listings = append(s.listings, listing)
	s.floorOnList(listing)
	s.mu.Unlock()

	zap.L().With(
		zap.Uint64("listingId", listing.Id),
		zap.String("seller", caller.Hex()),
		zap.String("collection", collection.Hex()),
		zap.Uint64("tokenId", tokenId),
		zap.String("price", price.String()),
	).Info("Listing created")

	s.events.EmitEvent(event.ListedEvent, event.Listed{
		ListingId:    listing.Id,
		Seller:       caller,
		Collection:   collection,
		TokenId:      tokenId,
		Price:        new(big.Int).Set(price),
		PaymentToken: paymentToken,
	})

	return listing.Id, nil
}

// BuyNFT settles a purchase: payment routes first, then the NFT transfers
// from seller to buyer, all inside one ledger transaction - if either leg
// fails the buyer keeps their funds and the listing stays active. The busy
// flag keeps a payment-routed listener from re-entering, cancelling, or
// repricing the same listing before it is marked inactive.
func (s *service) BuyNFT(caller common.Address, listingId uint64, value *big.Int) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}

	s.mu.Lock()
	listing, err := s.listingLocked(listingId)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !listing.Active {
		s.mu.Unlock()
		return ErrListingNotActive
	}
	if s.busy[listingId] {
		s.mu.Unlock()
		return ErrReentrancy
	}
	s.busy[listingId] = true

	seller := listing.Seller
	collection := listing.Collection
	tokenId := listing.TokenId
	price := new(big.Int).Set(listing.Price)
	paymentToken := listing.PaymentToken
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.busy, listingId)
		s.mu.Unlock()
	}()

	r := s.admin.Router()
	if r == nil {
		return ErrNoRouter
	}

	err = s.ledger.Execute(func(tx *ledger.Tx) error {
		if err := r.Route(tx, caller, seller, paymentToken, price, value); err != nil {
			return err
		}

		// Reverts when the seller no longer owns the token or revoked our
		// approval after listing - the correctness backstop for the
		// escrowless model.
		return tx.NFTTransferFrom(collection, s.addr, seller, caller, tokenId)
	})
	if err != nil {
		zap.L().With(zap.Uint64("listingId", listingId), zap.Error(err)).Warn("Purchase reverted")
		return err
	}

	s.mu.Lock()
	listing.Active = false
	s.floorOnRemove(listing)
	s.mu.Unlock()

	zap.L().With(
		zap.Uint64("listingId", listingId),
		zap.String("buyer", caller.Hex()),
		zap.String("seller", seller.Hex()),
		zap.String("price", price.String()),
	).Info("Listing purchased")

	s.events.EmitEvent(event.PurchasedEvent, event.Purchased{
		ListingId: listingId,
		Buyer:     caller,
		Seller:    seller,
		Price:     price,
	})

	return nil
}

// CancelListing deactivates a listing. Seller-only; no funds move.
func (s *service) CancelListing(caller common.Address, listingId uint64) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}

	s.mu.Lock()
	listing, err := s.listingLocked(listingId)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !listing.Active {
		s.mu.Unlock()
		return ErrListingNotActive
	}
	if s.busy[listingId] {
		s.mu.Unlock()
		return ErrReentrancy
	}
	if listing.Seller != caller {
		s.mu.Unlock()
		return ErrNotOwner
	}

	listing.Active = false
	s.floorOnRemove(listing)
	s.mu.Unlock()

	zap.L().With(zap.Uint64("listingId", listingId)).Info("Listing cancelled")
	s.events.EmitEvent(event.CancelledEvent, event.Cancelled{ListingId: listingId})

	return nil
}

// UpdatePrice changes an active listing's price in place. Seller-only.
func (s *service) UpdatePrice(caller common.Address, listingId uint64, newPrice *big.Int) error {
	if err := s.requireNotPaused(); err != nil {
		return err
	}
	if newPrice == nil || newPrice.Sign() == 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	listing, err := s.listingLocked(listingId)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !listing.Active {
		s.mu.Unlock()
		return ErrListingNotActive
	}
	if s.busy[listingId] {
		s.mu.Unlock()
		return ErrReentrancy
	}
	if listing.Seller != caller {
		s.mu.Unlock()
		return ErrNotOwner
	}

	oldPrice := listing.Price
	listing.Price = new(big.Int).Set(newPrice)
	s.floorOnPriceChange(listing, oldPrice)
	s.mu.Unlock()

	zap.L().With(
		zap.Uint64("listingId", listingId),
		zap.String("old", oldPrice.String()),
		zap.String("new", newPrice.String()),
	).Info("Listing price updated")

	s.events.EmitEvent(event.PriceUpdatedEvent, event.PriceUpdated{
		ListingId: listingId,
		OldPrice:  oldPrice,
		NewPrice:  new(big.Int).Set(newPrice),
	})

	return nil
}

func (s *service) NextListingId() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.listings))
}

func (s *service) GetListing(listingId uint64) (entity.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, err := s.listingLocked(listingId)
	if err != nil {
		return entity.Listing{}, err
	}

	return copyListing(listing), nil
}

// GetListingWithValue merges the listing with live adapter reads, so the
// reported intrinsic value and discount always reflect the current lock
// state rather than a value frozen at listing time.
func (s *service) GetListingWithValue(listingId uint64) (entity.ListingWithValue, error) {
	listing, err := s.GetListing(listingId)
	if err != nil {
		return entity.ListingWithValue{}, err
	}

	intrinsicValue, lockEnd, err := s.adapter.GetIntrinsicValue(listing.Collection, listing.TokenId)
	if err != nil {
		return entity.ListingWithValue{}, err
	}

	votingPower, err := s.adapter.GetVotingPower(listing.Collection, listing.TokenId)
	if err != nil {
		return entity.ListingWithValue{}, err
	}

	return entity.ListingWithValue{
		Listing:        listing,
		IntrinsicValue: intrinsicValue,
		LockEnd:        lockEnd,
		VotingPower:    votingPower,
		DiscountBps:    adapter.CalculateDiscount(listing.Price, intrinsicValue),
	}, nil
}

// GetActiveListings returns a page of active listings for a collection and
// the total count of matches.
func (s *service) GetActiveListings(collection common.Address, offset, limit uint64) ([]entity.Listing, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*entity.Listing, 0)
	for _, listing := range s.listings {
		if listing.Active && listing.Collection == collection {
			matches = append(matches, listing)
		}
	}

	total := uint64(len(matches))
	if offset >= total {
		return []entity.Listing{}, total
	}

	end := offset + limit
	if limit == 0 || end > total {
		end = total
	}

	page := make([]entity.Listing, 0, end-offset)
	for _, listing := range matches[offset:end] {
		page = append(page, copyListing(listing))
	}

	return page, total
}

// GetUserListings returns every listing a user has ever created, active or
// not.
func (s *service) GetUserListings(user common.Address) []entity.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Listing, 0)
	for _, listing := range s.listings {
		if listing.Seller == user {
			out = append(out, copyListing(listing))
		}
	}

	return out
}

func (s *service) requireNotPaused() error {
	if paused, _ := s.admin.Paused(); paused {
		return ErrPaused
	}

	return nil
}

func (s *service) listingLocked(listingId uint64) (*entity.Listing, error) {
	if listingId >= uint64(len(s.listings)) {
		return nil, ErrListingNotFound
	}

	return s.listings[listingId], nil
}

func copyListing(listing *entity.Listing) entity.Listing {
	out := *listing
	out.Price = new(big.Int).Set(listing.Price)

	return out
}
