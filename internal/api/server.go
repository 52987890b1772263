package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/nu7hatch/gouuid"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/adapter"
	"github.com/prajalsharma/venft-marketplace/internal/admin"
	"github.com/prajalsharma/venft-marketplace/internal/ledger"
	"github.com/prajalsharma/venft-marketplace/internal/marketplace"
	"github.com/prajalsharma/venft-marketplace/internal/router"
)

type Server struct {
	marketplace marketplace.Service
	adapter     adapter.Service
}

func NewServer(marketplaceService marketplace.Service, adapterService adapter.Service) Server {
	return Server{marketplace: marketplaceService, adapter: adapterService}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestId)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/listings", s.handleGetActiveListings).Methods("GET")
	r.HandleFunc("/listings", s.handleListNFT).Methods("POST")
	r.HandleFunc("/listings/{listingId}", s.handleGetListing).Methods("GET")
	r.HandleFunc("/listings/{listingId}/value", s.handleGetListingWithValue).Methods("GET")
	r.HandleFunc("/listings/{listingId}/buy", s.handleBuyNFT).Methods("POST")
	r.HandleFunc("/listings/{listingId}/cancel", s.handleCancelListing).Methods("POST")
	r.HandleFunc("/listings/{listingId}/price", s.handleUpdatePrice).Methods("POST")

	r.HandleFunc("/users/{address}/listings", s.handleGetUserListings).Methods("GET")
	r.HandleFunc("/collections/{collection}/floor", s.handleGetFloorPrice).Methods("GET")
	r.HandleFunc("/collections/{collection}/tokens/{tokenId}", s.handleGetTokenValue).Methods("GET")

	r.NotFoundHandler = notFoundHandler()

	return r
}

func (s Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listingId, err := getListingId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := s.marketplace.GetListing(listingId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, listing)
}

func (s Server) handleGetListingWithValue(w http.ResponseWriter, r *http.Request) {
	listingId, err := getListingId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	listing, err := s.marketplace.GetListingWithValue(listingId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, listing)
}

func (s Server) handleGetActiveListings(w http.ResponseWriter, r *http.Request) {
	collection := common.HexToAddress(r.URL.Query().Get("collection"))
	offset, _ := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	limit, _ := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64)

	listings, total := s.marketplace.GetActiveListings(collection, offset, limit)

	writeJson(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
		"total":    total,
	})
}

func (s Server) handleGetUserListings(w http.ResponseWriter, r *http.Request) {
	user := common.HexToAddress(mux.Vars(r)["address"])

	writeJson(w, http.StatusOK, s.marketplace.GetUserListings(user))
}

func (s Server) handleGetFloorPrice(w http.ResponseWriter, r *http.Request) {
	collection := common.HexToAddress(mux.Vars(r)["collection"])
	paymentToken := common.HexToAddress(r.URL.Query().Get("paymentToken"))

	floor := s.marketplace.GetFloorPrice(collection, paymentToken)

	writeJson(w, http.StatusOK, map[string]string{"floorPrice": floor.String()})
}

func (s Server) handleGetTokenValue(w http.ResponseWriter, r *http.Request) {
	collection := common.HexToAddress(mux.Vars(r)["collection"])

	tokenId, err := strconv.ParseUint(mux.Vars(r)["tokenId"], 10, 64)
	if err != nil {
		http.Error(w, "invalid token id", http.StatusBadRequest)
		return
	}

	if !s.adapter.IsSupported(collection) {
		writeError(w, adapter.ErrUnsupportedCollection)
		return
	}

	intrinsicValue, lockEnd, err := s.adapter.GetIntrinsicValue(collection, tokenId)
	if err != nil {
		writeError(w, err)
		return
	}

	votingPower, err := s.adapter.GetVotingPower(collection, tokenId)
	if err != nil {
		writeError(w, err)
		return
	}

	expired, err := s.adapter.IsExpired(collection, tokenId)
	if err != nil {
		writeError(w, err)
		return
	}

	remaining, err := s.adapter.GetTimeRemaining(collection, tokenId)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]interface{}{
		"intrinsicValue": intrinsicValue.String(),
		"lockEnd":        lockEnd,
		"votingPower":    votingPower.String(),
		"isExpired":      expired,
		"timeRemaining":  remaining,
	})
}

type listRequest struct {
	Caller       string `json:"caller"`
	Collection   string `json:"collection"`
	TokenId      uint64 `json:"tokenId"`
	Price        string `json:"price"`
	PaymentToken string `json:"paymentToken"`
}

func (s Server) handleListNFT(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, err)
		return
	}

	listingId, err := s.marketplace.ListNFT(
		common.HexToAddress(req.Caller),
		common.HexToAddress(req.Collection),
		req.TokenId,
		price,
		common.HexToAddress(req.PaymentToken),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusCreated, map[string]uint64{"listingId": listingId})
}

type buyRequest struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (s Server) handleBuyNFT(w http.ResponseWriter, r *http.Request) {
	listingId, err := getListingId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	value := new(big.Int)
	if req.Value != "" {
		if value, err = parseAmount(req.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := s.marketplace.BuyNFT(common.HexToAddress(req.Caller), listingId, value); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]string{"status": "purchased"})
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	listingId, err := getListingId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req callerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.marketplace.CancelListing(common.HexToAddress(req.Caller), listingId); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type updatePriceRequest struct {
	Caller   string `json:"caller"`
	NewPrice string `json:"newPrice"`
}

func (s Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	listingId, err := getListingId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newPrice, err := parseAmount(req.NewPrice)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.marketplace.UpdatePrice(common.HexToAddress(req.Caller), listingId, newPrice); err != nil {
		writeError(w, err)
		return
	}

	writeJson(w, http.StatusOK, map[string]string{"status": "updated"})
}

func getListingId(r *http.Request) (uint64, error) {
	listingId, ok := mux.Vars(r)["listingId"]
	if !ok {
		return 0, errors.New("invalid parameters")
	}

	return strconv.ParseUint(listingId, 10, 64)
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %q", value)
	}

	return amount, nil
}

func writeJson(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJson(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, marketplace.ErrListingNotFound),
		errors.Is(err, ledger.ErrUnknownLock),
		errors.Is(err, ledger.ErrUnknownCollection),
		errors.Is(err, ledger.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrNotOwner),
		errors.Is(err, router.ErrUnauthorized),
		errors.Is(err, admin.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, router.ErrInsufficientPayment),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientAllowance):
		return http.StatusPaymentRequired
	case errors.Is(err, marketplace.ErrListingNotActive),
		errors.Is(err, marketplace.ErrPaused),
		errors.Is(err, marketplace.ErrReentrancy),
		errors.Is(err, ledger.ErrNotApproved),
		errors.Is(err, ledger.ErrNotOwner):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.NewV4()
		if err == nil {
			w.Header().Set("X-Request-Id", id.String())
			zap.L().With(
				zap.String("requestId", id.String()),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			).Debug("Handling request")
		}

		next.ServeHTTP(w, r)
	})
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, "Page not found")
	})
}
