package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/prajalsharma/venft-marketplace/internal/adapter"
	"github.com/prajalsharma/venft-marketplace/internal/admin"
	"github.com/prajalsharma/venft-marketplace/internal/entity"
	"github.com/prajalsharma/venft-marketplace/internal/event"
	"github.com/prajalsharma/venft-marketplace/internal/ledger"
	"github.com/prajalsharma/venft-marketplace/internal/marketplace"
	"github.com/prajalsharma/venft-marketplace/internal/router"
)

const veBtcMaxLock = 28 * 24 * 60 * 60

var (
	adminAddr    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	feeRecipient = common.HexToAddress("0x0000000000000000000000000000000000000002")
	sellerAddr   = common.HexToAddress("0x0000000000000000000000000000000000000003")
	buyerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000004")

	routerAddr = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	marketAddr = common.HexToAddress("0x00000000000000000000000000000000000000A2")

	musd   = common.HexToAddress("0x0000000000000000000000000000000000000010")
	veBtc  = common.HexToAddress("0x0000000000000000000000000000000000000020")
	veMezo = common.HexToAddress("0x0000000000000000000000000000000000000021")
)

func newTestServer(t *testing.T) (*httptest.Server, *ledger.Ledger) {
	t.Helper()

	events := event.NewManager()
	l := ledger.New(events)
	l.SetNow(1_000_000)

	l.RegisterToken(musd, "Mock MUSD", "MUSD", 18)
	l.RegisterCollection(veBtc, "veBTC", "veBTC", veBtcMaxLock)
	l.RegisterCollection(veMezo, "veMEZO", "veMEZO", 1456*24*60*60)

	valueAdapter, err := adapter.NewService(veBtc, veMezo, l.EscrowView(veBtc), l.EscrowView(veMezo), l.Now)
	if err != nil {
		t.Fatal(err)
	}

	r, err := router.NewService(l, events, routerAddr, feeRecipient, adminAddr, musd, 100)
	if err != nil {
		t.Fatal(err)
	}

	adminService, err := admin.NewService(events, adminAddr, true, veBtc, veMezo)
	if err != nil {
		t.Fatal(err)
	}
	if err := adminService.AddCollection(adminAddr, veBtc); err != nil {
		t.Fatal(err)
	}
	if err := adminService.SetPaymentRouter(adminAddr, r); err != nil {
		t.Fatal(err)
	}

	market := marketplace.NewService(l, valueAdapter, adminService, events, marketAddr)

	if _, err := l.CreateLock(veBtc, sellerAddr, big.NewInt(1_000_000), l.Now()+veBtcMaxLock); err != nil {
		t.Fatal(err)
	}
	if err := l.SetApprovalForAll(veBtc, sellerAddr, marketAddr, true); err != nil {
		t.Fatal(err)
	}
	l.FundNative(buyerAddr, big.NewInt(10_000_000))

	srv := httptest.NewServer(NewServer(market, valueAdapter).Router())
	t.Cleanup(srv.Close)

	return srv, l
}

func postJson(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatal(err)
	}
}

func createListing(t *testing.T, srv *httptest.Server, price string) uint64 {
	t.Helper()

	body := fmt.Sprintf(
		`{"caller":%q,"collection":%q,"tokenId":0,"price":%q,"paymentToken":%q}`,
		sellerAddr.Hex(), veBtc.Hex(), price, entity.BtcAddress.Hex(),
	)

	resp := postJson(t, srv.URL+"/listings", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /listings status = %d, want 201", resp.StatusCode)
	}

	var created struct {
		ListingId uint64 `json:"listingId"`
	}
	decode(t, resp, &created)

	return created.ListingId
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header")
	}
	resp.Body.Close()
}

func TestListAndGetListing(t *testing.T) {
	srv, _ := newTestServer(t)
	listingId := createListing(t, srv, "900000")

	resp, err := http.Get(fmt.Sprintf("%s/listings/%d", srv.URL, listingId))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /listings/%d status = %d, want 200", listingId, resp.StatusCode)
	}

	var listing entity.Listing
	decode(t, resp, &listing)
	if listing.Seller != sellerAddr || listing.Price.Cmp(big.NewInt(900_000)) != 0 || !listing.Active {
		t.Errorf("unexpected listing: %+v", listing)
	}
}

func TestGetListingNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/listings/42")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /listings/42 status = %d, want 404", resp.StatusCode)
	}
}

func TestBuyListing(t *testing.T) {
	srv, l := newTestServer(t)
	listingId := createListing(t, srv, "900000")

	body := fmt.Sprintf(`{"caller":%q,"value":"900000"}`, buyerAddr.Hex())
	resp := postJson(t, fmt.Sprintf("%s/listings/%d/buy", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST buy status = %d, want 200", resp.StatusCode)
	}

	owner, _ := l.OwnerOf(veBtc, 0)
	if owner != buyerAddr {
		t.Errorf("owner after purchase = %s, want buyer", owner.Hex())
	}
	if got := l.NativeBalance(sellerAddr); got.Cmp(big.NewInt(891_000)) != 0 {
		t.Errorf("seller balance = %s, want 891000", got)
	}
}

func TestBuyListingUnderpaid(t *testing.T) {
	srv, _ := newTestServer(t)
	listingId := createListing(t, srv, "900000")

	body := fmt.Sprintf(`{"caller":%q,"value":"1"}`, buyerAddr.Hex())
	resp := postJson(t, fmt.Sprintf("%s/listings/%d/buy", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("POST buy status = %d, want 402", resp.StatusCode)
	}
}

func TestCancelListing(t *testing.T) {
	srv, _ := newTestServer(t)
	listingId := createListing(t, srv, "900000")

	// Only the seller may cancel.
	body := fmt.Sprintf(`{"caller":%q}`, buyerAddr.Hex())
	resp := postJson(t, fmt.Sprintf("%s/listings/%d/cancel", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-seller cancel status = %d, want 403", resp.StatusCode)
	}

	body = fmt.Sprintf(`{"caller":%q}`, sellerAddr.Hex())
	resp = postJson(t, fmt.Sprintf("%s/listings/%d/cancel", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("cancel status = %d, want 200", resp.StatusCode)
	}

	// A second cancel conflicts.
	resp = postJson(t, fmt.Sprintf("%s/listings/%d/cancel", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double cancel status = %d, want 409", resp.StatusCode)
	}
}

func TestUpdatePrice(t *testing.T) {
	srv, _ := newTestServer(t)
	listingId := createListing(t, srv, "900000")

	body := fmt.Sprintf(`{"caller":%q,"newPrice":"800000"}`, sellerAddr.Hex())
	resp := postJson(t, fmt.Sprintf("%s/listings/%d/price", srv.URL, listingId), body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update price status = %d, want 200", resp.StatusCode)
	}

	resp, err := http.Get(fmt.Sprintf("%s/listings/%d", srv.URL, listingId))
	if err != nil {
		t.Fatal(err)
	}
	var listing entity.Listing
	decode(t, resp, &listing)
	if listing.Price.Cmp(big.NewInt(800_000)) != 0 {
		t.Errorf("price = %s, want 800000", listing.Price)
	}
}

func TestActiveListingsAndFloor(t *testing.T) {
	srv, _ := newTestServer(t)
	createListing(t, srv, "900000")

	resp, err := http.Get(srv.URL + "/listings?collection=" + veBtc.Hex())
	if err != nil {
		t.Fatal(err)
	}
	var page struct {
		Listings []entity.Listing `json:"listings"`
		Total    uint64           `json:"total"`
	}
	decode(t, resp, &page)
	if page.Total != 1 || len(page.Listings) != 1 {
		t.Errorf("active listings = %+v, want a single entry", page)
	}

	resp, err = http.Get(srv.URL + "/collections/" + veBtc.Hex() + "/floor?paymentToken=" + entity.BtcAddress.Hex())
	if err != nil {
		t.Fatal(err)
	}
	var floor struct {
		FloorPrice string `json:"floorPrice"`
	}
	decode(t, resp, &floor)
	if floor.FloorPrice != "900000" {
		t.Errorf("floor price = %q, want \"900000\"", floor.FloorPrice)
	}
}

func TestUserListings(t *testing.T) {
	srv, _ := newTestServer(t)
	createListing(t, srv, "900000")

	resp, err := http.Get(srv.URL + "/users/" + sellerAddr.Hex() + "/listings")
	if err != nil {
		t.Fatal(err)
	}
	var listings []entity.Listing
	decode(t, resp, &listings)
	if len(listings) != 1 || listings[0].Seller != sellerAddr {
		t.Errorf("user listings = %+v, want the seller's single listing", listings)
	}
}

func TestTokenValue(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/collections/" + veBtc.Hex() + "/tokens/0")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token value status = %d, want 200", resp.StatusCode)
	}

	var value struct {
		IntrinsicValue string `json:"intrinsicValue"`
		LockEnd        uint64 `json:"lockEnd"`
		VotingPower    string `json:"votingPower"`
		IsExpired      bool   `json:"isExpired"`
		TimeRemaining  uint64 `json:"timeRemaining"`
	}
	decode(t, resp, &value)
	if value.IntrinsicValue != "1000000" || value.VotingPower != "1000000" {
		t.Errorf("token value = %+v", value)
	}
	if value.IsExpired || value.TimeRemaining != veBtcMaxLock {
		t.Errorf("lock state = %+v, want live lock with full time remaining", value)
	}

	// Unknown collections are rejected before any escrow read.
	resp, err = http.Get(srv.URL + "/collections/" + musd.Hex() + "/tokens/0")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported collection status = %d, want 400", resp.StatusCode)
	}
}

func TestInvalidRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJson(t, srv.URL+"/listings", "not json")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}

	body := fmt.Sprintf(
		`{"caller":%q,"collection":%q,"tokenId":0,"price":"-5","paymentToken":%q}`,
		sellerAddr.Hex(), veBtc.Hex(), entity.BtcAddress.Hex(),
	)
	resp = postJson(t, srv.URL+"/listings", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative price status = %d, want 400", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/no/such/route")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", resp.StatusCode)
	}
}
