package mezo

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// EscrowGateway reads one VotingEscrow lock contract over JSON-RPC. It
// implements the adapter's VotingEscrow surface, so the same marketplace core
// runs against the in-process ledger or a live chain. Reads go through a
// short-TTL cache; lock state only changes on chain transactions, so a few
// seconds of staleness is acceptable for display reads.
type EscrowGateway struct {
	client      *ethclient.Client
	contract    common.Address
	contractABI abi.ABI
	timeout     time.Duration
	reads       *cache.Cache
}

// Dial connects to the chain RPC endpoint with a retrying HTTP client.
func Dial(url string, timeout time.Duration) (*ethclient.Client, error) {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 3

	rpcClient, err := rpc.DialOptions(context.Background(), url, rpc.WithHTTPClient(retryClient.StandardClient()))
	if err != nil {
		return nil, err
	}

	zap.L().With(zap.String("url", url)).Info("Connected to Mezo RPC")

	return ethclient.NewClient(rpcClient), nil
}

func NewEscrowGateway(client *ethclient.Client, contract common.Address, timeout time.Duration, reads *cache.Cache) (*EscrowGateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(VotingEscrowABI))
	if err != nil {
		return nil, err
	}

	return &EscrowGateway{
		client:      client,
		contract:    contract,
		contractABI: parsedABI,
		timeout:     timeout,
		reads:       reads,
	}, nil
}

func (g *EscrowGateway) Contract() common.Address {
	return g.contract
}

// Locked returns the position's principal and lock end.
func (g *EscrowGateway) Locked(tokenId uint64) (*big.Int, uint64, error) {
	type lockedResult struct {
		amount *big.Int
		end    uint64
	}

	cacheKey := fmt.Sprintf("locked.%s.%d", g.contract.Hex(), tokenId)
	if cached, found := g.reads.Get(cacheKey); found {
		result := cached.(lockedResult)
		return new(big.Int).Set(result.amount), result.end, nil
	}

	out, err := g.call("locked", new(big.Int).SetUint64(tokenId))
	if err != nil {
		return nil, 0, err
	}

	amount := abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	end := abi.ConvertType(out[1], new(big.Int)).(*big.Int)

	result := lockedResult{amount: amount, end: end.Uint64()}
	g.reads.Set(cacheKey, result, cache.DefaultExpiration)

	return new(big.Int).Set(amount), result.end, nil
}

// VotingPower returns the position's current decayed voting weight.
func (g *EscrowGateway) VotingPower(tokenId uint64) (*big.Int, error) {
	cacheKey := fmt.Sprintf("power.%s.%d", g.contract.Hex(), tokenId)
	if cached, found := g.reads.Get(cacheKey); found {
		return new(big.Int).Set(cached.(*big.Int)), nil
	}

	out, err := g.call("balanceOfNFT", new(big.Int).SetUint64(tokenId))
	if err != nil {
		return nil, err
	}

	power := abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	g.reads.Set(cacheKey, power, cache.DefaultExpiration)

	return new(big.Int).Set(power), nil
}

// OwnerOf returns the position's current owner. Never cached: ownership is
// the authoritative purchase-time check.
func (g *EscrowGateway) OwnerOf(tokenId uint64) (common.Address, error) {
	out, err := g.call("ownerOf", new(big.Int).SetUint64(tokenId))
	if err != nil {
		return common.Address{}, err
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (g *EscrowGateway) call(method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	msg := ethereum.CallMsg{To: &g.contract, Data: data}

	result, err := g.client.CallContract(ctx, msg, nil)
	if err != nil {
		zap.L().With(
			zap.String("contract", g.contract.Hex()),
			zap.String("method", method),
			zap.Error(err),
		).Error("Escrow call failed")
		return nil, err
	}

	return g.contractABI.Unpack(method, result)
}
