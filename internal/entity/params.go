package entity

import "github.com/ethereum/go-ethereum/common"

// Payment tokens accepted at launch. Native BTC uses a fixed sentinel address
// rather than the zero address so "native payment" is distinguishable from
// "no payment token set".
var (
	BtcAddress  = common.HexToAddress("0x7b7C000000000000000000000000000000000000")
	MezoAddress = common.HexToAddress("0x7B7c000000000000000000000000000000000001")
)

const (
	// BpsDenominator is the basis-point scale used by fee and discount math.
	BpsDenominator uint64 = 10000

	// MaxProtocolFeeBps caps the protocol fee at 5%.
	MaxProtocolFeeBps uint64 = 500
)
