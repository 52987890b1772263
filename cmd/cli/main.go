package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/admin"
	"github.com/prajalsharma/venft-marketplace/internal/config"
	"github.com/prajalsharma/venft-marketplace/internal/config/di"
	"github.com/prajalsharma/venft-marketplace/internal/marketplace"
	"github.com/prajalsharma/venft-marketplace/internal/router"
)

var (
	adminService       admin.Service
	routerService      router.Service
	marketplaceService marketplace.Service
	adminAddr          common.Address
)

func main() {
	config.Init()

	container, err := di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	adminService = container.Get("admin").(admin.Service)
	routerService = container.Get("router").(router.Service)
	marketplaceService = container.Get("marketplace").(marketplace.Service)
	adminAddr = common.HexToAddress(config.Get().Router.Admin)

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "pause",
				Usage:  "Engage the marketplace circuit breaker",
				Action: pause,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reason", Value: "", Usage: "why the marketplace is pausing"},
				},
			},
			{
				Name:   "unpause",
				Usage:  "Release the circuit breaker",
				Action: unpause,
			},
			{
				Name:   "set-fee",
				Usage:  "Update the protocol fee (basis points, max 500)",
				Action: setFee,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "bps", Required: true},
				},
			},
			{
				Name:   "set-fee-recipient",
				Usage:  "Update the protocol fee recipient",
				Action: setFeeRecipient,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true},
				},
			},
			{
				Name:   "set-token-support",
				Usage:  "Add or remove a payment token",
				Action: setTokenSupport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Required: true},
					&cli.BoolFlag{Name: "supported", Value: true},
				},
			},
			{
				Name:   "add-collection",
				Usage:  "Approve an NFT collection for listing",
				Action: addCollection,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true},
				},
			},
			{
				Name:   "floor",
				Usage:  "Show the floor price for a collection/payment-token pair",
				Action: floor,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Required: true},
					&cli.StringFlag{Name: "token", Required: true},
				},
			},
			{
				Name:   "listings",
				Usage:  "Show active listings for a collection",
				Action: listings,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Required: true},
					&cli.Uint64Flag{Name: "offset", Value: 0},
					&cli.Uint64Flag{Name: "limit", Value: 25},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start CLI")
	}
}

func pause(c *cli.Context) error {
	return adminService.EmergencyPause(adminAddr, c.String("reason"))
}

func unpause(c *cli.Context) error {
	return adminService.Unpause(adminAddr)
}

func setFee(c *cli.Context) error {
	return routerService.SetProtocolFee(adminAddr, c.Uint64("bps"))
}

func setFeeRecipient(c *cli.Context) error {
	return routerService.SetFeeRecipient(adminAddr, common.HexToAddress(c.String("address")))
}

func setTokenSupport(c *cli.Context) error {
	return routerService.SetTokenSupport(adminAddr, common.HexToAddress(c.String("token")), c.Bool("supported"))
}

func addCollection(c *cli.Context) error {
	return adminService.AddCollection(adminAddr, common.HexToAddress(c.String("address")))
}

func floor(c *cli.Context) error {
	price := marketplaceService.GetFloorPrice(
		common.HexToAddress(c.String("collection")),
		common.HexToAddress(c.String("token")),
	)

	fmt.Println(price.String())

	return nil
}

func listings(c *cli.Context) error {
	page, total := marketplaceService.GetActiveListings(
		common.HexToAddress(c.String("collection")),
		c.Uint64("offset"),
		c.Uint64("limit"),
	)

	for _, listing := range page {
		fmt.Printf("%d\t%s\t%d\t%s\t%s\n",
			listing.Id, listing.Seller.Hex(), listing.TokenId, listing.Price.String(), listing.PaymentToken.Hex())
	}
	fmt.Printf("total: %d\n", total)

	return nil
}
