package di

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/adapter"
	"github.com/prajalsharma/venft-marketplace/internal/admin"
	"github.com/prajalsharma/venft-marketplace/internal/api"
	"github.com/prajalsharma/venft-marketplace/internal/config"
	"github.com/prajalsharma/venft-marketplace/internal/event"
	"github.com/prajalsharma/venft-marketplace/internal/ledger"
	"github.com/prajalsharma/venft-marketplace/internal/marketplace"
	"github.com/prajalsharma/venft-marketplace/internal/mezo"
	"github.com/prajalsharma/venft-marketplace/internal/router"
)

// Lock duration ceilings for the two collections, used for voting-power
// decay in the ledger-backed escrows.
const (
	veBtcMaxLock  = 28 * 24 * 60 * 60
	veMezoMaxLock = 1456 * 24 * 60 * 60
)

var Definitions = []di.Def{
	{
		Name: "events",
		Build: func(ctn di.Container) (interface{}, error) {
			return event.NewManager(), nil
		},
	},
	{
		Name: "cache",
		Build: func(ctn di.Container) (interface{}, error) {
			ttl := time.Duration(config.Get().Mezo.CacheTtl) * time.Second
			return cache.New(ttl, 10*time.Minute), nil
		},
	},
	{
		Name: "ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			l := ledger.New(ctn.Get("events").(*event.Manager))

			l.RegisterToken(common.HexToAddress(cfg.Router.Musd), "MUSD Stablecoin", "MUSD", 18)
			l.RegisterCollection(common.HexToAddress(cfg.Collections.VeBtc), "veBTC", "veBTC", veBtcMaxLock)
			l.RegisterCollection(common.HexToAddress(cfg.Collections.VeMezo), "veMEZO", "veMEZO", veMezoMaxLock)

			return l, nil
		},
	},
	{
		Name: "mezo.client",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			return mezo.Dial(cfg.Mezo.Url, time.Duration(cfg.Mezo.Timeout)*time.Second)
		},
	},
	{
		Name: "adapter",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			l := ctn.Get("ledger").(*ledger.Ledger)

			veBtc := common.HexToAddress(cfg.Collections.VeBtc)
			veMezo := common.HexToAddress(cfg.Collections.VeMezo)

			// Live mode values positions from the real lock contracts; the
			// default values them from the in-process ledger.
			if cfg.Mezo.Live {
				client := ctn.Get("mezo.client").(*ethclient.Client)
				reads := ctn.Get("cache").(*cache.Cache)
				timeout := time.Duration(cfg.Mezo.Timeout) * time.Second

				btcEscrow, err := mezo.NewEscrowGateway(client, veBtc, timeout, reads)
				if err != nil {
					return nil, err
				}
				mezoEscrow, err := mezo.NewEscrowGateway(client, veMezo, timeout, reads)
				if err != nil {
					return nil, err
				}

				return adapter.NewService(veBtc, veMezo, btcEscrow, mezoEscrow, l.Now)
			}

			return adapter.NewService(veBtc, veMezo, l.EscrowView(veBtc), l.EscrowView(veMezo), l.Now)
		},
	},
	{
		Name: "router",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()

			return router.NewService(
				ctn.Get("ledger").(*ledger.Ledger),
				ctn.Get("events").(*event.Manager),
				common.HexToAddress(cfg.Router.Address),
				common.HexToAddress(cfg.Router.FeeRecipient),
				common.HexToAddress(cfg.Router.Admin),
				common.HexToAddress(cfg.Router.Musd),
				cfg.Router.ProtocolFeeBps,
			)
		},
	},
	{
		Name: "admin",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()
			adminAddr := common.HexToAddress(cfg.Router.Admin)

			adminService, err := admin.NewService(
				ctn.Get("events").(*event.Manager),
				adminAddr,
				cfg.Network != "mainnet",
				common.HexToAddress(cfg.Collections.VeBtc),
				common.HexToAddress(cfg.Collections.VeMezo),
			)
			if err != nil {
				return nil, err
			}

			if err := adminService.SetPaymentRouter(adminAddr, ctn.Get("router").(router.Service)); err != nil {
				return nil, err
			}

			return adminService, nil
		},
	},
	{
		Name: "marketplace",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()

			return marketplace.NewService(
				ctn.Get("ledger").(*ledger.Ledger),
				ctn.Get("adapter").(adapter.Service),
				ctn.Get("admin").(admin.Service),
				ctn.Get("events").(*event.Manager),
				common.HexToAddress(cfg.MarketplaceAddress),
			), nil
		},
	},
	{
		Name: "api",
		Build: func(ctn di.Container) (interface{}, error) {
			return api.NewServer(
				ctn.Get("marketplace").(marketplace.Service),
				ctn.Get("adapter").(adapter.Service),
			), nil
		},
	},
}

// NewContainer builds the runtime container from the definitions above.
func NewContainer() (di.Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container definitions")
	}

	return builder.Build(), nil
}
