package config

import (
	"math/big"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/log"
)

type Config struct {
	Env     string
	Network string
	Debug   bool
	LogPath string
	ApiPort string

	MarketplaceAddress string

	Router      RouterConfig
	Collections CollectionsConfig
	Mezo        MezoConfig
}

type RouterConfig struct {
	Address        string
	FeeRecipient   string
	Admin          string
	Musd           string
	ProtocolFeeBps uint64
}

type CollectionsConfig struct {
	VeBtc  string
	VeMezo string
}

type MezoConfig struct {
	Url      string
	Timeout  int
	CacheTtl int
	Live     bool
}

// Testnet defaults mirror the Mezo testnet deployment (chain id 31611).
const (
	musdTestnet   = "0x118917a40FAF1CD7a13dB0Ef56C86De7973Ac503"
	veBtcTestnet  = "0x38E35d92E6Bfc6787272A62345856B13eA12130a"
	veMezoTestnet = "0xaCE816CA2bcc9b12C59799dcC5A959Fb9b98111b"
)

func Init() {
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Unable to load .env, using environment")
	}

	initLogger()
}

func initLogger() {
	log.NewLogger(Get().LogPath, Get().Debug)
}

func Get() *Config {
	return &Config{
		Env:     getString("ENV", ""),
		Network: getString("NETWORK", "testnet"),
		Debug:   getBool("DEBUG", false),
		LogPath: getString("LOG_PATH", "./var/marketd.log"),
		ApiPort: getString("API_PORT", "8080"),

		// The engine's own settlement accounts. Labels inside the ledger, in
		// the positions the deployed contract addresses occupy on chain.
		MarketplaceAddress: getString("MARKETPLACE_ADDRESS", "0x00000000000000000000000000000000000000A2"),
		Router: RouterConfig{
			Address:        getString("ROUTER_ADDRESS", "0x00000000000000000000000000000000000000A1"),
			FeeRecipient:   getString("FEE_RECIPIENT", ""),
			Admin:          getString("ADMIN_ADDRESS", ""),
			Musd:           getString("MUSD_ADDRESS", musdTestnet),
			ProtocolFeeBps: getUint64("PROTOCOL_FEE_BPS", 100),
		},
		Collections: CollectionsConfig{
			VeBtc:  getString("VEBTC_ADDRESS", veBtcTestnet),
			VeMezo: getString("VEMEZO_ADDRESS", veMezoTestnet),
		},
		Mezo: MezoConfig{
			Url:      getString("MEZO_RPC_URL", "https://rpc.test.mezo.org"),
			Timeout:  getInt("MEZO_RPC_TIMEOUT", 30),
			CacheTtl: getInt("MEZO_CACHE_TTL", 5),
			Live:     getBool("MEZO_LIVE", false),
		},
	}
}

func getString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getInt(key string, defaultValue int) int {
	valStr := getString(key, "")
	val, _, err := big.ParseFloat(valStr, 10, 0, big.ToNearestEven)
	if err != nil {
		return defaultValue
	}

	intVal, _ := val.Int64()
	return int(intVal)
}

func getUint64(key string, defaultValue uint) uint64 {
	return uint64(getInt(key, int(defaultValue)))
}

func getBool(key string, defaultValue bool) bool {
	valStr := getString(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultValue
}
