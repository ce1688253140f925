package repo

import (
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"

	"github.com/axiomesh/axiom-farm/pkg/types"
)

type Duration time.Duration

func (d *Duration) MarshalText() (text []byte, err error) {
	return []byte(time.Duration(*d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(x)
	return nil
}

func StringToTimeDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(Duration(5)) {
			return data, nil
		}

		d, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, err
		}
		return Duration(d), nil
	}
}

func (d *Duration) ToDuration() time.Duration {
	return time.Duration(*d)
}

func (d *Duration) String() string {
	return time.Duration(*d).String()
}

type Config struct {
	Network   Network   `mapstructure:"network" toml:"network"`
	Contracts Contracts `mapstructure:"contracts" toml:"contracts"`
	Tokens    Tokens    `mapstructure:"tokens" toml:"tokens"`
	Position  Position  `mapstructure:"position" toml:"position"`
	PriceFeed PriceFeed `mapstructure:"pricefeed" toml:"pricefeed"`
	Wallet    Wallet    `mapstructure:"wallet" toml:"wallet"`
	API       API       `mapstructure:"api" toml:"api"`
	Log       Log       `mapstructure:"log" toml:"log"`
}

type Network struct {
	ChainID     uint64 `mapstructure:"chain_id" toml:"chain_id"`
	RPCEndpoint string `mapstructure:"rpc_endpoint" toml:"rpc_endpoint"`
}

type Contracts struct {
	StakingRewards string `mapstructure:"staking_rewards" toml:"staking_rewards"`
	AmmSwap        string `mapstructure:"amm_swap" toml:"amm_swap"`
}

type TokenConfig struct {
	Symbol   string `mapstructure:"symbol" toml:"symbol"`
	Address  string `mapstructure:"address" toml:"address"`
	Decimals uint8  `mapstructure:"decimals" toml:"decimals"`
}

// ToToken resolves the config entry into an immutable token identity.
func (t TokenConfig) ToToken() types.Token {
	return types.Token{
		Symbol:   t.Symbol,
		Address:  common.HexToAddress(t.Address),
		Decimals: t.Decimals,
	}
}

type Tokens struct {
	Staking TokenConfig `mapstructure:"staking" toml:"staking"`
	Reward  TokenConfig `mapstructure:"reward" toml:"reward"`
}

type Position struct {
	Account      string   `mapstructure:"account" toml:"account"`
	PollInterval Duration `mapstructure:"poll_interval" toml:"poll_interval"`
	// expiry, prices and valuations change far less often than balances
	QuoteRefresh Duration `mapstructure:"quote_refresh" toml:"quote_refresh"`
}

type PriceFeed struct {
	Endpoint  string   `mapstructure:"endpoint" toml:"endpoint"`
	Timeout   Duration `mapstructure:"timeout" toml:"timeout"`
	CacheSize int      `mapstructure:"cache_size" toml:"cache_size"`
	CacheTTL  Duration `mapstructure:"cache_ttl" toml:"cache_ttl"`
}

type Wallet struct {
	// hex-encoded secp256k1 key for the submitting account; production
	// deployments inject it via AXIOM_FARM_WALLET_PRIVATE_KEY
	PrivateKey string `mapstructure:"private_key" toml:"private_key"`
}

type API struct {
	Enable             bool     `mapstructure:"enable" toml:"enable"`
	Port               int64    `mapstructure:"port" toml:"port"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

type Log struct {
	Level  string    `mapstructure:"level" toml:"level"`
	Module LogModule `mapstructure:"module" toml:"module"`
}

type LogModule struct {
	App          string `mapstructure:"app" toml:"app"`
	Position     string `mapstructure:"position" toml:"position"`
	Yield        string `mapstructure:"yield" toml:"yield"`
	Gate         string `mapstructure:"gate" toml:"gate"`
	Orchestrator string `mapstructure:"orchestrator" toml:"orchestrator"`
	PriceFeed    string `mapstructure:"pricefeed" toml:"pricefeed"`
	Chain        string `mapstructure:"chain" toml:"chain"`
	Tracker      string `mapstructure:"tracker" toml:"tracker"`
	API          string `mapstructure:"api" toml:"api"`
}

func defaultConfig() *Config {
	return &Config{
		Network: Network{
			ChainID:     1,
			RPCEndpoint: "http://127.0.0.1:8545",
		},
		Tokens: Tokens{
			Staking: TokenConfig{Symbol: "LP", Decimals: 18},
			Reward:  TokenConfig{Symbol: "RWD", Decimals: 18},
		},
		Position: Position{
			PollInterval: Duration(5 * time.Second),
			QuoteRefresh: Duration(10 * time.Minute),
		},
		PriceFeed: PriceFeed{
			Timeout:   Duration(10 * time.Second),
			CacheSize: 64,
			CacheTTL:  Duration(10 * time.Minute),
		},
		API: API{
			Enable:             true,
			Port:               8881,
			CORSAllowedOrigins: []string{"*"},
		},
		Log: Log{
			Level: "info",
			Module: LogModule{
				App:          "info",
				Position:     "info",
				Yield:        "info",
				Gate:         "info",
				Orchestrator: "info",
				PriceFeed:    "info",
				Chain:        "info",
				Tracker:      "info",
				API:          "info",
			},
		},
	}
}
