package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ksred/coinkong/internal/types"
)

// Settings is the startup configuration read from the environment and an
// optional config file. Runtime-mutable values are copied into a Store.
type Settings struct {
	Env   string
	Debug bool
	Port  string

	// Consumed by the chat gateway, not by the swap core
	BotToken string
	ClientID string
	OwnerID  string

	JWTSecret        string
	GatewayAPIKey    string
	GatewayAPISecret string

	DefaultFeePercent float64
	MinimumSwapUSD    float64
	SupportContact    string

	InitiationDelay   time.Duration
	DexDelay          time.Duration
	ConfirmationDelay time.Duration
	SuccessRate       float64
	DexFailureRate    float64
	ShutdownTimeout   time.Duration

	JournalDSN string

	Tokens []types.Token
	Dexes  []types.Dex
}

// DefaultTokens is the supported-token list the bot ships with
var DefaultTokens = []types.Token{
	{Symbol: "BTC", Name: "Bitcoin", Network: "Bitcoin"},
	{Symbol: "ETH", Name: "Ethereum", Network: "Ethereum"},
	{Symbol: "LTC", Name: "Litecoin", Network: "Litecoin"},
	{Symbol: "XRP", Name: "Ripple", Network: "Ripple"},
	{Symbol: "SOL", Name: "Solana", Network: "Solana"},
	{Symbol: "DOGE", Name: "Dogecoin", Network: "Dogecoin"},
	{Symbol: "BCH", Name: "Bitcoin Cash", Network: "Bitcoin Cash"},
	{Symbol: "XMR", Name: "Monero", Network: "Monero"},
	{Symbol: "TRX", Name: "Tron", Network: "Tron"},
}

// DefaultDexes is the exchange list swaps are routed across
var DefaultDexes = []types.Dex{
	{Name: "SideShift", URL: "https://sideshift.ai/api"},
	{Name: "Exolix", URL: "https://exolix.com/api"},
	{Name: "1inch", URL: "https://api.1inch.io"},
	{Name: "Uniswap", URL: "https://api.uniswap.org"},
	{Name: "PancakeSwap", URL: "https://api.pancakeswap.info"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("debug", false)
	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "coinkong-secret-key")
	v.SetDefault("gateway_api_key", "gateway-api-key")
	v.SetDefault("gateway_api_secret", "gateway-api-secret")
	v.SetDefault("default_fee", 0.5)
	v.SetDefault("minimum_swap_usd", 1.0)
	v.SetDefault("support_contact", "For support, contact @bammity on Telegram")
	v.SetDefault("initiation_delay", 5*time.Second)
	v.SetDefault("dex_delay", 2*time.Second)
	v.SetDefault("confirmation_delay", 10*time.Second)
	v.SetDefault("success_rate", 0.9)
	v.SetDefault("dex_failure_rate", 0.0)
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("journal_dsn", "")
}

// Load reads .env (if present), the optional coinkong.yaml file and
// COINKONG_* environment variables. The bot credentials keep their
// conventional unprefixed names.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	v := viper.New()
	v.SetConfigName("coinkong")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	setDefaults(v)

	v.SetEnvPrefix("COINKONG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"bot_token": "DISCORD_BOT_TOKEN",
		"client_id": "DISCORD_CLIENT_ID",
		"owner_id":  "OWNER_ID",
		"port":      "PORT",
		"env":       "ENV",
		"debug":     "DEBUG",
	} {
		if err := v.BindEnv(key, "COINKONG_"+strings.ToUpper(key), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Env:               v.GetString("env"),
		Debug:             v.GetBool("debug"),
		Port:              v.GetString("port"),
		BotToken:          v.GetString("bot_token"),
		ClientID:          v.GetString("client_id"),
		OwnerID:           v.GetString("owner_id"),
		JWTSecret:         v.GetString("jwt_secret"),
		GatewayAPIKey:     v.GetString("gateway_api_key"),
		GatewayAPISecret:  v.GetString("gateway_api_secret"),
		DefaultFeePercent: v.GetFloat64("default_fee"),
		MinimumSwapUSD:    v.GetFloat64("minimum_swap_usd"),
		SupportContact:    v.GetString("support_contact"),
		InitiationDelay:   v.GetDuration("initiation_delay"),
		DexDelay:          v.GetDuration("dex_delay"),
		ConfirmationDelay: v.GetDuration("confirmation_delay"),
		SuccessRate:       v.GetFloat64("success_rate"),
		DexFailureRate:    v.GetFloat64("dex_failure_rate"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		JournalDSN:        v.GetString("journal_dsn"),
		Tokens:            DefaultTokens,
		Dexes:             DefaultDexes,
	}

	if v.IsSet("tokens") {
		var tokens []types.Token
		if err := v.UnmarshalKey("tokens", &tokens); err != nil {
			return nil, fmt.Errorf("failed to decode tokens: %w", err)
		}
		s.Tokens = tokens
	}
	if v.IsSet("dexes") {
		var dexes []types.Dex
		if err := v.UnmarshalKey("dexes", &dexes); err != nil {
			return nil, fmt.Errorf("failed to decode dexes: %w", err)
		}
		s.Dexes = dexes
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks ranges that would otherwise surface as odd runtime behaviour
func (s *Settings) Validate() error {
	if !within(s.DefaultFeePercent, 0, 100) {
		return fmt.Errorf("default fee %.4f outside 0-100", s.DefaultFeePercent)
	}
	if !within(s.MinimumSwapUSD, 0, math.MaxFloat64) {
		return fmt.Errorf("minimum swap amount must not be negative")
	}
	if !within(s.SuccessRate, 0, 1) {
		return fmt.Errorf("success rate %.4f outside 0-1", s.SuccessRate)
	}
	if !within(s.DexFailureRate, 0, 1) {
		return fmt.Errorf("dex failure rate %.4f outside 0-1", s.DexFailureRate)
	}
	if len(s.Tokens) < 2 {
		return fmt.Errorf("at least two supported tokens are required")
	}
	if len(s.Dexes) == 0 {
		return fmt.Errorf("at least one dex is required")
	}
	if s.OwnerID == "" {
		log.Warn().Msg("owner ID not configured, owner commands are disabled")
	}
	return nil
}

// within is false for NaN
func within(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// IsProduction reports whether console logging should be disabled
func (s *Settings) IsProduction() bool {
	return s.Env == "production"
}
