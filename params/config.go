package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr        string
	CORSOrigins []string
}

type Store struct {
	// Path of the Pebble database holding balances and trade history.
	// Empty disables persistence (in-memory exchange).
	Path string
}

type Log struct {
	File string // empty logs to console only
}

type Market struct {
	// QuoteSymbol is the single asset all trades settle against.
	QuoteSymbol string
	// Tokens are the tradable symbols registered at startup.
	Tokens []string
}

type Config struct {
	HTTP   HTTP
	Store  Store
	Log    Log
	Market Market
}

func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Store: Store{
			Path: "data/dex.db",
		},
		Log: Log{
			File: "data/dex.log",
		},
		Market: Market{
			QuoteSymbol: "DAI",
			Tokens:      []string{"BAT", "REP", "ZRX"},
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.HTTP.CORSOrigins = splitList(origins)
	}
	if path, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Store.Path = path
	}
	if file, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Log.File = file
	}
	if quote := os.Getenv("QUOTE_SYMBOL"); quote != "" {
		cfg.Market.QuoteSymbol = quote
	}
	if tokens := os.Getenv("TRADE_TOKENS"); tokens != "" {
		cfg.Market.Tokens = splitList(tokens)
	}

	return cfg
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
