package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wyoo/dexcore/params"
	"github.com/wyoo/dexcore/pkg/api"
	"github.com/wyoo/dexcore/pkg/core/exchange"
	"github.com/wyoo/dexcore/pkg/core/ledger"
	"github.com/wyoo/dexcore/pkg/core/token"
	"github.com/wyoo/dexcore/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (console, plus a file when configured)
	var logger *zap.Logger
	var err error
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, zapcore.InfoLevel)
	} else {
		logger, err = util.NewLogger(zapcore.InfoLevel)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	// ---- Ledger: balances and trade history, pebble-backed ----
	var store *ledger.Store
	if cfg.Store.Path != "" {
		store, err = ledger.NewStore(cfg.Store.Path)
		if err != nil {
			sugar.Fatalw("store_open_failed", "path", cfg.Store.Path, "err", err)
		}
	}
	led, err := ledger.NewLedger(store, sugar)
	if err != nil {
		sugar.Fatalw("ledger_load_failed", "err", err)
	}
	defer led.Close()

	// ---- Engine ----
	registry := token.NewRegistry()
	ex := exchange.New(registry, led, sugar)

	if err := ex.RegisterToken(cfg.Market.QuoteSymbol, true); err != nil {
		sugar.Fatalw("quote_token_init_failed", "symbol", cfg.Market.QuoteSymbol, "err", err)
	}
	for _, sym := range cfg.Market.Tokens {
		if err := ex.RegisterToken(sym, false); err != nil {
			sugar.Fatalw("token_init_failed", "symbol", sym, "err", err)
		}
	}
	sugar.Infow("markets_initialized",
		"quote", cfg.Market.QuoteSymbol,
		"tokens", cfg.Market.Tokens,
		"state_hash", ex.StateHashHex())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(ex, sugar)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.HTTP.Addr)
		if err := apiServer.Start(cfg.HTTP.Addr, cfg.HTTP.CORSOrigins); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting_down")
}
