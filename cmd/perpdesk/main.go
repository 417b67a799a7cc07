package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/perpdesk/perpdesk/api"
	"github.com/perpdesk/perpdesk/bridge"
	"github.com/perpdesk/perpdesk/chains"
	"github.com/perpdesk/perpdesk/config"
	"github.com/perpdesk/perpdesk/deposit"
	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
	"github.com/perpdesk/perpdesk/marketdata"
	"github.com/perpdesk/perpdesk/position"
	"github.com/perpdesk/perpdesk/wallet"
)

func main() {
	// ── 1. Logger setup
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// ── 2. Root context setup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Bool("mainnet", cfg.IsMainnet).Msg("config loaded")

	// ── 4. Wallet (optional; without it the service is read-only)
	var signer *wallet.Wallet
	if cfg.PrivateKey != "" {
		signer, err = wallet.NewFromHex(cfg.PrivateKey)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid private key")
		}
		log.Info().Str("address", signer.HexAddress()).Msg("wallet loaded")
	} else {
		log.Warn().Msg("no private key configured, deposits and orders are disabled")
	}

	// ── 5. Exchange client
	hlURL := cfg.HyperliquidAPIURL
	if hlURL == "" && !cfg.IsMainnet {
		hlURL = hyperliquid.TestnetAPIURL
	}
	hlClient := hyperliquid.New(hyperliquid.Config{
		BaseURL: hlURL,
		Wallet:  signer,
	})

	// ── 6. Chain access + deposit adapter
	var (
		provider  wallet.Provider
		submitter deposit.Submitter
	)
	if len(cfg.RPCEndpoints) > 0 {
		initial := uint64(chains.ArbitrumID)
		if _, ok := cfg.RPCEndpoints[initial]; !ok {
			for id := range cfg.RPCEndpoints {
				initial = id
				break
			}
		}
		rpcProvider, err := wallet.NewRPCProvider(ctx, cfg.RPCEndpoints, initial)
		if err != nil {
			log.Fatal().Err(err).Msg("rpc provider setup failed")
		}
		provider = rpcProvider

		clients := make(map[uint64]*ethclient.Client, len(cfg.RPCEndpoints))
		for id, url := range cfg.RPCEndpoints {
			client, err := ethclient.DialContext(ctx, url)
			if err != nil {
				log.Fatal().Err(err).Uint64("chainId", id).Msg("rpc dial failed")
			}
			clients[id] = client
		}
		submitter = deposit.NewOnchainSubmitter(signer, clients, log.Logger)
	} else {
		log.Warn().Msg("no rpc endpoints configured, on-chain deposits are disabled")
	}

	var bridgeClient *bridge.Client
	if cfg.BridgeAPIURL != "" {
		bridgeClient, err = bridge.New(cfg.BridgeAPIURL, nil, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("bridge client setup failed")
		}
	}

	deposits := deposit.NewAdapter(signer, provider, bridgeClient, submitter, log.Logger)

	// ── 7. Position adapter
	positions := position.NewAdapter(hlClient, decimal.NewFromFloat(cfg.FallbackCollateral), log.Logger)

	// ── 8. Funding-rate poller
	sources := []marketdata.Source{
		marketdata.NewHyperliquidSource(hlClient),
		marketdata.NewAsterSource(cfg.AsterAPIURL, nil),
		marketdata.NewLighterSource(cfg.LighterAPIURL, nil),
	}
	poller := marketdata.NewPoller(sources, cfg.PollInterval, log.Logger)
	poller.Start(ctx)
	defer poller.Wait()

	// ── 9. Live mid stream
	wsURL := cfg.HyperliquidWSURL
	if wsURL == "" && !cfg.IsMainnet {
		wsURL = hyperliquid.TestnetWSURL
	}
	mids := hyperliquid.NewMidsStream(wsURL, log.Logger)
	mids.Start(ctx)
	defer mids.Wait()

	// ── 10. Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Perpdesk",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// ── 11. Routes
	api.SetupRoutes(app, api.Dependencies{
		Poller:    poller,
		Bridge:    bridgeClient,
		Deposits:  deposits,
		Positions: positions,
		Mids:      mids,
		IsMainnet: cfg.IsMainnet,
	})

	// ── 12. Graceful shutdown listener
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	// ── 13. Start server (blocking)
	log.Info().Str("port", cfg.AppPort).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}
