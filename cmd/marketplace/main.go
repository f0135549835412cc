package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/AayushJain09/Polyplace/internal/config"
	"github.com/AayushJain09/Polyplace/internal/domain"
	"github.com/AayushJain09/Polyplace/internal/infrastructure/contract"
	"github.com/AayushJain09/Polyplace/internal/infrastructure/httpserver"
	"github.com/AayushJain09/Polyplace/internal/infrastructure/metadata"
	"github.com/AayushJain09/Polyplace/internal/infrastructure/pinning"
	"github.com/AayushJain09/Polyplace/internal/infrastructure/wallet"
	"github.com/AayushJain09/Polyplace/internal/service"
	"github.com/AayushJain09/Polyplace/shared/logging"
	"github.com/AayushJain09/Polyplace/shared/monitoring"
	"github.com/AayushJain09/Polyplace/shared/recovery"
)

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:     logging.LogLevel(cfg.LogLevel),
		Service:   "marketplace",
		PrettyLog: cfg.Environment == "development",
	})

	if err := monitoring.InitSentry(monitoring.SentryConfig{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		ServiceName: "marketplace",
	}); err != nil {
		logger.WithError(err).Warn("sentry init failed, continuing without error reporting")
	}
	defer monitoring.Flush(2 * time.Second)

	ethClient, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to connect to chain RPC: %v", err)
	}
	defer ethClient.Close()

	reader, err := contract.NewReader(ethClient, cfg.Chain.ContractAddress)
	if err != nil {
		log.Fatalf("Failed to create contract gateway: %v", err)
	}
	writers := func(signer domain.TxSigner) domain.MarketWriter {
		return contract.NewWriter(reader, signer)
	}

	market := service.NewMarketplaceService(
		wallet.NewSession(cfg.Wallet, cfg.Chain.ChainID),
		pinning.NewPinataClient(cfg.Pinata),
		reader,
		writers,
		metadata.NewClient(),
		logger,
		service.Options{},
	)
	market.Initialize(context.Background())

	server := httpserver.NewServer(cfg.HTTPAddr, market, logger)

	recovery.NewPanicHandler(logger).Go(func() {
		if err := server.ListenAndServe(); err != nil {
			logger.WithError(err).Fatal("http server failed")
		}
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
