package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-nft-escrow/internal/config"
	"github.com/tdex-network/tdex-nft-escrow/internal/core/application"
	custodyinmemory "github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/custody/inmemory"
	"github.com/tdex-network/tdex-nft-escrow/internal/infrastructure/pubsub"
	httpinterface "github.com/tdex-network/tdex-nft-escrow/internal/interfaces/http"
)

// devFaucet exposes the in-memory registry and ledger to the dev endpoints.
type devFaucet struct {
	*custodyinmemory.Registry
	*custodyinmemory.Ledger
}

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(config.GetLogLevel())

	var (
		port           = config.GetInt(config.ListeningPortKey)
		dbType         = config.GetString(config.DBTypeKey)
		custodyAddress = config.GetString(config.CustodyAddressKey)
		enableFaucet   = config.GetBool(config.EnableDevFaucetKey)
	)

	var dbDir string
	if dbType == application.DBBadger {
		dbDir = config.GetDbDir()
	}

	registry, err := custodyinmemory.NewRegistry(custodyAddress)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize asset custody")
	}
	ledger, err := custodyinmemory.NewLedger(custodyAddress)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize currency bank")
	}

	pubsubSvc, err := pubsub.NewService(
		dbDir, config.GetWebhookTimeout(),
		config.GetInt(config.WebhookRateLimitKey), log.New(),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize pubsub service")
	}

	appConfig := &application.Config{
		DBType:           dbType,
		DBConfig:         dbDir,
		AssetCustody:     registry,
		CurrencyBank:     ledger,
		PubSub:           pubsubSvc,
		MinTradeDuration: config.GetInt64(config.MinTradeDurationKey),
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}

	opts := httpinterface.ServiceOpts{
		Port:          port,
		EscrowSvc:     appConfig.EscrowService(),
		WebhookSvc:    appConfig.PubSubService(),
		EnableMetrics: config.GetBool(config.EnableMetricsKey),
	}
	if enableFaucet {
		log.Warn("dev faucet endpoints are enabled")
		opts.Faucet = devFaucet{registry, ledger}
	}

	svc, err := httpinterface.NewService(opts)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize http interface")
	}

	log.RegisterExitHandler(func() {
		appConfig.EscrowService().Close()
		appConfig.PubSubService().Close()
		appConfig.RepoManager().Close()
	})

	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start daemon")
	}
	log.Info("escrow daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down daemon")
	svc.Stop()
	appConfig.EscrowService().Close()
	appConfig.PubSubService().Close()
	appConfig.RepoManager().Close()
	log.Info("daemon stopped")
}
