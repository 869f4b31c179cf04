// The gateway command runs the BlueCarbon registry REST API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/bluecarbon-registry/gateway/internal/chain"
	"github.com/bluecarbon-registry/gateway/internal/config"
	"github.com/bluecarbon-registry/gateway/internal/httpapi"
	"github.com/bluecarbon-registry/gateway/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err == nil {
		logger.Info("loaded .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.NewStore(ctx, store.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDB,
	})
	if err != nil {
		logger.WithError(err).Fatal("connect document store")
	}
	defer repo.Close(context.Background())
	logger.WithField("database", cfg.MongoDB).Info("document store connected")

	// The chain client is constructed once at startup and passed down
	// explicitly; a nil ledger means chain-backed routes answer 503.
	var ledger httpapi.Ledger
	if cfg.ChainEnabled {
		client, err := chain.NewClient(chain.Config{
			RPCURL:          cfg.RPCURL,
			ChainID:         cfg.ChainID,
			ContractAddress: cfg.ContractAddress,
		})
		if err != nil {
			logger.WithError(err).Fatal("create chain client")
		}
		ledger = client
		logger.WithFields(logrus.Fields{
			"network":  cfg.NetworkName,
			"contract": client.ContractAddress(),
		}).Info("chain client ready")
	} else {
		logger.Warn("blockchain client disabled; ledger routes will answer 503")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := httpapi.NewHandler(cfg, ledger, repo, logger)
	router := httpapi.NewRouter(handler, reg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
