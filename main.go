// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/votechain/auth"
	"github.com/danielhkuo/votechain/cliparse"
	"github.com/danielhkuo/votechain/db"
	"github.com/danielhkuo/votechain/indexer"
	"github.com/danielhkuo/votechain/middleware"
	"github.com/danielhkuo/votechain/reconcile"
	"github.com/danielhkuo/votechain/router"
	"github.com/danielhkuo/votechain/votechain"
	"github.com/danielhkuo/votechain/wallet"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the database and create the schema
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbConn, err := db.Open(ctx, dialect, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()
	slog.Info("Database schema ready", "dialect", dialect)

	// Indexer backend
	var (
		idx  reconcile.Indexer
		ping func(ctx context.Context) error
	)
	switch cfg.IndexerBackend {
	case cliparse.BackendSQL:
		idx = db.NewEventStore(dbConn, dialect)
		ping = dbConn.PingContext
		slog.Info("Using SQL event store as indexer")
	default:
		client := indexer.New(indexer.Config{URL: cfg.IndexerURL})
		idx = client
		ping = client.Ping
		slog.Info("Using subgraph indexer", "url", cfg.IndexerURL)
	}

	// Wallet host
	host := wallet.NewDialHost(wallet.DialConfig{
		InjectedURL:   cfg.WalletRPCURL,
		NativeBrowser: cfg.NativeBrowser,
		NativeWallet:  cfg.NativeWallet,
		RelayURL:      cfg.PairingRelayURL,
	})
	defer host.Close()

	adapter := wallet.NewAdapter(host, wallet.PairingOptions{
		ProjectID: cfg.PairingProjectID,
		Chains:    cfg.SupportedChains,
		Metadata: wallet.AppMetadata{
			Name:        "VoteChain",
			Description: "Decentralized voting on Ethereum",
			URL:         "https://votechain.app",
		},
	}, cfg.PairingTimeout)

	svc := votechain.New(votechain.Config{
		Connector:       adapter,
		Indexer:         idx,
		Bookmarks:       db.NewBookmarks(dbConn, dialect),
		ContractAddress: cfg.ContractAddress,
		SupportedChains: cfg.SupportedChains,
	})

	// Create router
	mux := router.NewRouter(svc, cfg, ping)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc.Close(ctx)
		server.Close()
	}()

	operatorKey := auth.GenerateAPIKey(auth.OperatorScope, cfg.APIKeySalt)
	if cfg.PrintOperatorKey {
		fmt.Fprintf(os.Stderr, "operator key: %s\n", operatorKey)
	}

	// Start server
	slog.Info("Listening",
		"port", cfg.Port,
		"contract", cfg.ContractAddress.Hex(),
		"chains", cfg.SupportedChains,
		"operator_key_fingerprint", auth.KeyFingerprint(operatorKey),
	)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
