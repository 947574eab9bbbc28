// Command marketd is the marketplace daemon: it owns the DHT coordinator,
// the market facade, a ledger client, the wallet, and the supplier chunk server,
// and binds them together the way cmd/siad wires Sia's modules together.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/daminals/orcanet-go/build"
	"github.com/daminals/orcanet-go/config"
	"github.com/daminals/orcanet-go/dht"
	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/ledger"
	"github.com/daminals/orcanet-go/market"
	"github.com/daminals/orcanet-go/marketplace"
	"github.com/daminals/orcanet-go/transfer"
	"github.com/daminals/orcanet-go/wallet"
)

var log = logrus.New()

// exitCodeGeneral mirrors cmd/siac's sysexits.h-inspired exit code; specific
// codes beyond "0 success, nonzero failure" carry no further meaning.
const exitCodeGeneral = 1

func main() {
	// A missing .env is not an error: it only ever supplies optional
	// overrides (MARKETD_CONFIG, MARKETD_LEDGER_ADDR, MARKETD_HTTP_ADDR,
	// MARKETD_LOG_LEVEL).
	_ = godotenv.Load()

	if lvl, err := logrus.ParseLevel(envOr("MARKETD_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	if err := run(); err != nil {
		log.WithError(err).Error("marketd: fatal error")
		os.Exit(exitCodeGeneral)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run() error {
	configPath := envOr("MARKETD_CONFIG", "marketd.json")
	store, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := store.Get()
	log.WithFields(logrus.Fields{"version": build.Version, "listen_addr": cfg.ListenAddr}).Info("marketd: starting")

	ledgerAddr := envOr("MARKETD_LEDGER_ADDR", "http://127.0.0.1:9980")
	ledgerClient := ledger.NewClient(ledgerAddr)

	w, err := wallet.LoadOrGenerate(ledgerClient, cfg.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("loading wallet: %w", err)
	}
	log.WithField("wallet", w.Address()).Info("marketd: wallet ready")

	httpAddr := envOr("MARKETD_HTTP_ADDR", ":8080")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := dht.NewRegistry()
	dht.RegisterMarketplaceSchemas(registry)

	coord, host, kad, err := dht.NewHost(ctx, dht.HostConfig{
		ListenAddr:     cfg.ListenAddr,
		PrivateKey:     w.PrivateKey(),
		BootstrapPeers: cfg.BootstrapPeers,
	}, registry)
	if err != nil {
		return fmt.Errorf("starting DHT host: %w", err)
	}
	defer func() {
		if cerr := build.ComposeErrors(kad.Close(), host.Close()); cerr != nil {
			log.WithError(cerr).Warn("marketd: error during shutdown")
		}
	}()

	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("marketd: DHT coordinator stopped")
		}
	}()
	log.WithField("peer_id", host.ID().String()).Info("marketd: libp2p host ready")

	facade := market.New(coord, nil)
	marketServer := market.NewServer(facade)

	supplier := marketplace.Supplier{ID: w.Address(), Name: w.Address()}
	if _, port, splitErr := net.SplitHostPort(httpAddr); splitErr == nil {
		if p, convErr := strconv.Atoi(port); convErr == nil {
			supplier.Port = p
		}
	}

	catalog := transfer.NewMapCatalog()
	for _, f := range cfg.RegisteredFiles {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			log.WithError(statErr).WithField("path", f.Path).Warn("marketd: skipping unreadable registered file")
			continue
		}

		built, buildErr := fileinfo.BuildFileInfo(f.Path, transfer.DefaultChunkSize)
		if buildErr != nil {
			log.WithError(buildErr).WithField("path", f.Path).Warn("marketd: could not hash registered file, skipping it entirely")
			continue
		}
		hash := built.HashString()

		// The catalog is keyed by the hash actually computed here, not by
		// whatever FileInfoHash happened to be persisted in config, so a
		// consumer that discovers this file via CheckHolders always finds a
		// matching entry when it requests it from the chunk server.
		catalog.Add(hash, transfer.ServedFile{
			Path:       f.Path,
			Size:       info.Size(),
			Name:       info.Name(),
			PricePerMB: f.PricePerMB,
		})

		supplier.Price = f.PricePerMB
		if err := facade.RegisterFile(ctx, supplier, built, 0); err != nil {
			log.WithError(err).WithField("path", f.Path).Warn("marketd: could not advertise registered file in the DHT")
			continue
		}
		log.WithFields(logrus.Fields{"path": f.Path, "file_info_hash": hash}).Info("marketd: advertised file in DHT")
	}

	chunkServer := transfer.NewServer(catalog, ledgerClient, w.Address(), transfer.DefaultChunkSize)

	mux := http.NewServeMux()
	mux.Handle("/invoice/", chunkServer.Handler)
	mux.Handle("/file/", chunkServer.Handler)
	mux.Handle("/RegisterFile", marketServer.Handler)
	mux.Handle("/CheckHolders/", marketServer.Handler)

	log.WithField("addr", httpAddr).Info("marketd: http server listening")
	return serveHTTP(ctx, httpAddr, mux)
}
