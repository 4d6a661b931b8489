package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/chain/bitcoin"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/engine"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/store/sqlite"
	"github.com/goodnatureofminers/blockinsight7000-indexer/internal/transport"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type config struct {
	DBPath          string        `long:"db" env:"INDEXER_DB" description:"path to the SQLite index database" default:"indexer.db"`
	Network         string        `long:"network" env:"INDEXER_NETWORK" description:"chain network (mainnet, testnet3, signet, regtest)" required:"true"`
	RPCURL          string        `long:"rpc-url" env:"INDEXER_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser         string        `long:"rpc-user" env:"INDEXER_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword     string        `long:"rpc-password" env:"INDEXER_RPC_PASSWORD" description:"Bitcoin RPC password"`
	RPCRateLimit    int           `long:"rpc-rate-limit" env:"INDEXER_RPC_RATE_LIMIT" description:"max RPC requests per second, 0 for unlimited" default:"0"`
	HTTPAddr        string        `long:"http-addr" env:"INDEXER_HTTP_ADDR" description:"address for the API and metrics server" default:":8080"`
	SyncInterval    time.Duration `long:"sync-interval" env:"INDEXER_SYNC_INTERVAL" description:"pause between sync cycles" default:"10s"`
	MempoolInterval time.Duration `long:"mempool-interval" env:"INDEXER_MEMPOOL_INTERVAL" description:"pause between mempool reconciliations" default:"30s"`
	MaxReorgDepth   uint64        `long:"max-reorg-depth" env:"INDEXER_MAX_REORG_DEPTH" description:"deepest reorg resolved before halting" default:"100"`
	BlocksPerCycle  uint64        `long:"blocks-per-cycle" env:"INDEXER_BLOCKS_PER_CYCLE" description:"max blocks applied per cycle, 0 for unlimited" default:"0"`
	FetchWorkers    int           `long:"fetch-workers" env:"INDEXER_FETCH_WORKERS" description:"concurrent block fetches" default:"8"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("indexer failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	st, err := sqlite.Open(cfg.DBPath, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open index database: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close index database", zap.Error(err))
		}
	}()

	// A crash mid-cycle leaves the writer flag set. This process is the only
	// writer on the database, so a set flag at boot is always stale.
	if err := st.ReleaseSync(ctx); err != nil {
		return fmt.Errorf("clear stale sync flag: %w", err)
	}

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()

	decoder, err := bitcoin.NewScriptDecoder(cfg.Network)
	if err != nil {
		return fmt.Errorf("init script decoder: %w", err)
	}
	source := bitcoin.NewSource(
		bitcoin.NewClient(rpcClient, metrics.NewRPCClient(cfg.Network), cfg.RPCRateLimit),
		decoder,
	)

	eng, err := engine.New(source, st, metrics.NewSyncEngine(cfg.Network), logger.Named("engine"), engine.Config{
		SyncInterval:    cfg.SyncInterval,
		MempoolInterval: cfg.MempoolInterval,
		MaxReorgDepth:   cfg.MaxReorgDepth,
		BlocksPerCycle:  cfg.BlocksPerCycle,
		FetchWorkers:    cfg.FetchWorkers,
	})
	if err != nil {
		return fmt.Errorf("init sync engine: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", transport.NewRouter(st, eng, logger.Named("http")))
	mux.Handle("/metrics", promhttp.Handler())
	startHTTPServer(ctx, cfg.HTTPAddr, cors.Default().Handler(mux), logger)

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync engine: %w", err)
	}
	return nil
}

func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("starting http server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}

	return rpcclient.New(cfg, nil)
}
