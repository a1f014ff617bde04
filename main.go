// Copyright 2025 Certen Protocol
//
// Demo entrypoint wiring the pre-handle and signature-verification core
// end to end: an in-memory account store, the reference JSON codec, a
// crypto-transfer handler exercising the key-gathering API, a bounded
// signature-verification dispatcher, Prometheus metrics, and the health
// and metrics HTTP surface.

package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/certen/prehandle-core/pkg/codec"
	"github.com/certen/prehandle-core/pkg/config"
	transferhandler "github.com/certen/prehandle-core/pkg/handlers/transfer"
	"github.com/certen/prehandle-core/pkg/keys"
	"github.com/certen/prehandle-core/pkg/metrics"
	"github.com/certen/prehandle-core/pkg/sigverify"
	"github.com/certen/prehandle-core/pkg/store"
	"github.com/certen/prehandle-core/pkg/telemetry"
	"github.com/certen/prehandle-core/pkg/workflow"
)

func main() {
	var (
		nodeID   = flag.String("node-id", "", "Node ID (overrides NODE_ID env var)")
		showHelp = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(logLevel(cfg.LogLevel)).
		With().Timestamp().Str("node_id", cfg.NodeID).Logger()

	log.Info().Msg("starting pre-handle core")

	memStore := store.NewMemory()
	payerPub, payerPriv := seedDemoAccounts(memStore)

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(reg)

	dispatcher := sigverify.NewDispatcher(int64(cfg.SigVerifyWorkers)).WithMetrics(metricsRegistry)

	handlers := workflow.NewRegistry()
	handlers.Register("CRYPTO_TRANSFER", transferhandler.Handler{})

	node := store.AccountID{Shard: 0, Realm: 0, Number: 3}

	wf := workflow.New(codec.JSONDecoder{}, memStore, handlers, dispatcher, node, cfg.MaxNestedContextDepth).
		WithLogger(log).
		WithMetrics(metricsRegistry)

	telemetrySrv := telemetry.NewServer(cfg.HealthAddr, cfg.MetricsAddr, reg, func() bool { return true }, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := telemetrySrv.Start(ctx); err != nil {
			log.Error().Err(err).Msg("telemetry server stopped")
		}
	}()

	// Drive the workflow once against a demo transaction so the wiring is
	// exercised even with no real transport attached yet.
	go runDemoTransaction(ctx, wf, payerPub, payerPriv, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := telemetrySrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown error")
	}
}

func logLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func seedDemoAccounts(m *store.Memory) (ed25519.PublicKey, ed25519.PrivateKey) {
	payerPub, payerPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	m.PutAccount(&store.Account{
		ID:  store.AccountID{Shard: 0, Realm: 0, Number: 1001},
		Key: keys.NewED25519(payerPub),
	})

	receiverPub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	m.PutAccount(&store.Account{
		ID:                  store.AccountID{Shard: 0, Realm: 0, Number: 1002},
		Key:                 keys.NewED25519(receiverPub),
		ReceiverSigRequired: true,
	})

	// The node's own account, charged for decode failures.
	nodePub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	m.PutAccount(&store.Account{
		ID:  store.AccountID{Shard: 0, Realm: 0, Number: 3},
		Key: keys.NewED25519(nodePub),
	})

	return payerPub, payerPriv
}

func runDemoTransaction(ctx context.Context, wf *workflow.Workflow, payerPub ed25519.PublicKey, payerPriv ed25519.PrivateKey, log zerolog.Logger) {
	raw, err := transferhandler.EncodeDemo(
		store.AccountID{Shard: 0, Realm: 0, Number: 1001},
		store.AccountID{Shard: 0, Realm: 0, Number: 1002},
		payerPub,
		payerPriv,
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to build demo transaction")
		return
	}

	result := wf.PreHandle(ctx, raw)
	log.Info().
		Str("status", result.Status().String()).
		Str("response_code", result.ResponseCode().String()).
		Msg("demo pre-handle result")
}

func printHelp() {
	os.Stdout.WriteString("prehandle-core: pre-handle and signature-verification core demo\n\n")
	os.Stdout.WriteString("Usage:\n  prehandle-core [--node-id=<id>]\n\n")
	os.Stdout.WriteString("Environment:\n")
	os.Stdout.WriteString("  NODE_ID, LOG_LEVEL, API_HOST, API_PORT, METRICS_PORT, HEALTH_PORT,\n")
	os.Stdout.WriteString("  PREHANDLE_WORKERS, SIGVERIFY_WORKERS, VERIFICATION_TIMEOUT,\n")
	os.Stdout.WriteString("  MAX_NESTED_CONTEXT_DEPTH\n")
}
