// Command checkout-gateway serves tier purchases over REST for a server-held buyer keypair.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	grpcMiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpcZap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpcRecovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpcCtxTags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	grpcPrometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/goodnatureofminers/tierpay/internal/metrics"
	"github.com/goodnatureofminers/tierpay/internal/purchase/catalog"
	"github.com/goodnatureofminers/tierpay/internal/purchase/checkout"
	"github.com/goodnatureofminers/tierpay/internal/purchase/journal"
	"github.com/goodnatureofminers/tierpay/internal/purchase/repository/clickhouse"
	"github.com/goodnatureofminers/tierpay/internal/purchase/service"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
	"github.com/goodnatureofminers/tierpay/internal/transport"
)

var config struct {
	Addr                  string        `long:"addr" env:"CHECKOUT_GATEWAY_ADDR" description:"gRPC health addr" default:":8000"`
	RestAddr              string        `long:"rest-addr" env:"CHECKOUT_GATEWAY_REST_ADDR" description:"rest addr" default:":8001"`
	RPCURL                string        `long:"rpc-url" env:"CHECKOUT_GATEWAY_RPC_URL" description:"ledger JSON-RPC endpoint" default:"https://api.devnet.solana.com"`
	Cluster               string        `long:"cluster" env:"CHECKOUT_GATEWAY_CLUSTER" description:"cluster label for metrics" default:"devnet"`
	Keypair               string        `long:"keypair" env:"CHECKOUT_GATEWAY_KEYPAIR" description:"path to the buyer keypair file" required:"true"`
	Mint                  string        `long:"mint" env:"CHECKOUT_GATEWAY_MINT" description:"payment mint" default:"9ThGirbgEtRrjwtg1DVZ4fD5BkPAWtseYpgrsLH3NFu8"`
	CounterpartyAuthority string        `long:"counterparty" env:"CHECKOUT_GATEWAY_COUNTERPARTY" description:"counterparty authority" default:"9qSchFvHkadxQkSpY8T5sX4iTJRT9go21jFgAWiGLsue"`
	EscrowProgram         string        `long:"escrow-program" env:"CHECKOUT_GATEWAY_ESCROW_PROGRAM" description:"escrow program id"`
	TiersFile             string        `long:"tiers-file" env:"CHECKOUT_GATEWAY_TIERS_FILE" description:"tier catalog YAML, built-in when empty"`
	Commitment            string        `long:"commitment" env:"CHECKOUT_GATEWAY_COMMITMENT" description:"confirmation commitment" default:"confirmed" choice:"processed" choice:"confirmed" choice:"finalized"`
	MaxRetries            uint          `long:"max-retries" env:"CHECKOUT_GATEWAY_MAX_RETRIES" description:"broadcast retransmissions" default:"5"`
	PollInterval          time.Duration `long:"poll-interval" env:"CHECKOUT_GATEWAY_POLL_INTERVAL" description:"confirmation status poll interval" default:"500ms"`
	PurchaseTimeout       time.Duration `long:"purchase-timeout" env:"CHECKOUT_GATEWAY_PURCHASE_TIMEOUT" description:"timeout of one purchase request" default:"3m"`
	HealthInterval        time.Duration `long:"health-interval" env:"CHECKOUT_GATEWAY_HEALTH_INTERVAL" description:"ledger health poll interval" default:"10s"`
	ClickhouseDSN         string        `long:"clickhouse-dsn" env:"CHECKOUT_GATEWAY_CLICKHOUSE_DSN" description:"ClickHouse DSN, journal disabled when empty"`
	JournalFlushSize      int           `long:"journal-flush-size" env:"CHECKOUT_GATEWAY_JOURNAL_FLUSH_SIZE" description:"journal batch size" default:"100"`
	JournalFlushInterval  time.Duration `long:"journal-flush-interval" env:"CHECKOUT_GATEWAY_JOURNAL_FLUSH_INTERVAL" description:"journal flush interval" default:"2s"`
	JournalRPS            int           `long:"journal-rps" env:"CHECKOUT_GATEWAY_JOURNAL_RPS" description:"journal flushes per second" default:"10"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	grpcZap.ReplaceGrpcLoggerV2(logger)
	if _, err := flags.ParseArgs(&config, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("Failed to parse arguments", zap.Error(err))
	}

	opts, err := solanaOptions()
	if err != nil {
		logger.Fatal("Invalid ledger accounts", zap.Error(err))
	}
	tiers, err := catalog.Load(config.TiersFile)
	if err != nil {
		logger.Fatal("Load tier catalog", zap.Error(err))
	}
	signer, err := svm.LoadKeypairSigner(config.Keypair)
	if err != nil {
		logger.Fatal("Load buyer keypair", zap.Error(err))
	}
	ledger := svm.Dial(config.RPCURL, metrics.NewRPCClient(config.Cluster))

	var (
		recorder service.Journal
		history  transport.History
	)
	if config.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(config.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			logger.Fatal("Init repository", zap.Error(err))
		}
		j := journal.New(repo, journal.Config{
			FlushSize:     config.JournalFlushSize,
			FlushInterval: config.JournalFlushInterval,
			RPS:           config.JournalRPS,
		}, logger)
		j.Start(ctx)
		defer j.Stop()
		recorder, history = j, j
	}

	orchestrator, err := service.NewSolanaOrchestrator(opts, metrics.NewPurchase(), recorder, logger)
	if err != nil {
		logger.Fatal("Init orchestrator", zap.Error(err))
	}
	co := checkout.New(orchestrator, tiers, logger)
	co.Connect(signer, ledger)

	chain := []grpc.UnaryServerInterceptor{
		grpcRecovery.UnaryServerInterceptor(),
		grpcCtxTags.UnaryServerInterceptor(),
		grpcPrometheus.UnaryServerInterceptor,
		grpcZap.UnaryServerInterceptor(logger),
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMiddleware.ChainUnaryServer(chain...)),
	)
	health := transport.NewLedgerHealth(ledger, config.HealthInterval, logger.Named("health"))
	health.Register(grpcServer)
	grpcPrometheus.EnableHandlingTimeHistogram()
	grpcPrometheus.Register(grpcServer)
	go health.Run(ctx)

	socket, err := net.Listen("tcp", config.Addr)
	if err != nil {
		logger.Fatal("net.Listen error", zap.Error(err))
	}
	go func() {
		if serveErr := grpcServer.Serve(socket); serveErr != nil {
			logger.Fatal("Start GRPC server", zap.Error(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down gRPC server")
		grpcServer.GracefulStop()
	}()

	gw := gwruntime.NewServeMux()
	if err := transport.NewCheckoutHandler(tiers, co, history, logger.Named("checkout")).Register(gw); err != nil {
		logger.Fatal("Register checkout handler", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.TimeoutHandler(gw, config.PurchaseTimeout, `{"error":"purchase timed out"}`))
	mux.Handle("/metrics", promhttp.Handler())

	s := &http.Server{
		Addr:              config.RestAddr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.PurchaseTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down the http server")
		if err := s.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("Starting HTTP server", zap.String("addr", config.RestAddr), zap.String("buyer", signer.PublicKey().String()))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Failed to listen and serve", zap.Error(err))
	}
}

func solanaOptions() (service.SolanaOptions, error) {
	mint, err := solana.PublicKeyFromBase58(config.Mint)
	if err != nil {
		return service.SolanaOptions{}, fmt.Errorf("parse mint: %w", err)
	}
	authority, err := solana.PublicKeyFromBase58(config.CounterpartyAuthority)
	if err != nil {
		return service.SolanaOptions{}, fmt.Errorf("parse counterparty: %w", err)
	}
	program := svm.DefaultEscrowProgramID
	if config.EscrowProgram != "" {
		if program, err = solana.PublicKeyFromBase58(config.EscrowProgram); err != nil {
			return service.SolanaOptions{}, fmt.Errorf("parse escrow program: %w", err)
		}
	}
	return service.SolanaOptions{
		Config: service.Config{
			Mint:                  mint,
			CounterpartyAuthority: authority,
		},
		EscrowProgram: program,
		Commitment:    rpc.CommitmentType(config.Commitment),
		MaxRetries:    config.MaxRetries,
		PollInterval:  config.PollInterval,
	}, nil
}
