// Command tierpay purchases one subscription tier from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/tierpay/internal/metrics"
	"github.com/goodnatureofminers/tierpay/internal/purchase/catalog"
	"github.com/goodnatureofminers/tierpay/internal/purchase/checkout"
	"github.com/goodnatureofminers/tierpay/internal/purchase/journal"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/internal/purchase/repository/clickhouse"
	"github.com/goodnatureofminers/tierpay/internal/purchase/service"
	"github.com/goodnatureofminers/tierpay/internal/purchase/svm"
)

type config struct {
	Tier                  int           `long:"tier" env:"TIERPAY_TIER" description:"tier id to purchase" required:"true"`
	RPCURL                string        `long:"rpc-url" env:"TIERPAY_RPC_URL" description:"ledger JSON-RPC endpoint" default:"https://api.devnet.solana.com"`
	Cluster               string        `long:"cluster" env:"TIERPAY_CLUSTER" description:"cluster label for metrics" default:"devnet"`
	Keypair               string        `long:"keypair" env:"TIERPAY_KEYPAIR" description:"path to the buyer keypair file" required:"true"`
	Mint                  string        `long:"mint" env:"TIERPAY_MINT" description:"payment mint" default:"9ThGirbgEtRrjwtg1DVZ4fD5BkPAWtseYpgrsLH3NFu8"`
	CounterpartyAuthority string        `long:"counterparty" env:"TIERPAY_COUNTERPARTY" description:"counterparty authority" default:"9qSchFvHkadxQkSpY8T5sX4iTJRT9go21jFgAWiGLsue"`
	EscrowProgram         string        `long:"escrow-program" env:"TIERPAY_ESCROW_PROGRAM" description:"escrow program id"`
	TiersFile             string        `long:"tiers-file" env:"TIERPAY_TIERS_FILE" description:"tier catalog YAML, built-in when empty"`
	Commitment            string        `long:"commitment" env:"TIERPAY_COMMITMENT" description:"confirmation commitment" default:"confirmed" choice:"processed" choice:"confirmed" choice:"finalized"`
	MaxRetries            uint          `long:"max-retries" env:"TIERPAY_MAX_RETRIES" description:"broadcast retransmissions" default:"5"`
	PollInterval          time.Duration `long:"poll-interval" env:"TIERPAY_POLL_INTERVAL" description:"confirmation status poll interval" default:"500ms"`
	Timeout               time.Duration `long:"timeout" env:"TIERPAY_TIMEOUT" description:"overall purchase timeout" default:"3m"`
	Yes                   bool          `long:"yes" short:"y" env:"TIERPAY_YES" description:"sign without asking"`
	ClickhouseDSN         string        `long:"clickhouse-dsn" env:"TIERPAY_CLICKHOUSE_DSN" description:"ClickHouse DSN, journal disabled when empty"`
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

	res, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("purchase not started", zap.Error(err))
	}
	if !res.Succeeded() {
		fmt.Fprintf(os.Stderr, "purchase of tier %d failed: %s\n", res.Tier, res.Message)
		os.Exit(1)
	}
	fmt.Printf("tier %d purchased\nescrow:    %s\nsignature: %s\n", res.Tier, res.EscrowAddress, res.Signature)
}

func run(ctx context.Context, cfg config, logger *zap.Logger) (model.PurchaseResult, error) {
	opts, err := solanaOptions(cfg)
	if err != nil {
		return model.PurchaseResult{}, err
	}
	tiers, err := catalog.Load(cfg.TiersFile)
	if err != nil {
		return model.PurchaseResult{}, fmt.Errorf("load catalog: %w", err)
	}
	keypair, err := svm.LoadKeypairSigner(cfg.Keypair)
	if err != nil {
		return model.PurchaseResult{}, err
	}
	var signer svm.Signer = keypair
	if !cfg.Yes {
		signer = svm.NewPromptSigner(keypair, os.Stdin, os.Stderr)
	}

	var recorder service.Journal
	if cfg.ClickhouseDSN != "" {
		repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return model.PurchaseResult{}, fmt.Errorf("init repository: %w", err)
		}
		j := journal.New(repo, journal.DefaultConfig(), logger)
		j.Start(ctx)
		defer j.Stop()
		recorder = j
	}

	orchestrator, err := service.NewSolanaOrchestrator(opts, metrics.NewPurchase(), recorder, logger)
	if err != nil {
		return model.PurchaseResult{}, err
	}

	co := checkout.New(orchestrator, tiers, logger)
	co.Connect(signer, svm.Dial(cfg.RPCURL, metrics.NewRPCClient(cfg.Cluster)))
	defer co.Disconnect()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return co.Purchase(ctx, model.TierID(cfg.Tier))
}

func solanaOptions(cfg config) (service.SolanaOptions, error) {
	mint, err := solana.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		return service.SolanaOptions{}, fmt.Errorf("parse mint: %w", err)
	}
	authority, err := solana.PublicKeyFromBase58(cfg.CounterpartyAuthority)
	if err != nil {
		return service.SolanaOptions{}, fmt.Errorf("parse counterparty: %w", err)
	}
	program := svm.DefaultEscrowProgramID
	if cfg.EscrowProgram != "" {
		if program, err = solana.PublicKeyFromBase58(cfg.EscrowProgram); err != nil {
			return service.SolanaOptions{}, fmt.Errorf("parse escrow program: %w", err)
		}
	}
	return service.SolanaOptions{
		Config: service.Config{
			Mint:                  mint,
			CounterpartyAuthority: authority,
		},
		EscrowProgram: program,
		Commitment:    rpc.CommitmentType(cfg.Commitment),
		MaxRetries:    cfg.MaxRetries,
		PollInterval:  cfg.PollInterval,
	}, nil
}
