package transport

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// LedgerService is the health service name reflecting ledger reachability.
const LedgerService = "tierpay.Ledger"

// LedgerHealth reports ledger reachability through the standard gRPC health service.
type LedgerHealth struct {
	ledger   HeightSource
	server   *health.Server
	interval time.Duration
	logger   *zap.Logger
}

// NewLedgerHealth returns a LedgerHealth polling ledger every interval.
func NewLedgerHealth(ledger HeightSource, interval time.Duration, logger *zap.Logger) *LedgerHealth {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s := health.NewServer()
	s.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_UNKNOWN)
	return &LedgerHealth{
		ledger:   ledger,
		server:   s,
		interval: interval,
		logger:   logger,
	}
}

// Register exposes the health service on a gRPC server.
func (h *LedgerHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check polls the ledger once and updates the serving status.
func (h *LedgerHealth) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	height, err := h.ledger.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		h.logger.Warn("ledger unreachable", zap.Error(err))
		h.server.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_NOT_SERVING)
		h.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.logger.Debug("ledger reachable", zap.Uint64("height", height))
	h.server.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_SERVING)
	h.server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Run polls until ctx is done, then marks every service as not serving.
func (h *LedgerHealth) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
