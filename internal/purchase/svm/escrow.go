package svm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
	"github.com/goodnatureofminers/tierpay/pkg/safe"
	"go.uber.org/zap"
)

// DefaultEscrowProgramID is the payment engine program deployed on devnet.
var DefaultEscrowProgramID = solana.MustPublicKeyFromBase58("AeaX15Xn4YCSLGBvf1EMdjHViewi28odizgfyQ3RLD9e")

var makeEscrowDiscriminator = anchorDiscriminator("make_escrow")

// EscrowClient drives the payment engine's make_escrow instruction.
type EscrowClient struct {
	programID solana.PublicKey
	prober    *Prober
	freshness *Freshness
	submitter *Submitter
	logger    *zap.Logger
}

// NewEscrowClient constructs an EscrowClient for programID.
func NewEscrowClient(programID solana.PublicKey, prober *Prober, freshness *Freshness, submitter *Submitter, logger *zap.Logger) (*EscrowClient, error) {
	if programID.IsZero() {
		return nil, errors.New("escrow program id is required")
	}
	return &EscrowClient{
		programID: programID,
		prober:    prober,
		freshness: freshness,
		submitter: submitter,
		logger:    logger,
	}, nil
}

// EscrowAddress derives the escrow account of maker for seed.
func (c *EscrowClient) EscrowAddress(maker model.Identity, seed uint64) (model.Identity, error) {
	seedLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(seedLE, seed)
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("escrow"), maker.Bytes(), seedLE}, c.programID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("derive escrow address: %w", err)
	}
	return addr, nil
}

// CreateEscrow submits make_escrow(seed, tier) signed by signer and normalizes the outcome.
// A seed whose escrow already exists is rejected with EscrowAlreadyExists.
func (c *EscrowClient) CreateEscrow(ctx context.Context, ledger Ledger, signer Signer, req model.EscrowRequest) model.EscrowOutcome {
	maker := signer.PublicKey()

	ix, escrow, err := c.instruction(maker, req)
	if err != nil {
		return rejected(model.UnknownFailure, err)
	}

	existence, err := c.prober.Probe(ctx, ledger, escrow)
	if err != nil {
		return model.EscrowOutcome{Cause: err}
	}
	if existence == model.AccountExists {
		return rejected(model.EscrowAlreadyExists, fmt.Errorf("escrow %s for seed %d already exists", escrow, req.Seed))
	}

	freshness, err := c.freshness.Latest(ctx, ledger)
	if err != nil {
		return rejected(model.UnknownFailure, err)
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, freshness.Blockhash, solana.TransactionPayer(maker))
	if err != nil {
		return rejected(model.UnknownFailure, fmt.Errorf("assemble escrow transaction: %w", err))
	}

	sub, err := c.submitter.Submit(ctx, ledger, signer, tx, freshness)
	if err != nil {
		if errors.Is(err, model.ErrAccountInUse) {
			return rejected(model.EscrowAlreadyExists, err)
		}
		return model.EscrowOutcome{Cause: err}
	}

	c.logger.Debug("escrow created",
		zap.Stringer("signature", sub.Signature),
		zap.Stringer("escrow", escrow),
		zap.Int64("seed", req.Seed),
	)
	return model.EscrowOutcome{
		Accepted:      true,
		Signature:     sub.Signature,
		EscrowAddress: escrow,
	}
}

func (c *EscrowClient) instruction(maker model.Identity, req model.EscrowRequest) (solana.Instruction, model.Identity, error) {
	seed, err := safe.Uint64(req.Seed)
	if err != nil {
		return nil, model.Identity{}, fmt.Errorf("escrow seed: %w", err)
	}
	planID, err := safe.Uint64(req.Tier)
	if err != nil {
		return nil, model.Identity{}, fmt.Errorf("escrow plan id: %w", err)
	}

	escrow, err := c.EscrowAddress(maker, seed)
	if err != nil {
		return nil, model.Identity{}, err
	}
	vault, _, err := solana.FindAssociatedTokenAddress(escrow, req.Mint)
	if err != nil {
		return nil, model.Identity{}, fmt.Errorf("derive vault address: %w", err)
	}

	data, err := encodeMakeEscrow(seed, planID)
	if err != nil {
		return nil, model.Identity{}, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(maker).WRITE().SIGNER(),
		solana.Meta(req.Mint),
		solana.Meta(req.BuyerAccount).WRITE(),
		solana.Meta(req.CounterpartyAccount).WRITE(),
		solana.Meta(req.CounterpartyAuthority),
		solana.Meta(escrow).WRITE(),
		solana.Meta(vault).WRITE(),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(c.programID, accounts, data), escrow, nil
}

func encodeMakeEscrow(seed, planID uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(makeEscrowDiscriminator[:], false); err != nil {
		return nil, fmt.Errorf("encode discriminator: %w", err)
	}
	if err := enc.WriteUint64(seed, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode seed: %w", err)
	}
	if err := enc.WriteUint64(planID, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode plan id: %w", err)
	}
	return buf.Bytes(), nil
}

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

func rejected(category model.ErrorCategory, err error) model.EscrowOutcome {
	return model.EscrowOutcome{Cause: &model.Error{Category: category, Stage: model.StageEscrowing, Err: err}}
}
