package svm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

const (
	// system program AccountAlreadyInUse
	systemAccountInUse = 0
	// system program ResultWithNegativeLamports
	systemInsufficientLamports = 1
	// spl-token InsufficientFunds
	tokenInsufficientFunds = 1
	// anchor programs number their own errors from 100; lower codes come from a failed
	// CPI into the system or token program
	anchorFirstErrorCode = 100
)

// instructionError is the decoded {"InstructionError":[index,{"Custom":code}]} form of a
// transaction error.
type instructionError struct {
	index  int
	custom *uint32
}

func decodeInstructionError(txErr interface{}) (instructionError, bool) {
	raw, err := json.Marshal(txErr)
	if err != nil {
		return instructionError{}, false
	}
	var envelope struct {
		InstructionError []json.RawMessage `json:"InstructionError"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.InstructionError) != 2 {
		return instructionError{}, false
	}

	var ie instructionError
	if err := json.Unmarshal(envelope.InstructionError[0], &ie.index); err != nil {
		return instructionError{}, false
	}
	var detail struct {
		Custom *uint32 `json:"Custom"`
	}
	// non-custom details are plain strings such as "InvalidAccountData"
	if err := json.Unmarshal(envelope.InstructionError[1], &detail); err == nil {
		ie.custom = detail.Custom
	}
	return ie, true
}

// instructionProgram returns the program invoked by the index-th instruction of tx.
func instructionProgram(tx *solana.Transaction, index int) (solana.PublicKey, bool) {
	if tx == nil || index < 0 || index >= len(tx.Message.Instructions) {
		return solana.PublicKey{}, false
	}
	programIdx := int(tx.Message.Instructions[index].ProgramIDIndex)
	if programIdx >= len(tx.Message.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return tx.Message.AccountKeys[programIdx], true
}

// classifyStatusErr maps the err field of a signature status of tx to a classified error.
// Custom codes are interpreted against the program that failed.
func classifyStatusErr(txErr interface{}, tx *solana.Transaction) *model.Error {
	raw, jsonErr := json.Marshal(txErr)
	detail := string(raw)
	if jsonErr != nil {
		detail = fmt.Sprint(txErr)
	}
	cause := fmt.Errorf("transaction failed: %s", detail)
	inUse := &model.Error{Category: model.ChainRejected, Stage: model.StageSubmitting, Err: fmt.Errorf("%w: %s", model.ErrAccountInUse, detail)}
	insufficient := &model.Error{Category: model.InsufficientFunds, Stage: model.StageSubmitting, Err: cause}
	rejected := &model.Error{Category: model.ChainRejected, Stage: model.StageSubmitting, Err: cause}

	ie, ok := decodeInstructionError(txErr)
	if !ok {
		// transaction level errors such as InsufficientFundsForFee
		if strings.Contains(detail, "InsufficientFunds") {
			return insufficient
		}
		return rejected
	}
	if ie.custom == nil {
		return rejected
	}
	program, ok := instructionProgram(tx, ie.index)
	if !ok {
		return rejected
	}

	code := *ie.custom
	switch {
	case program.Equals(solana.TokenProgramID):
		if code == tokenInsufficientFunds {
			return insufficient
		}
	case program.Equals(solana.SystemProgramID), program.Equals(solana.SPLAssociatedTokenAccountProgramID):
		// the associated token program creates accounts through the system program
		switch code {
		case systemAccountInUse:
			return inUse
		case systemInsufficientLamports:
			return insufficient
		}
	case code < anchorFirstErrorCode:
		switch code {
		case systemAccountInUse:
			return inUse
		case tokenInsufficientFunds:
			return insufficient
		}
	}
	return rejected
}

// classifySendErr maps a broadcast failure. ok is false for transport errors that may
// succeed when retransmitted.
func classifySendErr(err error) (classified *model.Error, ok bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil, false
	}
	msg := strings.ToLower(rpcErr.Message)
	switch {
	case strings.Contains(msg, "blockhash not found"):
		return &model.Error{Category: model.ConfirmationTimeout, Stage: model.StageSubmitting, Err: fmt.Errorf("%w: %v", model.ErrBlockhashExpired, err)}, true
	case strings.Contains(msg, "insufficient funds"), strings.Contains(msg, "insufficient lamports"):
		return &model.Error{Category: model.InsufficientFunds, Stage: model.StageSubmitting, Err: err}, true
	case strings.Contains(msg, "already in use"):
		return &model.Error{Category: model.ChainRejected, Stage: model.StageSubmitting, Err: fmt.Errorf("%w: %v", model.ErrAccountInUse, err)}, true
	default:
		return &model.Error{Category: model.ChainRejected, Stage: model.StageSubmitting, Err: err}, true
	}
}

// classifySignErr maps a signer failure.
func classifySignErr(err error) *model.Error {
	if errors.Is(err, model.ErrUserRejected) || strings.Contains(strings.ToLower(err.Error()), "user rejected") {
		return &model.Error{Category: model.UserRejected, Stage: model.StageSubmitting, Err: err}
	}
	return &model.Error{Category: model.UnknownFailure, Stage: model.StageSubmitting, Err: fmt.Errorf("sign transaction: %w", err)}
}
