package svm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

// KeypairSigner signs with a local private key without asking anyone.
type KeypairSigner struct {
	key solana.PrivateKey
}

// NewKeypairSigner returns a signer for key.
func NewKeypairSigner(key solana.PrivateKey) (*KeypairSigner, error) {
	if len(key) != 64 {
		return nil, errors.New("keypair must be 64 bytes")
	}
	return &KeypairSigner{key: key}, nil
}

// LoadKeypairSigner reads a solana-keygen JSON keypair file.
func LoadKeypairSigner(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return NewKeypairSigner(key)
}

// PublicKey returns the signer's identity.
func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// SignTransaction adds the signer's signature to tx.
func (s *KeypairSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// PromptSigner asks for approval on every transaction before delegating to a signer.
// Anything other than "y" or "yes" counts as a rejection.
type PromptSigner struct {
	signer Signer
	in     *bufio.Reader
	out    io.Writer
}

// NewPromptSigner wraps signer with an interactive confirmation.
func NewPromptSigner(signer Signer, in io.Reader, out io.Writer) *PromptSigner {
	return &PromptSigner{signer: signer, in: bufio.NewReader(in), out: out}
}

// PublicKey returns the wrapped signer's identity.
func (p *PromptSigner) PublicKey() solana.PublicKey {
	return p.signer.PublicKey()
}

// SignTransaction prints a summary of tx and signs only when the user approves.
func (p *PromptSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if _, err := fmt.Fprintf(p.out, "Sign transaction with %d instruction(s) paid by %s? [y/N]: ",
		len(tx.Message.Instructions), p.signer.PublicKey()); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}

	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return p.signer.SignTransaction(ctx, tx)
	default:
		return nil, model.ErrUserRejected
	}
}
