package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Submitter signs and sends a built transaction, routing through
// whichever client it was constructed with — the public client for
// ordinary submission, or a second client bound to a private RPC for
// flashbot-style submission (spec §4.7 "Optional private submission").
// Grounded on the hex-key-to-ECDSA / types.SignTx(tx,
// LatestSignerForChainID(chainID), privateKey) pattern used throughout
// the wider example pack (e.g. alexgao001-searcher's submission path).
type Submitter struct {
	client     *Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	signer     types.Signer
}

// NewSubmitter parses a hex-encoded private key (with or without a 0x
// prefix) and binds it to client for nonce reads and submission.
func NewSubmitter(client *Client, hexKey string, chainID *big.Int) (*Submitter, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("eth: parse signer key: %w", err)
	}
	return &Submitter{
		client:     client,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		signer:     types.LatestSignerForChainID(chainID),
	}, nil
}

func (s *Submitter) Address() common.Address { return s.address }

// Submit fills in nonce, signs tx with this submitter's key, and sends
// it, returning the signed transaction so the caller can key receipt
// lookups and re-simulation off its hash.
func (s *Submitter) Submit(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("eth: nonce: %w", err)
	}

	unsigned := withNonce(tx, nonce)
	signed, err := types.SignTx(unsigned, s.signer, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("eth: sign tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("eth: send tx: %w", err)
	}
	return signed, nil
}

// withNonce rebuilds a legacy tx with the resolved nonce, since dryrun
// components build transactions without knowing the signer's current
// nonce at construction time.
func withNonce(tx *types.Transaction, nonce uint64) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       tx.To(),
		Value:    big.NewInt(0),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Data:     tx.Data(),
	})
}
