package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// KeypairProvider generates one random keypair per address family per session and
// exposes only the derived addresses. Private keys are dropped as soon as the
// addresses are computed.
type KeypairProvider struct{}

// NewKeypairProvider creates a new KeypairProvider
func NewKeypairProvider() *KeypairProvider {
	return &KeypairProvider{}
}

// Generate returns a stellar strkey address and a checksummed EVM address
func (p *KeypairProvider) Generate(ctx context.Context) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Stellar account (ed25519)
	stellarPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate stellar key: %w", err)
	}

	// 2. EVM account (secp256k1)
	evmKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate evm key: %w", err)
	}

	return domain.Identity{
		domain.FamilyStellar: EncodeStellarAddress(stellarPub),
		domain.FamilyEVM:     crypto.PubkeyToAddress(evmKey.PublicKey).Hex(),
	}, nil
}
