// Package wallet loads the signing identity used by every program.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"

	"spltoken-go/internal/config"
)

// EnvPrivateKey holds a base58 encoded 64-byte secret.
const EnvPrivateKey = "SOLANA_PRIVATE_KEY_BASE58"

// ErrNoIdentity is returned when neither a keypair file nor a base58 secret is available.
var ErrNoIdentity = errors.New("no signing identity configured")

// Load picks the identity in order: inline base58 secret, keygen file, environment.
func Load(cfg config.Wallet) (solana.PrivateKey, error) {
	if strings.TrimSpace(cfg.PrivateKeyBase58) != "" {
		return FromBase58(cfg.PrivateKeyBase58)
	}
	if cfg.KeypairPath != "" {
		key, err := LoadKeygenFile(cfg.KeypairPath)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	key, err := LoadPrivateKeyFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: keypair %q not found and %v", ErrNoIdentity, cfg.KeypairPath, err)
	}
	return key, nil
}

// LoadKeygenFile reads a solana-keygen JSON byte array such as id.json.
func LoadKeygenFile(path string) (solana.PrivateKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFileBytes(content)
	if err != nil {
		return nil, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	if err := checkKeypair(key); err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return key, nil
}

// LoadPrivateKeyFromEnv reads SOLANA_PRIVATE_KEY_BASE58, loading .env first when present.
func LoadPrivateKeyFromEnv() (solana.PrivateKey, error) {
	_ = godotenv.Load() // best-effort
	b58 := os.Getenv(EnvPrivateKey)
	if b58 == "" {
		return nil, errors.New(EnvPrivateKey + " not set")
	}
	return FromBase58(b58)
}

// FromBase58 decodes a 64-byte secret and checks its public half matches the seed.
func FromBase58(b58 string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(b58))
	if err != nil {
		return nil, fmt.Errorf("decode base58 secret: %w", err)
	}
	key := solana.PrivateKey(raw)
	if err := checkKeypair(key); err != nil {
		return nil, err
	}
	return key, nil
}

func checkKeypair(key solana.PrivateKey) error {
	if len(key) != ed25519.PrivateKeySize {
		return fmt.Errorf("secret must be %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize]).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, key[ed25519.SeedSize:]) {
		return errors.New("public key half does not match seed")
	}
	return nil
}
