// Package config also contains cluster, wallet, and simulated-ledger configuration surfaces.
package config

import "time"

// DevnetRPC is the public Solana devnet entry point.
const DevnetRPC = "https://api.devnet.solana.com"

// Cluster defines the JSON-RPC endpoint and how long to wait on it.
type Cluster struct {
	RpcURL        string `yaml:"rpc_url"`
	Commitment    string `yaml:"commitment"` // processed|confirmed|finalized
	TimeoutMs     int    `yaml:"timeout_ms"`
	ConfirmPollMs int    `yaml:"confirm_poll_ms"`
}

// Timeout bounds one whole program run.
func (c Cluster) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// ConfirmPoll is the signature status polling cadence.
func (c Cluster) ConfirmPoll() time.Duration {
	return time.Duration(c.ConfirmPollMs) * time.Millisecond
}

// IsDevnet reports whether explorer links should carry the devnet cluster tag.
func (c Cluster) IsDevnet() bool { return c.RpcURL == DevnetRPC }

// Wallet points at the signing identity: a solana-keygen file or an env-backed base58 secret.
type Wallet struct {
	KeypairPath      string `yaml:"keypair_path"`
	PrivateKeyBase58 string `yaml:"private_key_base58"`
}

// SimMint seeds one SPL mint into the simulated ledger.
type SimMint struct {
	Address   string `yaml:"address"`
	Authority string `yaml:"authority"` // empty: the configured wallet
	Decimals  uint8  `yaml:"decimals"`
}

// Simnet configures the local simulated ledger served by cmd/simnet.
type Simnet struct {
	Addr            string    `yaml:"addr"`
	JournalPath     string    `yaml:"journal_path"`
	AirdropLamports uint64    `yaml:"airdrop_lamports"`
	Mints           []SimMint `yaml:"mints"`
}
