// Package spl resolves associated token accounts and submits mint and transfer
// operations against them over Solana JSON-RPC.
package spl

import (
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

const defaultConfirmPoll = 500 * time.Millisecond

// Client bundles an RPC connection with the commitment level every call waits for.
// It holds no identity: signers are passed into each operation.
type Client struct {
	RPC    *rpc.Client
	Commit rpc.CommitmentType

	log         zerolog.Logger
	confirmPoll time.Duration
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithConfirmPoll overrides how often signature statuses are polled.
func WithConfirmPoll(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.confirmPoll = d
		}
	}
}

// WithRPC swaps the underlying RPC client, e.g. one built with custom HTTP settings.
func WithRPC(cl *rpc.Client) Option {
	return func(c *Client) {
		if cl != nil {
			c.RPC = cl
		}
	}
}

// NewClient connects to rpcURL at the given commitment (processed|confirmed|finalized).
func NewClient(rpcURL, commit string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		RPC:         rpc.New(rpcURL),
		Commit:      ParseCommitment(commit),
		log:         log,
		confirmPoll: defaultConfirmPoll,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseCommitment maps a config string onto an rpc commitment, defaulting to confirmed.
func ParseCommitment(commit string) rpc.CommitmentType {
	switch strings.ToLower(strings.TrimSpace(commit)) {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// ExplorerURL links a signature on the public explorer; cluster may be empty for mainnet.
func ExplorerURL(sig solana.Signature, cluster string) string {
	u := "https://explorer.solana.com/tx/" + sig.String()
	if cluster != "" {
		u += "?cluster=" + cluster
	}
	return u
}
