// Package simnet is an in-memory SPL token ledger that answers the subset of
// Solana JSON-RPC the programs use. It backs tests and offline runs.
package simnet

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

const (
	// FeePerSignature is charged to the fee payer for every required signature.
	FeePerSignature = 5000
	// TokenAccountRent is the rent-exempt minimum of a 165-byte token account.
	TokenAccountRent = 2_039_280
	// MintRent is the rent-exempt minimum of an 82-byte mint.
	MintRent = 1_461_600

	recentBlockhashes = 150
)

// Status records where a landed transaction sits.
type Status struct {
	Slot uint64
	Err  any
}

// state is the copyable part of the ledger; transactions apply to a clone and commit on success.
type state struct {
	lamports map[solana.PublicKey]uint64
	mints    map[solana.PublicKey]token.Mint
	accounts map[solana.PublicKey]token.Account
}

func newState() state {
	return state{
		lamports: make(map[solana.PublicKey]uint64),
		mints:    make(map[solana.PublicKey]token.Mint),
		accounts: make(map[solana.PublicKey]token.Account),
	}
}

func (s state) clone() state {
	out := state{
		lamports: make(map[solana.PublicKey]uint64, len(s.lamports)),
		mints:    make(map[solana.PublicKey]token.Mint, len(s.mints)),
		accounts: make(map[solana.PublicKey]token.Account, len(s.accounts)),
	}
	for k, v := range s.lamports {
		out.lamports[k] = v
	}
	for k, v := range s.mints {
		out.mints[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	return out
}

// Ledger holds balances, mints, token accounts and landed signatures behind one mutex.
type Ledger struct {
	mu     sync.Mutex
	log    zerolog.Logger
	state  state
	slot   uint64
	hashes []solana.Hash
	sigs   map[solana.Signature]Status
	rec    Recorder
}

// Option configures Ledger construction parameters.
type Option func(*Ledger)

// WithRecorder journals every processed transaction.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) {
		if r != nil {
			l.rec = r
		}
	}
}

// NewLedger constructs an empty ledger at slot 1.
func NewLedger(log zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		log:   log,
		state: newState(),
		slot:  1,
		sigs:  make(map[solana.Signature]Status),
		rec:   NewJournal(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.hashes = append(l.hashes, randomHash())
	return l
}

// AddMint seeds an initialized mint at addr. A nil authority makes the supply fixed.
func (l *Ledger) AddMint(addr solana.PublicKey, authority *solana.PublicKey, decimals uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state.mints[addr]; ok {
		return fmt.Errorf("mint %s already exists", addr)
	}
	if _, ok := l.state.accounts[addr]; ok {
		return fmt.Errorf("%s is a token account", addr)
	}
	l.state.mints[addr] = token.Mint{MintAuthority: authority, Decimals: decimals, IsInitialized: true}
	l.state.lamports[addr] += MintRent
	return nil
}

// CreateMint seeds a mint at a fresh address and returns it.
func (l *Ledger) CreateMint(authority solana.PublicKey, decimals uint8) solana.PublicKey {
	addr := solana.NewWallet().PublicKey()
	_ = l.AddMint(addr, &authority, decimals)
	return addr
}

// Airdrop credits lamports out of thin air and lands a synthetic signature.
func (l *Ledger) Airdrop(to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, errors.New("airdrop of zero lamports")
	}
	var sig solana.Signature
	_, _ = rand.Read(sig[:])

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.lamports[to]+lamports < lamports {
		return solana.Signature{}, errors.New("airdrop overflows balance")
	}
	l.state.lamports[to] += lamports
	l.land(sig, nil)
	l.rec.Record(Entry{Signature: sig.String(), Slot: l.slot, Kind: "airdrop", Instructions: []string{fmt.Sprintf("airdrop %d to %s", lamports, to)}})
	return sig, nil
}

// Lamports returns the SOL balance of addr.
func (l *Ledger) Lamports(addr solana.PublicKey) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.lamports[addr]
}

// Mint returns a copy of the mint at addr.
func (l *Ledger) Mint(addr solana.PublicKey) (token.Mint, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.state.mints[addr]
	return m, ok
}

// TokenAccount returns a copy of the token account at addr.
func (l *Ledger) TokenAccount(addr solana.PublicKey) (token.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.state.accounts[addr]
	return a, ok
}

// SetFrozen flips a token account between Initialized and Frozen.
func (l *Ledger) SetFrozen(addr solana.PublicKey, frozen bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.state.accounts[addr]
	if !ok {
		return fmt.Errorf("token account %s not found", addr)
	}
	a.State = token.Initialized
	if frozen {
		a.State = token.Frozen
	}
	l.state.accounts[addr] = a
	return nil
}

// AddTokenAccount seeds acct at addr as if some other client had created it.
func (l *Ledger) AddTokenAccount(addr solana.PublicKey, acct token.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holdsData(l.state, addr) {
		return fmt.Errorf("%s already holds data", addr)
	}
	if _, ok := l.state.mints[acct.Mint]; !ok {
		return fmt.Errorf("mint %s not found", acct.Mint)
	}
	if acct.State == token.Uninitialized {
		acct.State = token.Initialized
	}
	l.state.accounts[addr] = acct
	l.state.lamports[addr] += TokenAccountRent
	return nil
}

// Approve lets delegate move up to amount out of the token account at addr; zero revokes.
func (l *Ledger) Approve(addr, delegate solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.state.accounts[addr]
	if !ok {
		return fmt.Errorf("token account %s not found", addr)
	}
	a.Delegate, a.DelegatedAmount = nil, 0
	if amount > 0 {
		a.Delegate, a.DelegatedAmount = &delegate, amount
	}
	l.state.accounts[addr] = a
	return nil
}

// AccountInfo renders addr the way getAccountInfo does; nil means no account.
func (l *Ledger) AccountInfo(addr solana.PublicKey) (*rpc.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lamports := l.state.lamports[addr]
	if m, ok := l.state.mints[addr]; ok {
		return tokenProgramAccount(lamports, m, 82)
	}
	if a, ok := l.state.accounts[addr]; ok {
		return tokenProgramAccount(lamports, a, 165)
	}
	if lamports > 0 {
		return &rpc.Account{
			Lamports: lamports,
			Owner:    solana.SystemProgramID,
			Data:     rpc.DataBytesOrJSONFromBytes([]byte{}),
		}, nil
	}
	return nil, nil
}

func tokenProgramAccount(lamports uint64, v any, space uint64) (*rpc.Account, error) {
	var buf bytes.Buffer
	if err := bin.NewBinEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return &rpc.Account{
		Lamports: lamports,
		Owner:    token.ProgramID,
		Data:     rpc.DataBytesOrJSONFromBytes(buf.Bytes()),
		Space:    space,
	}, nil
}

// Slot returns the current slot.
func (l *Ledger) Slot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// LatestBlockhash returns the newest blockhash and the last slot it stays valid.
func (l *Ledger) LatestBlockhash() (solana.Hash, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hashes[len(l.hashes)-1], l.slot + recentBlockhashes
}

// SignatureStatus reports a landed signature.
func (l *Ledger) SignatureStatus(sig solana.Signature) (Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.sigs[sig]
	return st, ok
}

// Fee is what processing msg would charge its fee payer.
func (l *Ledger) Fee(msg *solana.Message) uint64 {
	return FeePerSignature * uint64(msg.Header.NumRequiredSignatures)
}

// land advances the slot, rotates the blockhash and stores the status. Callers hold mu.
func (l *Ledger) land(sig solana.Signature, txErr any) {
	l.slot++
	l.sigs[sig] = Status{Slot: l.slot, Err: txErr}
	l.hashes = append(l.hashes, randomHash())
	if len(l.hashes) > recentBlockhashes {
		l.hashes = l.hashes[len(l.hashes)-recentBlockhashes:]
	}
}

func (l *Ledger) knowsBlockhash(h solana.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.knownBlockhash(h)
}

func (l *Ledger) knownBlockhash(h solana.Hash) bool {
	for _, known := range l.hashes {
		if known.Equals(h) {
			return true
		}
	}
	return false
}

func randomHash() solana.Hash {
	var h solana.Hash
	_, _ = rand.Read(h[:])
	return h
}
