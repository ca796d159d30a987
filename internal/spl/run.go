package spl

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage is a position in the per-run lifecycle
// Unresolved -> AccountsResolved -> OperationSubmitted -> Confirmed | Failed.
type Stage string

const (
	StageUnresolved         Stage = "unresolved"
	StageAccountsResolved   Stage = "accounts_resolved"
	StageOperationSubmitted Stage = "operation_submitted"
	StageConfirmed          Stage = "confirmed"
	StageFailed             Stage = "failed"
)

// ErrRunFinished is returned when a run that already reached a terminal stage is reused.
var ErrRunFinished = errors.New("run already finished")

// Run drives one program invocation: resolve accounts, then exactly one operation.
// Any error is terminal; nothing is retried.
type Run struct {
	id       string
	client   *Client
	log      zerolog.Logger
	stage    Stage
	resolved map[solana.PublicKey]struct{}
	result   Result
	err      error
}

// NewRun starts a run in the Unresolved stage.
func NewRun(client *Client, log zerolog.Logger) *Run {
	id := uuid.NewString()
	return &Run{
		id:       id,
		client:   client,
		log:      log.With().Str("run", id).Logger(),
		stage:    StageUnresolved,
		resolved: make(map[solana.PublicKey]struct{}),
	}
}

// ID identifies the run in logs.
func (r *Run) ID() string { return r.id }

// Stage reports the current lifecycle stage.
func (r *Run) Stage() Stage { return r.stage }

// Err returns the error that failed the run, if any.
func (r *Run) Err() error { return r.err }

// Result returns the confirmed operation result; zero until Confirmed.
func (r *Run) Result() Result { return r.result }

// Resolve finds or creates owner's account for mint and records it as usable by this run.
func (r *Run) Resolve(ctx context.Context, payer solana.PrivateKey, owner, mint solana.PublicKey) (AccountRef, error) {
	if r.stage != StageUnresolved && r.stage != StageAccountsResolved {
		return AccountRef{}, fmt.Errorf("resolve in stage %s: %w", r.stage, ErrRunFinished)
	}
	ref, err := r.client.ResolveAccount(ctx, payer, owner, mint)
	if err != nil {
		return AccountRef{}, r.fail(err)
	}
	r.resolved[ref.Address] = struct{}{}
	r.log.Info().Str("owner", owner.String()).Str("ata", ref.Address.String()).Bool("created", ref.Created).Msg("account resolved")
	r.advance(StageAccountsResolved)
	return ref, nil
}

// Mint issues amount into dest, which must have been resolved by this run.
func (r *Run) Mint(ctx context.Context, payer, authority solana.PrivateKey, dest AccountRef, amount uint64) (Result, error) {
	if err := r.ready(dest); err != nil {
		return Result{}, err
	}
	r.advance(StageOperationSubmitted)
	return r.finish(r.client.MintTo(ctx, payer, authority, dest, amount))
}

// Transfer moves amount from src to dst; both must have been resolved by this run.
func (r *Run) Transfer(ctx context.Context, payer, owner solana.PrivateKey, src, dst AccountRef, amount uint64) (Result, error) {
	if err := r.ready(src, dst); err != nil {
		return Result{}, err
	}
	r.advance(StageOperationSubmitted)
	return r.finish(r.client.Transfer(ctx, payer, owner, src, dst, amount))
}

// Abort ends a run that has not reached a terminal stage with err, e.g. when a
// requested amount is refused before anything is submitted.
func (r *Run) Abort(err error) error {
	if err == nil || r.stage == StageConfirmed || r.stage == StageFailed {
		return err
	}
	r.log.Warn().Err(err).Str("stage", string(r.stage)).Msg("run aborted")
	return r.fail(err)
}

func (r *Run) ready(refs ...AccountRef) error {
	if r.stage != StageAccountsResolved {
		if r.stage == StageUnresolved {
			return r.fail(opErr("run", ErrInvalidReference, "no account resolved yet"))
		}
		return fmt.Errorf("operation in stage %s: %w", r.stage, ErrRunFinished)
	}
	for _, ref := range refs {
		if _, ok := r.resolved[ref.Address]; !ok {
			return r.fail(opErr("run", ErrInvalidReference, "account %s was not resolved by this run", ref.Address))
		}
	}
	return nil
}

func (r *Run) finish(res Result, err error) (Result, error) {
	if err != nil {
		return res, r.fail(err)
	}
	r.result = res
	r.advance(StageConfirmed)
	return res, nil
}

func (r *Run) fail(err error) error {
	r.err = err
	r.advance(StageFailed)
	return err
}

func (r *Run) advance(next Stage) {
	if r.stage == next {
		return
	}
	r.log.Debug().Str("from", string(r.stage)).Str("stage", string(next)).Msg("run stage")
	r.stage = next
}
