package simnet

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Token and system program error codes reported as {"Custom": n}.
const (
	codeInsufficientFunds    = 1
	codeInvalidMint          = 2
	codeMintMismatch         = 3
	codeOwnerMismatch        = 4
	codeFixedSupply          = 5
	codeOverflow             = 14
	codeAccountFrozen        = 17
	codeMintDecimalsMismatch = 18

	codeAccountAlreadyInUse        = 0
	codeResultWithNegativeLamports = 1
)

// TxError is a transaction the ledger refused. Value is the TransactionError in
// its JSON-RPC shape, e.g. "BlockhashNotFound" or {"InstructionError":[0,{"Custom":1}]}.
type TxError struct {
	Value   any
	Message string
	Logs    []string
}

func (e *TxError) Error() string { return e.Message }

type ixFailure struct {
	name   string
	custom *uint32
	msg    string
}

func custom(code uint32, format string, args ...any) *ixFailure {
	return &ixFailure{custom: &code, msg: fmt.Sprintf(format, args...)}
}

func named(name, format string, args ...any) *ixFailure {
	return &ixFailure{name: name, msg: fmt.Sprintf(format, args...)}
}

func (f *ixFailure) detail() any {
	if f.custom != nil {
		return map[string]any{"Custom": *f.custom}
	}
	return f.name
}

func (f *ixFailure) describe() string {
	if f.custom != nil {
		return fmt.Sprintf("custom program error: 0x%x", *f.custom)
	}
	return f.name
}

func txError(name, msg string) *TxError {
	return &TxError{Value: name, Message: msg}
}

// Process verifies, executes and lands tx. Without skipPreflight a failing
// transaction is rejected untouched, like a failed simulation. With it the fee
// is still charged and the failure is stored as the signature status.
func (l *Ledger) Process(tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, txError("SignatureFailure", "transaction carries no signatures")
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, txError("SignatureFailure", "Transaction signature verification failure: "+err.Error())
	}
	if len(tx.Message.AccountKeys) == 0 {
		return solana.Signature{}, txError("AccountNotFound", "transaction has no accounts")
	}
	sig := tx.Signatures[0]
	payer := tx.Message.AccountKeys[0]
	fee := l.Fee(&tx.Message)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.sigs[sig]; dup {
		return sig, txError("AlreadyProcessed", "This transaction has already been processed")
	}
	if !l.knownBlockhash(tx.Message.RecentBlockhash) {
		return sig, txError("BlockhashNotFound", "Blockhash not found")
	}
	switch bal := l.state.lamports[payer]; {
	case bal == 0:
		return sig, txError("AccountNotFound", "Attempt to debit an account but found no record of a prior credit.")
	case bal < fee:
		return sig, txError("InsufficientFundsForFee", "Insufficient funds for fee")
	}

	work := l.state.clone()
	work.lamports[payer] -= fee
	entry := Entry{Signature: sig.String(), Kind: "transaction", Fee: fee}

	for i, ci := range tx.Message.Instructions {
		program, err := tx.ResolveProgramIDIndex(ci.ProgramIDIndex)
		if err != nil {
			return sig, txError("InvalidAccountIndex", err.Error())
		}
		metas, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return sig, txError("InvalidAccountIndex", err.Error())
		}
		entry.Logs = append(entry.Logs, fmt.Sprintf("Program %s invoke [1]", program))
		desc, fail := execute(work, program, metas, ci.Data)
		if fail != nil {
			entry.Logs = append(entry.Logs, fmt.Sprintf("Program log: Error: %s", fail.msg), fmt.Sprintf("Program %s failed: %s", program, fail.describe()))
			txErr := &TxError{
				Value:   map[string]any{"InstructionError": []any{i, fail.detail()}},
				Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", i, fail.describe()),
				Logs:    entry.Logs,
			}
			if !skipPreflight {
				return sig, txErr
			}
			l.state.lamports[payer] -= fee
			l.land(sig, txErr.Value)
			entry.Slot, entry.Err = l.slot, txErr.Value
			l.rec.Record(entry)
			l.log.Debug().Str("sig", sig.String()).Str("err", txErr.Message).Msg("landed failed transaction")
			return sig, nil
		}
		entry.Instructions = append(entry.Instructions, desc)
		entry.Logs = append(entry.Logs, fmt.Sprintf("Program %s success", program))
	}

	l.state = work
	l.land(sig, nil)
	entry.Slot = l.slot
	l.rec.Record(entry)
	l.log.Debug().Str("sig", sig.String()).Uint64("slot", l.slot).Strs("instructions", entry.Instructions).Msg("landed transaction")
	return sig, nil
}

func execute(s state, program solana.PublicKey, metas []*solana.AccountMeta, data []byte) (string, *ixFailure) {
	switch {
	case program.Equals(solana.SystemProgramID):
		return executeSystem(s, metas, data)
	case program.Equals(solana.SPLAssociatedTokenAccountProgramID):
		return executeAssociated(s, metas, data)
	case program.Equals(solana.TokenProgramID):
		return executeToken(s, metas, data)
	default:
		return "", named("UnsupportedProgramId", "program %s is not loaded", program)
	}
}

func executeSystem(s state, metas []*solana.AccountMeta, data []byte) (string, *ixFailure) {
	if len(metas) < 2 {
		return "", named("NotEnoughAccountKeys", "transfer needs two accounts")
	}
	inst, err := system.DecodeInstruction(metas, data)
	if err != nil {
		return "", named("InvalidInstructionData", "%v", err)
	}
	tr, ok := inst.Impl.(*system.Transfer)
	if !ok {
		return "", named("InvalidInstructionData", "unsupported system instruction %T", inst.Impl)
	}
	from, to := tr.GetFundingAccount(), tr.GetRecipientAccount()
	if !from.IsSigner {
		return "", named("MissingRequiredSignature", "%s did not sign", from.PublicKey)
	}
	if holdsData(s, from.PublicKey) {
		return "", named("InvalidArgument", "Transfer: `from` must not carry data")
	}
	amount := *tr.Lamports
	if s.lamports[from.PublicKey] < amount {
		return "", custom(codeResultWithNegativeLamports, "Transfer: insufficient lamports %d, need %d", s.lamports[from.PublicKey], amount)
	}
	s.lamports[from.PublicKey] -= amount
	s.lamports[to.PublicKey] += amount
	return fmt.Sprintf("system.Transfer %d %s -> %s", amount, from.PublicKey, to.PublicKey), nil
}

func holdsData(s state, addr solana.PublicKey) bool {
	_, mint := s.mints[addr]
	_, acct := s.accounts[addr]
	return mint || acct
}

func executeAssociated(s state, metas []*solana.AccountMeta, data []byte) (string, *ixFailure) {
	idempotent := false
	switch {
	case len(data) == 0 || (len(data) == 1 && data[0] == 0):
	case len(data) == 1 && data[0] == 1:
		idempotent = true
	default:
		return "", named("InvalidInstructionData", "unknown associated token instruction %v", data)
	}
	if len(metas) < 6 {
		return "", named("NotEnoughAccountKeys", "create needs 6 accounts, got %d", len(metas))
	}
	payer, ata, wallet, mint := metas[0], metas[1].PublicKey, metas[2].PublicKey, metas[3].PublicKey
	if !payer.IsSigner {
		return "", named("MissingRequiredSignature", "payer %s did not sign", payer.PublicKey)
	}
	if !metas[5].PublicKey.Equals(token.ProgramID) {
		return "", named("IncorrectProgramId", "token program %s is not supported", metas[5].PublicKey)
	}
	want, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil || !want.Equals(ata) {
		return "", named("InvalidSeeds", "Associated address does not match seed derivation")
	}
	if _, ok := s.mints[mint]; !ok {
		return "", named("InvalidAccountData", "%s is not a mint", mint)
	}
	if existing, ok := s.accounts[ata]; ok {
		if idempotent && existing.Owner.Equals(wallet) && existing.Mint.Equals(mint) {
			return fmt.Sprintf("ata.CreateIdempotent %s (exists)", ata), nil
		}
		if idempotent {
			return "", named("IllegalOwner", "%s is held by another owner", ata)
		}
		return "", custom(codeAccountAlreadyInUse, "Create Account: account Address { address: %s, base: None } already in use", ata)
	}
	if s.lamports[payer.PublicKey] < TokenAccountRent {
		return "", custom(codeResultWithNegativeLamports, "Transfer: insufficient lamports %d, need %d", s.lamports[payer.PublicKey], TokenAccountRent)
	}
	s.lamports[payer.PublicKey] -= TokenAccountRent
	s.lamports[ata] += TokenAccountRent
	s.accounts[ata] = token.Account{Mint: mint, Owner: wallet, State: token.Initialized}
	return fmt.Sprintf("ata.Create %s owner=%s mint=%s", ata, wallet, mint), nil
}

func executeToken(s state, metas []*solana.AccountMeta, data []byte) (string, *ixFailure) {
	inst, err := token.DecodeInstruction(metas, data)
	if err != nil {
		return "", named("InvalidInstructionData", "%v", err)
	}
	need := 3
	if _, ok := inst.Impl.(*token.TransferChecked); ok {
		need = 4
	}
	if len(metas) < need {
		return "", named("NotEnoughAccountKeys", "token instruction needs %d accounts, got %d", need, len(metas))
	}
	switch ix := inst.Impl.(type) {
	case *token.MintTo:
		return mintTo(s, ix.GetMintAccount(), ix.GetDestinationAccount(), ix.GetAuthorityAccount(), ix.Amount, nil)
	case *token.MintToChecked:
		return mintTo(s, ix.GetMintAccount(), ix.GetDestinationAccount(), ix.GetAuthorityAccount(), ix.Amount, ix.Decimals)
	case *token.Transfer:
		return transfer(s, ix.GetSourceAccount(), nil, ix.GetDestinationAccount(), ix.GetOwnerAccount(), ix.Amount, nil)
	case *token.TransferChecked:
		return transfer(s, ix.GetSourceAccount(), ix.GetMintAccount(), ix.GetDestinationAccount(), ix.GetOwnerAccount(), ix.Amount, ix.Decimals)
	default:
		return "", named("InvalidInstructionData", "unsupported token instruction %T", inst.Impl)
	}
}

func mintTo(s state, mintMeta, destMeta, authMeta *solana.AccountMeta, amount *uint64, decimals *uint8) (string, *ixFailure) {
	mint, ok := s.mints[mintMeta.PublicKey]
	if !ok {
		return "", named("InvalidAccountData", "%s is not a mint", mintMeta.PublicKey)
	}
	dest, ok := s.accounts[destMeta.PublicKey]
	if !ok {
		return "", named("InvalidAccountData", "%s is not a token account", destMeta.PublicKey)
	}
	if dest.State == token.Frozen {
		return "", custom(codeAccountFrozen, "Account is frozen")
	}
	if !dest.Mint.Equals(mintMeta.PublicKey) {
		return "", custom(codeMintMismatch, "Account not associated with this Mint")
	}
	if decimals != nil && *decimals != mint.Decimals {
		return "", custom(codeMintDecimalsMismatch, "The provided decimals value different from the Mint decimals")
	}
	if mint.MintAuthority == nil {
		return "", custom(codeFixedSupply, "Fixed supply")
	}
	if !mint.MintAuthority.Equals(authMeta.PublicKey) {
		return "", custom(codeOwnerMismatch, "Owner does not match")
	}
	if !authMeta.IsSigner {
		return "", named("MissingRequiredSignature", "mint authority %s did not sign", authMeta.PublicKey)
	}
	if mint.Supply+*amount < mint.Supply || dest.Amount+*amount < dest.Amount {
		return "", custom(codeOverflow, "Operation overflowed")
	}
	mint.Supply += *amount
	dest.Amount += *amount
	s.mints[mintMeta.PublicKey] = mint
	s.accounts[destMeta.PublicKey] = dest
	return fmt.Sprintf("token.MintTo %d -> %s", *amount, destMeta.PublicKey), nil
}

func transfer(s state, srcMeta, mintMeta, dstMeta, ownerMeta *solana.AccountMeta, amount *uint64, decimals *uint8) (string, *ixFailure) {
	src, ok := s.accounts[srcMeta.PublicKey]
	if !ok {
		return "", named("InvalidAccountData", "%s is not a token account", srcMeta.PublicKey)
	}
	dst, ok := s.accounts[dstMeta.PublicKey]
	if !ok {
		return "", named("InvalidAccountData", "%s is not a token account", dstMeta.PublicKey)
	}
	if src.State == token.Frozen || dst.State == token.Frozen {
		return "", custom(codeAccountFrozen, "Account is frozen")
	}
	if !src.Mint.Equals(dst.Mint) {
		return "", custom(codeMintMismatch, "Account not associated with this Mint")
	}
	if mintMeta != nil {
		if !mintMeta.PublicKey.Equals(src.Mint) {
			return "", custom(codeMintMismatch, "Account not associated with this Mint")
		}
		mint, ok := s.mints[mintMeta.PublicKey]
		if !ok {
			return "", custom(codeInvalidMint, "Invalid Mint")
		}
		if decimals != nil && *decimals != mint.Decimals {
			return "", custom(codeMintDecimalsMismatch, "The provided decimals value different from the Mint decimals")
		}
	}
	if src.Amount < *amount {
		return "", custom(codeInsufficientFunds, "insufficient funds")
	}

	signer := ownerMeta.PublicKey
	switch {
	case src.Owner.Equals(signer):
	case src.Delegate != nil && src.Delegate.Equals(signer):
		if src.DelegatedAmount < *amount {
			return "", custom(codeInsufficientFunds, "insufficient delegated funds")
		}
		src.DelegatedAmount -= *amount
		if src.DelegatedAmount == 0 {
			src.Delegate = nil
		}
	default:
		return "", custom(codeOwnerMismatch, "Owner does not match")
	}
	if !ownerMeta.IsSigner {
		return "", named("MissingRequiredSignature", "%s did not sign", signer)
	}
	if srcMeta.PublicKey.Equals(dstMeta.PublicKey) {
		s.accounts[srcMeta.PublicKey] = src
		return fmt.Sprintf("token.Transfer %d %s -> self", *amount, srcMeta.PublicKey), nil
	}
	if dst.Amount+*amount < dst.Amount {
		return "", custom(codeOverflow, "Operation overflowed")
	}
	src.Amount -= *amount
	dst.Amount += *amount
	s.accounts[srcMeta.PublicKey] = src
	s.accounts[dstMeta.PublicKey] = dst
	return fmt.Sprintf("token.Transfer %d %s -> %s", *amount, srcMeta.PublicKey, dstMeta.PublicKey), nil
}
