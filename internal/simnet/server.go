package simnet

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gorilla "github.com/gorilla/rpc/v2"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"spltoken-go/internal/metrics"
)

// JSON-RPC error codes used by Solana validators.
const (
	codeParseError        = -32700
	codeInvalidRequest    = -32600
	codeMethodNotFound    = -32601
	codeInvalidParams     = -32602
	codePreflightFailure  = -32002
	codeSignatureFailure  = -32003
	codeInternalError     = -32603
	maxRequestBody        = 1 << 20
	defaultAirdropCeiling = 5_000_000_000

	serviceName = "solana"
)

// Server answers Solana JSON-RPC against a Ledger. Each exported method
// taking (*http.Request, *Params, *any) is one RPC method, named with a
// lower-case initial on the wire.
type Server struct {
	ledger       *Ledger
	airdropLimit uint64
	rpc          *gorilla.Server
}

// NewServer wires the JSON-RPC methods onto l. airdropLimit caps a single
// requestAirdrop; zero keeps the default of 5 SOL.
func NewServer(l *Ledger, airdropLimit uint64) *Server {
	if airdropLimit == 0 {
		airdropLimit = defaultAirdropCeiling
	}
	s := &Server{ledger: l, airdropLimit: airdropLimit, rpc: gorilla.NewServer()}
	s.rpc.RegisterCodec(&codec{service: serviceName, server: s.rpc}, "application/json")
	if err := s.rpc.RegisterService(s, serviceName); err != nil {
		panic(fmt.Sprintf("simnet: register %s service: %v", serviceName, err))
	}
	s.rpc.RegisterAfterFunc(func(i *gorilla.RequestInfo) {
		method := bare(i.Method)
		metrics.RPCRequestsTotal.WithLabelValues(method).Inc()
		if i.Error != nil {
			s.ledger.log.Debug().Str("method", method).Err(i.Error).Msg("rpc error")
		}
	})
	return s
}

// Router mounts JSON-RPC on "/" next to /health and /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxRequestBody))
	r.Use(middleware.Heartbeat("/health"))
	r.Post("/", s.ServeHTTP)
	r.Handle("/metrics", metrics.Handler())
	return r
}

// ServeHTTP handles a single JSON-RPC request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.rpc.ServeHTTP(w, r)
}

func (s *Server) context() rpc.RPCContext {
	return rpc.RPCContext{Context: rpc.Context{Slot: s.ledger.Slot()}}
}

func (s *Server) GetHealth(_ *http.Request, _ *Params, reply *any) error {
	*reply = "ok"
	return nil
}

func (s *Server) GetSlot(_ *http.Request, _ *Params, reply *any) error {
	*reply = s.ledger.Slot()
	return nil
}

func (s *Server) GetLatestBlockhash(_ *http.Request, _ *Params, reply *any) error {
	hash, lastValid := s.ledger.LatestBlockhash()
	*reply = rpc.GetLatestBlockhashResult{
		RPCContext: s.context(),
		Value:      &rpc.LatestBlockhashResult{Blockhash: hash, LastValidBlockHeight: lastValid},
	}
	return nil
}

func (s *Server) GetAccountInfo(_ *http.Request, args *Params, reply *any) error {
	params := *args
	addr, err := pubkeyParam(params, 0)
	if err != nil {
		return err
	}
	acct, err := s.ledger.AccountInfo(addr)
	if err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if acct != nil {
		acct.RentEpoch = big.NewInt(0)
	}
	*reply = rpc.GetAccountInfoResult{RPCContext: s.context(), Value: acct}
	return nil
}

func (s *Server) GetBalance(_ *http.Request, args *Params, reply *any) error {
	params := *args
	addr, err := pubkeyParam(params, 0)
	if err != nil {
		return err
	}
	*reply = rpc.GetBalanceResult{RPCContext: s.context(), Value: s.ledger.Lamports(addr)}
	return nil
}

func (s *Server) GetTokenAccountBalance(_ *http.Request, args *Params, reply *any) error {
	params := *args
	addr, err := pubkeyParam(params, 0)
	if err != nil {
		return err
	}
	acct, ok := s.ledger.TokenAccount(addr)
	if !ok {
		return invalidParams("could not find account")
	}
	mint, ok := s.ledger.Mint(acct.Mint)
	if !ok {
		return invalidParams("could not find mint")
	}
	*reply = rpc.GetTokenAccountBalanceResult{RPCContext: s.context(), Value: uiAmount(acct.Amount, mint.Decimals)}
	return nil
}

func (s *Server) GetTokenSupply(_ *http.Request, args *Params, reply *any) error {
	params := *args
	addr, err := pubkeyParam(params, 0)
	if err != nil {
		return err
	}
	mint, ok := s.ledger.Mint(addr)
	if !ok {
		return invalidParams("not a Token mint")
	}
	*reply = rpc.GetTokenSupplyResult{RPCContext: s.context(), Value: uiAmount(mint.Supply, mint.Decimals)}
	return nil
}

func uiAmount(units uint64, decimals uint8) *rpc.UiTokenAmount {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals))
	f, _ := d.Float64()
	return &rpc.UiTokenAmount{
		Amount:         fmt.Sprintf("%d", units),
		Decimals:       decimals,
		UiAmount:       &f,
		UiAmountString: d.String(),
	}
}

func (s *Server) GetMinimumBalanceForRentExemption(_ *http.Request, args *Params, reply *any) error {
	params := *args
	var size uint64
	if err := param(params, 0, &size); err != nil {
		return err
	}
	switch size {
	case 82:
		*reply = uint64(MintRent)
		return nil
	case 165:
		*reply = uint64(TokenAccountRent)
		return nil
	default:
		// (128 bytes of account overhead + data) * 3480 lamports/byte-year * 2 years
		*reply = (128 + size) * 3480 * 2
		return nil
	}
}

func (s *Server) GetFeeForMessage(_ *http.Request, args *Params, reply *any) error {
	params := *args
	var encoded string
	if err := param(params, 0, &encoded); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return invalidParams("message is not base64: %v", err)
	}
	var msg solana.Message
	if err := msg.UnmarshalWithDecoder(bin.NewBinDecoder(raw)); err != nil {
		return invalidParams("decode message: %v", err)
	}
	out := rpc.GetFeeForMessageResult{RPCContext: s.context()}
	if s.ledger.knowsBlockhash(msg.RecentBlockhash) {
		fee := s.ledger.Fee(&msg)
		out.Value = &fee
	}
	*reply = out
	return nil
}

func (s *Server) RequestAirdrop(_ *http.Request, args *Params, reply *any) error {
	params := *args
	addr, err := pubkeyParam(params, 0)
	if err != nil {
		return err
	}
	var lamports uint64
	if err := param(params, 1, &lamports); err != nil {
		return err
	}
	if lamports > s.airdropLimit {
		return &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("airdrop request exceeds the %d lamport limit", s.airdropLimit)}
	}
	sig, err := s.ledger.Airdrop(addr, lamports)
	if err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	metrics.TransactionsTotal.WithLabelValues("airdrop").Inc()
	*reply = sig
	return nil
}

type sendOpts struct {
	Encoding      string `json:"encoding"`
	SkipPreflight bool   `json:"skipPreflight"`
}

func (s *Server) SendTransaction(_ *http.Request, args *Params, reply *any) error {
	params := *args
	var encoded string
	if err := param(params, 0, &encoded); err != nil {
		return err
	}
	opts := sendOpts{Encoding: "base58"}
	if len(params) > 1 {
		if err := param(params, 1, &opts); err != nil {
			return err
		}
	}
	var raw []byte
	var err error
	switch opts.Encoding {
	case "base64":
		raw, err = base64.StdEncoding.DecodeString(encoded)
	case "base58", "":
		raw, err = base58.Decode(encoded)
	default:
		return invalidParams("unsupported encoding %q", opts.Encoding)
	}
	if err != nil {
		return invalidParams("decode transaction: %v", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return invalidParams("decode transaction: %v", err)
	}

	sig, err := s.ledger.Process(tx, opts.SkipPreflight)
	var txErr *TxError
	if errors.As(err, &txErr) {
		metrics.TransactionsTotal.WithLabelValues("rejected").Inc()
		code := codePreflightFailure
		if txErr.Value == "SignatureFailure" {
			code = codeSignatureFailure
		}
		return &rpcError{
			Code:    code,
			Message: txErr.Message,
			Data:    map[string]any{"err": txErr.Value, "logs": txErr.Logs, "accounts": nil, "unitsConsumed": 0},
		}
	}
	if err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	status := "confirmed"
	if st, ok := s.ledger.SignatureStatus(sig); ok && st.Err != nil {
		status = "failed"
	}
	metrics.TransactionsTotal.WithLabelValues(status).Inc()
	*reply = sig
	return nil
}

func (s *Server) GetSignatureStatuses(_ *http.Request, args *Params, reply *any) error {
	params := *args
	var sigs []solana.Signature
	if err := param(params, 0, &sigs); err != nil {
		return err
	}
	out := rpc.GetSignatureStatusesResult{RPCContext: s.context(), Value: make([]*rpc.SignatureStatusesResult, len(sigs))}
	for i, sig := range sigs {
		st, ok := s.ledger.SignatureStatus(sig)
		if !ok {
			continue
		}
		out.Value[i] = &rpc.SignatureStatusesResult{
			Slot:               st.Slot,
			Err:                st.Err,
			ConfirmationStatus: rpc.ConfirmationStatusFinalized,
		}
	}
	*reply = out
	return nil
}

func param(params Params, i int, v any) error {
	if i >= len(params) {
		return invalidParams("missing parameter %d", i)
	}
	if err := json.Unmarshal(params[i], v); err != nil {
		return invalidParams("parameter %d: %v", i, err)
	}
	return nil
}

func pubkeyParam(params Params, i int) (solana.PublicKey, error) {
	var s string
	if err := param(params, i, &s); err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, invalidParams("%v", err)
	}
	return pk, nil
}
