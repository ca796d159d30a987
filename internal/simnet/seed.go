package simnet

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"spltoken-go/internal/config"
)

// Seed installs the configured mints and funds identity with AirdropLamports.
// A mint without an authority is issued by identity; with no identity either, its supply is fixed.
func Seed(l *Ledger, cfg config.Simnet, identity *solana.PublicKey) error {
	for i, m := range cfg.Mints {
		addr, err := solana.PublicKeyFromBase58(m.Address)
		if err != nil {
			return fmt.Errorf("simnet.mints[%d]: %w", i, err)
		}
		authority := identity
		if m.Authority != "" {
			pk, err := solana.PublicKeyFromBase58(m.Authority)
			if err != nil {
				return fmt.Errorf("simnet.mints[%d].authority: %w", i, err)
			}
			authority = &pk
		}
		if err := l.AddMint(addr, authority, m.Decimals); err != nil {
			return fmt.Errorf("simnet.mints[%d]: %w", i, err)
		}
		ev := l.log.Info().Str("mint", addr.String()).Uint8("decimals", m.Decimals)
		if authority != nil {
			ev = ev.Str("authority", authority.String())
		}
		ev.Msg("mint seeded")
	}
	if identity != nil && cfg.AirdropLamports > 0 {
		if _, err := l.Airdrop(*identity, cfg.AirdropLamports); err != nil {
			return fmt.Errorf("fund identity: %w", err)
		}
		l.log.Info().Str("identity", identity.String()).Uint64("lamports", cfg.AirdropLamports).Msg("identity funded")
	}
	return nil
}
