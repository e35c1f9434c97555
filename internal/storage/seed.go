package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

// SeedFile is the YAML layout accepted by LoadSeed:
//
//	accounts:
//	  - iban: RO49AAAA1B31007593840000
//	    bank: Banca Transilvania
//	    company: Firma SRL
//	    balance: "1250.00"
type SeedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

type SeedAccount struct {
	IBAN    string `yaml:"iban"`
	Bank    string `yaml:"bank"`
	Company string `yaml:"company"`
	Balance string `yaml:"balance"`
}

// LoadSeed reads accounts from a YAML seed file, preserving file order.
func LoadSeed(path string) ([]core.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]core.Account, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	out := make([]core.Account, 0, len(f.Accounts))
	for i, sa := range f.Accounts {
		balance := decimal.Zero
		if strings.TrimSpace(sa.Balance) != "" {
			b, err := core.ParseAmount(sa.Balance)
			if err != nil {
				return nil, fmt.Errorf("account %d: balance %q: %w", i+1, sa.Balance, err)
			}
			balance = b
		}
		a := core.Account{
			IBAN:    core.NormalizeIBAN(sa.IBAN),
			Bank:    strings.TrimSpace(sa.Bank),
			Company: strings.TrimSpace(sa.Company),
			Balance: balance,
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("account %d: %w", i+1, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ImportAccounts adds every account not already known to the store and
// returns how many were inserted.
func ImportAccounts(ctx context.Context, s AccountStore, accounts []core.Account) (int, error) {
	added := 0
	for _, a := range accounts {
		_, err := s.GetAccount(ctx, a.IBAN)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return added, err
		}
		if err := s.AddAccount(ctx, a); err != nil {
			return added, fmt.Errorf("add account %s: %w", a.IBAN, err)
		}
		added++
	}
	return added, nil
}
