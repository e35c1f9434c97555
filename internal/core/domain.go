// Package core holds the domain types shared by every layer of the assistant:
// accounts, transactions, lookup conditions and pending actions.
package core

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used whenever a transaction does not name one.
const DefaultCurrency = "RON"

type (
	// Account is a bank account known to the assistant. IBAN is the only stable key.
	Account struct {
		IBAN      string
		Bank      string
		Company   string
		Balance   decimal.Decimal
		CreatedAt time.Time
	}

	// Candidate is the lightweight projection of an Account used while disambiguating.
	Candidate struct {
		IBAN    string `json:"iban"`
		Bank    string `json:"bank,omitempty"`
		Company string `json:"company,omitempty"`
	}

	// Transaction is an immutable ledger entry. Negative amounts are outflows.
	// Amount is nullable because stored rows are not guaranteed to hold a number.
	Transaction struct {
		ID            int64
		Amount        decimal.NullDecimal
		Currency      string
		Account       string
		ProfileID     string
		Description   *string
		InvoiceNumber *string
		CreatedAt     time.Time
	}

	// Conditions are the partial account identifiers extracted from a request.
	Conditions struct {
		IBAN    string `json:"iban,omitempty"`
		Bank    string `json:"banca,omitempty"`
		Company string `json:"compania,omitempty"`
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyIBAN       = errors.New("empty iban")
	ErrEmptyProfile    = errors.New("empty profile id")
	ErrUnknownAction   = errors.New("unknown action type")
	ErrPayloadMismatch = errors.New("payload does not match action type")
)

// Candidate projects the account for disambiguation prompts.
func (a Account) Candidate() Candidate {
	return Candidate{IBAN: a.IBAN, Bank: a.Bank, Company: a.Company}
}

// Validate checks the fields required before an account can be stored.
func (a Account) Validate() error {
	if NormalizeIBAN(a.IBAN) == "" {
		return ErrEmptyIBAN
	}
	return nil
}

// NewTransaction builds a transaction ready for insertion.
func NewTransaction(profileID, iban string, amount decimal.Decimal, currency string) Transaction {
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	return Transaction{
		Amount:    decimal.NewNullDecimal(amount),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Account:   NormalizeIBAN(iban),
		ProfileID: profileID,
	}
}

// Validate checks the fields required before a transaction can be stored.
func (t Transaction) Validate() error {
	if !t.Amount.Valid {
		return ErrInvalidAmount
	}
	if t.Account == "" {
		return ErrEmptyIBAN
	}
	if t.ProfileID == "" {
		return ErrEmptyProfile
	}
	return nil
}

// IsEmpty reports whether no identifier was extracted.
func (c Conditions) IsEmpty() bool {
	return c.IBAN == "" && c.Bank == "" && c.Company == ""
}

// SearchTerm names what the user asked for: the IBAN, else company, else bank.
func (c Conditions) SearchTerm() string {
	switch {
	case c.IBAN != "":
		return c.IBAN
	case c.Company != "":
		return c.Company
	case c.Bank != "":
		return c.Bank
	}
	return ""
}

// NormalizeIBAN returns the canonical IBAN form: no whitespace, upper case.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// LooksLikeIBAN is a shape heuristic, not a checksum validation: at least 12
// characters once whitespace is removed, starting with two letters and
// containing at least one digit.
func LooksLikeIBAN(s string) bool {
	s = NormalizeIBAN(s)
	if len(s) < 12 || !isASCIILetter(s[0]) || !isASCIILetter(s[1]) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func isASCIILetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
