// Package format renders every user-facing reply. Texts are Romanian, amounts
// carry two decimals and IBANs are masked.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

// zeroWidth prefixes numbered lines in the spend prompt so the messaging
// client does not turn them into an auto-numbered list.
const zeroWidth = "\u200B"

// Fixed replies.
const (
	NotUnderstood      = "❌ Nu am înțeles cererea. Poți reformula?"
	UnknownOperation   = "❌ Operațiune necunoscută."
	AskPeriod          = "❓ Pentru ce perioadă vrei să calculez? (ex: azi, ieri, ultimele 7 zile, săptămâna trecută, între 2025-01-05 și 2025-02-07)"
	NoSpendAccounts    = "❌ Nu am găsit conturi potrivite pentru această întrebare."
	NoAccounts         = "❌ Nu există conturi în baza de date."
	AmountMissing      = "⚠️ Suma lipsește în acțiunea anterioară. Repetă comanda."
	AmountInvalid      = "❌ Suma nu este validă."
	AmountUnclear      = "❌ Nu am înțeles suma pentru tranzacție."
	BalanceUnavailable = "❌ Eroare la obținerea soldului."
	NothingToUndo      = "❌ Nu am găsit nicio tranzacție de anulat."
	MediaAccepted      = "✅ Am primit fișierul și îl procesez. Vei primi rezultatul în curând."
	MediaBusy          = "⚠️ Procesez deja multe fișiere. Încearcă din nou în câteva minute."
	MediaDisabled      = "⚠️ Procesarea fișierelor nu este disponibilă momentan."
	EmptyMessage       = "⚠️ Mesajul nu conține text sau media recunoscută."
	UnknownMedia       = "❌ Tip media necunoscut."
	ReceiptUnreadable  = "❌ Nu am putut citi datele din document."
	AudioUnreadable    = "❌ Nu am putut transcrie mesajul vocal."
	InternalError      = "❌ A apărut o eroare internă. Te rog încearcă din nou."
	PendingUnreadable  = "❌ Nu am putut citi cererea în așteptare. Repetă comanda."
)

var whitespace = regexp.MustCompile(`\s+`)

// MaskIBAN keeps the first 6 and last 4 characters. Values of 8 characters or
// fewer are returned whole.
func MaskIBAN(iban string) string {
	s := whitespace.ReplaceAllString(iban, "")
	r := []rune(s)
	if len(r) <= 8 {
		return s
	}
	return string(r[:6]) + "…" + string(r[len(r)-4:])
}

// Amount renders d with two decimals.
func Amount(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

var bankShort = map[string]string{
	"Banca Transilvania":    "BT",
	"ING Bank":              "ING",
	"Raiffeisen Bank":       "Raiffeisen",
	"UniCredit Bank":        "UniCredit",
	"CEC Bank":              "CEC",
	"Alpha Bank":            "Alpha",
	"OTP Bank":              "OTP",
	"First Bank":            "First",
	"Libra Internet Bank":   "Libra",
	"Vista Bank":            "Vista",
	"Patria Bank":           "Patria",
	"Garanti BBVA":          "Garanti",
	"Intesa Sanpaolo Bank":  "Intesa",
	"TBI Bank":              "TBI",
	"Exim Banca Românească": "Exim",
}

// CandidateLabel is the short label used in choice prompts.
func CandidateLabel(c core.Candidate) string {
	bank := c.Bank
	if short, ok := bankShort[bank]; ok {
		bank = short
	}
	if d := strings.TrimSpace(bank + " " + c.Company); d != "" {
		return d
	}
	return "cont"
}

// AccountName is "bank - company", whichever parts exist, else the IBAN.
func AccountName(bank, company, iban string) string {
	parts := lo.Compact([]string{strings.TrimSpace(bank), strings.TrimSpace(company)})
	if len(parts) == 0 {
		return iban
	}
	return strings.Join(parts, " - ")
}

// ChoicePrompt lists candidates numbered from 1.
func ChoicePrompt(alias string, cs []core.Candidate) string {
	lines := []string{fmt.Sprintf("Am găsit mai multe conturi pentru «%s». Alege varianta:", alias)}
	for i, c := range cs {
		lines = append(lines, fmt.Sprintf("%d) %s — %s", i+1, CandidateLabel(c), MaskIBAN(c.IBAN)))
	}
	lines = append(lines, "Răspunde cu *1* sau *2* … ori trimite IBAN-ul complet.")
	return strings.Join(lines, "\n")
}

// ChoicePromptWithAll is ChoicePrompt with a leading "0) all accounts" option.
func ChoicePromptWithAll(alias string, cs []core.Candidate) string {
	lines := []string{
		fmt.Sprintf("Am găsit mai multe conturi pentru «%s». Alege varianta:", alias),
		zeroWidth + "0) Toate conturile",
	}
	for i, c := range cs {
		lines = append(lines, fmt.Sprintf("%s%d) %s — %s", zeroWidth, i+1, CandidateLabel(c), MaskIBAN(c.IBAN)))
	}
	lines = append(lines, "Răspunde cu *0* pentru toate conturile, *1* sau *2* … ori trimite IBAN-ul complet.")
	return strings.Join(lines, "\n")
}

// Balance is the single-account balance line.
func Balance(a core.Account) string {
	return fmt.Sprintf("📊 Sold cont %s: %s RON.", AccountName(a.Bank, a.Company, a.IBAN), Amount(a.Balance))
}

// AllBalances lists every account followed by the grand total.
func AllBalances(accounts []core.Account) string {
	if len(accounts) == 0 {
		return NoAccounts
	}
	lines := []string{"📊 Soldurile pentru toate conturile:"}
	total := decimal.Zero
	for i, a := range accounts {
		name := AccountName(a.Bank, a.Company, "Cont necunoscut")
		lines = append(lines,
			fmt.Sprintf("  %d. %s", i+1, name),
			fmt.Sprintf("     IBAN: %s", MaskIBAN(a.IBAN)),
			fmt.Sprintf("     Sold: %s RON", Amount(a.Balance)),
			"",
		)
		total = total.Add(a.Balance)
	}
	lines = append(lines, fmt.Sprintf("💰 Total general: %s RON", Amount(total)))
	return strings.Join(lines, "\n")
}

// TransactionSaved confirms an insert. The balance line is omitted when the
// account could not be read back.
func TransactionSaved(t core.Transaction, a *core.Account) string {
	if a == nil {
		return fmt.Sprintf("✅ Tranzacție salvată: %s %s (%s).", Amount(t.Amount.Decimal), t.Currency, MaskIBAN(t.Account))
	}
	return fmt.Sprintf("✅ Tranzacție salvată: %s %s în contul %s (%s). Sold curent: %s RON.",
		Amount(t.Amount.Decimal), t.Currency, AccountName(a.Bank, a.Company, a.IBAN), MaskIBAN(a.IBAN), Amount(a.Balance))
}

// Spent reports a spend total; a nil candidate means every account.
func Spent(total decimal.Decimal, c *core.Candidate) string {
	if c == nil {
		return fmt.Sprintf("💸 Ai cheltuit %s RON în total în perioada selectată (toate conturile).", Amount(total))
	}
	return fmt.Sprintf("💸 Ai cheltuit %s RON în perioada selectată în %s (%s).",
		Amount(total), AccountName(c.Bank, c.Company, c.IBAN), MaskIBAN(c.IBAN))
}

// NotFound names the term that matched nothing.
func NotFound(term string) string {
	if strings.TrimSpace(term) == "" {
		term = "contul cerut"
	}
	return fmt.Sprintf("❌ Nu găsesc niciun cont pentru «%s». Trimite IBAN-ul sau un indiciu mai clar (bancă + companie).", term)
}

func SaveFailed(err error) string {
	return fmt.Sprintf("❌ Eroare la salvarea tranzacției: %v", err)
}

// Undone confirms an undo, with the balance after deletion when known.
func Undone(t core.Transaction, a *core.Account) string {
	amount := "0.00"
	if t.Amount.Valid {
		amount = Amount(t.Amount.Decimal)
	}
	if a == nil {
		return fmt.Sprintf("✅ Tranzacția de %s %s a fost anulată.", amount, t.Currency)
	}
	return fmt.Sprintf("✅ Tranzacția de %s %s a fost anulată. Sold curent %s: %s RON.",
		amount, t.Currency, AccountName(a.Bank, a.Company, MaskIBAN(a.IBAN)), Amount(a.Balance))
}

func MediaDownloadFailed(err error) string {
	return fmt.Sprintf("❌ Eroare la descărcare media: %v", err)
}
