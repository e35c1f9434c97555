package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finbot/internal/core"
)

type actionJSON struct {
	Operation string `json:"operation"`
	Table     string `json:"table"`
	Data      struct {
		Sum         json.RawMessage `json:"sum"`
		Currency    *string         `json:"currency"`
		Description *string         `json:"description"`
	} `json:"data"`
	Conditions struct {
		IBAN    *string `json:"iban"`
		Bank    *string `json:"banca"`
		Company *string `json:"compania"`
	} `json:"conditions"`
}

type sumJSON struct {
	Increment json.RawMessage `json:"increment"`
	Decrement json.RawMessage `json:"decrement"`
}

// ParseAction decodes an action object. data.sum may be a bare number or an
// object holding increment or decrement; a decrement is stored as an outflow.
// A sum that is present but not numeric yields core.ErrInvalidAmount.
func ParseAction(raw string) (Action, error) {
	var aj actionJSON
	if err := json.Unmarshal([]byte(cleanJSON(raw, '{', '}')), &aj); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	a := Action{
		Operation: Operation(strings.ToLower(strings.TrimSpace(aj.Operation))),
		Conditions: core.Conditions{
			IBAN:    core.NormalizeIBAN(deref(aj.Conditions.IBAN)),
			Bank:    strings.TrimSpace(deref(aj.Conditions.Bank)),
			Company: strings.TrimSpace(deref(aj.Conditions.Company)),
		},
		Currency:    strings.ToUpper(strings.TrimSpace(deref(aj.Data.Currency))),
		Description: trimmedPtr(aj.Data.Description),
	}
	if a.Operation == "" {
		a.Operation = OpNone
	}

	amount, err := parseSum(aj.Data.Sum)
	if err != nil {
		return a, err
	}
	a.Amount = amount
	return a, nil
}

func parseSum(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return parseDecimal(raw)
	}

	var s sumJSON
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	inc, err := parseDecimal(s.Increment)
	if err != nil || inc != nil {
		return inc, err
	}
	dec, err := parseDecimal(s.Decrement)
	if err != nil || dec == nil {
		return nil, err
	}
	neg := dec.Abs().Neg()
	return &neg, nil
}

// parseDecimal accepts a JSON number or a string such as "1.234,56".
// null and absent values give nil.
func parseDecimal(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		d, err := core.ParseAmount(stripThousands(s))
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidAmount, raw)
	}
	return &d, nil
}

var currencyNoise = strings.NewReplacer("lei", "", "LEI", "", "RON", "", "ron", "", "EUR", "", "€", "", "$", "", " ", "")

// stripThousands drops currency markers and, when both separators appear,
// the one that is not the last.
func stripThousands(s string) string {
	s = currencyNoise.Replace(strings.TrimSpace(s))
	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	switch {
	case dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
	case comma >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

type periodJSON struct {
	Start      string  `json:"start_iso"`
	End        string  `json:"end_iso"`
	Confidence float64 `json:"confidence"`
	Normalized string  `json:"normalized"`
}

// ParsePeriod decodes a period object. Bounds that do not parse are left
// zero, which makes the period incomplete rather than failing.
func ParsePeriod(raw string) (Period, error) {
	var pj periodJSON
	if err := json.Unmarshal([]byte(cleanJSON(raw, '{', '}')), &pj); err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return Period{
		Start:      parseISO(pj.Start),
		End:        inclusiveEnd(pj.End, parseISO(pj.End)),
		Confidence: pj.Confidence,
		Normalized: strings.TrimSpace(pj.Normalized),
	}, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseISO reads timestamps without an offset as UTC.
func parseISO(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// inclusiveEnd widens an end bound to the last instant it names: a bare day
// covers the whole day and a whole second covers its fraction, since stored
// timestamps carry nanoseconds.
func inclusiveEnd(raw string, t time.Time) time.Time {
	switch {
	case t.IsZero():
		return t
	case len(strings.TrimSpace(raw)) == len(time.DateOnly):
		return t.Add(24*time.Hour - time.Nanosecond)
	case t.Nanosecond() == 0:
		return t.Add(time.Second - time.Nanosecond)
	}
	return t
}

type receiptJSON struct {
	InvoiceNumber *string         `json:"invoice_number"`
	Account       *string         `json:"account"`
	Amount        json.RawMessage `json:"amount"`
	Currency      *string         `json:"currency"`
	Description   *string         `json:"description"`
}

// ParseReceipt decodes a receipt object. Amounts are forced negative and the
// currency defaults to RON.
func ParseReceipt(raw string) (Receipt, error) {
	var rj receiptJSON
	if err := json.Unmarshal([]byte(cleanJSON(raw, '{', '}')), &rj); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	r := Receipt{
		InvoiceNumber: trimmedPtr(rj.InvoiceNumber),
		IBAN:          core.NormalizeIBAN(deref(rj.Account)),
		Currency:      strings.ToUpper(strings.TrimSpace(deref(rj.Currency))),
		Description:   trimmedPtr(rj.Description),
	}
	if r.Currency == "" {
		r.Currency = core.DefaultCurrency
	}

	amount, err := parseDecimal(rj.Amount)
	if err != nil {
		return r, err
	}
	if amount != nil {
		neg := amount.Abs().Neg()
		r.Amount = &neg
	}
	return r, nil
}

// cleanJSON strips Markdown fences and any prose around the outermost
// open/close pair.
func cleanJSON(raw string, open, close byte) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.IndexByte(s, open); start != -1 {
		if end := strings.LastIndexByte(s, close); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmedPtr(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return core.StringPtr(strings.TrimSpace(*s))
}
