// Package resolver turns the reply to a choice prompt into a concrete account
// selection and carries out the pending action.
package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"finbot/internal/core"
	"finbot/internal/format"
)

// Outcome is what a reply resolved to.
type Outcome int

const (
	// Reprompt: nothing matched, show the stored prompt again.
	Reprompt Outcome = iota
	// Narrowed: free text matched a subset of the candidates.
	Narrowed
	// Chosen: exactly one candidate was picked.
	Chosen
	// ChosenAll: the "0) all accounts" option of a spend query.
	ChosenAll
	// ChosenMany: several candidates of a balance query.
	ChosenMany
	// DirectLookup: a full IBAN outside the candidate list for a balance query.
	DirectLookup
)

func (o Outcome) String() string {
	switch o {
	case Reprompt:
		return "reprompt"
	case Narrowed:
		return "narrowed"
	case Chosen:
		return "chosen"
	case ChosenAll:
		return "chosen_all"
	case ChosenMany:
		return "chosen_many"
	case DirectLookup:
		return "direct_lookup"
	}
	return "unknown"
}

type Selection struct {
	Outcome    Outcome
	Candidates []core.Candidate
	IBAN       string
}

var (
	integerRe   = regexp.MustCompile(`\b\d+\b`)
	ibanStartRe = regexp.MustCompile(`^[A-Za-z]{2}\d{2}`)
)

// Select applies the resolution rules in order, first match wins:
// several indices (select only), a single index (0 means all for sum_spent),
// a full IBAN among the candidates, a full IBAN outside them (select only),
// a case-insensitive substring of a bank or company name or of the label the
// prompt showed, then reprompt.
func Select(a core.PendingAction, text string) Selection {
	text = strings.TrimSpace(text)
	cands := a.Candidates()
	var indices []int
	if !ibanShaped(text) {
		indices = parseIndices(text)
	}

	if len(indices) >= 2 && a.Type == core.ActionSelect {
		picked := lo.FilterMap(lo.Uniq(indices), func(n int, _ int) (core.Candidate, bool) {
			if n < 1 || n > len(cands) {
				return core.Candidate{}, false
			}
			return cands[n-1], true
		})
		if len(picked) > 0 {
			return Selection{Outcome: ChosenMany, Candidates: picked}
		}
	}

	if len(indices) == 1 {
		n := indices[0]
		if a.Type == core.ActionSumSpent && n == 0 {
			return Selection{Outcome: ChosenAll}
		}
		if n >= 1 && n <= len(cands) {
			return Selection{Outcome: Chosen, Candidates: []core.Candidate{cands[n-1]}}
		}
	}

	if core.LooksLikeIBAN(text) {
		iban := core.NormalizeIBAN(text)
		if c, ok := lo.Find(cands, func(c core.Candidate) bool { return core.NormalizeIBAN(c.IBAN) == iban }); ok {
			return Selection{Outcome: Chosen, Candidates: []core.Candidate{c}}
		}
		if a.Type == core.ActionSelect {
			return Selection{Outcome: DirectLookup, IBAN: iban}
		}
	}

	if needle := strings.ToLower(text); needle != "" {
		narrowed := lo.Filter(cands, func(c core.Candidate, _ int) bool {
			return strings.Contains(strings.ToLower(c.Company), needle) ||
				strings.Contains(strings.ToLower(c.Bank), needle) ||
				strings.Contains(strings.ToLower(format.CandidateLabel(c)), needle)
		})
		if len(narrowed) > 0 {
			return Selection{Outcome: Narrowed, Candidates: narrowed}
		}
	}

	return Selection{Outcome: Reprompt, Candidates: cands}
}

// ibanShaped reports whether text is an IBAN, possibly written in groups,
// so its digit groups are not read as indices.
func ibanShaped(text string) bool {
	return core.LooksLikeIBAN(text) && ibanStartRe.MatchString(text)
}

// parseIndices returns every standalone integer in text. Digits embedded in
// words, such as inside an unspaced IBAN, are not indices.
func parseIndices(text string) []int {
	var out []int
	for _, m := range integerRe.FindAllString(text, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
