package assistant

import (
	"regexp"
	"strings"
)

var (
	undoKeywords = []string{
		"undo",
		"anuleaza",
		"anulează",
		"sterge ultima",
		"șterge ultima",
		"retrag ultima tranzactie",
		"retrag ultima tranzacție",
	}

	newIntentKeywords = []string{
		"plătesc",
		"am plătit",
		"plata",
		"sold",
		"cât am",
		"extras",
		"raport",
		"transfer",
		"cheltuit",
		"vreau să transfer",
		"am primit",
	}

	allAccountsKeywords = []string{
		"toate",
		"toate conturile",
		"soldul din toate",
		"soldurile",
	}

	spendPattern = regexp.MustCompile(`(?i)c(â|a)t\s+am\s+cheltuit`)
)

// IsUndo reports whether text asks to revert the last transaction.
func IsUndo(text string) bool {
	return containsAny(text, undoKeywords)
}

// IsNewIntent reports whether text starts a new request rather than
// answering a pending choice.
func IsNewIntent(text string) bool {
	return containsAny(text, newIntentKeywords)
}

// IsSpendQuery matches "how much did I spend" questions.
func IsSpendQuery(text string) bool {
	return spendPattern.MatchString(text)
}

func mentionsAllAccounts(text string) bool {
	return containsAny(text, allAccountsKeywords)
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
