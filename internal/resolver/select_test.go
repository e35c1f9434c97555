package resolver

import (
	"testing"

	"finbot/internal/core"
)

var three = []core.Candidate{
	{IBAN: "RO11BTRL0000000000000001", Bank: "Banca Transilvania", Company: "Alpha SRL"},
	{IBAN: "RO22BTRL0000000000000002", Bank: "Banca Transilvania", Company: "Beta SRL"},
	{IBAN: "RO33INGB0000000000000003", Bank: "ING Bank", Company: "Alpha Construct"},
}

func action(t core.ActionType) core.PendingAction {
	switch t {
	case core.ActionSelect:
		return core.NewSelectAction("p1", core.BalancePayload{Candidates: three, SearchTerm: "BT"})
	case core.ActionSumSpent:
		return core.NewSpendAction("p1", core.SpendPayload{Candidates: three, SearchTerm: "cont"})
	case core.ActionAddTrx:
		return core.NewAddTrxAction("p1", core.TransferPayload{Candidates: three})
	}
	return core.NewUpdateAction("p1", core.TransferPayload{Candidates: three, SearchTerm: "BT"})
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		typ     core.ActionType
		text    string
		outcome Outcome
		ibans   []string
		iban    string
	}{
		{"multi index select", core.ActionSelect, "1 si 3", ChosenMany, []string{three[0].IBAN, three[2].IBAN}, ""},
		{"multi index drops out of range", core.ActionSelect, "1, 7", ChosenMany, []string{three[0].IBAN}, ""},
		{"multi index dedupes", core.ActionSelect, "2 2", ChosenMany, []string{three[1].IBAN}, ""},
		{"multi index all out of range falls through", core.ActionSelect, "8 9", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"multi index ignored for update", core.ActionUpdate, "1 2", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"single index", core.ActionUpdate, "2", Chosen, []string{three[1].IBAN}, ""},
		{"single index in sentence", core.ActionAddTrx, "varianta 3 te rog", Chosen, []string{three[2].IBAN}, ""},
		{"zero is all for spend", core.ActionSumSpent, "0", ChosenAll, nil, ""},
		{"zero is not an index for select", core.ActionSelect, "0", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"index out of range", core.ActionUpdate, "4", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"iban among candidates", core.ActionUpdate, "ro22 btrl 0000 0000 0000 0002", Chosen, []string{three[1].IBAN}, ""},
		{"unspaced iban among candidates", core.ActionSumSpent, "RO33INGB0000000000000003", Chosen, []string{three[2].IBAN}, ""},
		{"iban outside candidates for select", core.ActionSelect, "RO99RNCB0000000000000009", DirectLookup, nil, "RO99RNCB0000000000000009"},
		{"spaced iban groups are not indices", core.ActionSelect, "RO11 BTRL 0000 0000 0000 0002", DirectLookup, nil, "RO11BTRL0000000000000002"},
		{"iban outside candidates for update", core.ActionUpdate, "RO99RNCB0000000000000009", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"free text narrows by company", core.ActionUpdate, "alpha", Narrowed, []string{three[0].IBAN, three[2].IBAN}, ""},
		{"free text narrows by bank", core.ActionSelect, "ING", Narrowed, []string{three[2].IBAN}, ""},
		{"short bank label from the prompt", core.ActionUpdate, "BT", Narrowed, []string{three[0].IBAN, three[1].IBAN}, ""},
		{"full prompt label", core.ActionUpdate, "BT Alpha SRL", Narrowed, []string{three[0].IBAN}, ""},
		{"empty text reprompts", core.ActionUpdate, "   ", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
		{"unrelated text reprompts", core.ActionUpdate, "nu stiu", Reprompt, []string{three[0].IBAN, three[1].IBAN, three[2].IBAN}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(action(tt.typ), tt.text)
			if got.Outcome != tt.outcome {
				t.Fatalf("outcome = %s, want %s", got.Outcome, tt.outcome)
			}
			if got.IBAN != tt.iban {
				t.Errorf("iban = %q, want %q", got.IBAN, tt.iban)
			}
			if len(got.Candidates) != len(tt.ibans) {
				t.Fatalf("candidates = %+v, want %v", got.Candidates, tt.ibans)
			}
			for i, c := range got.Candidates {
				if c.IBAN != tt.ibans[i] {
					t.Errorf("candidate %d = %s, want %s", i, c.IBAN, tt.ibans[i])
				}
			}
		})
	}
}

func TestParseIndices(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"1", []int{1}},
		{"1,2", []int{1, 2}},
		{"1 si 2", []int{1, 2}},
		{"RO49AAAA1B31007593840000", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := parseIndices(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseIndices(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseIndices(%q)[%d] = %d, want %d", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
