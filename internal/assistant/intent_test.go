package assistant

import "testing"

func TestIntentDetection(t *testing.T) {
	tests := []struct {
		text              string
		undo, intent, sum bool
	}{
		{"undo", true, false, false},
		{"Anulează", true, false, false},
		{"șterge ultima", true, false, false},
		{"Retrag ultima tranzacție", true, false, false},
		{"Am plătit 50 lei", false, true, false},
		{"Vreau raport", false, true, false},
		{"Cât am cheltuit luna trecută?", false, true, true},
		{"cat am   cheltuit ieri", false, true, true},
		{"2", false, false, false},
		{"Firma SRL", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsUndo(tt.text); got != tt.undo {
				t.Errorf("IsUndo = %v, want %v", got, tt.undo)
			}
			if got := IsNewIntent(tt.text); got != tt.intent {
				t.Errorf("IsNewIntent = %v, want %v", got, tt.intent)
			}
			if got := IsSpendQuery(tt.text); got != tt.sum {
				t.Errorf("IsSpendQuery = %v, want %v", got, tt.sum)
			}
		})
	}
}

func TestMentionsAllAccounts(t *testing.T) {
	if !mentionsAllAccounts("Câți bani am în TOATE conturile") {
		t.Error("expected match")
	}
	if mentionsAllAccounts("sold BCR") {
		t.Error("unexpected match")
	}
}
