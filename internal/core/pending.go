package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActionType identifies what a pending action will do once an account is chosen.
type ActionType string

const (
	ActionUpdate   ActionType = "update"
	ActionSelect   ActionType = "select"
	ActionSumSpent ActionType = "sum_spent"
	ActionAddTrx   ActionType = "add_trx"
)

// IsKnown reports whether the type is one the resolver can dispatch.
func (t ActionType) IsKnown() bool {
	switch t {
	case ActionUpdate, ActionSelect, ActionSumSpent, ActionAddTrx:
		return true
	}
	return false
}

// Payload is the sealed union of pending action payloads. Implementations
// live in this package only.
type Payload interface {
	candidates() []Candidate
	withCandidates(cs []Candidate) Payload
	searchTerm() string
}

type (
	// TransferPayload backs update and add_trx actions.
	TransferPayload struct {
		Candidates    []Candidate      `json:"candidates"`
		Amount        *decimal.Decimal `json:"amount,omitempty"`
		Currency      string           `json:"currency,omitempty"`
		Description   *string          `json:"description,omitempty"`
		InvoiceNumber *string          `json:"invoice_number,omitempty"`
		SearchTerm    string           `json:"search_term,omitempty"`
	}

	// BalancePayload backs select actions.
	BalancePayload struct {
		Candidates []Candidate `json:"candidates"`
		SearchTerm string      `json:"search_term,omitempty"`
	}

	// SpendPayload backs sum_spent actions. Bounds are inclusive.
	SpendPayload struct {
		Candidates []Candidate `json:"candidates"`
		Start      time.Time   `json:"start"`
		End        time.Time   `json:"end"`
		SearchTerm string      `json:"search_term,omitempty"`
	}
)

func (p TransferPayload) candidates() []Candidate { return p.Candidates }
func (p BalancePayload) candidates() []Candidate  { return p.Candidates }
func (p SpendPayload) candidates() []Candidate    { return p.Candidates }

func (p TransferPayload) searchTerm() string { return p.SearchTerm }
func (p BalancePayload) searchTerm() string  { return p.SearchTerm }
func (p SpendPayload) searchTerm() string    { return p.SearchTerm }

func (p TransferPayload) withCandidates(cs []Candidate) Payload {
	p.Candidates = cs
	return p
}

func (p BalancePayload) withCandidates(cs []Candidate) Payload {
	p.Candidates = cs
	return p
}

func (p SpendPayload) withCandidates(cs []Candidate) Payload {
	p.Candidates = cs
	return p
}

// PendingAction is the single conversational slot kept per profile while the
// user picks an account.
type PendingAction struct {
	ProfileID string
	Type      ActionType
	Payload   Payload
	CreatedAt time.Time
}

// NewUpdateAction creates a pending balance change from a text command.
func NewUpdateAction(profileID string, p TransferPayload) PendingAction {
	return PendingAction{ProfileID: profileID, Type: ActionUpdate, Payload: p}
}

// NewAddTrxAction creates a pending transaction coming from a receipt, PDF or voice note.
func NewAddTrxAction(profileID string, p TransferPayload) PendingAction {
	return PendingAction{ProfileID: profileID, Type: ActionAddTrx, Payload: p}
}

// NewSelectAction creates a pending balance query.
func NewSelectAction(profileID string, p BalancePayload) PendingAction {
	return PendingAction{ProfileID: profileID, Type: ActionSelect, Payload: p}
}

// NewSpendAction creates a pending spend query.
func NewSpendAction(profileID string, p SpendPayload) PendingAction {
	return PendingAction{ProfileID: profileID, Type: ActionSumSpent, Payload: p}
}

// Validate checks that the payload variant matches the action type.
func (a PendingAction) Validate() error {
	if a.ProfileID == "" {
		return ErrEmptyProfile
	}
	var ok bool
	switch a.Type {
	case ActionUpdate, ActionAddTrx:
		_, ok = a.Payload.(TransferPayload)
	case ActionSelect:
		_, ok = a.Payload.(BalancePayload)
	case ActionSumSpent:
		_, ok = a.Payload.(SpendPayload)
	default:
		return ErrUnknownAction
	}
	if !ok {
		return ErrPayloadMismatch
	}
	return nil
}

// Candidates returns the accounts the user is choosing between.
func (a PendingAction) Candidates() []Candidate {
	if a.Payload == nil {
		return nil
	}
	return a.Payload.candidates()
}

// SearchTerm returns the term shown in the re-prompt.
func (a PendingAction) SearchTerm() string {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.searchTerm()
}

// WithCandidates returns a copy of the action narrowed to cs.
func (a PendingAction) WithCandidates(cs []Candidate) PendingAction {
	if a.Payload != nil {
		a.Payload = a.Payload.withCandidates(cs)
	}
	return a
}
