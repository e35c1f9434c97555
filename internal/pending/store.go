// Package pending keeps the single outstanding disambiguation request of each
// profile.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"finbot/internal/core"
	"finbot/internal/storage"
)

type Store struct {
	repo storage.PendingRepository
}

func NewStore(repo storage.PendingRepository) *Store {
	return &Store{repo: repo}
}

// Save replaces whatever was pending for the profile with a.
func (s *Store) Save(ctx context.Context, a core.PendingAction) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate pending action: %w", err)
	}
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.repo.ReplacePending(ctx, storage.PendingRow{
		ProfileID:  a.ProfileID,
		ActionType: string(a.Type),
		Payload:    payload,
		CreatedAt:  a.CreatedAt,
	})
}

// Get returns the most recent pending action, or false when none exists.
// A row with an unknown type is returned with a nil payload and
// core.ErrUnknownAction so the caller can clear it.
func (s *Store) Get(ctx context.Context, profileID string) (core.PendingAction, bool, error) {
	row, err := s.repo.LatestPending(ctx, profileID)
	if errors.Is(err, core.ErrNotFound) {
		return core.PendingAction{}, false, nil
	}
	if err != nil {
		return core.PendingAction{}, false, fmt.Errorf("load pending action: %w", err)
	}

	a := core.PendingAction{
		ProfileID: row.ProfileID,
		Type:      core.ActionType(row.ActionType),
		CreatedAt: row.CreatedAt,
	}
	p, err := decodePayload(a.Type, row.Payload)
	if err != nil {
		return a, true, err
	}
	a.Payload = p
	return a, true, nil
}

// Clear removes every pending action of the profile.
func (s *Store) Clear(ctx context.Context, profileID string) error {
	return s.repo.DeletePending(ctx, profileID)
}

func decodePayload(t core.ActionType, data []byte) (core.Payload, error) {
	switch t {
	case core.ActionUpdate, core.ActionAddTrx:
		var p core.TransferPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case core.ActionSelect:
		var p core.BalancePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case core.ActionSumSpent:
		var p core.SpendPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownAction, t)
}
