package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"finbot/internal/core"
	"finbot/internal/log"
	"finbot/internal/storage"
)

const (
	defaultTransactionLimit = 50
	defaultAccountLimit     = 10
	recentTransactions      = 5
	maxAPIBody              = 64 << 10

	// apiProfile owns transactions created through the JSON API without a profile_id.
	apiProfile = "api"
)

// Ledger is the part of the store the JSON API reads and writes.
type Ledger interface {
	storage.AccountStore
	storage.TransactionStore
}

type accountJSON struct {
	IBAN      string          `json:"iban"`
	Bank      string          `json:"bank"`
	Company   string          `json:"company"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

type transactionJSON struct {
	ID            int64               `json:"id"`
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency"`
	Account       string              `json:"account"`
	ProfileID     string              `json:"profile_id"`
	Description   *string             `json:"description"`
	InvoiceNumber *string             `json:"invoice_number"`
	CreatedAt     time.Time           `json:"created_at"`
}

type statsJSON struct {
	TotalBalance       decimal.Decimal   `json:"total_balance"`
	TransactionCount   int               `json:"transaction_count"`
	RecentTransactions []transactionJSON `json:"recent_transactions"`
}

type createTransactionRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	Account       string           `json:"account"`
	Currency      string           `json:"currency"`
	ProfileID     string           `json:"profile_id"`
	Description   *string          `json:"description"`
	InvoiceNumber *string          `json:"invoice_number"`
}

func toAccountJSON(a core.Account, _ int) accountJSON {
	return accountJSON{IBAN: a.IBAN, Bank: a.Bank, Company: a.Company, Balance: a.Balance, CreatedAt: a.CreatedAt}
}

func toTransactionJSON(t core.Transaction, _ int) transactionJSON {
	return transactionJSON{
		ID:            t.ID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Account:       t.Account,
		ProfileID:     t.ProfileID,
		Description:   t.Description,
		InvoiceNumber: t.InvoiceNumber,
		CreatedAt:     t.CreatedAt,
	}
}

// withAPIAuth requires "Authorization: Bearer <token>" when a token is configured.
func (s *Server) withAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIToken != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.APIToken)) != 1 {
				atomic.AddInt64(&s.metrics.authFailures, 1)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	})
}

// handleListTransactions serves GET /api/transactions, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	page := ParsePageParams(query, defaultTransactionLimit)

	from, err := ParseDateBound(query.Get("start_date"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	to, err := ParseDateBound(query.Get("end_date"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	filter := storage.TransactionFilter{
		From:    from,
		To:      to,
		Account: query.Get("account"),
		Newest:  true,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	txs, err := s.opts.Ledger.ListTransactions(ctx, filter)
	if err != nil {
		s.apiFailure(w, r, "list transactions", err)
		return
	}
	total, err := s.opts.Ledger.CountTransactions(ctx, filter)
	if err != nil {
		s.apiFailure(w, r, "count transactions", err)
		return
	}

	writeData(w, http.StatusOK, lo.Map(txs, toTransactionJSON), newPagination(page, total))
}

// handleListAccounts serves GET /api/accounts in insertion order.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := ParsePageParams(r.URL.Query(), defaultAccountLimit)

	accounts, err := s.opts.Ledger.ListAccounts(ctx, storage.AccountFilter{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		s.apiFailure(w, r, "list accounts", err)
		return
	}
	total, err := s.opts.Ledger.CountAccounts(ctx, storage.AccountFilter{})
	if err != nil {
		s.apiFailure(w, r, "count accounts", err)
		return
	}

	writeData(w, http.StatusOK, lo.Map(accounts, toAccountJSON), newPagination(page, total))
}

// handleStats serves GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := s.opts.Ledger.ListAccounts(ctx, storage.AccountFilter{})
	if err != nil {
		s.apiFailure(w, r, "list accounts", err)
		return
	}
	count, err := s.opts.Ledger.CountTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		s.apiFailure(w, r, "count transactions", err)
		return
	}
	recent, err := s.opts.Ledger.ListTransactions(ctx, storage.TransactionFilter{Newest: true, Limit: recentTransactions})
	if err != nil {
		s.apiFailure(w, r, "list transactions", err)
		return
	}

	writeData(w, http.StatusOK, statsJSON{
		TotalBalance: lo.Reduce(accounts, func(sum decimal.Decimal, a core.Account, _ int) decimal.Decimal {
			return sum.Add(a.Balance)
		}, decimal.Zero),
		TransactionCount:   count,
		RecentTransactions: lo.Map(recent, toTransactionJSON),
	}, nil)
}

// handleCreateTransaction serves POST /api/transactions. The account balance
// moves with the insert.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusBadRequest, "Missing required field: amount")
		return
	}
	if strings.TrimSpace(req.Account) == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: account")
		return
	}

	profile := strings.TrimSpace(req.ProfileID)
	if profile == "" {
		profile = apiProfile
	}
	tx := core.NewTransaction(profile, req.Account, *req.Amount, req.Currency)
	tx.Description = req.Description
	tx.InvoiceNumber = req.InvoiceNumber

	saved, err := s.opts.Ledger.InsertTransaction(ctx, tx)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown account")
		return
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrEmptyIBAN):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.apiFailure(w, r, "insert transaction", err)
		return
	}

	writeData(w, http.StatusCreated, toTransactionJSON(saved, 0), nil)
}

func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "API request failed",
		log.FieldOperation, op,
		log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
