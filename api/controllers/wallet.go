package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wayfarer-backend/api/responses"
	"github.com/angelmondragon/wayfarer-backend/api/validators"
	"github.com/angelmondragon/wayfarer-backend/internal/payments"
	"github.com/angelmondragon/wayfarer-backend/internal/wallet"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const historyLimitMax = 100

type walletEntryDTO struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"createdAt"`
}

type paymentDTO struct {
	TransactionID string          `json:"transactionId"`
	TripID        string          `json:"tripId"`
	Method        string          `json:"method"`
	SubMethod     *string         `json:"subMethod,omitempty"`
	EMITermMonths *int            `json:"emiTermMonths,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Discount      decimal.Decimal `json:"discount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	FailureReason *string         `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toWalletEntryDTO(e models.WalletEntry) walletEntryDTO {
	return walletEntryDTO{
		ID:        e.ID.String(),
		Type:      string(e.Type),
		Amount:    e.Amount,
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
}

func toPaymentDTO(t models.PaymentTransaction) paymentDTO {
	return paymentDTO{
		TransactionID: t.TransactionID,
		TripID:        t.TripID,
		Method:        string(t.Method),
		SubMethod:     t.SubMethod,
		EMITermMonths: t.EMITermMonths,
		Amount:        t.Amount,
		Discount:      t.Discount,
		Currency:      t.Currency,
		Status:        string(t.Status),
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
	}
}

// WalletBalance returns the caller's wallet balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

func WalletHistory(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, historyLimitMax)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]walletEntryDTO, 0, len(entries))
		for _, e := range entries {
			out = append(out, toWalletEntryDTO(e))
		}
		responses.WriteSuccess(w, out)
	}
}

// PaymentHistory lists the caller's payment attempts, newest first.
func PaymentHistory(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, historyLimitMax)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txns, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]paymentDTO, 0, len(txns))
		for _, t := range txns {
			out = append(out, toPaymentDTO(t))
		}
		responses.WriteSuccess(w, out)
	}
}

func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := validators.PathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Get(r.Context(), userID, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPaymentDTO(*txn))
	}
}
