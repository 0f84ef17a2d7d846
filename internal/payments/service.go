package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/wayfarer-backend/pkg/db"
	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wayfarer-backend/pkg/errors"
	"github.com/angelmondragon/wayfarer-backend/pkg/logger"
)

const failureReasonMaxLen = 512

// AttemptInput describes one payment attempt for a trip.
type AttemptInput struct {
	TransactionID  string
	IdempotencyKey string
	UserID         string
	TripID         string
	Method         enums.PaymentMethod
	SubMethod      enums.PaymentSubMethod
	EMITermMonths  int
	Amount         decimal.Decimal
	Discount       decimal.Decimal
	Currency       string
}

// Service records payment attempts and drives the gateway.
type Service interface {
	// StartAttempt records a pending attempt. A transaction the gateway
	// already took is returned unchanged so callers can skip charging.
	StartAttempt(ctx context.Context, input AttemptInput) (*models.PaymentTransaction, error)
	Charge(ctx context.Context, txn *models.PaymentTransaction) (ChargeResult, error)
	// MarkCaptured records a gateway approval in its own write, before any
	// booking work that might fail.
	MarkCaptured(ctx context.Context, txn *models.PaymentTransaction) error
	// MarkSucceededTx confirms a pending or captured attempt inside tx. It
	// leaves txn untouched; callers update it once tx commits.
	MarkSucceededTx(ctx context.Context, tx *gorm.DB, txn *models.PaymentTransaction) error
	// MarkFailed fails a pending attempt. Captured and succeeded attempts
	// are never failed.
	MarkFailed(ctx context.Context, txn *models.PaymentTransaction, reason string) error
	// Settled returns the trip's captured or succeeded attempt, or nil.
	Settled(ctx context.Context, userID, tripID string) (*models.PaymentTransaction, error)
	Get(ctx context.Context, userID, transactionID string) (*models.PaymentTransaction, error)
	History(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error)
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Repo    Repository
	Gateway Gateway
	Logger  *logger.Logger
	// Backoff paces retries of the captured-payment write.
	Backoff func() retry.Backoff
}

type service struct {
	repo    Repository
	gateway Gateway
	logg    *logger.Logger
	backoff func() retry.Backoff
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Backoff == nil {
		params.Backoff = func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
		}
	}
	return &service{repo: params.Repo, gateway: params.Gateway, logg: params.Logger, backoff: params.Backoff}, nil
}

func validateAttempt(in AttemptInput) error {
	switch {
	case strings.TrimSpace(in.TransactionID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	case strings.TrimSpace(in.IdempotencyKey) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	case strings.TrimSpace(in.UserID) == "":
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	case strings.TrimSpace(in.TripID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "trip id is required")
	case !in.Method.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is invalid")
	case in.Amount.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return nil
}

func (s *service) StartAttempt(ctx context.Context, in AttemptInput) (*models.PaymentTransaction, error) {
	if err := validateAttempt(in); err != nil {
		return nil, err
	}

	byKey, err := s.repo.FindByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by idempotency key")
	}
	if byKey != nil && byKey.TransactionID != in.TransactionID {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used for another payment")
	}

	existing, err := s.repo.FindByTransactionID(ctx, in.TransactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if existing == nil {
		txn := newTransaction(in)
		if err := s.repo.Create(ctx, txn); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment attempt already recorded")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}
		return txn, nil
	}

	if existing.UserID != in.UserID || existing.TripID != in.TripID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another booking")
	}
	if Settled(existing.Status) {
		return existing, nil
	}

	again := newTransaction(in)
	again.ID = existing.ID
	again.CreatedAt = existing.CreatedAt
	if err := s.repo.Save(ctx, again); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment retry")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id": in.TransactionID,
		"previous":       existing.Status,
	}), "payment retry recorded")
	return again, nil
}

func newTransaction(in AttemptInput) *models.PaymentTransaction {
	txn := &models.PaymentTransaction{
		TransactionID:  in.TransactionID,
		IdempotencyKey: in.IdempotencyKey,
		UserID:         in.UserID,
		TripID:         in.TripID,
		Method:         in.Method,
		Amount:         in.Amount,
		Discount:       in.Discount,
		Currency:       strings.ToUpper(in.Currency),
		Status:         enums.PaymentStatusPending,
	}
	if in.Method == enums.PaymentMethodFull && in.SubMethod != "" {
		sub := in.SubMethod.String()
		txn.SubMethod = &sub
	}
	if in.Method == enums.PaymentMethodEMI && in.EMITermMonths > 0 {
		term := in.EMITermMonths
		txn.EMITermMonths = &term
	}
	return txn
}

func (s *service) Charge(ctx context.Context, txn *models.PaymentTransaction) (ChargeResult, error) {
	if txn == nil {
		return ChargeResult{}, fmt.Errorf("transaction required")
	}
	req := ChargeRequest{
		TransactionID: txn.TransactionID,
		UserID:        txn.UserID,
		Method:        txn.Method,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
	}
	if txn.SubMethod != nil {
		req.SubMethod = enums.PaymentSubMethod(*txn.SubMethod)
	}
	if txn.EMITermMonths != nil {
		req.EMITermMonths = *txn.EMITermMonths
	}

	started := time.Now()
	res, err := s.gateway.Charge(ctx, req)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": txn.TransactionID,
		"method":         txn.Method,
		"took_ms":        time.Since(started).Milliseconds(),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment declined")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ChargeResult{}, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment was cancelled")
		}
		return ChargeResult{}, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "payment was declined")
	}
	s.logg.Info(ctx, "payment approved")
	return res, nil
}

func (s *service) MarkCaptured(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction required")
	}
	// A sweep may have failed the attempt while the gateway was still
	// answering; the approval wins.
	from := []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusFailed}
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		moved, err := s.repo.TransitionStatus(ctx, txn.ID, from, enums.PaymentStatusCaptured, nil)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !moved {
			return s.expectSettled(ctx, txn)
		}
		return nil
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "transaction_id", txn.TransactionID), "captured payment was not recorded", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record captured payment")
	}
	if txn.Status != enums.PaymentStatusSucceeded {
		txn.Status = enums.PaymentStatusCaptured
	}
	txn.FailureReason = nil
	return nil
}

// expectSettled accepts a transition that found nothing to move only when
// another writer already settled the attempt.
func (s *service) expectSettled(ctx context.Context, txn *models.PaymentTransaction) error {
	current, err := s.repo.FindByTransactionID(ctx, txn.TransactionID)
	if err != nil {
		return retry.RetryableError(err)
	}
	if current == nil {
		return gorm.ErrRecordNotFound
	}
	if !Settled(current.Status) {
		return fmt.Errorf("payment %s is %s", txn.TransactionID, current.Status)
	}
	txn.Status = current.Status
	return nil
}

func (s *service) MarkSucceededTx(ctx context.Context, tx *gorm.DB, txn *models.PaymentTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction required")
	}
	from := []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusCaptured}
	moved, err := s.repo.WithTx(tx).TransitionStatus(ctx, txn.ID, from, enums.PaymentStatusSucceeded, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment succeeded")
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is no longer awaiting confirmation").
			WithDetails(map[string]string{"transactionId": txn.TransactionID})
	}
	return nil
}

func (s *service) MarkFailed(ctx context.Context, txn *models.PaymentTransaction, reason string) error {
	if txn == nil {
		return fmt.Errorf("transaction required")
	}
	if len(reason) > failureReasonMaxLen {
		reason = reason[:failureReasonMaxLen]
	}
	from := []enums.PaymentStatus{enums.PaymentStatusPending}
	moved, err := s.repo.TransitionStatus(ctx, txn.ID, from, enums.PaymentStatusFailed, &reason)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	if !moved {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.TransactionID,
			"status":         txn.Status,
		}), "payment not pending, failure not recorded")
		return nil
	}
	txn.Status = enums.PaymentStatusFailed
	txn.FailureReason = &reason
	return nil
}

func (s *service) Settled(ctx context.Context, userID, tripID string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindSettledByTrip(ctx, userID, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settled payment")
	}
	return txn, nil
}

// Settled reports whether the gateway has taken the money for status.
func Settled(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusCaptured || status == enums.PaymentStatusSucceeded
}

func (s *service) Get(ctx context.Context, userID, transactionID string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if txn.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	txns, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return txns, nil
}
