package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// Repository persists payment transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	Save(ctx context.Context, txn *models.PaymentTransaction) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.PaymentTransaction, error)
	// TransitionStatus moves the row to status only from one of the given
	// states and reports whether it did.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, failureReason *string) (bool, error)
	// FindSettledByTrip returns the newest captured or succeeded attempt.
	FindSettledByTrip(ctx context.Context, userID, tripID string) (*models.PaymentTransaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error)
	// FailPendingBefore fails attempts left pending since before cutoff.
	FailPendingBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Save(ctx context.Context, txn *models.PaymentTransaction) error {
	return r.db.WithContext(ctx).Save(txn).Error
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	return r.findOne(ctx, "transaction_id = ?", transactionID)
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.PaymentTransaction, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).Where(query, arg).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.PaymentStatus, to enums.PaymentStatus, failureReason *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":         to,
			"failure_reason": failureReason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindSettledByTrip(ctx context.Context, userID, tripID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND trip_id = ? AND status IN ?", userID, tripID,
			[]enums.PaymentStatus{enums.PaymentStatusCaptured, enums.PaymentStatusSucceeded}).
		Order("updated_at DESC").
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) FailPendingBefore(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("status = ? AND updated_at < ?", enums.PaymentStatusPending, cutoff).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
	return res.RowsAffected, res.Error
}
