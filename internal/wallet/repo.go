package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/wayfarer-backend/pkg/db/models"
	"github.com/angelmondragon/wayfarer-backend/pkg/enums"
)

// Repository persists wallet ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Summarize(ctx context.Context, userID string) (Summary, error)
	// LockUser serializes writers for one wallet inside a transaction.
	LockUser(ctx context.Context, userID string) error
	// InsertOnce writes entry unless its (user, reference) pair exists and
	// reports whether a row was written.
	InsertOnce(ctx context.Context, entry *models.WalletEntry) (bool, error)
	FindByReference(ctx context.Context, userID, reference string) (*models.WalletEntry, error)
	List(ctx context.Context, userID string, limit int) ([]models.WalletEntry, error)
}

// Summary aggregates a user's ledger.
type Summary struct {
	Balance decimal.Decimal
	Entries int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Summarize(ctx context.Context, userID string) (Summary, error) {
	var row struct {
		Balance decimal.Decimal
		Entries int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0) AS balance, COUNT(*) AS entries", enums.WalletEntryCredit).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	return Summary{Balance: row.Balance, Entries: row.Entries}, nil
}

func (r *repository) LockUser(ctx context.Context, userID string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	var ids []string
	return r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
}

func (r *repository) InsertOnce(ctx context.Context, entry *models.WalletEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "reference"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByReference(ctx context.Context, userID, reference string) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND reference = ?", userID, reference).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, userID string, limit int) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
