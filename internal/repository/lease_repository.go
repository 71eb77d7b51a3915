package repository

import (
	"context"
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
	"gorm.io/gorm"
)

// LeaseRepository defines the interface for lease data access
type LeaseRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Lease, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Lease, error)
	FindBillable(ctx context.Context, now time.Time) ([]models.Lease, error)
	Create(ctx context.Context, lease *models.Lease) error
	Update(ctx context.Context, lease *models.Lease) error
	// ApplyDepositEntry atomically persists the lease's new deposit
	// balance and the ledger entry that produced it. Fails with
	// ErrStaleRecord if the lease was modified concurrently.
	ApplyDepositEntry(ctx context.Context, lease *models.Lease, entry *models.DepositEntry) error
	DepositHistory(ctx context.Context, leaseID uint) ([]models.DepositEntry, error)
	List(ctx context.Context, query *ListQuery) ([]models.Lease, int64, error)
	ExistsByRef(ctx context.Context, leaseRef string) (bool, error)
}

type leaseRepository struct {
	db *gorm.DB
}

// NewLeaseRepository creates a new lease repository
func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

func (r *leaseRepository) FindByID(ctx context.Context, id uint) (*models.Lease, error) {
	var lease models.Lease
	if err := r.db.WithContext(ctx).First(&lease, id).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Lease, error) {
	var lease models.Lease
	err := r.db.WithContext(ctx).
		Joins("Property").
		Joins("Tenant").
		Preload("DepositEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("entry_date ASC")
		}).
		First(&lease, id).Error
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) FindBillable(ctx context.Context, now time.Time) ([]models.Lease, error) {
	var leases []models.Lease
	err := r.db.WithContext(ctx).
		Where("status = ? AND rent_frequency = ?", models.LeaseStatusActive, models.RentFrequencyMonthly).
		Where("start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Preload("Tenant").
		Preload("Property").
		Find(&leases).Error
	return leases, err
}

func (r *leaseRepository) Create(ctx context.Context, lease *models.Lease) error {
	return r.db.WithContext(ctx).Create(lease).Error
}

func (r *leaseRepository) Update(ctx context.Context, lease *models.Lease) error {
	return r.db.WithContext(ctx).Save(lease).Error
}

func (r *leaseRepository) ApplyDepositEntry(ctx context.Context, lease *models.Lease, entry *models.DepositEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Lease{}).
			Where("id = ? AND lock_version = ?", lease.ID, lease.LockVersion).
			Updates(map[string]interface{}{
				"deposit_balance": lease.DepositBalance,
				"lock_version":    gorm.Expr("lock_version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleRecord
		}

		entry.LeaseID = lease.ID
		if entry.EntryDate.IsZero() {
			entry.EntryDate = time.Now()
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		lease.LockVersion++
		return nil
	})
}

func (r *leaseRepository) DepositHistory(ctx context.Context, leaseID uint) ([]models.DepositEntry, error) {
	var entries []models.DepositEntry
	err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("entry_date ASC").
		Find(&entries).Error
	return entries, err
}

func (r *leaseRepository) List(ctx context.Context, query *ListQuery) ([]models.Lease, int64, error) {
	var leases []models.Lease
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Lease{})

	if status := query.Filters["status"]; status != "" {
		db = db.Where("leases.status = ?", status)
	}
	if propertyID := query.Filters["property_id"]; propertyID != "" {
		db = db.Where("leases.property_id = ?", propertyID)
	}
	if tenantID := query.Filters["tenant_id"]; tenantID != "" {
		db = db.Where("leases.tenant_id = ?", tenantID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db, query).
		Preload("Tenant").
		Preload("Property").
		Order("created_at DESC").
		Find(&leases).Error
	return leases, total, err
}

func (r *leaseRepository) ExistsByRef(ctx context.Context, leaseRef string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lease{}).
		Where("lease_ref = ?", leaseRef).
		Count(&count).Error
	return count > 0, err
}
