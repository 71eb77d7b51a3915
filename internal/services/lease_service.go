package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/statemachine"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"gorm.io/gorm"
)

// CreateLeaseCommand carries everything needed to open a lease
type CreateLeaseCommand struct {
	PropertyID    uint
	TenantID      uint
	LandlordID    uint
	StartDate     time.Time
	EndDate       *time.Time
	RentAmount    int64
	RentCurrency  string
	RentFrequency string
	DueDay        int
	DepositAmount int64
}

// RenewLeaseCommand extends a lease past its current end date
type RenewLeaseCommand struct {
	LeaseID    uint
	NewEndDate time.Time
	RentAmount int64
}

// RentIncreaseCommand raises the rent going forward
type RentIncreaseCommand struct {
	LeaseID       uint
	NewRentAmount int64
}

type LeaseService struct {
	repo            repository.LeaseRepository
	invoiceSvc      *InvoiceService
	notificationSvc *NotificationService
	worker          *jobs.Worker
}

func NewLeaseService(
	repo repository.LeaseRepository,
	invoiceSvc *InvoiceService,
	notificationSvc *NotificationService,
	worker *jobs.Worker,
) *LeaseService {
	return &LeaseService{
		repo:            repo,
		invoiceSvc:      invoiceSvc,
		notificationSvc: notificationSvc,
		worker:          worker,
	}
}

func (s *LeaseService) FindByID(ctx context.Context, id uint) (*models.Lease, error) {
	lease, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return lease, nil
}

func (s *LeaseService) List(ctx context.Context, query *repository.ListQuery) ([]models.Lease, int64, error) {
	return s.repo.List(ctx, query)
}

// Create opens a lease, activates it and issues the first invoice.
// The deposit balance starts at the full deposit amount.
func (s *LeaseService) Create(ctx context.Context, cmd CreateLeaseCommand) (*models.Lease, error) {
	if cmd.RentAmount <= 0 {
		return nil, fmt.Errorf("%w: rent amount must be positive", ErrValidation)
	}
	if cmd.DueDay < 1 || cmd.DueDay > 31 {
		return nil, fmt.Errorf("%w: due day must be between 1 and 31", ErrValidation)
	}
	if cmd.EndDate != nil && !cmd.EndDate.After(cmd.StartDate) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrValidation)
	}

	frequency := cmd.RentFrequency
	if frequency == "" {
		frequency = models.RentFrequencyMonthly
	}
	currency := cmd.RentCurrency
	if currency == "" {
		currency = "ZMW"
	}

	leaseRef, err := s.newLeaseRef(ctx)
	if err != nil {
		return nil, err
	}

	lease := &models.Lease{
		PropertyID:      cmd.PropertyID,
		TenantID:        cmd.TenantID,
		LandlordID:      cmd.LandlordID,
		LeaseRef:        leaseRef,
		StartDate:       cmd.StartDate,
		EndDate:         cmd.EndDate,
		RentAmount:      cmd.RentAmount,
		RentCurrency:    currency,
		RentFrequency:   frequency,
		DueDay:          cmd.DueDay,
		DepositAmount:   cmd.DepositAmount,
		DepositCurrency: currency,
		DepositBalance:  cmd.DepositAmount,
		Status:          models.LeaseStatusPending,
	}

	fsm := statemachine.NewLeaseFSM(lease)
	if err := fsm.Activate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if err := s.repo.Create(ctx, lease); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	invoice, err := s.invoiceSvc.CreateInitialInvoice(ctx, lease, time.Now())
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create initial invoice for lease %s: %v", lease.LeaseRef, err))
	} else if invoice != nil {
		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.notificationSvc.NotifyUser(ctx, lease.TenantID,
				"Invoice issued",
				fmt.Sprintf("Invoice %s for %d %s is due on %s.",
					invoice.Reference, invoice.AmountDue, invoice.Currency,
					invoice.DueDate.Format("2006-01-02")),
				models.NotificationTypeInvoiceCreated)
		})
	}

	logger.Info(fmt.Sprintf("Created lease %s for property %d", lease.LeaseRef, lease.PropertyID))

	return lease, nil
}

// Terminate closes a lease early. Any remaining deposit stays on the
// ledger until it is refunded or deducted.
func (s *LeaseService) Terminate(ctx context.Context, leaseID uint, reason string) (*models.Lease, error) {
	lease, err := s.repo.FindByID(ctx, leaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fsm := statemachine.NewLeaseFSM(lease)
	if err := fsm.Terminate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	now := time.Now()
	lease.TerminationDate = &now
	if reason != "" {
		lease.TerminationReason = &reason
	}

	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, lease.TenantID,
			"Lease terminated",
			fmt.Sprintf("Your lease %s has been terminated.", lease.LeaseRef),
			models.NotificationTypeLeaseTerminated)
	})

	return lease, nil
}

// Renew extends an active lease, optionally at a new rent
func (s *LeaseService) Renew(ctx context.Context, cmd RenewLeaseCommand) (*models.Lease, error) {
	lease, err := s.repo.FindByID(ctx, cmd.LeaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if lease.Status != models.LeaseStatusActive {
		return nil, fmt.Errorf("%w: only active leases can be renewed", ErrInvalidState)
	}
	if lease.EndDate != nil && !cmd.NewEndDate.After(*lease.EndDate) {
		return nil, fmt.Errorf("%w: new end date must extend the lease", ErrValidation)
	}

	lease.EndDate = &cmd.NewEndDate
	if cmd.RentAmount > 0 {
		lease.RentAmount = cmd.RentAmount
	}

	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, lease.TenantID,
			"Lease renewed",
			fmt.Sprintf("Your lease %s was renewed until %s.", lease.LeaseRef, cmd.NewEndDate.Format("2006-01-02")),
			models.NotificationTypeLeaseRenewed)
	})

	return lease, nil
}

// RentIncrease raises the rent for future invoices. Invoices already
// issued keep their amounts.
func (s *LeaseService) RentIncrease(ctx context.Context, cmd RentIncreaseCommand) (*models.Lease, error) {
	lease, err := s.repo.FindByID(ctx, cmd.LeaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if lease.Status != models.LeaseStatusActive {
		return nil, fmt.Errorf("%w: only active leases can change rent", ErrInvalidState)
	}
	if cmd.NewRentAmount <= lease.RentAmount {
		return nil, fmt.Errorf("%w: new rent must be higher than current rent", ErrValidation)
	}

	now := time.Now()
	lease.RentAmount = cmd.NewRentAmount
	lease.LastRentIncreaseAt = &now

	if err := s.repo.Update(ctx, lease); err != nil {
		return nil, err
	}

	return lease, nil
}

func (s *LeaseService) newLeaseRef(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		ref := "LSE-" + strings.ToUpper(uuid.NewString()[:6])
		exists, err := s.repo.ExistsByRef(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a unique lease reference")
}
