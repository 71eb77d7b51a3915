package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nyumba/nyumba-api/internal/jobs"
	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/pkg/logger"
	"gorm.io/gorm"
)

// DeductDepositCommand describes a deduction from a lease's deposit
type DeductDepositCommand struct {
	LeaseID uint
	Amount  int64
	Reason  string
	ActorID uint
}

// RefundDepositCommand describes a refund from a lease's deposit
type RefundDepositCommand struct {
	LeaseID uint
	Amount  int64
	Reason  string
	ActorID uint
}

type DepositService struct {
	leaseRepo       repository.LeaseRepository
	notificationSvc *NotificationService
	emailSvc        *EmailService
	worker          *jobs.Worker
}

func NewDepositService(
	leaseRepo repository.LeaseRepository,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	worker *jobs.Worker,
) *DepositService {
	return &DepositService{
		leaseRepo:       leaseRepo,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		worker:          worker,
	}
}

// Deduct takes money out of a lease's deposit balance. The balance can
// never go negative; a deduction larger than the remaining balance
// fails with ErrInsufficientDeposit.
func (s *DepositService) Deduct(ctx context.Context, cmd DeductDepositCommand) (*models.Lease, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	lease, err := s.applyEntry(ctx, cmd.LeaseID, models.DepositEntryDeduction, cmd.Amount, cmd.Reason)
	if err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notificationSvc.NotifyUser(ctx, lease.TenantID,
			"Deposit deduction",
			fmt.Sprintf("%d %s was deducted from your deposit: %s", cmd.Amount, lease.DepositCurrency, cmd.Reason),
			models.NotificationTypeDepositDeducted); err != nil {
			return err
		}
		detailed, err := s.leaseRepo.FindByIDWithDetails(ctx, lease.ID)
		if err != nil {
			return err
		}
		return s.emailSvc.SendDepositDeduction(ctx, detailed, cmd.Amount, cmd.Reason)
	})

	return lease, nil
}

// Refund returns money from the deposit to the tenant, recorded on the
// same append-only ledger.
func (s *DepositService) Refund(ctx context.Context, cmd RefundDepositCommand) (*models.Lease, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if cmd.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	lease, err := s.applyEntry(ctx, cmd.LeaseID, models.DepositEntryRefund, cmd.Amount, cmd.Reason)
	if err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		if err := s.notificationSvc.NotifyUser(ctx, lease.TenantID,
			"Deposit refund",
			fmt.Sprintf("%d %s of your deposit was refunded: %s", cmd.Amount, lease.DepositCurrency, cmd.Reason),
			models.NotificationTypeDepositRefunded); err != nil {
			return err
		}
		detailed, err := s.leaseRepo.FindByIDWithDetails(ctx, lease.ID)
		if err != nil {
			return err
		}
		return s.emailSvc.SendDepositRefund(ctx, detailed, cmd.Amount, cmd.Reason)
	})

	return lease, nil
}

func (s *DepositService) applyEntry(ctx context.Context, leaseID uint, entryType string, amount int64, reason string) (*models.Lease, error) {
	for attempt := 0; attempt < applyRetries; attempt++ {
		lease, err := s.leaseRepo.FindByID(ctx, leaseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}

		if lease.DepositBalance < amount {
			return nil, ErrInsufficientDeposit
		}

		lease.DepositBalance -= amount
		entry := &models.DepositEntry{
			LeaseID:   lease.ID,
			EntryType: entryType,
			Amount:    amount,
			Reason:    reason,
			EntryDate: time.Now(),
		}

		err = s.leaseRepo.ApplyDepositEntry(ctx, lease, entry)
		if err == nil {
			logger.Info(fmt.Sprintf("Deposit %s of %d on lease %s, balance now %d",
				entryType, amount, lease.LeaseRef, lease.DepositBalance))
			return lease, nil
		}
		if !errors.Is(err, repository.ErrStaleRecord) {
			return nil, err
		}
	}

	return nil, ErrConflict
}

// History returns the lease's deposit ledger, oldest first
func (s *DepositService) History(ctx context.Context, leaseID uint) ([]models.DepositEntry, error) {
	if _, err := s.leaseRepo.FindByID(ctx, leaseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.leaseRepo.DepositHistory(ctx, leaseID)
}
