package services

import (
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
)

// ProrationResult describes the first invoice a new monthly lease owes.
// Created is false when no invoice is due yet (the lease starts in a
// future month).
type ProrationResult struct {
	Created     bool
	Amount      int64
	Prorated    bool
	IssueDate   time.Time
	DueDate     time.Time
	PeriodLabel string
}

// ComputeInitialInvoice works out the first-month charge for a lease.
// A lease starting on the first of the month owes the full rent. A
// lease starting mid-month owes a daily rate times the days remaining
// in that month, rounded half up. Leases starting in a future month owe
// nothing until the billing sweep reaches that month.
func ComputeInitialInvoice(lease *models.Lease, now time.Time) ProrationResult {
	if lease.RentFrequency != models.RentFrequencyMonthly {
		return ProrationResult{}
	}

	start := lease.StartDate
	currentPeriod := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	startPeriod := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	if startPeriod.After(currentPeriod) {
		return ProrationResult{}
	}

	daysInMonth := daysIn(start.Year(), start.Month())
	amount := lease.RentAmount
	prorated := false

	if start.Day() > 1 {
		remainingDays := daysInMonth - start.Day() + 1
		amount = roundHalfUp(lease.RentAmount*int64(remainingDays), int64(daysInMonth))
		prorated = true
	}

	dueDate := dueDateFor(start.Year(), start.Month(), lease.DueDay, start.Location())
	if dueDate.Before(start) {
		dueDate = start
	}

	return ProrationResult{
		Created:     true,
		Amount:      amount,
		Prorated:    prorated,
		IssueDate:   start,
		DueDate:     dueDate,
		PeriodLabel: models.PeriodLabelFor(start),
	}
}

// dueDateFor clamps the configured due day to the month's length
func dueDateFor(year int, month time.Month, dueDay int, loc *time.Location) time.Time {
	if dueDay < 1 {
		dueDay = 1
	}
	if last := daysIn(year, month); dueDay > last {
		dueDay = last
	}
	return time.Date(year, month, dueDay, 0, 0, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// roundHalfUp divides num by den rounding .5 away from zero, matching
// how rent figures are quoted to tenants
func roundHalfUp(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return (num + den/2) / den
}
