package services

import (
	"testing"
	"time"

	"github.com/nyumba/nyumba-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeInitialInvoice_FullMonthOnFirstDay(t *testing.T) {
	lease := &models.Lease{
		StartDate:     testDate(t, "2025-04-01"),
		RentAmount:    9000,
		RentFrequency: models.RentFrequencyMonthly,
		DueDay:        5,
	}

	result := ComputeInitialInvoice(lease, testDate(t, "2025-04-01"))

	assert.True(t, result.Created)
	assert.False(t, result.Prorated)
	assert.Equal(t, int64(9000), result.Amount)
	assert.Equal(t, "2025-04", result.PeriodLabel)
	assert.Equal(t, testDate(t, "2025-04-05"), result.DueDate)
}

func TestComputeInitialInvoice_MidMonthProration(t *testing.T) {
	// April has 30 days; starting on the 16th leaves 15 days, so
	// exactly half the rent is owed.
	lease := &models.Lease{
		StartDate:     testDate(t, "2025-04-16"),
		RentAmount:    9000,
		RentFrequency: models.RentFrequencyMonthly,
		DueDay:        1,
	}

	result := ComputeInitialInvoice(lease, testDate(t, "2025-04-16"))

	assert.True(t, result.Created)
	assert.True(t, result.Prorated)
	assert.Equal(t, int64(4500), result.Amount)
	// The configured due day already passed, so the due date floors
	// at the start date.
	assert.Equal(t, lease.StartDate, result.DueDate)
}

func TestComputeInitialInvoice_RoundsHalfUp(t *testing.T) {
	// 10000 * 2 / 31 = 645.16..., per-day split leaves a fraction that
	// must round away from zero.
	lease := &models.Lease{
		StartDate:     testDate(t, "2025-03-30"),
		RentAmount:    10000,
		RentFrequency: models.RentFrequencyMonthly,
		DueDay:        31,
	}

	result := ComputeInitialInvoice(lease, testDate(t, "2025-03-30"))

	assert.True(t, result.Prorated)
	assert.Equal(t, int64(645), result.Amount)
}

func TestComputeInitialInvoice_FutureStartMonth(t *testing.T) {
	lease := &models.Lease{
		StartDate:     testDate(t, "2025-06-01"),
		RentAmount:    9000,
		RentFrequency: models.RentFrequencyMonthly,
		DueDay:        1,
	}

	result := ComputeInitialInvoice(lease, testDate(t, "2025-04-10"))

	assert.False(t, result.Created)
}

func TestComputeInitialInvoice_NonMonthlyFrequency(t *testing.T) {
	lease := &models.Lease{
		StartDate:     testDate(t, "2025-04-01"),
		RentAmount:    9000,
		RentFrequency: models.RentFrequencyWeekly,
		DueDay:        1,
	}

	result := ComputeInitialInvoice(lease, testDate(t, "2025-04-01"))

	assert.False(t, result.Created)
}

func TestDueDateFor_ClampsToMonthLength(t *testing.T) {
	tests := []struct {
		name   string
		year   int
		month  time.Month
		dueDay int
		want   string
	}{
		{"due day 31 in February", 2025, time.February, 31, "2025-02-28"},
		{"due day 31 in leap February", 2024, time.February, 31, "2024-02-29"},
		{"due day 31 in April", 2025, time.April, 31, "2025-04-30"},
		{"due day within month", 2025, time.April, 15, "2025-04-15"},
		{"due day zero floors to first", 2025, time.April, 0, "2025-04-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dueDateFor(tt.year, tt.month, tt.dueDay, time.UTC)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, int64(5), roundHalfUp(9, 2))
	assert.Equal(t, int64(4), roundHalfUp(7, 2))
	assert.Equal(t, int64(3), roundHalfUp(9, 3))
	assert.Equal(t, int64(0), roundHalfUp(10, 0))
}
