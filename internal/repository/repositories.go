package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrStaleRecord is returned by versioned updates when the row was
// modified concurrently; callers re-fetch and retry.
var ErrStaleRecord = errors.New("stale record version")

// IsDuplicateKey reports whether err is a uniqueness-constraint
// violation. Requires TranslateError on the gorm connection.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Repositories holds all repository instances
type Repositories struct {
	Lease        LeaseRepository
	Invoice      InvoiceRepository
	Payment      PaymentRepository
	Notification NotificationRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Lease:        NewLeaseRepository(db),
		Invoice:      NewInvoiceRepository(db),
		Payment:      NewPaymentRepository(db),
		Notification: NewNotificationRepository(db),
	}
}

// ListQuery holds common pagination and filtering parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

func paginate(db *gorm.DB, query *ListQuery) *gorm.DB {
	page := query.Page
	if page < 1 {
		page = 1
	}
	perPage := query.PerPage
	if perPage < 1 {
		perPage = 20
	}
	// Exports pull large pages; anything beyond this is a bug.
	if perPage > 10000 {
		perPage = 10000
	}
	return db.Offset((page - 1) * perPage).Limit(perPage)
}
