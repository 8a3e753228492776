package domain

import "time"

// Status represents the registry state of a tenant.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

// Tenant is a customer company whose time data is reported on a monthly cycle.
type Tenant struct {
	ID           string
	Slug         string
	Name         string
	ContactEmail string
	Status       Status

	// DispatchDay is the day of month (1..31) on which the cycle is triggered.
	DispatchDay int

	// LastDispatchedDay is the day of month of the last completed cycle, nil
	// before the first one.
	LastDispatchedDay *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates an active tenant that has never been dispatched.
func NewTenant(id, name, slug, contactEmail string, dispatchDay int) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:           id,
		Slug:         slug,
		Name:         name,
		ContactEmail: contactEmail,
		Status:       StatusActive,
		DispatchDay:  dispatchDay,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidDay reports whether day is a usable day of month.
func ValidDay(day int) bool {
	return day >= 1 && day <= 31
}

// Worker is an employee of a tenant.
type Worker struct {
	ID              string
	Name            string
	IDNumber        *string
	VacationBalance *float64
}

// TimeEntry is one tracked day of a worker. Durations are kept as the signed
// interval text delivered by the data source and parsed by ParseSignedInterval.
type TimeEntry struct {
	Date      time.Time
	Status    string
	StartedAt *time.Time
	EndedAt   *time.Time
	Net       string
	Overtime  string
	Break     string
}

// ContentTypePDF is the content type of every uploaded statement.
const ContentTypePDF = "application/pdf"

// Artifact is a rendered statement ready for upload.
type Artifact struct {
	TenantSlug  string
	WorkerID    string
	PeriodLabel string

	// Revision is zero for non-revisioned bulk artifacts.
	Revision int

	Name        string
	Content     []byte
	ContentType string
}
