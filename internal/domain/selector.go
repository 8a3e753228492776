package domain

import "time"

// SelectOptions tunes SelectDue.
type SelectOptions struct {
	RequireActive bool
}

// SelectDue returns the tenants whose dispatch day equals today's day of
// month, in input order. Dispatch days past the end of a short month are not
// remapped.
func SelectDue(tenants []Tenant, today time.Time, opts SelectOptions) []Tenant {
	day := today.Day()
	due := make([]Tenant, 0, len(tenants))
	for _, t := range tenants {
		if t.DispatchDay != day {
			continue
		}
		if opts.RequireActive && t.Status != StatusActive {
			continue
		}
		due = append(due, t)
	}
	return due
}
