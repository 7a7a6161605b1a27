package crm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// parseLeaseDate accepts RFC3339 literals and plain YYYY-MM-DD dates.
func parseLeaseDate(field string, value interface{}) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, nil
	}
	s, ok := value.(string)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid %s format", field)
	}
	if strings.ContainsAny(s, "TZ") {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid %s format", field)
		}
		return t, true, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s format", field)
	}
	return t, true, nil
}

// validateTenantLease rejects leases that end on or before their start
// date. The object carries the stored record merged with the payload, so
// updating a single date still validates the pair.
func validateTenantLease(ctx context.Context, object map[string]interface{}) error {
	start, hasStart, err := parseLeaseDate("lease_start_date", object["lease_start_date"])
	if err != nil {
		return err
	}
	end, hasEnd, err := parseLeaseDate("lease_end_date", object["lease_end_date"])
	if err != nil {
		return err
	}
	if hasStart && hasEnd && !end.After(start) {
		return fmt.Errorf("lease_end_date must be after lease_start_date")
	}
	return nil
}
