package models

import (
	"strings"
	"time"
)

// SortField is a column a challan listing can be ordered by
type SortField string

// Sortable columns
const (
	SortByCreatedAt    SortField = "created_at"
	SortByCustomerName SortField = "customer_name"
	SortByChallanNo    SortField = "challan_no"
	SortByTotalItems   SortField = "total_items"
	SortByTotalPrice   SortField = "total_price"
	SortByID           SortField = "id"
)

// SortOrder is ASC or DESC
type SortOrder string

// Sort directions
const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// MaxListLimit caps the page size of a listing
const MaxListLimit = 500

// ListFilter narrows and orders a challan listing. Query-string values are
// validated by the service before they reach the store.
type ListFilter struct {
	Search    string `form:"search" json:"search,omitempty"`
	Sort      string `form:"sort" json:"sort,omitempty" validate:"omitempty,oneof=created_at customer_name challan_no total_items total_price id"`
	Order     string `form:"order" json:"order,omitempty" validate:"omitempty,oneof=ASC DESC asc desc"`
	StartDate string `form:"start_date" json:"start_date,omitempty" validate:"omitempty,challan_date"`
	EndDate   string `form:"end_date" json:"end_date,omitempty" validate:"omitempty,challan_date"`
	Limit     int    `form:"limit" json:"limit,omitempty" validate:"gte=0"`
	Offset    int    `form:"offset" json:"offset,omitempty" validate:"gte=0"`
}

// SortField returns the validated sort column, defaulting to created_at
func (f ListFilter) SortField() SortField {
	switch SortField(f.Sort) {
	case SortByCreatedAt, SortByCustomerName, SortByChallanNo, SortByTotalItems, SortByTotalPrice, SortByID:
		return SortField(f.Sort)
	}
	return SortByCreatedAt
}

// SortOrder returns the validated direction, defaulting to DESC
func (f ListFilter) SortOrder() SortOrder {
	if SortOrder(strings.ToUpper(f.Order)) == OrderAsc {
		return OrderAsc
	}
	return OrderDesc
}

// DateRange returns the inclusive lower bound and the exclusive upper bound of
// the filter. A date-only end bound covers that whole day.
func (f ListFilter) DateRange() (start, end *time.Time, err error) {
	if f.StartDate != "" {
		t, _, err := ParseFilterDate(f.StartDate)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if f.EndDate != "" {
		t, dateOnly, err := ParseFilterDate(f.EndDate)
		if err != nil {
			return nil, nil, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		} else {
			// inclusive instant
			t = t.Add(time.Nanosecond)
		}
		end = &t
	}
	return start, end, nil
}

// ParseFilterDate accepts YYYY-MM-DD or RFC3339 and reports whether the value was date-only
func ParseFilterDate(value string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}
