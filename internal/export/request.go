package export

import (
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	MaxPerPage     = 1000
	DefaultPerPage = 1000
)

type Format string

const (
	FormatZip  Format = "zip"
	FormatJSON Format = "json"
)

// LabelDateRequest selects images of one label on one date.
type LabelDateRequest struct {
	Label   string
	Date    string
	Format  string
	Page    int
	PerPage int
}

// DateRangeRequest selects images of one label between two dates, inclusive.
type DateRangeRequest struct {
	Label          string
	From           string
	To             string
	Format         string
	OrganizeByDate string
}

// ParseDate accepts only YYYY-MM-DD calendar dates.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, badRequest("Invalid date format. Use YYYY-MM-DD")
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, badRequest("Invalid date format. Use YYYY-MM-DD")
	}
	return d, nil
}

// ParseFormat defaults to zip and is case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatZip:
		return FormatZip, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", badRequest("Invalid format %q. Use zip or json", s)
	}
}

// Paginate applies the defaults and the per-page ceiling.
func Paginate(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// organizeByDate is true unless a value other than "true" is given.
func organizeByDate(s string) bool {
	if s == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
