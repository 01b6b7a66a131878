package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
)

const (
	msgMissingFields = "Missing required booking fields"
	msgInvalidDate   = "Invalid date format provided"
)

const (
	// MaxPartySize caps adults and children separately.
	MaxPartySize = 100
	// MaxBudget is the first value a DECIMAL(10,2) column cannot hold.
	MaxBudget = 1e8
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	domain.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"Mon Jan 2 2006",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// Browser Date.toString() appends a zone name in brackets.
var zoneSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// ParseDate accepts the date shapes browsers and form widgets send.
func ParseDate(s string) (time.Time, bool) {
	s = zoneSuffix.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns YYYY-MM-DD for a submitted date. The calendar day is
// the one written in the input; no zone conversion happens. JSON numbers are
// Unix milliseconds.
func NormalizeDate(f domain.Field) (string, bool) {
	var t time.Time
	if n, ok := f.Float(); ok && !isString(f) {
		if math.Abs(n) > maxUnixMilli {
			return "", false
		}
		t = time.UnixMilli(int64(n)).UTC()
	} else {
		s, ok := f.Text()
		if !ok {
			return "", false
		}
		if t, ok = ParseDate(s); !ok {
			return "", false
		}
	}
	// Only four-digit years render as YYYY-MM-DD and fit a DATE column.
	if t.Year() < 1 || t.Year() > 9999 {
		return "", false
	}
	return t.Format(domain.DateLayout), true
}

// maxUnixMilli keeps the int64 conversion exact; the year check does the rest.
const maxUnixMilli = 1 << 53

func isString(f domain.Field) bool {
	raw := f.Raw()
	return len(raw) > 0 && raw[0] == '"'
}

// NormalizeBooking validates a raw submission and coerces it into a row
// ready to insert. The tour reference is resolved separately.
func NormalizeBooking(req *domain.BookingRequest) (*domain.NewBooking, error) {
	if !req.StartDate.Truthy() || !req.EndDate.Truthy() || !req.DepartureCity.Truthy() ||
		!req.Adults.Truthy() || !req.ContactDetails.Truthy() {
		return nil, domain.NewValidationError("", msgMissingFields)
	}

	start, ok := NormalizeDate(req.StartDate)
	if !ok {
		return nil, domain.NewValidationError("", msgInvalidDate)
	}
	end, ok := NormalizeDate(req.EndDate)
	if !ok {
		return nil, domain.NewValidationError("", msgInvalidDate)
	}
	if end < start {
		return nil, domain.NewValidationError("endDate", "must not be before startDate")
	}

	city, ok := req.DepartureCity.Text()
	city = strings.TrimSpace(city)
	if !ok || city == "" {
		return nil, domain.NewValidationError("departureCity", "must be text")
	}

	adults, ok := req.Adults.Int()
	if !ok {
		return nil, domain.NewValidationError("adults", "must be a whole number")
	}
	if adults < 1 {
		return nil, domain.NewValidationError("adults", "must be at least 1")
	}
	if adults > MaxPartySize {
		return nil, domain.NewValidationError("adults", fmt.Sprintf("must be at most %d", MaxPartySize))
	}

	var children int64
	if n, ok := req.Children.Int(); ok {
		children = n
	} else if v, ok := req.Children.Float(); ok {
		// numeric but beyond int32
		children = int64(math.Copysign(MaxPartySize+1, v))
	}
	if children < 0 {
		return nil, domain.NewValidationError("children", "must not be negative")
	}
	if children > MaxPartySize {
		return nil, domain.NewValidationError("children", fmt.Sprintf("must be at most %d", MaxPartySize))
	}

	var budget *float64
	if req.Budget.Truthy() {
		v, ok := req.Budget.Float()
		if !ok {
			return nil, domain.NewValidationError("budget", "must be a number")
		}
		if v < 0 {
			return nil, domain.NewValidationError("budget", "must not be negative")
		}
		if v >= MaxBudget {
			return nil, domain.NewValidationError("budget", fmt.Sprintf("must be less than %.0f", MaxBudget))
		}
		budget = &v
	}

	if !req.ContactDetails.IsObject() {
		return nil, domain.NewValidationError("contactDetails", "must be an object")
	}

	var days []byte
	if req.Days.IsSet() {
		if !req.Days.IsArray() {
			return nil, domain.NewValidationError("days", "must be an array")
		}
		days = req.Days.Raw()
	}

	var bookingType *domain.BookingType
	if req.Type.Truthy() {
		s, _ := req.Type.Text()
		t, ok := domain.ParseBookingType(strings.ToLower(strings.TrimSpace(s)))
		if !ok {
			return nil, domain.NewValidationError("type", "must be one of private, join, build")
		}
		bookingType = &t
	}

	return &domain.NewBooking{
		StartDate:      start,
		EndDate:        end,
		DepartureCity:  city,
		Adults:         int(adults),
		Children:       int(children),
		Budget:         budget,
		Currency:       optionalText(req.Currency),
		Accommodation:  optionalText(req.Accommodation),
		ContactDetails: req.ContactDetails.Raw(),
		Status:         domain.BookingPending,
		Days:           days,
		Type:           bookingType,
	}, nil
}

func optionalText(f domain.Field) *string {
	s, ok := f.Text()
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
