package domain

import (
	"encoding/json"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/utils"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// BookingType only changes how the operator email phrases the request.
type BookingType string

const (
	TypePrivate BookingType = "private"
	TypeJoin    BookingType = "join"
	TypeBuild   BookingType = "build"
)

func ParseBookingType(s string) (BookingType, bool) {
	switch BookingType(s) {
	case TypePrivate, TypeJoin, TypeBuild:
		return BookingType(s), true
	default:
		return "", false
	}
}

// DateLayout is the storage and response format for booking dates.
const DateLayout = "2006-01-02"

type Booking struct {
	ID             int64           `json:"id"`
	TourID         *int64          `json:"tourId"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	DepartureCity  string          `json:"departureCity"`
	Adults         int             `json:"adults"`
	Children       int             `json:"children"`
	Budget         *float64        `json:"budget"`
	Currency       *string         `json:"currency"`
	Accommodation  *string         `json:"accommodation"`
	ContactDetails json.RawMessage `json:"contactDetails"`
	Status         BookingStatus   `json:"status"`
	Days           json.RawMessage `json:"days"`
	Type           *BookingType    `json:"type"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// NewBooking is a normalized submission ready to insert.
type NewBooking struct {
	TourID         *int64
	StartDate      string
	EndDate        string
	DepartureCity  string
	Adults         int
	Children       int
	Budget         *float64
	Currency       *string
	Accommodation  *string
	ContactDetails json.RawMessage
	Status         BookingStatus
	Days           json.RawMessage
	Type           *BookingType
}

// BookingRequest is the untyped public form payload.
type BookingRequest struct {
	TourID         Field `json:"tourId"`
	StartDate      Field `json:"startDate"`
	EndDate        Field `json:"endDate"`
	DepartureCity  Field `json:"departureCity"`
	Adults         Field `json:"adults"`
	Children       Field `json:"children"`
	Budget         Field `json:"budget"`
	Currency       Field `json:"currency"`
	Accommodation  Field `json:"accommodation"`
	ContactDetails Field `json:"contactDetails"`
	Days           Field `json:"days"`
	Type           Field `json:"type"`
}

type ItineraryDay struct {
	TourID        Field `json:"tourId"`
	Tour          Field `json:"tour"`
	Accommodation Field `json:"accommodation"`
}

// ParseDays decodes an itinerary array. Entries that are not objects decode
// as empty days.
func ParseDays(raw json.RawMessage) []ItineraryDay {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	days := make([]ItineraryDay, len(items))
	for i, item := range items {
		_ = json.Unmarshal(item, &days[i])
	}
	return days
}

type ContactDetails struct {
	FullName    string
	Email       string
	Whatsapp    string
	Language    string
	CountryCode string
	FlightCode  string
	CouponCode  string
	Notes       string
}

type contactFields struct {
	FullName    Field `json:"fullName"`
	Email       Field `json:"email"`
	Whatsapp    Field `json:"whatsapp"`
	Language    Field `json:"language"`
	CountryCode Field `json:"countryCode"`
	FlightCode  Field `json:"flightCode"`
	CouponCode  Field `json:"couponCode"`
	Notes       Field `json:"notes"`
}

// ParseContactDetails reads the known keys of a contact object. Non-scalar
// values read as empty.
func ParseContactDetails(raw json.RawMessage) ContactDetails {
	var cf contactFields
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cf)
	}
	text := func(f Field) string {
		s, _ := f.Text()
		return s
	}
	return ContactDetails{
		FullName:    text(cf.FullName),
		Email:       text(cf.Email),
		Whatsapp:    text(cf.Whatsapp),
		Language:    text(cf.Language),
		CountryCode: text(cf.CountryCode),
		FlightCode:  text(cf.FlightCode),
		CouponCode:  text(cf.CouponCode),
		Notes:       text(cf.Notes),
	}
}

// Issues lists contact fields that look unusable for a reply. The booking is
// still accepted; the list only feeds logs and the operator email.
func (c ContactDetails) Issues() []string {
	var issues []string
	if utils.NormalizeString(c.FullName) == "" {
		issues = append(issues, "fullName missing")
	}
	switch {
	case utils.NormalizeString(c.Email) == "":
		issues = append(issues, "email missing")
	case !utils.IsValidEmail(c.Email):
		issues = append(issues, "email invalid")
	}
	switch {
	case utils.NormalizeString(c.Whatsapp) == "":
		issues = append(issues, "whatsapp missing")
	case !utils.IsValidPhone(c.Whatsapp):
		issues = append(issues, "whatsapp invalid")
	}
	if utils.NormalizeString(c.Language) == "" {
		issues = append(issues, "language missing")
	}
	if utils.NormalizeString(c.CountryCode) == "" {
		issues = append(issues, "countryCode missing")
	}
	return issues
}
