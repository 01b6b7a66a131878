package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/utils"
)

//go:embed templates/*
var templateFS embed.FS

const notSpecified = "Not specified"

var funcs = map[string]any{"join": strings.Join}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("booking_request.html").
			Funcs(htmltemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/booking_request.html"))
	textTmpl = texttemplate.Must(texttemplate.New("booking_request.txt").
			Funcs(texttemplate.FuncMap(funcs)).
			ParseFS(templateFS, "templates/booking_request.txt"))
)

type TourSection struct {
	Heading   string
	Title     string
	ID        int64
	TypeLabel string
	Price     string
	Note      string
}

type ContactView struct {
	Name       string
	Email      string
	Whatsapp   string
	Language   string
	FlightCode string
	CouponCode string
	Notes      string
}

type DayLine struct {
	Number        int
	Tour          string
	Accommodation string
}

// EmailView is everything the operator email shows, already formatted.
type EmailView struct {
	Heading         string
	Tour            TourSection
	Contact         ContactView
	ContactWarnings []string
	StartDate       string
	EndDate         string
	DepartureCity   string
	Adults          int
	Children        int
	Budget          string
	Accommodation   string
	Days            []DayLine
	BookingID       int64
	TypeLabel       string
	Status          string
	SubmittedAt     string
}

// BuildView formats a stored booking for the operator. tour is nil when the
// booking has no tour or the tour could not be loaded.
func BuildView(b domain.Booking, tour *domain.Tour, now time.Time) EmailView {
	group := b.Type != nil && *b.Type == domain.TypeJoin
	kind, typeLabel := "Private", "Private Tour"
	if group {
		kind, typeLabel = "Group", "Group Tour"
	}

	v := EmailView{
		Heading:       fmt.Sprintf("New %s Tour Booking Request", kind),
		TypeLabel:     typeLabel,
		StartDate:     formatDate(b.StartDate),
		EndDate:       formatDate(b.EndDate),
		DepartureCity: utils.OrDefault(b.DepartureCity, notSpecified),
		Adults:        b.Adults,
		Children:      b.Children,
		Accommodation: notSpecified,
		BookingID:     b.ID,
		Status:        utils.OrDefault(string(b.Status), string(domain.BookingPending)),
	}

	switch {
	case tour != nil:
		v.Tour = TourSection{
			Heading:   "Selected Tour",
			Title:     tour.Title,
			TypeLabel: typeLabel,
			Price:     fmt.Sprintf("$%.2f per person", tour.Price),
		}
		if !group {
			v.Tour.Note = "Private tour - final pricing may be customized"
		}
	case b.TourID != nil:
		v.Tour = TourSection{
			Heading:   "Selected Tour",
			ID:        *b.TourID,
			TypeLabel: typeLabel,
			Note:      kind + " tour - pricing details will be confirmed",
		}
	default:
		label := "Private/Custom Tour"
		if group {
			label = typeLabel
		}
		v.Tour = TourSection{
			Heading:   "Tour Request",
			TypeLabel: label,
			Note:      "Custom tour request - pricing will be provided based on requirements",
		}
	}

	c := domain.ParseContactDetails(b.ContactDetails)
	v.Contact = ContactView{
		Name:       utils.OrDefault(c.FullName, notSpecified),
		Email:      utils.OrDefault(c.Email, notSpecified),
		Whatsapp:   utils.OrDefault(c.Whatsapp, notSpecified),
		Language:   utils.OrDefault(c.Language, notSpecified),
		FlightCode: utils.NormalizeString(c.FlightCode),
		CouponCode: utils.NormalizeString(c.CouponCode),
		Notes:      utils.NormalizeString(c.Notes),
	}
	v.ContactWarnings = c.Issues()

	if b.Budget != nil {
		v.Budget = strconv.FormatFloat(*b.Budget, 'f', -1, 64)
		if b.Currency != nil {
			v.Budget += " " + *b.Currency
		}
	}
	if b.Accommodation != nil {
		v.Accommodation = utils.OrDefault(*b.Accommodation, notSpecified)
	}

	for i, d := range domain.ParseDays(b.Days) {
		tourName, _ := d.Tour.Text()
		acc, _ := d.Accommodation.Text()
		v.Days = append(v.Days, DayLine{
			Number:        i + 1,
			Tour:          utils.OrDefault(tourName, "Tour not specified"),
			Accommodation: utils.OrDefault(acc, "Standard"),
		})
	}

	submitted := b.CreatedAt
	if submitted.IsZero() {
		submitted = now
	}
	v.SubmittedAt = submitted.Format("January 2, 2006 at 15:04 MST")

	return v
}

func formatDate(s string) string {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return utils.OrDefault(s, notSpecified)
	}
	return t.Format("January 2, 2006")
}

// Render produces the HTML and plain text bodies for v.
func Render(v EmailView) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, v); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := textTmpl.Execute(&tb, v); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return hb.String(), tb.String(), nil
}
