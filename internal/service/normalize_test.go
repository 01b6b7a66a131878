package service

import (
	"encoding/json"
	"testing"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRequest(t *testing.T, body string) *domain.BookingRequest {
	t.Helper()
	var req domain.BookingRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"2025-03-01"`, "2025-03-01"},
		{`"2025-03-01T00:00:00.000Z"`, "2025-03-01"},
		{`"2025-03-01T23:30:00+05:00"`, "2025-03-01"},
		{`"2025-03-01 09:15:00"`, "2025-03-01"},
		{`"03/01/2025"`, "2025-03-01"},
		{`"March 1, 2025"`, "2025-03-01"},
		{`"1 March 2025"`, "2025-03-01"},
		{`"Sat Mar 01 2025 00:00:00 GMT+0100 (Central European Standard Time)"`, "2025-03-01"},
		{`1740787200000`, "2025-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(domain.RawField(tt.in))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{`"banana"`, `"2025-13-45"`, `{}`, `[]`, `true`, `1e15`, `-1e15`, `1e300`, `"0000-01-01"`} {
		_, ok := NormalizeDate(domain.RawField(bad))
		assert.False(t, ok, bad)
	}
}

func TestNormalizeDate_Idempotent(t *testing.T) {
	first, ok := NormalizeDate(domain.RawField(`"2025-03-01T10:00:00Z"`))
	require.True(t, ok)
	second, ok := NormalizeDate(domain.RawField(`"` + first + `"`))
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestNormalizeBooking_Valid(t *testing.T) {
	req := decodeRequest(t, `{
		"startDate": "2025-03-01T00:00:00.000Z",
		"endDate": "2025-03-07",
		"departureCity": " Tunis ",
		"adults": "2",
		"children": "abc",
		"budget": "1500.50",
		"currency": "EUR",
		"accommodation": "",
		"contactDetails": {"fullName": "Amel", "email": "amel@example.com"},
		"days": [{"tour": "Sahara Desert Adventure"}],
		"type": "join"
	}`)

	nb, err := NormalizeBooking(req)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", nb.StartDate)
	assert.Equal(t, "2025-03-07", nb.EndDate)
	assert.Equal(t, "Tunis", nb.DepartureCity)
	assert.Equal(t, 2, nb.Adults)
	assert.Equal(t, 0, nb.Children)
	require.NotNil(t, nb.Budget)
	assert.InDelta(t, 1500.50, *nb.Budget, 0.001)
	require.NotNil(t, nb.Currency)
	assert.Equal(t, "EUR", *nb.Currency)
	assert.Nil(t, nb.Accommodation)
	assert.JSONEq(t, `{"fullName": "Amel", "email": "amel@example.com"}`, string(nb.ContactDetails))
	assert.JSONEq(t, `[{"tour": "Sahara Desert Adventure"}]`, string(nb.Days))
	require.NotNil(t, nb.Type)
	assert.Equal(t, domain.TypeJoin, *nb.Type)
	assert.Equal(t, domain.BookingPending, nb.Status)
	assert.Nil(t, nb.TourID)
}

func TestNormalizeBooking_OptionalFieldsAbsent(t *testing.T) {
	req := decodeRequest(t, `{
		"startDate": "2025-03-01",
		"endDate": "2025-03-01",
		"departureCity": "Sousse",
		"adults": 1,
		"contactDetails": {"email": "a@b.co"}
	}`)

	nb, err := NormalizeBooking(req)
	require.NoError(t, err)
	assert.Nil(t, nb.Budget)
	assert.Nil(t, nb.Currency)
	assert.Nil(t, nb.Days)
	assert.Nil(t, nb.Type)
	assert.Equal(t, 0, nb.Children)
}

func TestNormalizeBooking_Rejects(t *testing.T) {
	base := map[string]any{
		"startDate":      "2025-03-01",
		"endDate":        "2025-03-07",
		"departureCity":  "Tunis",
		"adults":         2,
		"contactDetails": map[string]any{"email": "a@b.co"},
	}
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		message string
	}{
		{"missing start", func(m map[string]any) { delete(m, "startDate") }, msgMissingFields},
		{"empty city", func(m map[string]any) { m["departureCity"] = "" }, msgMissingFields},
		{"zero adults", func(m map[string]any) { m["adults"] = 0 }, msgMissingFields},
		{"missing contact", func(m map[string]any) { delete(m, "contactDetails") }, msgMissingFields},
		{"bad date", func(m map[string]any) { m["endDate"] = "banana" }, msgInvalidDate},
		{"millis past year 9999", func(m map[string]any) { m["startDate"] = 1e15 }, msgInvalidDate},
		{"year zero", func(m map[string]any) { m["startDate"] = "0000-01-01" }, msgInvalidDate},
		{"end before start", func(m map[string]any) { m["endDate"] = "2025-02-01" }, "endDate: must not be before startDate"},
		{"adults not numeric", func(m map[string]any) { m["adults"] = "many" }, "adults: must be a whole number"},
		{"negative adults", func(m map[string]any) { m["adults"] = -1 }, "adults: must be at least 1"},
		{"adults beyond int32", func(m map[string]any) { m["adults"] = 1e30 }, "adults: must be a whole number"},
		{"adults over party size", func(m map[string]any) { m["adults"] = MaxPartySize + 1 }, "adults: must be at most 100"},
		{"negative children", func(m map[string]any) { m["children"] = -2 }, "children: must not be negative"},
		{"children over party size", func(m map[string]any) { m["children"] = "250" }, "children: must be at most 100"},
		{"children beyond int32", func(m map[string]any) { m["children"] = 1e30 }, "children: must be at most 100"},
		{"budget not numeric", func(m map[string]any) { m["budget"] = "lots" }, "budget: must be a number"},
		{"budget overflows decimal", func(m map[string]any) { m["budget"] = 1e8 }, "budget: must be less than 100000000"},
		{"contact not object", func(m map[string]any) { m["contactDetails"] = "amel@example.com" }, "contactDetails: must be an object"},
		{"days not array", func(m map[string]any) { m["days"] = map[string]any{"tour": "x"} }, "days: must be an array"},
		{"unknown type", func(m map[string]any) { m["type"] = "cruise" }, "type: must be one of private, join, build"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := map[string]any{}
			for k, v := range base {
				m[k] = v
			}
			tt.mutate(m)
			body, err := json.Marshal(m)
			require.NoError(t, err)

			_, err = NormalizeBooking(decodeRequest(t, string(body)))
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Error())
		})
	}
}
