package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/http/handlers"
	"github.com/diagnosis/tunisia-tours/internal/http/middleware"
	"github.com/diagnosis/tunisia-tours/internal/notify"
	"github.com/diagnosis/tunisia-tours/internal/platform/mailer"
	"github.com/diagnosis/tunisia-tours/internal/service"
	"github.com/diagnosis/tunisia-tours/pkg/auth"
	"github.com/diagnosis/tunisia-tours/pkg/events"
	mw "github.com/diagnosis/tunisia-tours/pkg/middleware"
)

const jwtSecret = "handlers-test-secret"

// ---------- Mocks ----------

type mockTourRepo struct {
	tours map[int64]domain.Tour
}

func (m *mockTourRepo) GetByID(_ context.Context, id int64) (*domain.Tour, error) {
	t, ok := m.tours[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockTourRepo) GetByTitle(_ context.Context, title string) (*domain.Tour, error) {
	var best *domain.Tour
	for _, t := range m.tours {
		t := t
		if t.Title == title && (best == nil || t.ID < best.ID) {
			best = &t
		}
	}
	return best, nil
}

func (m *mockTourRepo) List(context.Context) ([]domain.Tour, error) {
	out := make([]domain.Tour, 0, len(m.tours))
	for id := int64(1); id <= 10; id++ {
		if t, ok := m.tours[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]domain.Booking
	err      error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{nextID: 1, bookings: make(map[int64]domain.Booking)}
}

func (m *mockBookingRepo) Create(_ context.Context, in *domain.NewBooking) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b := domain.Booking{
		ID:             m.nextID,
		TourID:         in.TourID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		DepartureCity:  in.DepartureCity,
		Adults:         in.Adults,
		Children:       in.Children,
		Budget:         in.Budget,
		Currency:       in.Currency,
		Accommodation:  in.Accommodation,
		ContactDetails: append(json.RawMessage(nil), in.ContactDetails...),
		Status:         in.Status,
		Days:           in.Days,
		Type:           in.Type,
		CreatedAt:      time.Now(),
	}
	m.bookings[b.ID] = b
	m.nextID++
	return &b, nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *mockBookingRepo) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	return m.ListByStatus(ctx, "", limit, offset)
}

func (m *mockBookingRepo) ListByStatus(_ context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for id := m.nextID - 1; id >= 1; id-- {
		if b := m.bookings[id]; status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *mockBookingRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type mockTransport struct {
	mu      sync.Mutex
	sendErr error
	sent    []mailer.Message
	tries   int
}

func (m *mockTransport) Name() string                 { return "mock" }
func (m *mockTransport) Verify(context.Context) error { return nil }

func (m *mockTransport) Send(_ context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tries++
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("mock-%d", len(m.sent)), nil
}

type memoryStore struct {
	mu    sync.Mutex
	items map[string]mw.CachedResponse
}

func (s *memoryStore) Get(_ context.Context, key string) (*mw.CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.items[key]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *memoryStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false, nil
	}
	s.items[key] = mw.CachedResponse{}
	return true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, resp mw.CachedResponse, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = resp
	return nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items[key].StatusCode == 0 {
		delete(s.items, key)
	}
	return nil
}

// ---------- Harness ----------

type harness struct {
	router     http.Handler
	bookings   *mockBookingRepo
	transport  *mockTransport
	dispatcher *notify.Dispatcher
}

func newHarness(t *testing.T, submit ...func(http.Handler) http.Handler) *harness {
	t.Helper()
	tours := &mockTourRepo{tours: map[int64]domain.Tour{
		1: {ID: 1, Title: "Grand Tunisia Tour", Price: 1200, Duration: 7, Type: "group", City: "Tunis"},
		2: {ID: 2, Title: "Sahara Desert Adventure", Price: 800, Duration: 5, Type: "group", City: "Douz"},
		3: {ID: 3, Title: "Desert Stars Private Tour", Price: 800, Duration: 4, Type: "private", City: "Tozeur"},
	}}
	h := &harness{bookings: newMockBookingRepo(), transport: &mockTransport{}}

	notifier := notify.NewNotifier(tours, h.transport, notify.LogRecorder{}, "ops@tours.example", "New Booking Request - Tunisia Tours")
	h.dispatcher = notify.NewDispatcher(notifier, 5*time.Second)
	t.Cleanup(func() { _ = h.dispatcher.Shutdown(context.Background()) })

	api := handlers.New(
		service.NewBookingService(h.bookings, tours, h.dispatcher, events.NopPublisher{}),
		service.NewTourService(tours),
	)
	r := chi.NewRouter()
	api.Mount(r, handlers.RouteOptions{
		Admin:  middleware.RequireAdmin(jwtSecret),
		Submit: submit,
	})
	h.router = r
	return h
}

func (h *harness) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

// drain waits for background notifications to finish.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, h.dispatcher.Shutdown(context.Background()))
}

func adminHeader(t *testing.T) map[string]string {
	t.Helper()
	tok, err := auth.NewAdminToken("ops@tours.example", jwtSecret, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// ---------- Tests ----------

func TestCreateBooking_EndToEnd(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodPost, "/api/bookings", `{
		"startDate": "2025-08-01T00:00:00Z",
		"endDate": "2025-08-10",
		"departureCity": "Tunis",
		"adults": 2,
		"children": 1,
		"contactDetails": {"fullName": "Amina B.", "email": "a@b.com"},
		"tourId": "3"
	}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	body := decode(t, rr)
	assert.EqualValues(t, 3, body["tourId"])
	assert.Equal(t, "2025-08-01", body["startDate"])
	assert.Equal(t, "2025-08-10", body["endDate"])
	assert.Equal(t, "pending", body["status"])
	assert.EqualValues(t, 1, body["children"])

	h.drain(t)
	require.Len(t, h.transport.sent, 1)
	email := h.transport.sent[0]
	assert.Equal(t, "ops@tours.example", email.To)
	assert.Contains(t, email.HTML, "Desert Stars Private Tour")
	assert.Contains(t, email.HTML, "$800.00 per person")
	assert.Contains(t, email.HTML, "August 1, 2025")
}

func TestCreateBooking_TourResolution(t *testing.T) {
	tests := []struct {
		name   string
		extra  string
		wantID any
	}{
		{"direct wins", `"tourId": 1, "days": [{"tourId": 2}]`, float64(1)},
		{"itinerary id", `"days": [{"tourId": 2}]`, float64(2)},
		{"itinerary title", `"days": [{"tour": "Sahara Desert Adventure"}]`, float64(2)},
		{"no reference", `"days": []`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rr := h.do(t, http.MethodPost, "/api/bookings", `{
				"startDate": "2025-08-01", "endDate": "2025-08-03",
				"departureCity": "Sfax", "adults": 1,
				"contactDetails": {"email": "a@b.com"}, `+tt.extra+`
			}`, nil)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantID, decode(t, rr)["tourId"])
		})
	}
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing adults", `{"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis", "contactDetails": {}}`, "INVALID_INPUT"},
		{"banana date", `{"startDate": "banana", "endDate": "2025-08-03", "departureCity": "Tunis", "adults": 2, "contactDetails": {}}`, "INVALID_INPUT"},
		{"millis past year 9999", `{"startDate": 1e15, "endDate": 1e15, "departureCity": "Tunis", "adults": 2, "contactDetails": {}}`, "INVALID_INPUT"},
		{"year zero", `{"startDate": "0000-01-01", "endDate": "2025-08-03", "departureCity": "Tunis", "adults": 2, "contactDetails": {}}`, "INVALID_INPUT"},
		{"adults beyond int32", `{"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis", "adults": 1e30, "contactDetails": {}}`, "INVALID_INPUT"},
		{"budget overflows decimal", `{"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis", "adults": 2, "budget": 1e8, "contactDetails": {}}`, "INVALID_INPUT"},
		{"not json", `{"startDate": `, "INVALID_JSON"},
		{"array body", `[]`, "INVALID_JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			rr := h.do(t, http.MethodPost, "/api/bookings", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, 0, h.bookings.count())
		})
	}
}

func TestCreateBooking_PersistenceError(t *testing.T) {
	h := newHarness(t)
	h.bookings.err = errors.New("connection refused")

	rr := h.do(t, http.MethodPost, "/api/bookings", `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 2, "contactDetails": {"email": "a@b.com"}
	}`, nil)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode(t, rr)["code"])

	h.drain(t)
	assert.Zero(t, h.transport.tries)
}

func TestCreateBooking_EmailFailureKeepsResponse(t *testing.T) {
	const payload = `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 2, "contactDetails": {"email": "a@b.com"}
	}`

	ok := newHarness(t)
	okResp := ok.do(t, http.MethodPost, "/api/bookings", payload, nil)
	ok.drain(t)

	failing := newHarness(t)
	failing.transport.sendErr = errors.New("550 mailbox unavailable")
	failResp := failing.do(t, http.MethodPost, "/api/bookings", payload, nil)
	failing.drain(t)

	require.Equal(t, http.StatusCreated, failResp.Code)
	assert.Equal(t, okResp.Code, failResp.Code)
	assert.Equal(t, 1, failing.transport.tries)

	okBody, failBody := decode(t, okResp), decode(t, failResp)
	delete(okBody, "createdAt")
	delete(failBody, "createdAt")
	assert.Equal(t, okBody, failBody)

	rr := failing.do(t, http.MethodGet, "/api/admin/bookings/1", "", adminHeader(t))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, decode(t, rr)["id"])
}

func TestCreateBooking_ContactDetailsRoundTrip(t *testing.T) {
	h := newHarness(t)
	contact := `{"fullName":"Amina B.","email":"a@b.com","whatsapp":"+21612345678","language":"french","countryCode":"+216"}`

	rr := h.do(t, http.MethodPost, "/api/bookings", `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 2, "contactDetails": `+contact+`
	}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = h.do(t, http.MethodGet, "/api/admin/bookings/1", "", adminHeader(t))
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		ContactDetails json.RawMessage `json:"contactDetails"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.JSONEq(t, contact, string(got.ContactDetails))
}

func TestCreateBooking_IdempotentReplay(t *testing.T) {
	store := &memoryStore{items: map[string]mw.CachedResponse{}}
	h := newHarness(t, mw.IdempotencyMiddleware(store, time.Hour))
	const payload = `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 2, "contactDetails": {"email": "a@b.com"}
	}`
	key := map[string]string{"Idempotency-Key": "form-submit-1"}

	first := h.do(t, http.MethodPost, "/api/bookings", payload, key)
	second := h.do(t, http.MethodPost, "/api/bookings", payload, key)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.bookings.count())
}

func TestCreateBooking_IdempotencyKeyReusableAfterRejection(t *testing.T) {
	store := &memoryStore{items: map[string]mw.CachedResponse{}}
	h := newHarness(t, mw.IdempotencyMiddleware(store, time.Hour))
	key := map[string]string{"Idempotency-Key": "form-submit-2"}

	rejected := h.do(t, http.MethodPost, "/api/bookings", `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 500, "contactDetails": {"email": "a@b.com"}
	}`, key)
	require.Equal(t, http.StatusBadRequest, rejected.Code)
	assert.Contains(t, rejected.Body.String(), "adults: must be at most 100")

	fixed := h.do(t, http.MethodPost, "/api/bookings", `{
		"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
		"adults": 5, "contactDetails": {"email": "a@b.com"}
	}`, key)
	require.Equal(t, http.StatusCreated, fixed.Code)
	assert.Empty(t, fixed.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, h.bookings.count())
}

func TestAdminBookings(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		rr := h.do(t, http.MethodPost, "/api/bookings", `{
			"startDate": "2025-08-01", "endDate": "2025-08-03", "departureCity": "Tunis",
			"adults": 2, "contactDetails": {"email": "a@b.com"}
		}`, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/admin/bookings", "", nil).Code)

	rr := h.do(t, http.MethodGet, "/api/admin/bookings?limit=2", "", adminHeader(t))
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Bookings []domain.Booking `json:"bookings"`
		Limit    int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page.Bookings, 2)
	assert.Equal(t, 2, page.Limit)

	rr = h.do(t, http.MethodGet, "/api/admin/bookings?status=confirmed", "", adminHeader(t))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Empty(t, page.Bookings)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/admin/bookings?status=lost", "", adminHeader(t)).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/admin/bookings/99", "", adminHeader(t)).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/admin/bookings/abc", "", adminHeader(t)).Code)
}

func TestTours(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/api/tours", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tours []domain.Tour
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tours))
	require.Len(t, tours, 3)
	assert.Equal(t, "Grand Tunisia Tour", tours[0].Title)

	rr = h.do(t, http.MethodGet, "/api/tours/2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Sahara Desert Adventure", decode(t, rr)["title"])

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/tours/42", "", nil).Code)

	rr = h.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
}
