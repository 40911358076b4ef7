package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/model"
	"github.com/afiqzak/serai-booking-system/internal/repository"
	"github.com/afiqzak/serai-booking-system/internal/service"
)

type stubService struct {
	createResp model.Booking
	createErr  error

	bookingsResp []model.Booking
	bookingsErr  error

	byStatusResp []model.Booking

	bookingResp model.Booking
	bookingErr  error

	paymentResp model.Booking
	paymentErr  error

	deleteErr error

	statsResp model.Stats
	statsErr  error

	occupancyResp []model.OccupiedDay
	occupancyErr  error
}

func (s *stubService) Catalog() catalog.Catalog {
	return catalog.Default()
}

func (s *stubService) CreateBooking(ctx context.Context, form model.BookingForm) (model.Booking, error) {
	return s.createResp, s.createErr
}

func (s *stubService) Bookings(ctx context.Context) ([]model.Booking, error) {
	return s.bookingsResp, s.bookingsErr
}

func (s *stubService) BookingsByStatus(ctx context.Context, status model.Status) ([]model.Booking, error) {
	return s.byStatusResp, nil
}

func (s *stubService) Booking(ctx context.Context, id string) (model.Booking, error) {
	return s.bookingResp, s.bookingErr
}

func (s *stubService) RecordPayment(ctx context.Context, id string, amount float64) (model.Booking, error) {
	return s.paymentResp, s.paymentErr
}

func (s *stubService) DeleteBooking(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *stubService) Stats(ctx context.Context) (model.Stats, error) {
	return s.statsResp, s.statsErr
}

func (s *stubService) Occupancy(ctx context.Context, from, to string) ([]model.OccupiedDay, error) {
	return s.occupancyResp, s.occupancyErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger)
}

func sampleBooking() model.Booking {
	return model.Booking{
		ID:          "0b6f6a3e-1111-2222-3333-444455556666",
		Name:        "Aminah binti Yusof",
		Address:     "12 Jalan Melur, Kuantan",
		Phone:       "+60 12-345 6789",
		Adults:      2,
		CheckIn:     "2026-01-10",
		CheckOut:    "2026-01-12",
		Rooms:       []string{"seroja", "dahlia"},
		PaymentType: model.PaymentTypeDeposit,
		Amounts:     model.Amounts{Total: 1060, Deposit: 500, Balance: 560},
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestCreateBooking_Created(t *testing.T) {
	svc := &stubService{createResp: sampleBooking()}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(model.BookingForm{Name: "Aminah"})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateBooking(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var got bookingResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Total != 1060 || got.Deposit != 500 || got.Balance != 560 {
		t.Fatalf("unexpected amounts in receipt: %+v", got)
	}
	if got.Status != "pending" {
		t.Fatalf("status = %q, want pending", got.Status)
	}
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	svc := &stubService{
		createErr: &service.ValidationError{Fields: map[string]string{
			"rooms": "Please select at least one room",
		}},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	h.CreateBooking(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}

	var got validationErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Errors["rooms"] != "Please select at least one room" {
		t.Fatalf("unexpected errors payload: %+v", got)
	}
}

func TestCreateBooking_BadJSON(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader([]byte(`{broken`)))
	rec := httptest.NewRecorder()

	h.CreateBooking(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetBookings_Empty(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	rec := httptest.NewRecorder()

	h.GetBookings(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestGetBookings_StatusFilter(t *testing.T) {
	svc := &stubService{byStatusResp: []model.Booking{sampleBooking()}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings?status=pending", nil)
	rec := httptest.NewRecorder()

	h.GetBookings(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got []bookingResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].Status != "pending" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestGetBookings_UnknownStatus(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/bookings?status=archived", nil)
	rec := httptest.NewRecorder()

	h.GetBookings(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	svc := &stubService{bookingErr: repository.ErrBookingNotFound}
	h := newTestHandler(t, svc)

	r := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/no-such-id", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNotFound)
	}
}

func TestRecordPayment_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid amount", err: service.ErrInvalidPayment, want: http.StatusBadRequest},
		{name: "not found", err: repository.ErrBookingNotFound, want: http.StatusNotFound},
		{name: "already completed", err: repository.ErrBookingCompleted, want: http.StatusConflict},
		{name: "internal", err: context.DeadlineExceeded, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{paymentErr: tt.err}
			h := newTestHandler(t, svc)
			r := h.SetupRouter()

			body, _ := json.Marshal(paymentRequest{Amount: 100})
			req := httptest.NewRequest(http.MethodPost, "/api/bookings/some-id/payment", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			if rec.Result().StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", rec.Result().StatusCode, tt.want)
			}
		})
	}
}

func TestRecordPayment_OK(t *testing.T) {
	paid := sampleBooking()
	paid.Amounts = model.Amounts{Total: 1060, Deposit: 1060, Balance: 0}
	paid.Status = model.StatusCompleted

	svc := &stubService{paymentResp: paid}
	h := newTestHandler(t, svc)
	r := h.SetupRouter()

	body, _ := json.Marshal(paymentRequest{Amount: 560})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+paid.ID+"/payment", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got bookingResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Balance != 0 || got.Status != "completed" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestDeleteBooking_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	r := h.SetupRouter()

	req := httptest.NewRequest(http.MethodDelete, "/api/bookings/some-id", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestGetRooms(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	rec := httptest.NewRecorder()

	h.GetRooms(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var rooms []catalog.RoomType
	if err := json.NewDecoder(res.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("len(rooms) = %d, want 3", len(rooms))
	}
}

func TestGetStats(t *testing.T) {
	svc := &stubService{
		statsResp: model.Stats{TotalBookings: 5, PendingBookings: 2, CompletedBookings: 3, Revenue: 4240},
	}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	h.GetStats(rec, req)

	res := rec.Result()
	defer res.Body.Close()

	var got model.Stats
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got != svc.statsResp {
		t.Fatalf("stats = %+v, want %+v", got, svc.statsResp)
	}
}

func TestGetCalendar_BadRange(t *testing.T) {
	svc := &stubService{occupancyErr: service.ErrInvalidRange}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?from=2026-01-14&to=2026-01-10", nil)
	rec := httptest.NewRecorder()

	h.GetCalendar(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetCalendar_MissingParams(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?from=2026-01-10", nil)
	rec := httptest.NewRecorder()

	h.GetCalendar(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}
