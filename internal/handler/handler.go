// Package handler содержит HTTP-обработчики API сервиса бронирования.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/model"
	"github.com/afiqzak/serai-booking-system/internal/repository"
	"github.com/afiqzak/serai-booking-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Catalog() catalog.Catalog
	CreateBooking(ctx context.Context, form model.BookingForm) (model.Booking, error)
	Bookings(ctx context.Context) ([]model.Booking, error)
	BookingsByStatus(ctx context.Context, status model.Status) ([]model.Booking, error)
	Booking(ctx context.Context, id string) (model.Booking, error)
	RecordPayment(ctx context.Context, id string, amount float64) (model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.Stats, error)
	Occupancy(ctx context.Context, from, to string) ([]model.OccupiedDay, error)
}

// Handler реализует HTTP-обработчики API сервиса бронирования.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type bookingResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Adults       int      `json:"adults"`
	Children     int      `json:"children"`
	VehiclePlate string   `json:"vehiclePlate,omitempty"`
	CheckIn      string   `json:"checkIn"`
	CheckOut     string   `json:"checkOut"`
	Rooms        []string `json:"rooms"`
	PaymentType  string   `json:"paymentType"`
	Total        float64  `json:"total"`
	Deposit      float64  `json:"deposit"`
	Balance      float64  `json:"balance"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"createdAt"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		Name:         b.Name,
		Address:      b.Address,
		Phone:        b.Phone,
		Adults:       b.Adults,
		Children:     b.Children,
		VehiclePlate: b.VehiclePlate,
		CheckIn:      b.CheckIn,
		CheckOut:     b.CheckOut,
		Rooms:        b.Rooms,
		PaymentType:  string(b.PaymentType),
		Total:        b.Amounts.Total,
		Deposit:      b.Amounts.Deposit,
		Balance:      b.Amounts.Balance,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
}

// GetRooms возвращает справочник номеров.
func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Catalog().Rooms())
}

type validationErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// CreateBooking принимает форму бронирования, проверяет её и сохраняет.
// Ошибки валидации возвращаются картой поле-сообщение со статусом 422.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var form model.BookingForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), form)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			h.writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{Errors: vErr.Fields})
			return
		}
		h.logger.Error("create booking error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toBookingResponse(booking))
}

// GetBookings возвращает список бронирований, при необходимости
// отфильтрованный по статусу.
func (h *Handler) GetBookings(w http.ResponseWriter, r *http.Request) {
	var (
		bookings []model.Booking
		err      error
	)

	switch status := r.URL.Query().Get("status"); status {
	case "":
		bookings, err = h.service.Bookings(r.Context())
	case string(model.StatusPending), string(model.StatusCompleted):
		bookings, err = h.service.BookingsByStatus(r.Context(), model.Status(status))
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err != nil {
		h.logger.Error("get bookings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(bookings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetBooking возвращает одно бронирование по идентификатору.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	booking, err := h.service.Booking(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get booking error", zap.Error(err), zap.String("bookingID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

type paymentRequest struct {
	Amount float64 `json:"amount"`
}

// RecordPayment принимает платёж по бронированию и возвращает обновлённую запись.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	booking, err := h.service.RecordPayment(r.Context(), id, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPayment):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrBookingNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrBookingCompleted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("record payment error", zap.Error(err), zap.String("bookingID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

// DeleteBooking удаляет бронирование.
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if err := h.service.DeleteBooking(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete booking error", zap.Error(err), zap.String("bookingID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats возвращает сводные показатели для панели управления.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("get stats error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// GetCalendar возвращает занятость номеров по дням в интервале from..to.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	days, err := h.service.Occupancy(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("get calendar error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(days) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.writeJSON(w, http.StatusOK, days)
}
