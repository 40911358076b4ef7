// Package service реализует бизнес-логику сервиса бронирования.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/events"
	"github.com/afiqzak/serai-booking-system/internal/model"
	"github.com/afiqzak/serai-booking-system/internal/notify"
	"github.com/afiqzak/serai-booking-system/internal/pricing"
	"github.com/afiqzak/serai-booking-system/internal/validation"
)

const dateLayout = "2006-01-02"

// ErrInvalidPayment возвращается при попытке принять неположительный платёж.
var (
	ErrInvalidPayment = errors.New("payment amount must be positive")
	// ErrInvalidRange возвращается для некорректного интервала дат календаря.
	ErrInvalidRange = errors.New("invalid date range")
)

// ValidationError содержит ошибки проверки формы бронирования по полям.
// Это не сбой, а данные для пользователя: отправка блокируется,
// пока форма не исправлена.
type ValidationError struct {
	Fields map[string]string
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking form validation failed: %d field(s)", len(e.Fields))
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	GetBookings(ctx context.Context) ([]model.Booking, error)
	GetBookingsByStatus(ctx context.Context, status model.Status) ([]model.Booking, error)
	GetBookingByID(ctx context.Context, id string) (model.Booking, error)
	UpdateBookingPayment(ctx context.Context, id string, amountSen int64) (model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	GetStats(ctx context.Context) (model.Stats, int64, error)
	GetBookingsOverlapping(ctx context.Context, from, to string) ([]model.Booking, error)
	GetCheckinsDue(ctx context.Context, date string) ([]model.Booking, error)
}

// Notifier описывает контракт шлюза уведомлений гостей.
type Notifier interface {
	SendReminder(ctx context.Context, reminder notify.Reminder) (int, time.Duration, error)
}

// Service содержит бизнес-логику сервиса бронирования.
type Service struct {
	repo      Repository
	catalog   catalog.Catalog
	calc      *pricing.Calculator
	notifier  Notifier
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewService создаёт сервис с указанным репозиторием и справочником номеров.
// Уведомления и события отключаются передачей nil.
func NewService(repo Repository, cat catalog.Catalog, notifier Notifier, publisher *events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		calc:      pricing.NewCalculator(cat),
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	s.publisher.Close()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Catalog возвращает справочник номеров.
func (s *Service) Catalog() catalog.Catalog {
	return s.catalog
}

// CreateBooking проверяет форму, рассчитывает суммы и сохраняет бронирование.
// При непройденной проверке возвращается *ValidationError с ошибками по полям.
func (s *Service) CreateBooking(ctx context.Context, form model.BookingForm) (model.Booking, error) {
	res := validation.Validate(form, s.catalog)
	if !res.OK() {
		return model.Booking{}, &ValidationError{Fields: res.Errors}
	}

	// Валидация уже прошла, поэтому ошибка расчёта здесь — дефект интеграции.
	quote, err := s.calc.Quote(dedup(form.Rooms), form.CheckIn, form.CheckOut, form.PaymentType, form.DepositAmount)
	if err != nil {
		return model.Booking{}, fmt.Errorf("quote validated form: %w", err)
	}

	adults, _ := strconv.Atoi(strings.TrimSpace(form.Adults))
	children := 0
	if form.Children != "" {
		children, _ = strconv.Atoi(strings.TrimSpace(form.Children))
	}

	status := model.StatusCompleted
	if quote.Amounts.Balance > 0 {
		status = model.StatusPending
	}

	booking := model.Booking{
		Name:         strings.TrimSpace(form.Name),
		Address:      strings.TrimSpace(form.Address),
		Phone:        strings.TrimSpace(form.Phone),
		Adults:       adults,
		Children:     children,
		VehiclePlate: strings.TrimSpace(form.VehiclePlate),
		CheckIn:      form.CheckIn,
		CheckOut:     form.CheckOut,
		Rooms:        dedup(form.Rooms),
		PaymentType:  form.PaymentType,
		Amounts:      quote.Amounts,
		Status:       status,
	}

	created, err := s.repo.CreateBooking(ctx, booking)
	if err != nil {
		return model.Booking{}, err
	}

	if err := s.publisher.BookingCreated(created); err != nil {
		s.logger.Warn("publish booking created", zap.Error(err), zap.String("bookingID", created.ID))
	}

	return created, nil
}

// dedup убирает повторы из списка номеров, сохраняя порядок выбора.
func dedup(rooms []string) []string {
	seen := make(map[string]struct{}, len(rooms))
	res := make([]string, 0, len(rooms))
	for _, id := range rooms {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}

// Bookings возвращает все бронирования.
func (s *Service) Bookings(ctx context.Context) ([]model.Booking, error) {
	return s.repo.GetBookings(ctx)
}

// BookingsByStatus возвращает бронирования с указанным статусом.
func (s *Service) BookingsByStatus(ctx context.Context, status model.Status) ([]model.Booking, error) {
	return s.repo.GetBookingsByStatus(ctx, status)
}

// Booking возвращает бронирование по идентификатору.
func (s *Service) Booking(ctx context.Context, id string) (model.Booking, error) {
	return s.repo.GetBookingByID(ctx, id)
}

// RecordPayment принимает платёж по бронированию. Платёж сверх остатка
// обрезается до остатка, итоговые суммы пересчитывает репозиторий.
// Сумма округляется до ближайшего сена: усечение оставляло бы
// точный платёж остатка на один сен короче.
func (s *Service) RecordPayment(ctx context.Context, id string, amount float64) (model.Booking, error) {
	amountSen := int64(math.Round(amount * 100))
	if amountSen <= 0 {
		return model.Booking{}, ErrInvalidPayment
	}

	updated, err := s.repo.UpdateBookingPayment(ctx, id, amountSen)
	if err != nil {
		return model.Booking{}, err
	}

	if err := s.publisher.PaymentRecorded(updated); err != nil {
		s.logger.Warn("publish payment recorded", zap.Error(err), zap.String("bookingID", updated.ID))
	}

	return updated, nil
}

// DeleteBooking удаляет бронирование.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	return s.repo.DeleteBooking(ctx, id)
}

// Stats возвращает сводные показатели для панели управления.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	stats, revenueSen, err := s.repo.GetStats(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	stats.Revenue = float64(revenueSen) / 100
	return stats, nil
}

// Occupancy возвращает занятость номеров по дням в указанном интервале.
// День выезда не считается занятым.
func (s *Service) Occupancy(ctx context.Context, from, to string) ([]model.OccupiedDay, error) {
	fromDate, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: parse from date: %s", ErrInvalidRange, from)
	}
	toDate, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: parse to date: %s", ErrInvalidRange, to)
	}
	if !toDate.After(fromDate) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidRange, to, from)
	}

	bookings, err := s.repo.GetBookingsOverlapping(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var days []model.OccupiedDay
	for _, b := range bookings {
		checkIn, err := time.Parse(dateLayout, b.CheckIn)
		if err != nil {
			return nil, fmt.Errorf("booking %s: parse check-in: %w", b.ID, err)
		}
		checkOut, err := time.Parse(dateLayout, b.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("booking %s: parse check-out: %w", b.ID, err)
		}

		for d := maxDate(checkIn, fromDate); d.Before(minDate(checkOut, toDate)); d = d.AddDate(0, 0, 1) {
			for _, room := range b.Rooms {
				days = append(days, model.OccupiedDay{
					Date:      d.Format(dateLayout),
					RoomID:    room,
					BookingID: b.ID,
					GuestName: b.Name,
				})
			}
		}
	}

	return days, nil
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// StartCheckinReminders запускает фоновую отправку напоминаний об оплате
// гостям, заезжающим сегодня. Каждому бронированию — не больше одного
// напоминания в день, повтор неудачной отправки — в следующем проходе.
func (s *Service) StartCheckinReminders(ctx context.Context, interval time.Duration) {
	if s.notifier == nil {
		return
	}

	go func() {
		notified := make(map[string]string)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processReminders(ctx, notified)
			}
		}
	}()
}

func (s *Service) processReminders(ctx context.Context, notified map[string]string) {
	today := time.Now().Format(dateLayout)

	// Отметки прошлых дней больше не понадобятся.
	for id, day := range notified {
		if day != today {
			delete(notified, id)
		}
	}

	bookings, err := s.repo.GetCheckinsDue(ctx, today)
	if err != nil {
		s.logger.Warn("load check-ins due", zap.Error(err))
		return
	}

	for _, b := range bookings {
		if notified[b.ID] == today {
			continue
		}

		statusCode, retryAfter, err := s.notifier.SendReminder(ctx, notify.Reminder{
			BookingID: b.ID,
			GuestName: b.Name,
			Phone:     b.Phone,
			CheckIn:   b.CheckIn,
			Balance:   b.Amounts.Balance,
		})
		if err != nil {
			s.logger.Warn("send reminder", zap.Error(err), zap.String("bookingID", b.ID))
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		notified[b.ID] = today
	}
}
