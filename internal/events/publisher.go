// Package events публикует события жизненного цикла бронирований в NATS.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/afiqzak/serai-booking-system/internal/model"
)

const (
	subjectCreated = "bookings.created"
	subjectPayment = "bookings.payment"
)

// Publisher публикует события бронирований. Нулевой Publisher
// безопасен: публикация просто не выполняется.
type Publisher struct {
	conn *nats.Conn
}

// Connect подключается к NATS по указанному адресу.
func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// Close закрывает соединение с NATS.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Drain()
}

// BookingEvent описывает полезную нагрузку события бронирования.
type BookingEvent struct {
	BookingID string        `json:"bookingId"`
	GuestName string        `json:"guestName"`
	CheckIn   string        `json:"checkIn"`
	CheckOut  string        `json:"checkOut"`
	Rooms     []string      `json:"rooms"`
	Amounts   model.Amounts `json:"amounts"`
	Status    model.Status  `json:"status"`
	At        time.Time     `json:"at"`
}

// BookingCreated публикует событие о созданном бронировании.
func (p *Publisher) BookingCreated(b model.Booking) error {
	return p.publish(subjectCreated, b)
}

// PaymentRecorded публикует событие о принятом платеже.
func (p *Publisher) PaymentRecorded(b model.Booking) error {
	return p.publish(subjectPayment, b)
}

func (p *Publisher) publish(subject string, b model.Booking) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(BookingEvent{
		BookingID: b.ID,
		GuestName: b.Name,
		CheckIn:   b.CheckIn,
		CheckOut:  b.CheckOut,
		Rooms:     b.Rooms,
		Amounts:   b.Amounts,
		Status:    b.Status,
		At:        time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	return nil
}
