// Package model содержит доменные сущности сервиса бронирования.
package model

import "time"

// PaymentType описывает способ оплаты бронирования.
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeFull    PaymentType = "full"
)

// Status описывает статус оплаты бронирования.
// Бронирование считается завершённым, когда остаток равен нулю.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// BookingForm содержит сырые данные формы бронирования так,
// как их ввёл пользователь: все поля — строки до разбора.
type BookingForm struct {
	Name          string      `json:"name"`
	Address       string      `json:"address"`
	Phone         string      `json:"phone"`
	Adults        string      `json:"adults"`
	Children      string      `json:"children"`
	VehiclePlate  string      `json:"vehiclePlate"`
	CheckIn       string      `json:"checkIn"`
	CheckOut      string      `json:"checkOut"`
	Rooms         []string    `json:"rooms"`
	PaymentType   PaymentType `json:"paymentType"`
	DepositAmount string      `json:"depositAmount"`
}

// Amounts содержит рассчитанные суммы бронирования в ринггитах.
type Amounts struct {
	Total   float64 `json:"total"`
	Deposit float64 `json:"deposit"`
	Balance float64 `json:"balance"`
}

// Booking описывает сохранённую запись бронирования.
type Booking struct {
	ID           string
	Name         string
	Address      string
	Phone        string
	Adults       int
	Children     int
	VehiclePlate string
	CheckIn      string
	CheckOut     string
	Rooms        []string
	PaymentType  PaymentType
	Amounts      Amounts
	Status       Status
	CreatedAt    time.Time
}

// Stats содержит сводные показатели для панели управления.
type Stats struct {
	TotalBookings     int     `json:"totalBookings"`
	PendingBookings   int     `json:"pendingBookings"`
	CompletedBookings int     `json:"completedBookings"`
	Revenue           float64 `json:"revenue"`
}

// OccupiedDay описывает занятость одного номера в одну дату.
type OccupiedDay struct {
	Date      string `json:"date"`
	RoomID    string `json:"roomId"`
	BookingID string `json:"bookingId"`
	GuestName string `json:"guestName"`
}
