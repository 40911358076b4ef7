// Package validation содержит проверку формы бронирования.
package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/model"
)

const dateLayout = "2006-01-02"

var phoneRe = regexp.MustCompile(`^[\d\s\-+()]+$`)

// Result содержит результат проверки формы: сообщения об ошибках по полям.
// Отсутствие ключа означает, что поле заполнено корректно.
type Result struct {
	Errors map[string]string `json:"errors"`
}

// OK сообщает, прошла ли форма проверку.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Validate проверяет форму бронирования по всем бизнес-правилам сразу:
// ошибки накапливаются по полям, проверка не прерывается на первой.
// Ошибки возвращаются как данные, а не через error: они исправляются
// пользователем и лишь блокируют отправку формы.
//
// Сначала разбираются числовые и датовые поля, бизнес-правила
// (порядок дат, превышение задатка) проверяются только на успешно
// разобранных значениях.
func Validate(form model.BookingForm, cat catalog.Catalog) Result {
	errs := make(map[string]string)

	if strings.TrimSpace(form.Name) == "" {
		errs["name"] = "Name is required"
	}

	if strings.TrimSpace(form.Address) == "" {
		errs["address"] = "Address is required"
	}

	phone := strings.TrimSpace(form.Phone)
	if phone == "" {
		errs["phone"] = "Phone number is required"
	} else if !phoneRe.MatchString(phone) {
		errs["phone"] = "Please enter a valid phone number"
	}

	adults, err := strconv.Atoi(strings.TrimSpace(form.Adults))
	if err != nil || adults < 1 {
		errs["adults"] = "At least 1 adult is required"
	}

	if form.Children != "" {
		children, err := strconv.Atoi(strings.TrimSpace(form.Children))
		if err != nil || children < 0 {
			errs["children"] = "Number of children cannot be negative"
		}
	}

	datesValid := true

	checkIn, err := parseRequiredDate(form.CheckIn)
	if err != nil {
		errs["checkIn"] = errDateMessage(form.CheckIn, "Check-in")
		datesValid = false
	}

	checkOut, err := parseRequiredDate(form.CheckOut)
	if err != nil {
		errs["checkOut"] = errDateMessage(form.CheckOut, "Check-out")
		datesValid = false
	} else if datesValid && !checkOut.After(checkIn) {
		errs["checkOut"] = "Check-out must be after check-in date"
		datesValid = false
	}

	roomsKnown := true
	if len(form.Rooms) == 0 {
		errs["rooms"] = "Please select at least one room"
		roomsKnown = false
	} else {
		for _, id := range form.Rooms {
			if _, ok := cat.Get(id); !ok {
				errs["rooms"] = "Unknown room selected"
				roomsKnown = false
				break
			}
		}
	}

	switch form.PaymentType {
	case model.PaymentTypeDeposit:
		deposit := strings.TrimSpace(form.DepositAmount)
		if deposit == "" {
			errs["depositAmount"] = "Deposit amount is required"
		} else if v, err := strconv.ParseFloat(deposit, 64); err != nil || v <= 0 {
			errs["depositAmount"] = "Please enter a valid amount"
		} else if datesValid && roomsKnown {
			if total := roomTotal(checkIn, checkOut, form.Rooms, cat); v > total {
				errs["depositAmount"] = "Deposit cannot exceed the total amount"
			}
		}
	case model.PaymentTypeFull:
	default:
		errs["paymentType"] = "Please select a payment type"
	}

	return Result{Errors: errs}
}

var errEmptyDate = errors.New("empty date")

func parseRequiredDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errEmptyDate
	}
	return time.Parse(dateLayout, value)
}

func errDateMessage(value, field string) string {
	if value == "" {
		return field + " date is required"
	}
	return "Please enter a valid date"
}

// roomTotal считает итог напрямую, чтобы не тянуть пакет pricing
// в валидацию. Вызывается только на проверенной паре дат.
func roomTotal(checkIn, checkOut time.Time, rooms []string, cat catalog.Catalog) float64 {
	nights := int(checkOut.Sub(checkIn).Hours()+23) / 24

	var perNight float64
	for _, id := range rooms {
		perNight += cat.Rate(id)
	}

	return perNight * float64(nights)
}
