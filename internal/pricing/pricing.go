// Package pricing содержит расчёт стоимости бронирования.
// Все функции чистые: без состояния, без ввода-вывода.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/afiqzak/serai-booking-system/internal/catalog"
	"github.com/afiqzak/serai-booking-system/internal/model"
)

const dateLayout = "2006-01-02"

// Calculator рассчитывает суммы бронирования по справочнику номеров.
type Calculator struct {
	catalog catalog.Catalog
}

// NewCalculator создаёт калькулятор с указанным справочником номеров.
func NewCalculator(cat catalog.Catalog) *Calculator {
	return &Calculator{catalog: cat}
}

// Nights возвращает количество ночей между датами заезда и выезда.
// Даты принимаются в формате ISO (2006-01-02). Невалидная пара дат —
// ошибка программирования: валидация формы обязана выполняться раньше,
// поэтому здесь возвращается ошибка, а не отрицательное число.
func Nights(checkIn, checkOut string) (int, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return 0, fmt.Errorf("parse check-in date: %w", err)
	}

	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return 0, fmt.Errorf("parse check-out date: %w", err)
	}

	nights := int(math.Ceil(out.Sub(in).Hours() / 24))
	if nights <= 0 {
		return 0, fmt.Errorf("check-out %s is not after check-in %s", checkOut, checkIn)
	}

	return nights, nil
}

// RoomTotal возвращает суммарную стоимость выбранных номеров за указанное
// количество ночей. Неизвестные идентификаторы дают нулевой вклад.
func (c *Calculator) RoomTotal(roomIDs []string, nights int) float64 {
	var perNight float64
	for _, id := range roomIDs {
		perNight += c.catalog.Rate(id)
	}
	return perNight * float64(nights)
}

// Amounts рассчитывает итоговые суммы по общей стоимости и способу оплаты.
// При полной оплате задаток равен итогу, остаток нулевой. При частичной
// оплате задаток берётся из строки ввода (неразборчивое значение — 0),
// остаток не бывает отрицательным.
func Amounts(total float64, paymentType model.PaymentType, depositInput string) model.Amounts {
	if paymentType == model.PaymentTypeFull {
		return model.Amounts{Total: total, Deposit: total, Balance: 0}
	}

	deposit, err := strconv.ParseFloat(depositInput, 64)
	if err != nil {
		deposit = 0
	}

	return model.Amounts{
		Total:   total,
		Deposit: deposit,
		Balance: math.Max(0, total-deposit),
	}
}

// Quote описывает расчёт стоимости бронирования.
type Quote struct {
	Nights  int
	Amounts model.Amounts
}

// Quote рассчитывает стоимость бронирования целиком: ночи, итог,
// задаток и остаток. Возвращает ошибку на невалидной паре дат.
func (c *Calculator) Quote(roomIDs []string, checkIn, checkOut string, paymentType model.PaymentType, depositInput string) (Quote, error) {
	nights, err := Nights(checkIn, checkOut)
	if err != nil {
		return Quote{}, err
	}

	total := c.RoomTotal(roomIDs, nights)

	return Quote{
		Nights:  nights,
		Amounts: Amounts(total, paymentType, depositInput),
	}, nil
}
