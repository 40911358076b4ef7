// Package catalog содержит справочник номеров гостиницы.
// Справочник передаётся явно при создании сервисов, а не хранится
// в глобальном состоянии, чтобы в тестах его можно было подменить.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// RoomType описывает тип номера и его стоимость за ночь в ринггитах.
type RoomType struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Rate        float64 `json:"rate"`
}

// Catalog содержит упорядоченный список типов номеров.
type Catalog struct {
	rooms []RoomType
	byID  map[string]RoomType
}

// New создаёт справочник из списка номеров.
func New(rooms []RoomType) (Catalog, error) {
	byID := make(map[string]RoomType, len(rooms))
	for _, r := range rooms {
		if r.ID == "" {
			return Catalog{}, fmt.Errorf("room without id")
		}
		if r.Rate <= 0 {
			return Catalog{}, fmt.Errorf("room %q: rate must be positive, got %v", r.ID, r.Rate)
		}
		if _, ok := byID[r.ID]; ok {
			return Catalog{}, fmt.Errorf("duplicate room id %q", r.ID)
		}
		byID[r.ID] = r
	}
	return Catalog{rooms: rooms, byID: byID}, nil
}

// Default возвращает встроенный справочник номеров.
func Default() Catalog {
	c, err := New([]RoomType{
		{ID: "seroja", Name: "Seroja", Description: "Elegant room with garden view", Rate: 350},
		{ID: "dahlia", Name: "Dahlia", Description: "Spacious room with balcony", Rate: 180},
		{ID: "adelia", Name: "Adelia", Description: "Luxury suite with premium amenities", Rate: 150},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile читает справочник номеров из JSON-файла.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read rooms file: %w", err)
	}

	var rooms []RoomType
	if err := json.Unmarshal(data, &rooms); err != nil {
		return Catalog{}, fmt.Errorf("parse rooms file: %w", err)
	}

	if len(rooms) == 0 {
		return Catalog{}, fmt.Errorf("rooms file %s is empty", path)
	}

	return New(rooms)
}

// Rooms возвращает список номеров в порядке объявления.
func (c Catalog) Rooms() []RoomType {
	return c.rooms
}

// Get возвращает тип номера по идентификатору.
func (c Catalog) Get(id string) (RoomType, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Rate возвращает стоимость номера за ночь.
// Для неизвестного идентификатора возвращается 0: валидация формы
// отклоняет такие идентификаторы до расчёта стоимости.
func (c Catalog) Rate(id string) float64 {
	return c.byID[id].Rate
}
