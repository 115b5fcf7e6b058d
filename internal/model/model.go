// Package model содержит доменные сущности сервиса заказа обедов.
package model

import (
	"fmt"
	"time"
)

// Money хранит сумму в целых единицах валюты.
type Money int64

// Day обозначает рабочий день недели, на который оформляется заказ.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
)

// Weekdays перечисляет рабочие дни в порядке недели.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Weekday возвращает соответствующий time.Weekday.
func (d Day) Weekday() time.Weekday {
	switch d {
	case Monday:
		return time.Monday
	case Tuesday:
		return time.Tuesday
	case Wednesday:
		return time.Wednesday
	case Thursday:
		return time.Thursday
	case Friday:
		return time.Friday
	}
	return time.Sunday
}

// Valid сообщает, является ли значение одним из пяти рабочих дней.
func (d Day) Valid() bool {
	for _, w := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// ParseDay разбирает имя дня недели.
func ParseDay(s string) (Day, error) {
	d := Day(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// Slot обозначает неделю, к которой относятся меню и заказы.
type Slot string

const (
	SlotCurrent Slot = "current"
	SlotNext    Slot = "next"
)

// ParseSlot разбирает имя недели.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotCurrent, SlotNext:
		return Slot(s), nil
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

// SubsidyMode описывает, какую часть стоимости обеда компенсирует работодатель.
type SubsidyMode string

const (
	SubsidyFull    SubsidyMode = "full"
	SubsidyPartial SubsidyMode = "partial"
	SubsidyNone    SubsidyMode = "none"
)

// ParseSubsidyMode разбирает режим компенсации; пустая строка означает отсутствие компенсации.
func ParseSubsidyMode(s string) (SubsidyMode, error) {
	switch SubsidyMode(s) {
	case SubsidyFull, SubsidyPartial, SubsidyNone:
		return SubsidyMode(s), nil
	case "":
		return SubsidyNone, nil
	}
	return "", fmt.Errorf("unknown subsidy mode %q", s)
}

// Role задаёт роль пользователя.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User представляет сотрудника или администратора.
type User struct {
	ID           int64
	Login        string
	DisplayName  string
	Role         Role
	SubsidyMode  SubsidyMode
	PasswordHash []byte
	CreatedAt    time.Time
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DayMenu описывает меню одного дня. Праздничный день обслуживания не имеет.
type DayMenu struct {
	IsHoliday bool              `json:"is_holiday"`
	Items     map[string]string `json:"items,omitempty"`
}

// WeeklyMenu описывает меню на неделю. В каждый момент существует не более одного меню на слот.
type WeeklyMenu struct {
	Slot      Slot            `json:"slot"`
	WeekLabel string          `json:"week_label"`
	Season    string          `json:"season"`
	Days      map[Day]DayMenu `json:"days"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsHoliday сообщает, отмечен ли день как праздничный.
func (m *WeeklyMenu) IsHoliday(d Day) bool {
	if m == nil {
		return false
	}
	return m.Days[d].IsHoliday
}

// DoNotOrder обозначает зарезервированную опцию «не заказывать в этот день».
// Её нельзя удалить из каталога или переименовать.
const DoNotOrder = "NO PEDIR COMIDA ESTE DÍA"

// Catalog содержит доступные для выбора опции по дням.
type Catalog struct {
	Days map[Day][]string `json:"days"`
}

// DaySelection хранит выбор пользователя на один день.
type DaySelection struct {
	Option string `json:"option"`
	Late   bool   `json:"late"`
}

// Ordered сообщает, заказан ли в этот день обед.
func (s DaySelection) Ordered() bool {
	return s.Option != "" && s.Option != DoNotOrder
}

// Order описывает заказ пользователя на неделю. День, отсутствующий в Days, считается незаполненным,
// что отличается от явного выбора DoNotOrder.
type Order struct {
	ID         int64
	UserID     int64
	Slot       Slot
	Days       map[Day]DaySelection
	TotalPrice Money
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Selection возвращает выбор на день и признак его наличия.
func (o *Order) Selection(d Day) (DaySelection, bool) {
	if o == nil || o.Days == nil {
		return DaySelection{}, false
	}
	s, ok := o.Days[d]
	return s, ok
}

// HistoryRecord хранит неизменяемую копию заказа на момент закрытия недели.
type HistoryRecord struct {
	ID             int64
	ClosureID      string
	SourceOrderID  int64
	UserID         int64
	Slot           Slot
	Days           map[Day]DaySelection
	TotalPrice     Money
	OrderCreatedAt time.Time
	ClosedAt       time.Time
}

// PriceConfig хранит цену обеда и процент компенсации. Фиксированная сумма компенсации
// не хранится, а вычисляется для отображения.
type PriceConfig struct {
	UnitPrice      Money   `json:"unit_price"`
	SubsidyPercent float64 `json:"subsidy_percent"`
}

// DeadlineConfig задаёт окно приёма заказов на следующую неделю. Любая граница может отсутствовать.
type DeadlineConfig struct {
	OpensAt  *time.Time `json:"opens_at,omitempty"`
	ClosesAt *time.Time `json:"closes_at,omitempty"`
}

// RolloverStatus задаёт итог запуска закрытия недели.
type RolloverStatus string

const (
	RolloverSucceeded RolloverStatus = "succeeded"
	RolloverFailed    RolloverStatus = "failed"
)

// RolloverRun описывает запись журнала закрытия недели.
type RolloverRun struct {
	ID         string         `json:"id"`
	Trigger    string         `json:"trigger"`
	Status     RolloverStatus `json:"status"`
	FailedStep string         `json:"failed_step,omitempty"`
	Error      string         `json:"error,omitempty"`
	Archived   int            `json:"archived"`
	Retagged   int            `json:"retagged"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
