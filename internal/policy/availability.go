// Package policy реализует правила доступности дней для заказа, признак опоздания и расчёт цены.
// Все потребители (обработчики заказов, отчёты, закрытие недели) обращаются только сюда.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/comedor/internal/clock"
	"github.com/mmeshcher/comedor/internal/model"
)

var (
	// ErrInvalidInput возвращается при некорректных аргументах политики.
	ErrInvalidInput = clock.ErrInvalidInput
	// ErrDayClosed возвращается, если изменить выбор на день уже нельзя.
	ErrDayClosed = errors.New("day is closed for ordering")
	// ErrOrderingNotOpen возвращается до открытия окна приёма заказов.
	ErrOrderingNotOpen = errors.New("ordering is not open yet")
	// ErrWindowClosed возвращается, когда окно приёма заказов на текущую неделю закрыто.
	ErrWindowClosed = errors.New("ordering window is closed")
)

// Время отсечки заказов на текущий день: до 08:30 включительно (вся минута 08:30).
const (
	CutoffHour   = 8
	CutoffMinute = 30
)

// Reason объясняет, почему день закрыт.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonTooEarly     Reason = "too_early"
	ReasonWindowClosed Reason = "window_closed"
	ReasonPastDay      Reason = "past_day"
	ReasonCutoff       Reason = "cutoff"
	ReasonHoliday      Reason = "holiday"
)

// DayState описывает состояние дня для заказа.
type DayState struct {
	Orderable bool   `json:"orderable"`
	Late      bool   `json:"late"`
	Reason    Reason `json:"reason,omitempty"`
}

// Availability вычисляет доступность дней с учётом часового пояса и окна приёма заказов.
type Availability struct {
	Zone   *clock.Zone
	Window model.DeadlineConfig
}

// NewAvailability создаёт политику доступности.
func NewAvailability(zone *clock.Zone, window model.DeadlineConfig) *Availability {
	return &Availability{Zone: zone, Window: window}
}

// DayState возвращает состояние дня недели для указанного слота на момент asOf.
func (a *Availability) DayState(slot model.Slot, day model.Day, asOf time.Time) (DayState, error) {
	if !day.Valid() {
		return DayState{}, fmt.Errorf("%w: weekday %q", ErrInvalidInput, day)
	}
	local, err := a.Zone.Local(asOf)
	if err != nil {
		return DayState{}, err
	}

	if a.Window.OpensAt != nil && asOf.Before(*a.Window.OpensAt) {
		return DayState{Reason: ReasonTooEarly}, nil
	}
	// Окно закрыто: правило имеет приоритет над выходными.
	if a.Window.ClosesAt != nil && asOf.After(*a.Window.ClosesAt) {
		if slot == model.SlotCurrent {
			return DayState{Reason: ReasonWindowClosed}, nil
		}
		return DayState{Orderable: true, Late: true}, nil
	}

	if local.IsWeekend() || slot == model.SlotNext {
		return DayState{Orderable: true}, nil
	}

	today := local.Weekday
	target := day.Weekday()
	switch {
	case target > today:
		return DayState{Orderable: true}, nil
	case target < today:
		return DayState{Reason: ReasonPastDay}, nil
	case beforeCutoff(local):
		return DayState{Orderable: true}, nil
	default:
		return DayState{Reason: ReasonCutoff}, nil
	}
}

func beforeCutoff(l clock.Local) bool {
	return l.Hour < CutoffHour || (l.Hour == CutoffHour && l.Minute <= CutoffMinute)
}

// IsOrderable сообщает, можно ли оформить заказ на день текущей недели.
func (a *Availability) IsOrderable(day model.Day, asOf time.Time) (bool, error) {
	st, err := a.DayState(model.SlotCurrent, day, asOf)
	return st.Orderable, err
}

// IsLate сообщает, будет ли заказ на день текущей недели помечен как поздний.
func (a *Availability) IsLate(day model.Day, asOf time.Time) (bool, error) {
	st, err := a.DayState(model.SlotCurrent, day, asOf)
	return st.Late, err
}

// Week возвращает состояния всех пяти рабочих дней.
func (a *Availability) Week(slot model.Slot, asOf time.Time) (map[model.Day]DayState, error) {
	res := make(map[model.Day]DayState, len(model.Weekdays))
	for _, d := range model.Weekdays {
		st, err := a.DayState(slot, d, asOf)
		if err != nil {
			return nil, err
		}
		res[d] = st
	}
	return res, nil
}

// Change описывает запрос на изменение выбора одного дня.
type Change struct {
	Slot      model.Slot
	Day       model.Day
	Previous  *model.DaySelection
	Requested string
	Holiday   bool
	// Override снимает ограничения по времени (изменения администратора).
	Override bool
}

// Evaluate применяет правила к изменению выбора и возвращает сохраняемый выбор.
func (a *Availability) Evaluate(c Change, asOf time.Time) (model.DaySelection, error) {
	if c.Holiday {
		return model.DaySelection{Option: model.DoNotOrder}, nil
	}
	if c.Previous != nil && c.Previous.Option == c.Requested {
		return *c.Previous, nil
	}

	st, err := a.DayState(c.Slot, c.Day, asOf)
	if err != nil {
		return model.DaySelection{}, err
	}
	if st.Orderable {
		return model.DaySelection{Option: c.Requested, Late: st.Late}, nil
	}
	if c.Override {
		return model.DaySelection{Option: c.Requested, Late: true}, nil
	}

	switch st.Reason {
	case ReasonTooEarly:
		return model.DaySelection{}, ErrOrderingNotOpen
	case ReasonWindowClosed:
		return model.DaySelection{}, ErrWindowClosed
	case ReasonCutoff:
		// После отсечки можно изменить уже заказанный обед, но изменение помечается как позднее.
		if c.Previous != nil && c.Previous.Ordered() {
			return model.DaySelection{Option: c.Requested, Late: true}, nil
		}
	}
	return model.DaySelection{}, fmt.Errorf("%w: %s", ErrDayClosed, c.Day)
}
