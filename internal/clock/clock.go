// Package clock переводит моменты времени в часовой пояс заведения.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// DefaultZone задаёт часовой пояс, в котором работает столовая.
const DefaultZone = "America/Argentina/Buenos_Aires"

// ErrInvalidInput возвращается для нулевого или иначе некорректного момента времени.
var ErrInvalidInput = errors.New("invalid input")

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// System возвращает время через time.Now.
type System struct{}

// Now возвращает текущее время.
func (System) Now() time.Time { return time.Now() }

// Fixed всегда возвращает один и тот же момент.
type Fixed time.Time

// Now возвращает зафиксированный момент.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Local хранит момент времени, разложенный в часовом поясе заведения.
type Local struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
	Year    int
	Month   time.Month
	Day     int
}

// IsWeekend сообщает, приходится ли момент на субботу или воскресенье.
func (l Local) IsWeekend() bool {
	return l.Weekday == time.Saturday || l.Weekday == time.Sunday
}

// Zone выполняет преобразования в часовом поясе заведения.
type Zone struct {
	loc *time.Location
}

// LoadZone загружает часовой пояс по имени IANA.
func LoadZone(name string) (*Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return &Zone{loc: loc}, nil
}

// NewZone оборачивает уже загруженный *time.Location.
func NewZone(loc *time.Location) *Zone {
	return &Zone{loc: loc}
}

// Location возвращает часовой пояс.
func (z *Zone) Location() *time.Location {
	return z.loc
}

// Local раскладывает момент на день недели, час и минуту в часовом поясе заведения.
func (z *Zone) Local(t time.Time) (Local, error) {
	if t.IsZero() {
		return Local{}, fmt.Errorf("%w: zero instant", ErrInvalidInput)
	}
	lt := t.In(z.loc)
	y, m, d := lt.Date()
	return Local{
		Weekday: lt.Weekday(),
		Hour:    lt.Hour(),
		Minute:  lt.Minute(),
		Year:    y,
		Month:   m,
		Day:     d,
	}, nil
}

// SameDay сообщает, приходятся ли два момента на одну календарную дату.
func (z *Zone) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(z.loc).Date()
	by, bm, bd := b.In(z.loc).Date()
	return ay == by && am == bm && ad == bd
}
