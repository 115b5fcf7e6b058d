// Package report агрегирует заказы для выгрузки: количество блюд по дням и итоги по пользователям.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmeshcher/comedor/internal/catalog"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/policy"
)

// DayCounts хранит количество заказов по опциям за один день.
type DayCounts struct {
	Counts map[string]int `json:"counts"`
	// Skipped считает пользователей, явно выбравших «не заказывать».
	Skipped int `json:"skipped"`
	// Missing считает пользователей, не заполнивших день.
	Missing int `json:"missing"`
}

// Summary содержит сводку по неделе.
type Summary struct {
	Labels []string                 `json:"labels"`
	Days   map[model.Day]*DayCounts `json:"days"`
}

// CountByOption подсчитывает заказы по опциям каталога. Опция «не заказывать» и пустые
// метки в счётчики не попадают.
func CountByOption(orders []model.Order, cat model.Catalog) Summary {
	s := Summary{Days: make(map[model.Day]*DayCounts, len(model.Weekdays))}
	labels := map[string]string{}

	addLabel := func(l string) string {
		l = strings.TrimSpace(l)
		for _, known := range labels {
			if catalog.Equal(known, l) {
				return known
			}
		}
		labels[l] = l
		return l
	}

	for _, d := range model.Weekdays {
		s.Days[d] = &DayCounts{Counts: map[string]int{}}
		for _, l := range cat.Days[d] {
			if catalog.IsPlaceholder(l) {
				continue
			}
			s.Days[d].Counts[addLabel(l)] += 0
		}
	}

	for i := range orders {
		for _, d := range model.Weekdays {
			sel, ok := orders[i].Selection(d)
			switch {
			case !ok || strings.TrimSpace(sel.Option) == "":
				s.Days[d].Missing++
			case catalog.IsPlaceholder(sel.Option):
				s.Days[d].Skipped++
			default:
				s.Days[d].Counts[addLabel(sel.Option)]++
			}
		}
	}

	for _, l := range labels {
		s.Labels = append(s.Labels, l)
	}
	s.Labels = catalog.Sort(s.Labels)
	return s
}

// Total возвращает количество заказов опции за неделю.
func (s Summary) Total(label string) int {
	n := 0
	for _, dc := range s.Days {
		n += dc.Counts[label]
	}
	return n
}

// TotalForUser возвращает стоимость недельного заказа пользователя.
func TotalForUser(order *model.Order, user model.User, cfg model.PriceConfig) (model.Money, error) {
	return policy.PriceForWeek(order, user, cfg)
}

// UserTotal описывает строку выгрузки по одному пользователю.
type UserTotal struct {
	UserID      int64                            `json:"user_id"`
	DisplayName string                           `json:"display_name"`
	Subsidy     model.SubsidyMode                `json:"subsidy"`
	Days        map[model.Day]model.DaySelection `json:"days"`
	Meals       int                              `json:"meals"`
	Total       model.Money                      `json:"total"`
}

// UserTotals считает итоги по каждому заказу. Строки отсортированы по имени пользователя.
// Если цена ещё не настроена (cfg == nil), итоги нулевые.
func UserTotals(orders []model.Order, users map[int64]model.User, cfg *model.PriceConfig) ([]UserTotal, error) {
	res := make([]UserTotal, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		u, ok := users[o.UserID]
		if !ok {
			u = model.User{ID: o.UserID, DisplayName: strconv.FormatInt(o.UserID, 10)}
		}
		var total model.Money
		if cfg != nil {
			var err error
			total, err = TotalForUser(o, u, *cfg)
			if err != nil {
				return nil, fmt.Errorf("total for user %d: %w", o.UserID, err)
			}
		}
		meals := 0
		for _, sel := range o.Days {
			if sel.Ordered() {
				meals++
			}
		}
		res = append(res, UserTotal{
			UserID:      u.ID,
			DisplayName: u.DisplayName,
			Subsidy:     u.SubsidyMode,
			Days:        o.Days,
			Meals:       meals,
			Total:       total,
		})
	}

	col := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(res, func(i, j int) bool {
		return col.CompareString(res[i].DisplayName, res[j].DisplayName) < 0
	})
	return res, nil
}

var dayColumns = []string{"LU", "MA", "MI", "JU", "VI"}

// WriteCSV выгружает сводку в CSV: строка на опцию, столбец на день и итог.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)

	header := append([]string{"MENU"}, dayColumns...)
	header = append(header, "TOTAL")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, l := range s.Labels {
		row := []string{l}
		for _, d := range model.Weekdays {
			row = append(row, strconv.Itoa(s.Days[d].Counts[l]))
		}
		row = append(row, strconv.Itoa(s.Total(l)))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	for _, extra := range []struct {
		name string
		get  func(*DayCounts) int
	}{
		{"NO PIDIO", func(dc *DayCounts) int { return dc.Skipped }},
		{"SIN COMPLETAR", func(dc *DayCounts) int { return dc.Missing }},
	} {
		row := []string{extra.name}
		sum := 0
		for _, d := range model.Weekdays {
			n := extra.get(s.Days[d])
			sum += n
			row = append(row, strconv.Itoa(n))
		}
		row = append(row, strconv.Itoa(sum))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// LateEntry описывает выбор дня, сделанный после отсечки.
type LateEntry struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Day         model.Day `json:"day"`
	Option      string    `json:"option"`
}

// LateSelections перечисляет поздние выборы с заказанным обедом, по пользователям и дням недели.
func LateSelections(orders []model.Order, users map[int64]model.User) []LateEntry {
	var res []LateEntry
	for _, o := range orders {
		name := strconv.FormatInt(o.UserID, 10)
		if u, ok := users[o.UserID]; ok {
			name = u.DisplayName
		}
		for _, d := range model.Weekdays {
			sel, ok := o.Selection(d)
			if !ok || !sel.Late || !sel.Ordered() {
				continue
			}
			res = append(res, LateEntry{UserID: o.UserID, DisplayName: name, Day: d, Option: sel.Option})
		}
	}

	col := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(res, func(i, j int) bool {
		if c := col.CompareString(res[i].DisplayName, res[j].DisplayName); c != 0 {
			return c < 0
		}
		return res[i].Day.Weekday() < res[j].Day.Weekday()
	})
	return res
}
