// Package catalog поддерживает списки опций меню по дням недели.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmeshcher/comedor/internal/model"
)

var (
	// ErrReservedLabel возвращается при попытке удалить или переименовать опцию «не заказывать».
	ErrReservedLabel = errors.New("reserved option cannot be changed")
	// ErrDuplicateLabel возвращается, если такая опция уже есть в списке дня.
	ErrDuplicateLabel = errors.New("option already exists")
	// ErrLabelNotFound возвращается, если опции нет в списке дня.
	ErrLabelNotFound = errors.New("option not found")
	// ErrEmptyLabel возвращается для пустой опции.
	ErrEmptyLabel = errors.New("option label is empty")
)

var standard = []string{
	"BETI JAI C/POSTRE", "BETI JAI C/GELATINA",
	"PASTAS C/POSTRE", "PASTAS C/GELATINA",
	"LIGHT C/POSTRE", "LIGHT C/GELATINA",
	"CLASICO C/POSTRE", "CLASICO C/GELATINA",
	"ENSALADA C/POSTRE", "ENSALADA C/GELATINA",
	"DIETA BLANDA C/POSTRE", "DIETA BLANDA C/GELATINA",
	"MENU PBT X 2 C/POSTRE", "MENU PBT X 2 C/GELATINA",
	"SAND DE MIGA C/POSTRE", "SAND DE MIGA C/GELATINA",
}

var fruits = []string{"GELATINA", "MANZANA", "NARANJA", "POMELO", "BANANA"}

var dishes = []string{"BETI JAI", "PASTAS", "LIGHT", "CLASICO", "ENSALADA", "DIETA BLANDA", "MENU PBT X 2", "SAND DE MIGA"}

// Default возвращает каталог по умолчанию. В четверг предлагается расширенный выбор фруктов.
func Default() model.Catalog {
	extended := make([]string, 0, len(dishes)*len(fruits))
	for _, d := range dishes {
		for _, f := range fruits {
			extended = append(extended, d+" C/"+f)
		}
	}

	c := model.Catalog{Days: make(map[model.Day][]string, len(model.Weekdays))}
	for _, d := range model.Weekdays {
		opts := standard
		if d == model.Thursday {
			opts = extended
		}
		c.Days[d] = Sort(append([]string{model.DoNotOrder}, opts...))
	}
	return c
}

func newCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
}

// Equal сравнивает опции без учёта регистра, диакритики и крайних пробелов.
func Equal(a, b string) bool {
	return newCollator().CompareString(strings.TrimSpace(a), strings.TrimSpace(b)) == 0
}

// IsPlaceholder сообщает, что метка не является блюдом: пустая строка или опция «не заказывать».
func IsPlaceholder(label string) bool {
	l := strings.TrimSpace(label)
	if l == "" {
		return true
	}
	return Equal(l, model.DoNotOrder) || strings.Contains(strings.ToUpper(l), "NO PEDIR")
}

// Sort возвращает копию списка: опция «не заказывать» первой, остальные по алфавиту
// без учёта регистра и диакритики.
func Sort(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)

	col := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := IsPlaceholder(out[i]), IsPlaceholder(out[j])
		if ri != rj {
			return ri
		}
		return col.CompareString(strings.TrimSpace(out[i]), strings.TrimSpace(out[j])) < 0
	})
	return out
}

// Ensure дополняет каталог недостающими днями и опцией «не заказывать».
func Ensure(c model.Catalog) model.Catalog {
	def := Default()
	out := model.Catalog{Days: make(map[model.Day][]string, len(model.Weekdays))}
	for _, d := range model.Weekdays {
		opts := c.Days[d]
		if len(opts) == 0 {
			out.Days[d] = def.Days[d]
			continue
		}
		if indexOf(opts, model.DoNotOrder) < 0 {
			opts = append([]string{model.DoNotOrder}, opts...)
		}
		out.Days[d] = Sort(opts)
	}
	return out
}

// Contains сообщает, можно ли выбрать опцию в указанный день.
func Contains(c model.Catalog, day model.Day, label string) bool {
	if label == model.DoNotOrder {
		return true
	}
	return indexOf(c.Days[day], label) >= 0
}

// Lookup возвращает опцию дня в написании каталога.
func Lookup(c model.Catalog, day model.Day, label string) (string, bool) {
	if Equal(label, model.DoNotOrder) {
		return model.DoNotOrder, true
	}
	i := indexOf(c.Days[day], label)
	if i < 0 {
		return "", false
	}
	return c.Days[day][i], true
}

// Add добавляет опцию в список дня.
func Add(c model.Catalog, day model.Day, label string) (model.Catalog, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return c, ErrEmptyLabel
	}
	if indexOf(c.Days[day], label) >= 0 {
		return c, fmt.Errorf("%w: %s", ErrDuplicateLabel, label)
	}
	out := clone(c)
	out.Days[day] = Sort(append(out.Days[day], label))
	return out, nil
}

// Remove удаляет опцию из списка дня.
func Remove(c model.Catalog, day model.Day, label string) (model.Catalog, error) {
	if IsPlaceholder(label) {
		return c, ErrReservedLabel
	}
	i := indexOf(c.Days[day], label)
	if i < 0 {
		return c, fmt.Errorf("%w: %s", ErrLabelNotFound, label)
	}
	out := clone(c)
	opts := out.Days[day]
	out.Days[day] = append(opts[:i:i], opts[i+1:]...)
	return out, nil
}

// Rename переименовывает опцию в списке дня.
func Rename(c model.Catalog, day model.Day, from, to string) (model.Catalog, error) {
	to = strings.TrimSpace(to)
	if IsPlaceholder(from) || IsPlaceholder(to) {
		return c, ErrReservedLabel
	}
	i := indexOf(c.Days[day], from)
	if i < 0 {
		return c, fmt.Errorf("%w: %s", ErrLabelNotFound, from)
	}
	if j := indexOf(c.Days[day], to); j >= 0 && j != i {
		return c, fmt.Errorf("%w: %s", ErrDuplicateLabel, to)
	}
	out := clone(c)
	out.Days[day][i] = to
	out.Days[day] = Sort(out.Days[day])
	return out, nil
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if Equal(l, label) {
			return i
		}
	}
	return -1
}

func clone(c model.Catalog) model.Catalog {
	out := model.Catalog{Days: make(map[model.Day][]string, len(c.Days))}
	for d, opts := range c.Days {
		cp := make([]string, len(opts))
		copy(cp, opts)
		out.Days[d] = cp
	}
	return out
}
