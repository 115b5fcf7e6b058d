package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/comedor/internal/model"
)

func testCatalog() model.Catalog {
	opts := []string{model.DoNotOrder, "Pastas C/Postre", "ÁRABE C/POSTRE", "clasico c/postre"}
	c := model.Catalog{Days: map[model.Day][]string{}}
	for _, d := range model.Weekdays {
		c.Days[d] = opts
	}
	return c
}

func testOrders() []model.Order {
	return []model.Order{
		{
			UserID: 1,
			Days: map[model.Day]model.DaySelection{
				model.Monday:  {Option: "Pastas C/Postre"},
				model.Tuesday: {Option: model.DoNotOrder},
			},
		},
		{
			UserID: 2,
			Days: map[model.Day]model.DaySelection{
				model.Monday:  {Option: "PASTAS C/POSTRE"},
				model.Tuesday: {Option: "clasico c/postre", Late: true},
				model.Friday:  {Option: ""},
			},
		},
	}
}

func TestCountByOption(t *testing.T) {
	s := CountByOption(testOrders(), testCatalog())

	assert.Equal(t, []string{"ÁRABE C/POSTRE", "clasico c/postre", "Pastas C/Postre"}, s.Labels)
	assert.NotContains(t, s.Labels, model.DoNotOrder)

	assert.Equal(t, 2, s.Days[model.Monday].Counts["Pastas C/Postre"])
	assert.Equal(t, 0, s.Days[model.Monday].Counts["ÁRABE C/POSTRE"])
	assert.Equal(t, 1, s.Days[model.Tuesday].Counts["clasico c/postre"])

	// Явный отказ и незаполненный день считаются раздельно.
	assert.Equal(t, 1, s.Days[model.Tuesday].Skipped)
	assert.Equal(t, 0, s.Days[model.Tuesday].Missing)
	assert.Equal(t, 0, s.Days[model.Wednesday].Skipped)
	assert.Equal(t, 2, s.Days[model.Wednesday].Missing)
	assert.Equal(t, 2, s.Days[model.Friday].Missing)

	for _, d := range model.Weekdays {
		_, ok := s.Days[d].Counts[model.DoNotOrder]
		assert.False(t, ok, "reserved label counted on %s", d)
	}

	assert.Equal(t, 2, s.Total("Pastas C/Postre"))
}

func TestUserTotals(t *testing.T) {
	users := map[int64]model.User{
		1: {ID: 1, DisplayName: "Zoe", SubsidyMode: model.SubsidyPartial},
		2: {ID: 2, DisplayName: "Ángela", SubsidyMode: model.SubsidyNone},
	}
	cfg := model.PriceConfig{UnitPrice: 6400, SubsidyPercent: 70}

	rows, err := UserTotals(testOrders(), users, &cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Ángela", rows[0].DisplayName)
	assert.Equal(t, 2, rows[0].Meals)
	assert.Equal(t, model.Money(12800), rows[0].Total)

	assert.Equal(t, "Zoe", rows[1].DisplayName)
	assert.Equal(t, 1, rows[1].Meals)
	assert.Equal(t, model.Money(1920), rows[1].Total)

	unpriced, err := UserTotals(testOrders(), users, nil)
	require.NoError(t, err)
	for _, r := range unpriced {
		assert.Zero(t, r.Total)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, CountByOption(testOrders(), testCatalog())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 1+3+2)
	assert.Equal(t, []string{"MENU", "LU", "MA", "MI", "JU", "VI", "TOTAL"}, records[0])
	assert.Equal(t, []string{"Pastas C/Postre", "2", "0", "0", "0", "0", "2"}, records[3])
	assert.Equal(t, []string{"NO PIDIO", "0", "1", "0", "0", "0", "1"}, records[4])
	assert.Equal(t, []string{"SIN COMPLETAR", "0", "0", "2", "2", "2", "6"}, records[5])
}

func TestLateSelections(t *testing.T) {
	orders := append(testOrders(), model.Order{
		UserID: 3,
		Days: map[model.Day]model.DaySelection{
			model.Friday:  {Option: "Pastas C/Postre", Late: true},
			model.Monday:  {Option: "clasico c/postre", Late: true},
			model.Tuesday: {Option: model.DoNotOrder, Late: true},
		},
	})
	users := map[int64]model.User{
		2: {ID: 2, DisplayName: "Zoe"},
		3: {ID: 3, DisplayName: "Ángela"},
	}

	late := LateSelections(orders, users)

	require.Len(t, late, 3)
	assert.Equal(t, LateEntry{UserID: 3, DisplayName: "Ángela", Day: model.Monday, Option: "clasico c/postre"}, late[0])
	assert.Equal(t, model.Friday, late[1].Day)
	assert.Equal(t, LateEntry{UserID: 2, DisplayName: "Zoe", Day: model.Tuesday, Option: "clasico c/postre"}, late[2])
}
