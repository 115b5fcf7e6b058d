package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/comedor/internal/model"
)

func TestPriceForDay(t *testing.T) {
	cfg := model.PriceConfig{UnitPrice: 6400, SubsidyPercent: 70}
	meal := model.DaySelection{Option: "CLASICO C/POSTRE"}
	skip := model.DaySelection{Option: model.DoNotOrder}

	tests := []struct {
		name string
		mode model.SubsidyMode
		sel  model.DaySelection
		want model.Money
	}{
		{"partial", model.SubsidyPartial, meal, 1920},
		{"full", model.SubsidyFull, meal, 0},
		{"none", model.SubsidyNone, meal, 6400},
		{"unset", "", meal, 6400},
		{"do not order partial", model.SubsidyPartial, skip, 0},
		{"do not order none", model.SubsidyNone, skip, 0},
		{"missing selection", model.SubsidyNone, model.DaySelection{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceForDay(tt.sel, model.User{SubsidyMode: tt.mode}, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceForDay_RoundsHalfUp(t *testing.T) {
	// 2005 * 0.5 = 1002.5 → 1003
	cfg := model.PriceConfig{UnitPrice: 2005, SubsidyPercent: 50}
	got, err := PriceForDay(model.DaySelection{Option: "A"}, model.User{SubsidyMode: model.SubsidyPartial}, cfg)
	require.NoError(t, err)
	assert.Equal(t, model.Money(1003), got)
}

func TestPriceForDay_InvalidConfig(t *testing.T) {
	user := model.User{SubsidyMode: model.SubsidyPartial}
	sel := model.DaySelection{Option: "A"}

	_, err := PriceForDay(sel, user, model.PriceConfig{UnitPrice: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = PriceForDay(sel, user, model.PriceConfig{UnitPrice: 100, SubsidyPercent: 120})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = PriceForDay(sel, model.User{SubsidyMode: "gold"}, model.PriceConfig{UnitPrice: 100})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPriceForWeek_PerDayRounding(t *testing.T) {
	cfg := model.PriceConfig{UnitPrice: 2005, SubsidyPercent: 50}
	user := model.User{SubsidyMode: model.SubsidyPartial}
	order := &model.Order{Days: map[model.Day]model.DaySelection{
		model.Monday:    {Option: "A"},
		model.Tuesday:   {Option: "B"},
		model.Wednesday: {Option: model.DoNotOrder},
		model.Friday:    {Option: "C", Late: true},
	}}

	got, err := PriceForWeek(order, user, cfg)
	require.NoError(t, err)
	// Три заказанных дня по 1003, а не round(3 * 1002.5).
	assert.Equal(t, model.Money(3009), got)
}

func TestPriceConfig_AmountRoundTrip(t *testing.T) {
	for _, unit := range []model.Money{2000, 6400, 7777} {
		for _, percent := range []float64{0, 12.5, 33.3, 70, 100} {
			cfg := model.PriceConfig{UnitPrice: unit, SubsidyPercent: percent}
			amount := SubsidyAmount(cfg)

			back, err := NewPriceConfigFromAmount(unit, amount)
			require.NoError(t, err)

			assert.InDelta(t, float64(amount), float64(SubsidyAmount(back)), SubsidyTolerance)
			require.NoError(t, CheckSubsidyConsistency(back, amount))
			require.NoError(t, CheckSubsidyConsistency(cfg, amount))
		}
	}
}

func TestCheckSubsidyConsistency_Mismatch(t *testing.T) {
	cfg := model.PriceConfig{UnitPrice: 2000, SubsidyPercent: 75}

	require.NoError(t, CheckSubsidyConsistency(cfg, 1500))
	require.ErrorIs(t, CheckSubsidyConsistency(cfg, 1400), ErrSubsidyConfigInconsistent)
}

func TestNewPriceConfigFromAmount_Invalid(t *testing.T) {
	_, err := NewPriceConfigFromAmount(2000, 2500)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPriceConfigFromAmount(-1, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}
