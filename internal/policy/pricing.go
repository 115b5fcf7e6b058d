package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmeshcher/comedor/internal/model"
)

// ErrSubsidyConfigInconsistent возвращается, если процент и сумма компенсации расходятся.
var ErrSubsidyConfigInconsistent = errors.New("subsidy percentage and amount disagree")

// SubsidyTolerance задаёт допустимое расхождение суммы компенсации, в единицах валюты.
const SubsidyTolerance = 1

// ValidatePriceConfig проверяет цену и процент компенсации.
func ValidatePriceConfig(cfg model.PriceConfig) error {
	if cfg.UnitPrice <= 0 {
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidInput)
	}
	if math.IsNaN(cfg.SubsidyPercent) || cfg.SubsidyPercent < 0 || cfg.SubsidyPercent > 100 {
		return fmt.Errorf("%w: subsidy percent must be within [0, 100]", ErrInvalidInput)
	}
	return nil
}

// SubsidyAmount возвращает сумму компенсации, соответствующую проценту.
func SubsidyAmount(cfg model.PriceConfig) model.Money {
	return roundHalfUp(float64(cfg.UnitPrice) * cfg.SubsidyPercent / 100)
}

// NewPriceConfigFromAmount переводит фиксированную сумму компенсации в процент.
func NewPriceConfigFromAmount(unitPrice, amount model.Money) (model.PriceConfig, error) {
	if unitPrice <= 0 {
		return model.PriceConfig{}, fmt.Errorf("%w: unit price must be positive", ErrInvalidInput)
	}
	if amount < 0 || amount > unitPrice {
		return model.PriceConfig{}, fmt.Errorf("%w: subsidy amount must be within [0, unit price]", ErrInvalidInput)
	}
	return model.PriceConfig{
		UnitPrice:      unitPrice,
		SubsidyPercent: float64(amount) * 100 / float64(unitPrice),
	}, nil
}

// CheckSubsidyConsistency сверяет процент с суммой, если заданы оба представления.
func CheckSubsidyConsistency(cfg model.PriceConfig, amount model.Money) error {
	derived := SubsidyAmount(cfg)
	diff := derived - amount
	if diff < 0 {
		diff = -diff
	}
	if diff > SubsidyTolerance {
		return fmt.Errorf("%w: %.2f%% of %d is %d, got %d",
			ErrSubsidyConfigInconsistent, cfg.SubsidyPercent, cfg.UnitPrice, derived, amount)
	}
	return nil
}

// PriceForDay возвращает стоимость выбора на один день для пользователя.
func PriceForDay(sel model.DaySelection, user model.User, cfg model.PriceConfig) (model.Money, error) {
	if err := ValidatePriceConfig(cfg); err != nil {
		return 0, err
	}
	if !sel.Ordered() {
		return 0, nil
	}

	switch user.SubsidyMode {
	case model.SubsidyFull:
		return 0, nil
	case model.SubsidyPartial:
		return roundHalfUp(float64(cfg.UnitPrice) * (100 - cfg.SubsidyPercent) / 100), nil
	case model.SubsidyNone, "":
		return cfg.UnitPrice, nil
	}
	return 0, fmt.Errorf("%w: subsidy mode %q", ErrInvalidInput, user.SubsidyMode)
}

// PriceForWeek суммирует стоимость пяти рабочих дней заказа. Округление выполняется по дням.
func PriceForWeek(order *model.Order, user model.User, cfg model.PriceConfig) (model.Money, error) {
	var total model.Money
	for _, d := range model.Weekdays {
		sel, ok := order.Selection(d)
		if !ok {
			continue
		}
		p, err := PriceForDay(sel, user, cfg)
		if err != nil {
			return 0, err
		}
		total += p
	}
	return total, nil
}

func roundHalfUp(v float64) model.Money {
	return model.Money(math.Floor(v + 0.5))
}
