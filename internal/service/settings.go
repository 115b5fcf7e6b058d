package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/catalog"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/policy"
)

// GetMenu возвращает меню недели.
func (s *Service) GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error) {
	m, err := s.repo.GetMenu(ctx, slot)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMenuNotFound
	}
	return m, nil
}

// PutMenu сохраняет меню недели, заменяя предыдущее меню того же слота.
func (s *Service) PutMenu(ctx context.Context, m model.WeeklyMenu) (*model.WeeklyMenu, error) {
	if _, err := model.ParseSlot(string(m.Slot)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	days := make(map[model.Day]model.DayMenu, len(model.Weekdays))
	for d, dm := range m.Days {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, d)
		}
		days[d] = dm
	}
	for _, d := range model.Weekdays {
		if _, ok := days[d]; !ok {
			days[d] = model.DayMenu{}
		}
	}

	m.Days = days
	m.WeekLabel = strings.TrimSpace(m.WeekLabel)
	m.Season = strings.TrimSpace(m.Season)
	m.UpdatedAt = s.clock.Now()

	if err := s.repo.PutMenu(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("menu saved", zap.String("slot", string(m.Slot)), zap.String("week", m.WeekLabel))
	return &m, nil
}

// DeleteMenu удаляет меню недели вместе с заказами на неё и возвращает количество удалённых заказов.
func (s *Service) DeleteMenu(ctx context.Context, slot model.Slot) (int64, error) {
	n, err := s.repo.DeleteMenuWithOrders(ctx, slot)
	if err != nil {
		return 0, err
	}
	s.logger.Info("menu deleted", zap.String("slot", string(slot)), zap.Int64("orders", n))
	return n, nil
}

// Catalog возвращает каталог опций; до первого сохранения используется каталог по умолчанию.
func (s *Service) Catalog(ctx context.Context) (model.Catalog, error) {
	c, err := s.repo.GetCatalog(ctx)
	if err != nil {
		return model.Catalog{}, err
	}
	if c == nil {
		return catalog.Default(), nil
	}
	return catalog.Ensure(*c), nil
}

func (s *Service) updateCatalog(ctx context.Context, fn func(model.Catalog) (model.Catalog, error)) (model.Catalog, error) {
	c, err := s.Catalog(ctx)
	if err != nil {
		return model.Catalog{}, err
	}
	updated, err := fn(c)
	if err != nil {
		return model.Catalog{}, err
	}
	if err := s.repo.PutCatalog(ctx, updated); err != nil {
		return model.Catalog{}, err
	}
	return updated, nil
}

// AddOption добавляет опцию в каталог дня.
func (s *Service) AddOption(ctx context.Context, day model.Day, label string) (model.Catalog, error) {
	return s.updateCatalog(ctx, func(c model.Catalog) (model.Catalog, error) {
		return catalog.Add(c, day, label)
	})
}

// RemoveOption удаляет опцию из каталога дня.
func (s *Service) RemoveOption(ctx context.Context, day model.Day, label string) (model.Catalog, error) {
	return s.updateCatalog(ctx, func(c model.Catalog) (model.Catalog, error) {
		return catalog.Remove(c, day, label)
	})
}

// RenameOption переименовывает опцию в каталоге дня.
func (s *Service) RenameOption(ctx context.Context, day model.Day, from, to string) (model.Catalog, error) {
	return s.updateCatalog(ctx, func(c model.Catalog) (model.Catalog, error) {
		return catalog.Rename(c, day, from, to)
	})
}

// PriceView содержит настройки цены вместе с вычисленной суммой компенсации.
type PriceView struct {
	UnitPrice      model.Money `json:"unit_price"`
	SubsidyPercent float64     `json:"subsidy_percent"`
	SubsidyAmount  model.Money `json:"subsidy_amount"`
	Configured     bool        `json:"configured"`
}

func newPriceView(cfg *model.PriceConfig) PriceView {
	if cfg == nil {
		return PriceView{}
	}
	return PriceView{
		UnitPrice:      cfg.UnitPrice,
		SubsidyPercent: cfg.SubsidyPercent,
		SubsidyAmount:  policy.SubsidyAmount(*cfg),
		Configured:     true,
	}
}

// PriceConfig возвращает текущие настройки цены.
func (s *Service) PriceConfig(ctx context.Context) (PriceView, error) {
	cfg, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return PriceView{}, err
	}
	return newPriceView(cfg), nil
}

// PriceUpdate содержит новые настройки цены. Компенсация задаётся процентом, суммой или обоими сразу;
// во втором случае сумма переводится в процент, в третьем они должны совпадать.
type PriceUpdate struct {
	UnitPrice      model.Money
	SubsidyPercent *float64
	SubsidyAmount  *model.Money
}

// SetPriceConfig сохраняет цену обеда и процент компенсации.
func (s *Service) SetPriceConfig(ctx context.Context, upd PriceUpdate) (PriceView, error) {
	var cfg model.PriceConfig
	switch {
	case upd.SubsidyPercent != nil:
		cfg = model.PriceConfig{UnitPrice: upd.UnitPrice, SubsidyPercent: *upd.SubsidyPercent}
		if err := policy.ValidatePriceConfig(cfg); err != nil {
			return PriceView{}, err
		}
		if upd.SubsidyAmount != nil {
			if err := policy.CheckSubsidyConsistency(cfg, *upd.SubsidyAmount); err != nil {
				return PriceView{}, err
			}
		}
	case upd.SubsidyAmount != nil:
		var err error
		cfg, err = policy.NewPriceConfigFromAmount(upd.UnitPrice, *upd.SubsidyAmount)
		if err != nil {
			return PriceView{}, err
		}
	default:
		return PriceView{}, fmt.Errorf("%w: subsidy percent or amount is required", ErrInvalidInput)
	}

	if err := s.repo.PutPriceConfig(ctx, cfg); err != nil {
		return PriceView{}, err
	}
	s.logger.Info("price config saved",
		zap.Int64("unitPrice", int64(cfg.UnitPrice)),
		zap.Float64("subsidyPercent", cfg.SubsidyPercent),
	)
	return newPriceView(&cfg), nil
}

// Deadlines возвращает окно приёма заказов.
func (s *Service) Deadlines(ctx context.Context) (model.DeadlineConfig, error) {
	return s.repo.GetDeadlines(ctx)
}

// SetDeadlines сохраняет окно приёма заказов. Любая граница может отсутствовать.
func (s *Service) SetDeadlines(ctx context.Context, d model.DeadlineConfig) error {
	if d.OpensAt != nil && d.ClosesAt != nil && !d.OpensAt.Before(*d.ClosesAt) {
		return fmt.Errorf("%w: ordering must open before it closes", ErrInvalidInput)
	}
	return s.repo.PutDeadlines(ctx, d)
}

// ClearDeadlines снимает окно приёма заказов.
func (s *Service) ClearDeadlines(ctx context.Context) error {
	return s.repo.PutDeadlines(ctx, model.DeadlineConfig{})
}
