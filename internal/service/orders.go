package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/catalog"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/policy"
	"github.com/mmeshcher/comedor/internal/report"
	"github.com/mmeshcher/comedor/internal/rollover"
)

// Лимиты выдачи архивных записей.
const (
	historyLimit  = 500
	rolloverLimit = 20
)

func (s *Service) availability(ctx context.Context) (*policy.Availability, error) {
	window, err := s.repo.GetDeadlines(ctx)
	if err != nil {
		return nil, err
	}
	return policy.NewAvailability(s.zone, window), nil
}

// Availability возвращает состояние каждого рабочего дня недели на текущий момент.
// Праздничные дни меню закрыты для выбора.
func (s *Service) Availability(ctx context.Context, slot model.Slot) (map[model.Day]policy.DayState, error) {
	avail, err := s.availability(ctx)
	if err != nil {
		return nil, err
	}
	week, err := avail.Week(slot, s.clock.Now())
	if err != nil {
		return nil, err
	}

	menu, err := s.repo.GetMenu(ctx, slot)
	if err != nil {
		return nil, err
	}
	for _, d := range model.Weekdays {
		if menu.IsHoliday(d) {
			week[d] = policy.DayState{Reason: policy.ReasonHoliday}
		}
	}
	return week, nil
}

// OrderRequest описывает изменение выбора пользователя на неделю. Дни, не указанные в Days, не меняются.
type OrderRequest struct {
	UserID int64
	Slot   model.Slot
	Days   map[model.Day]string
	// AsAdmin снимает ограничения по времени; изменения закрытых дней помечаются как поздние.
	AsAdmin bool
}

// PlaceOrder создаёт или обновляет заказ пользователя на неделю.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	if _, err := model.ParseSlot(string(req.Slot)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(req.Days) == 0 {
		return nil, fmt.Errorf("%w: no days selected", ErrInvalidInput)
	}
	for d := range req.Days {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidInput, d)
		}
	}

	menu, err := s.GetMenu(ctx, req.Slot)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := s.repo.GetOrder(ctx, req.UserID, req.Slot)
	if err != nil {
		return nil, err
	}
	avail, err := s.availability(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	days := make(map[model.Day]model.DaySelection, len(model.Weekdays))
	if prev != nil {
		for d, sel := range prev.Days {
			days[d] = sel
		}
	}

	late := 0
	for _, d := range model.Weekdays {
		requested, ok := req.Days[d]
		holiday := menu.IsHoliday(d)
		if !ok {
			if holiday {
				days[d] = model.DaySelection{Option: model.DoNotOrder}
			}
			continue
		}

		var prevSel *model.DaySelection
		if p, ok := prev.Selection(d); ok {
			prevSel = &p
		}

		requested = strings.TrimSpace(requested)
		switch {
		case holiday:
		case prevSel != nil && catalog.Equal(prevSel.Option, requested):
			// Сохранённый выбор остаётся в силе, даже если опцию уже переименовали в каталоге.
			requested = prevSel.Option
		default:
			label, found := catalog.Lookup(cat, d, requested)
			if !found {
				return nil, fmt.Errorf("%w: option %q is not offered on %s", ErrInvalidInput, requested, d)
			}
			requested = label
		}

		sel, err := avail.Evaluate(policy.Change{
			Slot:      req.Slot,
			Day:       d,
			Previous:  prevSel,
			Requested: requested,
			Holiday:   holiday,
			Override:  req.AsAdmin,
		}, now)
		if err != nil {
			return nil, err
		}
		if sel.Late && (prevSel == nil || *prevSel != sel) {
			late++
		}
		days[d] = sel
	}

	order := model.Order{UserID: req.UserID, Slot: req.Slot, Days: days}
	order.TotalPrice, err = s.priceFor(ctx, &order, *user)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.SaveOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	actor := "user"
	if req.AsAdmin {
		actor = "admin"
	}
	s.metrics.OrderSaved(req.Slot, actor, late)
	s.logger.Info("order saved",
		zap.Int64("userID", req.UserID),
		zap.String("slot", string(req.Slot)),
		zap.String("actor", actor),
		zap.Int("late", late),
	)
	return &saved, nil
}

func (s *Service) priceFor(ctx context.Context, o *model.Order, u model.User) (model.Money, error) {
	cfg, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return 0, nil
	}
	return policy.PriceForWeek(o, u, *cfg)
}

// GetOrder возвращает заказ пользователя на неделю.
func (s *Service) GetOrder(ctx context.Context, userID int64, slot model.Slot) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, userID, slot)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// DeleteOrder удаляет заказ пользователя на неделю.
func (s *Service) DeleteOrder(ctx context.Context, userID int64, slot model.Slot) error {
	if err := s.repo.DeleteUserOrder(ctx, userID, slot); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.Int64("userID", userID), zap.String("slot", string(slot)))
	return nil
}

// ListOrders возвращает заказы всех пользователей на неделю.
func (s *Service) ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, slot)
}

// Report содержит сводку недели для администратора.
type Report struct {
	Slot    model.Slot         `json:"slot"`
	Menu    *model.WeeklyMenu  `json:"menu,omitempty"`
	Summary report.Summary     `json:"summary"`
	Users   []report.UserTotal `json:"users"`
	Late    []report.LateEntry `json:"late"`
	Price   PriceView          `json:"price"`
}

// BuildReport собирает сводку заказов недели: количество по опциям, итоги по пользователям и поздние выборы.
func (s *Service) BuildReport(ctx context.Context, slot model.Slot) (*Report, error) {
	orders, err := s.repo.ListOrders(ctx, slot)
	if err != nil {
		return nil, err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make(map[int64]model.User, len(list))
	for _, u := range list {
		users[u.ID] = u
	}
	cfg, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return nil, err
	}
	menu, err := s.repo.GetMenu(ctx, slot)
	if err != nil {
		return nil, err
	}

	totals, err := report.UserTotals(orders, users, cfg)
	if err != nil {
		return nil, err
	}

	return &Report{
		Slot:    slot,
		Menu:    menu,
		Summary: report.CountByOption(orders, cat),
		Users:   totals,
		Late:    report.LateSelections(orders, users),
		Price:   newPriceView(cfg),
	}, nil
}

// ExportCSV выгружает количество заказов по опциям в CSV.
func (s *Service) ExportCSV(ctx context.Context, slot model.Slot, w io.Writer) error {
	orders, err := s.repo.ListOrders(ctx, slot)
	if err != nil {
		return err
	}
	cat, err := s.Catalog(ctx)
	if err != nil {
		return err
	}
	return report.WriteCSV(w, report.CountByOption(orders, cat))
}

// History возвращает архив заказов пользователя.
func (s *Service) History(ctx context.Context, userID int64) ([]model.HistoryRecord, error) {
	return s.repo.ListHistory(ctx, userID, historyLimit)
}

// AllHistory возвращает архив заказов всех пользователей.
func (s *Service) AllHistory(ctx context.Context) ([]model.HistoryRecord, error) {
	return s.repo.ListHistory(ctx, 0, historyLimit)
}

// CloseWeek вручную закрывает неделю. Разрешено начиная с настроенного часа по местному времени.
func (s *Service) CloseWeek(ctx context.Context) (*model.RolloverRun, error) {
	local, err := s.zone.Local(s.clock.Now())
	if err != nil {
		return nil, err
	}
	if local.Hour < s.closeFromHour {
		return nil, fmt.Errorf("%w: allowed from %02d:00", ErrCloseNotAllowedYet, s.closeFromHour)
	}
	return s.closer.Run(ctx, rollover.TriggerManual)
}

// RolloverRuns возвращает журнал закрытий недели.
func (s *Service) RolloverRuns(ctx context.Context) ([]model.RolloverRun, error) {
	return s.repo.ListRolloverRuns(ctx, rolloverLimit)
}
