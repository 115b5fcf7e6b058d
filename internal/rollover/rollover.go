// Package rollover реализует еженедельное закрытие: архивирование заказов текущей недели,
// перенос меню следующей недели в текущую и перевод заказов следующей недели в текущую.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/clock"
	"github.com/mmeshcher/comedor/internal/metrics"
	"github.com/mmeshcher/comedor/internal/model"
)

var (
	// ErrNothingToRoll возвращается, если меню следующей недели отсутствует. Состояние не меняется.
	ErrNothingToRoll = errors.New("no next-week menu to roll over")
	// ErrPartialRollover оборачивается *StepError, если шаг после проверки завершился ошибкой.
	ErrPartialRollover = errors.New("rollover step failed")
)

// Step задаёт имя шага закрытия недели.
type Step string

const (
	StepGuard       Step = "guard"
	StepArchive     Step = "archive"
	StepPromoteMenu Step = "promote_menu"
	StepRetagOrders Step = "retag_orders"
	StepRecord      Step = "record_timestamp"
)

// StepError описывает ошибку конкретного шага.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("rollover step %s: %v", e.Step, e.Err)
}

// Unwrap позволяет errors.Is находить как ErrPartialRollover, так и исходную причину.
func (e *StepError) Unwrap() []error {
	return []error{ErrPartialRollover, e.Err}
}

// Store описывает операции хранилища, нужные процедуре закрытия. GetMenu возвращает nil без ошибки,
// если меню слота нет.
type Store interface {
	GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error)
	PutMenu(ctx context.Context, menu model.WeeklyMenu) error
	DeleteMenu(ctx context.Context, slot model.Slot) error
	ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	SetOrderSlot(ctx context.Context, id int64, slot model.Slot) error
	ArchiveOrder(ctx context.Context, rec model.HistoryRecord) error
	SaveRolloverRun(ctx context.Context, run model.RolloverRun) error
}

// Journal хранит журнал запусков вне транзакции.
type Journal interface {
	SaveRolloverRun(ctx context.Context, run model.RolloverRun) error
	LastSuccessfulRollover(ctx context.Context) (*model.RolloverRun, error)
}

// Transactor выполняет fn в одной транзакции хранилища: при ошибке изменения всех шагов откатываются.
type Transactor func(ctx context.Context, fn func(Store) error) error

// Procedure выполняет закрытие недели.
type Procedure struct {
	inTx    Transactor
	journal Journal
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewProcedure создаёт процедуру закрытия недели.
func NewProcedure(inTx Transactor, journal Journal, clk clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Procedure {
	return &Procedure{
		inTx:    inTx,
		journal: journal,
		clock:   clk,
		logger:  logger,
		metrics: m,
	}
}

// Run выполняет шаги по порядку: проверка, архивирование, перенос меню, перевод заказов, запись отметки.
func (p *Procedure) Run(ctx context.Context, trigger string) (*model.RolloverRun, error) {
	now := p.clock.Now()
	run := model.RolloverRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
	}

	err := p.inTx(ctx, func(s Store) error {
		next, err := s.GetMenu(ctx, model.SlotNext)
		if err != nil {
			return fmt.Errorf("guard: %w", err)
		}
		if next == nil {
			return ErrNothingToRoll
		}

		archived, err := archiveCurrent(ctx, s, run.ID, now)
		if err != nil {
			return &StepError{Step: StepArchive, Err: err}
		}
		run.Archived = archived

		if err := promote(ctx, s, *next, now); err != nil {
			return &StepError{Step: StepPromoteMenu, Err: err}
		}

		retagged, err := retagNext(ctx, s)
		if err != nil {
			return &StepError{Step: StepRetagOrders, Err: err}
		}
		run.Retagged = retagged

		run.Status = model.RolloverSucceeded
		run.FinishedAt = p.clock.Now()
		if err := s.SaveRolloverRun(ctx, run); err != nil {
			return &StepError{Step: StepRecord, Err: err}
		}
		return nil
	})

	if errors.Is(err, ErrNothingToRoll) {
		p.metrics.RolloverSkipped()
		return nil, err
	}
	if err != nil {
		run.Status = model.RolloverFailed
		run.Archived, run.Retagged = 0, 0
		run.FinishedAt = p.clock.Now()
		run.Error = err.Error()
		var se *StepError
		if errors.As(err, &se) {
			run.FailedStep = string(se.Step)
		} else {
			run.FailedStep = string(StepGuard)
		}
		p.metrics.RolloverFinished(run)

		if jerr := p.journal.SaveRolloverRun(ctx, run); jerr != nil {
			p.logger.Error("save failed rollover run", zap.Error(jerr), zap.String("runID", run.ID))
		}
		return &run, err
	}

	p.metrics.RolloverFinished(run)
	p.logger.Info("week rolled over",
		zap.String("runID", run.ID),
		zap.String("trigger", trigger),
		zap.Int("archived", run.Archived),
		zap.Int("retagged", run.Retagged),
	)
	return &run, nil
}

func archiveCurrent(ctx context.Context, s Store, closureID string, closedAt time.Time) (int, error) {
	orders, err := s.ListOrders(ctx, model.SlotCurrent)
	if err != nil {
		return 0, fmt.Errorf("list current orders: %w", err)
	}
	for _, o := range orders {
		rec := model.HistoryRecord{
			ClosureID:      closureID,
			SourceOrderID:  o.ID,
			UserID:         o.UserID,
			Slot:           o.Slot,
			Days:           o.Days,
			TotalPrice:     o.TotalPrice,
			OrderCreatedAt: o.CreatedAt,
			ClosedAt:       closedAt,
		}
		if err := s.ArchiveOrder(ctx, rec); err != nil {
			return 0, fmt.Errorf("archive order %d: %w", o.ID, err)
		}
		if err := s.DeleteOrder(ctx, o.ID); err != nil {
			return 0, fmt.Errorf("delete order %d: %w", o.ID, err)
		}
	}
	return len(orders), nil
}

func promote(ctx context.Context, s Store, next model.WeeklyMenu, now time.Time) error {
	next.Slot = model.SlotCurrent
	next.UpdatedAt = now
	if err := s.PutMenu(ctx, next); err != nil {
		return fmt.Errorf("put current menu: %w", err)
	}
	if err := s.DeleteMenu(ctx, model.SlotNext); err != nil {
		return fmt.Errorf("delete next menu: %w", err)
	}
	return nil
}

func retagNext(ctx context.Context, s Store) (int, error) {
	orders, err := s.ListOrders(ctx, model.SlotNext)
	if err != nil {
		return 0, fmt.Errorf("list next orders: %w", err)
	}
	for _, o := range orders {
		if err := s.SetOrderSlot(ctx, o.ID, model.SlotCurrent); err != nil {
			return 0, fmt.Errorf("retag order %d: %w", o.ID, err)
		}
	}
	return len(orders), nil
}
