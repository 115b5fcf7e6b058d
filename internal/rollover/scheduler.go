package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/clock"
	"github.com/mmeshcher/comedor/internal/model"
)

// TriggerScheduled и TriggerManual различают автоматический и ручной запуск в журнале.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ShouldRun решает, пора ли автоматически закрыть неделю: только в заданный день недели
// и не более одного успешного закрытия за календарный день.
func ShouldRun(asOf time.Time, last *model.RolloverRun, weekday time.Weekday, zone *clock.Zone) (bool, error) {
	local, err := zone.Local(asOf)
	if err != nil {
		return false, err
	}
	if local.Weekday != weekday {
		return false, nil
	}
	if last != nil && zone.SameDay(last.FinishedAt, asOf) {
		return false, nil
	}
	return true, nil
}

// Scheduler периодически проверяет, нужно ли закрыть неделю.
type Scheduler struct {
	proc     *Procedure
	journal  Journal
	zone     *clock.Zone
	clock    clock.Clock
	weekday  time.Weekday
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler создаёт планировщик закрытия недели.
func NewScheduler(proc *Procedure, journal Journal, zone *clock.Zone, clk clock.Clock, weekday time.Weekday, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		proc:     proc,
		journal:  journal,
		zone:     zone,
		clock:    clk,
		weekday:  weekday,
		interval: interval,
		logger:   logger,
	}
}

// Start проверяет расписание каждые interval до отмены контекста.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduled rollover", zap.Error(err))
			}
		}
	}
}

// Tick выполняет одну проверку и, если нужно, закрывает неделю. Возвращает true, если закрытие выполнено.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	now := s.clock.Now()

	last, err := s.journal.LastSuccessfulRollover(ctx)
	if err != nil {
		return false, fmt.Errorf("last rollover: %w", err)
	}

	due, err := ShouldRun(now, last, s.weekday, s.zone)
	if err != nil || !due {
		return false, err
	}

	if _, err := s.proc.Run(ctx, TriggerScheduled); err != nil {
		if errors.Is(err, ErrNothingToRoll) {
			s.logger.Debug("scheduled rollover skipped: no next-week menu")
			return false, nil
		}
		return false, err
	}
	return true, nil
}
