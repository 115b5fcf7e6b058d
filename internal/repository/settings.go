package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comedor/internal/model"
)

// Ключи документов в таблице config.
const (
	keyPrice     = "price"
	keyDeadlines = "deadlines"
	keyCatalog   = "catalog"
)

func (q *Queries) getConfig(ctx context.Context, key string, dst any) (bool, error) {
	err := q.db.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(dst)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get config %s: %w", key, err)
	}
	return true, nil
}

func (q *Queries) putConfig(ctx context.Context, key string, value any) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO config (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put config %s: %w", key, err)
	}
	return nil
}

// GetPriceConfig возвращает настройки цены или nil, если они не заданы.
func (q *Queries) GetPriceConfig(ctx context.Context) (*model.PriceConfig, error) {
	var cfg model.PriceConfig
	ok, err := q.getConfig(ctx, keyPrice, &cfg)
	if err != nil || !ok {
		return nil, err
	}
	return &cfg, nil
}

// PutPriceConfig сохраняет настройки цены.
func (q *Queries) PutPriceConfig(ctx context.Context, cfg model.PriceConfig) error {
	return q.putConfig(ctx, keyPrice, cfg)
}

// GetDeadlines возвращает окно приёма заказов; отсутствие настроек означает окно без границ.
func (q *Queries) GetDeadlines(ctx context.Context) (model.DeadlineConfig, error) {
	var d model.DeadlineConfig
	if _, err := q.getConfig(ctx, keyDeadlines, &d); err != nil {
		return model.DeadlineConfig{}, err
	}
	return d, nil
}

// PutDeadlines сохраняет окно приёма заказов.
func (q *Queries) PutDeadlines(ctx context.Context, d model.DeadlineConfig) error {
	return q.putConfig(ctx, keyDeadlines, d)
}

// GetCatalog возвращает каталог опций или nil, если он ещё не сохранялся.
func (q *Queries) GetCatalog(ctx context.Context) (*model.Catalog, error) {
	var c model.Catalog
	ok, err := q.getConfig(ctx, keyCatalog, &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// PutCatalog сохраняет каталог опций.
func (q *Queries) PutCatalog(ctx context.Context, c model.Catalog) error {
	return q.putConfig(ctx, keyCatalog, c)
}

// SaveRolloverRun записывает или обновляет запись журнала закрытия недели.
func (q *Queries) SaveRolloverRun(ctx context.Context, run model.RolloverRun) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO rollover_runs
		 (id, trigger, status, failed_step, error, archived, retagged, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status, failed_step = EXCLUDED.failed_step, error = EXCLUDED.error,
		     archived = EXCLUDED.archived, retagged = EXCLUDED.retagged, finished_at = EXCLUDED.finished_at`,
		run.ID, run.Trigger, string(run.Status), run.FailedStep, run.Error,
		run.Archived, run.Retagged, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save rollover run: %w", err)
	}
	return nil
}

const runColumns = `id, trigger, status, failed_step, error, archived, retagged, started_at, finished_at`

func scanRun(row pgx.Row) (*model.RolloverRun, error) {
	var (
		run    model.RolloverRun
		status string
	)
	if err := row.Scan(&run.ID, &run.Trigger, &status, &run.FailedStep, &run.Error,
		&run.Archived, &run.Retagged, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.Status = model.RolloverStatus(status)
	return &run, nil
}

// LastSuccessfulRollover возвращает последнее успешное закрытие недели или nil.
func (q *Queries) LastSuccessfulRollover(ctx context.Context) (*model.RolloverRun, error) {
	run, err := scanRun(q.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM rollover_runs
		 WHERE status = $1
		 ORDER BY finished_at DESC
		 LIMIT 1`,
		string(model.RolloverSucceeded),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last rollover: %w", err)
	}
	return run, nil
}

// ListRolloverRuns возвращает журнал закрытий, начиная с последних.
func (q *Queries) ListRolloverRuns(ctx context.Context, limit int) ([]model.RolloverRun, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+runColumns+` FROM rollover_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select rollover runs: %w", err)
	}
	defer rows.Close()

	var res []model.RolloverRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rollover run: %w", err)
		}
		res = append(res, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
