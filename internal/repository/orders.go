package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comedor/internal/model"
)

// GetMenu возвращает меню недели или nil, если оно ещё не загружено.
func (q *Queries) GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error) {
	m := model.WeeklyMenu{Slot: slot}
	err := q.db.QueryRow(ctx,
		`SELECT week_label, season, days, updated_at FROM weekly_menus WHERE slot = $1`,
		string(slot),
	).Scan(&m.WeekLabel, &m.Season, &m.Days, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get menu: %w", err)
	}
	return &m, nil
}

// PutMenu сохраняет меню, заменяя существующее меню того же слота.
func (q *Queries) PutMenu(ctx context.Context, m model.WeeklyMenu) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO weekly_menus (slot, week_label, season, days, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (slot) DO UPDATE
		 SET week_label = EXCLUDED.week_label, season = EXCLUDED.season,
		     days = EXCLUDED.days, updated_at = EXCLUDED.updated_at`,
		string(m.Slot), m.WeekLabel, m.Season, m.Days, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put menu: %w", err)
	}
	return nil
}

// DeleteMenu удаляет меню слота.
func (q *Queries) DeleteMenu(ctx context.Context, slot model.Slot) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM weekly_menus WHERE slot = $1`, string(slot)); err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	return nil
}

// DeleteSlotOrders удаляет все заказы слота и возвращает их количество.
func (q *Queries) DeleteSlotOrders(ctx context.Context, slot model.Slot) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM orders WHERE slot = $1`, string(slot))
	if err != nil {
		return 0, fmt.Errorf("delete slot orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

const orderColumns = `id, user_id, slot, days, total_price, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o    model.Order
		slot string
	)
	if err := row.Scan(&o.ID, &o.UserID, &slot, &o.Days, &o.TotalPrice, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Slot = model.Slot(slot)
	return &o, nil
}

// GetOrder возвращает заказ пользователя на неделю или nil, если заказа нет.
// При наличии нескольких записей побеждает самая свежая.
func (q *Queries) GetOrder(ctx context.Context, userID int64, slot model.Slot) (*model.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = $1 AND slot = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, string(slot),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// SaveOrder создаёт или обновляет единственный заказ пользователя на неделю.
func (q *Queries) SaveOrder(ctx context.Context, o model.Order) (model.Order, error) {
	err := q.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, slot, days, total_price)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, slot) DO UPDATE
		 SET days = EXCLUDED.days, total_price = EXCLUDED.total_price, updated_at = now()
		 RETURNING id, created_at, updated_at`,
		o.UserID, string(o.Slot), o.Days, o.TotalPrice,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return model.Order{}, fmt.Errorf("save order: %w", err)
	}
	return o, nil
}

// DeleteUserOrder удаляет заказ пользователя на неделю.
func (q *Queries) DeleteUserOrder(ctx context.Context, userID int64, slot model.Slot) error {
	if _, err := q.db.Exec(ctx,
		`DELETE FROM orders WHERE user_id = $1 AND slot = $2`,
		userID, string(slot),
	); err != nil {
		return fmt.Errorf("delete user order: %w", err)
	}
	return nil
}

// ListOrders возвращает по одному (самому свежему) заказу каждого пользователя на неделю.
func (q *Queries) ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT DISTINCT ON (user_id) `+orderColumns+`
		 FROM orders
		 WHERE slot = $1
		 ORDER BY user_id, created_at DESC`,
		string(slot),
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteOrder удаляет заказ по идентификатору.
func (q *Queries) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// SetOrderSlot переносит заказ в другой слот.
func (q *Queries) SetOrderSlot(ctx context.Context, id int64, slot model.Slot) error {
	if _, err := q.db.Exec(ctx,
		`UPDATE orders SET slot = $2, updated_at = now() WHERE id = $1`,
		id, string(slot),
	); err != nil {
		return fmt.Errorf("set order slot: %w", err)
	}
	return nil
}

// ArchiveOrder сохраняет копию заказа в истории.
func (q *Queries) ArchiveOrder(ctx context.Context, rec model.HistoryRecord) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO order_history
		 (closure_id, source_order_id, user_id, slot, days, total_price, order_created_at, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ClosureID, rec.SourceOrderID, rec.UserID, string(rec.Slot),
		rec.Days, rec.TotalPrice, rec.OrderCreatedAt, rec.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("archive order: %w", err)
	}
	return nil
}

// ListHistory возвращает архив заказов, начиная с последних. userID = 0 означает всех пользователей.
func (q *Queries) ListHistory(ctx context.Context, userID int64, limit int) ([]model.HistoryRecord, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, closure_id, source_order_id, user_id, slot, days, total_price, order_created_at, closed_at
		 FROM order_history
		 WHERE $1::bigint = 0 OR user_id = $1
		 ORDER BY closed_at DESC, id
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var res []model.HistoryRecord
	for rows.Next() {
		var (
			rec  model.HistoryRecord
			slot string
		)
		if err := rows.Scan(&rec.ID, &rec.ClosureID, &rec.SourceOrderID, &rec.UserID, &slot,
			&rec.Days, &rec.TotalPrice, &rec.OrderCreatedAt, &rec.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Slot = model.Slot(slot)
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
