package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

type OrderFilter struct {
	ClientID *uuid.UUID
	Limit    int
	Offset   int
}

type OrderRepo interface {
	// FindById returns the order with its lines, or nil when it does not exist.
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// LockById is FindById under a row lock held until tx ends.
	LockById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// UpdateOrderStatus writes status and accepted_at only if the stored status
	// still equals from; otherwise it fails with domain.ErrConflict.
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, from domain.OrderStatus) error
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	// FindStaleOrders lists orders in status requested within [from, to).
	FindStaleOrders(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, name, address, whatsapp_contact, client_id, status, requested_at, accepted_at, location_lat, location_long`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order      domain.Order
		status     string
		acceptedAt sql.NullTime
		lat, long  sql.NullFloat64
	)
	err := row.Scan(
		&order.ID,
		&order.Name,
		&order.Address,
		&order.WhatsappContact,
		&order.ClientID,
		&status,
		&order.RequestedAt,
		&acceptedAt,
		&lat,
		&long,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	if acceptedAt.Valid {
		at := acceptedAt.Time
		order.AcceptedAt = &at
	}
	if lat.Valid && long.Valid {
		order.Location = &domain.Location{Latitude: lat.Float64, Longitude: long.Float64}
	}
	order.Lines = []domain.OrderLine{}
	return &order, nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.find(ctx, r.db, id, "")
}

func (r *orderRepo) LockById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.find(ctx, pick(r.db, tx), id, " FOR UPDATE")
}

func (r *orderRepo) find(ctx context.Context, q querier, id uuid.UUID, suffix string) (*domain.Order, error) {
	row := q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM "order" WHERE id = $1`+suffix, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}

	lines, err := r.linesOf(ctx, q, `order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	order.Lines = append(order.Lines, lines[order.ID]...)
	return order, nil
}

func (r *orderRepo) linesOf(ctx context.Context, q querier, where string, args ...any) (map[uuid.UUID][]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, total_value FROM order_product WHERE `+where+` ORDER BY product_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[uuid.UUID][]domain.OrderLine)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Quantity, &l.TotalValue); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines[l.OrderID] = append(lines[l.OrderID], l)
	}
	return lines, rows.Err()
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	q := pick(r.db, tx)

	var lat, long sql.NullFloat64
	if order.Location != nil {
		lat = sql.NullFloat64{Float64: order.Location.Latitude, Valid: true}
		long = sql.NullFloat64{Float64: order.Location.Longitude, Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO "order" (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.Name, order.Address, order.WhatsappContact, order.ClientID,
		string(order.Status), order.RequestedAt, nullTime(order.AcceptedAt), lat, long,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", translate(err))
	}

	for _, line := range order.Lines {
		_, err := q.ExecContext(ctx,
			`INSERT INTO order_product (order_id, product_id, quantity, total_value) VALUES ($1, $2, $3, $4)`,
			order.ID, line.ProductID, line.Quantity, line.TotalValue,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", line.ProductID, translate(err))
		}
	}
	return nil
}

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, from domain.OrderStatus) error {
	res, err := pick(r.db, tx).ExecContext(ctx,
		`UPDATE "order" SET status = $1, accepted_at = COALESCE(accepted_at, $2) WHERE id = $3 AND status = $4`,
		string(order.Status), nullTime(order.AcceptedAt), order.ID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return &domain.Error{
			Code:    domain.CodeConflict,
			Message: fmt.Sprintf("order %s is no longer %s", order.ID, from),
			Details: map[string]any{"id": order.ID.String(), "expected": string(from)},
		}
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "order"`+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	page := fmt.Sprintf(`SELECT id FROM "order"%s ORDER BY requested_at DESC, id LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	pageArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM "order" WHERE id IN (`+page+`) ORDER BY requested_at DESC, id`,
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	lines, err := r.linesOf(ctx, r.db, `order_id IN (`+page+`)`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = append(orders[i].Lines, lines[orders[i].ID]...)
	}
	return orders, total, nil
}

func (r *orderRepo) FindStaleOrders(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM "order" WHERE status = $1 AND requested_at >= $2 AND requested_at < $3 ORDER BY requested_at`,
		string(status), from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale orders: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
