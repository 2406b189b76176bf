package postgresrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var orderColumns = []string{
	"id::text AS id",
	"employee_name",
	"employee_email",
	"items",
	"total",
	"verification_code",
	"status",
	"created_at",
	"updated_at",
}

// OrderDal represents order data access layer model
type OrderDal struct {
	Id               string          `db:"id"`
	EmployeeName     string          `db:"employee_name"`
	EmployeeEmail    string          `db:"employee_email"`
	Items            []byte          `db:"items"`
	Total            decimal.Decimal `db:"total"`
	VerificationCode string          `db:"verification_code"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() (*order.Order, error) {
	var items []orderitem.OrderItem
	if err := json.Unmarshal(o.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}

	status := order.Status(o.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown order status %q", o.Status)
	}

	return &order.Order{
		ID:               o.Id,
		EmployeeName:     o.EmployeeName,
		EmployeeEmail:    o.EmployeeEmail,
		Items:            items,
		Total:            o.Total,
		VerificationCode: o.VerificationCode,
		Status:           status,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}, nil
}

// PostgresOrderRepository stores orders in the orders table.
type PostgresOrderRepository struct {
	conn sqlx.ExtContext
}

// NewPostgresOrderRepository creates a repository over a database or transaction.
func NewPostgresOrderRepository(conn sqlx.ExtContext) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert persists a new order and returns it with id and timestamps assigned by the database.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to encode order items: %w", err)
	}

	query, args, err := sq.Insert("orders").
		Columns(
			"employee_name",
			"employee_email",
			"items",
			"total",
			"verification_code",
			"status",
		).
		Values(
			o.EmployeeName,
			o.EmployeeEmail,
			string(items),
			o.Total,
			o.VerificationCode,
			o.Status.String(),
		).
		Suffix("RETURNING id::text, created_at, updated_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	err = r.conn.QueryRowxContext(ctx, query, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// GetByID returns the order with the given id or order.ErrNotFound.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return order.Order{}, order.ErrNotFound
	}

	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	if err := sqlx.GetContext(ctx, r.conn, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}

		return order.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	model, err := dal.ToModel()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to convert order dal to model: %w", err)
	}

	return *model, nil
}

// ConfirmPending flips a Pending order to Confirmed.
// It reports false when the order was not Pending at write time.
func (r *PostgresOrderRepository) ConfirmPending(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, order.ErrNotFound
	}

	query, args, err := sq.Update("orders").
		Set("status", order.StatusConfirmed.String()).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id, "status": order.StatusPending.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to confirm order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status.String()})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dals []OrderDal
	if err := sqlx.SelectContext(ctx, r.conn, &dals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	result := make([]order.Order, 0, len(dals))
	for i := range dals {
		model, err := dals[i].ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	return result, nil
}
