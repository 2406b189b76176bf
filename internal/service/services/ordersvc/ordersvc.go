package ordersvc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/corray333/backend-labs/cafe/internal/metrics"
	"github.com/corray333/backend-labs/cafe/internal/service/models/currency"
	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/corray333/backend-labs/cafe/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultConfirmedLimit = 20

	codeMin = 100000
	codeMax = 999999
)

var tracer = otel.Tracer("ordersvc")

type orderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	GetByID(ctx context.Context, id string) (order.Order, error)
	ConfirmPending(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

type notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

type attemptLimiter interface {
	Count(ctx context.Context, orderID string) (int64, error)
	Increment(ctx context.Context, orderID string) (int64, error)
	Reset(ctx context.Context, orderID string) error
}

// CodeGenerator returns a fresh six digit verification code.
type CodeGenerator func() (string, error)

// OrderService is a service for creating, verifying and listing orders.
type OrderService struct {
	repo           orderRepository
	notifier       notifier
	limiter        attemptLimiter
	maxAttempts    int64
	confirmedLimit int
	enforceTotal   bool
	generateCode   CodeGenerator
	now            func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService. It panics without a repository.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		confirmedLimit: defaultConfirmedLimit,
		enforceTotal:   true,
		generateCode:   GenerateCode,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("ordersvc: order repository is required")
	}

	return s
}

// WithRepository sets the order store.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRepository(repo orderRepository) option {
	return func(s *OrderService) {
		s.repo = repo
	}
}

// WithNotifier sets the collaborator that emails verification codes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(n notifier) option {
	return func(s *OrderService) {
		s.notifier = n
	}
}

// WithAttemptLimiter rejects verification once maxAttempts failures were recorded.
// A non-positive maxAttempts disables the limit.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAttemptLimiter(limiter attemptLimiter, maxAttempts int64) option {
	return func(s *OrderService) {
		if maxAttempts <= 0 {
			return
		}
		s.limiter = limiter
		s.maxAttempts = maxAttempts
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithConfirmedLimit(limit int) option {
	return func(s *OrderService) {
		if limit > 0 {
			s.confirmedLimit = limit
		}
	}
}

// WithEnforceTotal controls whether the client supplied total must match the items.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEnforceTotal(enforce bool) option {
	return func(s *OrderService) {
		s.enforceTotal = enforce
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCodeGenerator(gen CodeGenerator) option {
	return func(s *OrderService) {
		s.generateCode = gen
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// CreateInput is the data needed to place an order.
type CreateInput struct {
	EmployeeName  string
	EmployeeEmail string
	Items         []orderitem.OrderItem
	Total         decimal.Decimal
}

// Create validates and stores a Pending order, then emails its verification code.
// Notification failures never fail the call.
func (s *OrderService) Create(ctx context.Context, in CreateInput) (order.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := s.validateCreate(in); err != nil {
		span.SetAttributes(attribute.String("order.rejected", err.Error()))
		return order.Order{}, err
	}

	code, err := s.generateCode()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "code generation failed")
		return order.Order{}, fmt.Errorf("failed to generate verification code: %w", err)
	}

	now := s.now()
	created, err := s.repo.Insert(ctx, order.Order{
		EmployeeName:     strings.TrimSpace(in.EmployeeName),
		EmployeeEmail:    strings.TrimSpace(in.EmployeeEmail),
		Items:            in.Items,
		Total:            in.Total,
		VerificationCode: code,
		Status:           order.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return order.Order{}, err
	}

	span.SetAttributes(attribute.String("order.id", created.ID))
	metrics.OrdersCreated.Inc()

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.FromOrder(created))
	} else {
		slog.Warn("No notifier configured, verification code not sent", "order_id", created.ID)
	}

	return created, nil
}

func (s *OrderService) validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.EmployeeName) == "" {
		return fmt.Errorf("%w: employeeName is required", order.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.EmployeeEmail) == "" {
		return fmt.Errorf("%w: employeeEmail is required", order.ErrInvalidRequest)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: items must not be empty", order.ErrInvalidRequest)
	}

	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: items[%d].name is required", order.ErrInvalidRequest, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", order.ErrInvalidRequest, i)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: items[%d].price must not be negative", order.ErrInvalidRequest, i)
		}
	}

	if in.Total.IsNegative() {
		return fmt.Errorf("%w: total must not be negative", order.ErrInvalidRequest)
	}

	if s.enforceTotal {
		expected := currency.Cents(orderitem.Sum(in.Items))
		if !currency.Cents(in.Total).Equal(expected) {
			return fmt.Errorf("%w: total %s does not match items total %s",
				order.ErrInvalidRequest, currency.Format(in.Total), currency.Format(expected))
		}
	}

	return nil
}

// Verify confirms a Pending order when code matches its verification code exactly.
func (s *OrderService) Verify(ctx context.Context, orderID, code string) error {
	ctx, span := tracer.Start(ctx, "OrderService.Verify", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	err := s.verify(ctx, orderID, code)
	switch {
	case err == nil:
	case IsClientError(err):
		span.SetAttributes(attribute.String("order.rejected", err.Error()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (s *OrderService) verify(ctx context.Context, orderID, code string) error {
	if orderID == "" {
		return fmt.Errorf("%w: orderId is required", order.ErrInvalidRequest)
	}
	if code == "" {
		return fmt.Errorf("%w: code is required", order.ErrInvalidRequest)
	}

	if s.limiter != nil {
		attempts, err := s.limiter.Count(ctx, orderID)
		if err != nil {
			slog.Warn("Attempt limiter unavailable", "order_id", orderID, "error", err)
		} else if attempts >= s.maxAttempts {
			metrics.VerificationFailures.WithLabelValues("too_many_attempts").Inc()
			return order.ErrTooManyAttempts
		}
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if o.IsConfirmed() {
		metrics.VerificationFailures.WithLabelValues("already_confirmed").Inc()
		return order.ErrAlreadyConfirmed
	}

	if o.VerificationCode != code {
		metrics.VerificationFailures.WithLabelValues("mismatch").Inc()
		s.recordFailedAttempt(ctx, orderID)

		return order.ErrVerificationMismatch
	}

	confirmed, err := s.repo.ConfirmPending(ctx, orderID)
	if err != nil {
		return err
	}
	if !confirmed {
		// Another request confirmed the order between the read and the write.
		metrics.VerificationFailures.WithLabelValues("already_confirmed").Inc()
		return order.ErrAlreadyConfirmed
	}

	metrics.OrdersConfirmed.Inc()

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, orderID); err != nil {
			slog.Warn("Failed to reset verification attempts", "order_id", orderID, "error", err)
		}
	}

	return nil
}

func (s *OrderService) recordFailedAttempt(ctx context.Context, orderID string) {
	if s.limiter == nil {
		return
	}

	if _, err := s.limiter.Increment(ctx, orderID); err != nil {
		slog.Warn("Failed to record verification attempt", "order_id", orderID, "error", err)
	}
}

// ListConfirmed returns the newest confirmed orders, capped at the configured limit.
func (s *OrderService) ListConfirmed(ctx context.Context) ([]order.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.ListConfirmed")
	defer span.End()

	orders, err := s.repo.Query(ctx, &order.QueryOrdersModel{
		Status: order.StatusConfirmed,
		Limit:  s.confirmedLimit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	if orders == nil {
		return []order.Order{}, nil
	}

	return orders, nil
}

// GenerateCode draws uniformly from [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// IsClientError reports whether err is caused by the caller rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, order.ErrInvalidRequest) ||
		errors.Is(err, order.ErrNotFound) ||
		errors.Is(err, order.ErrAlreadyConfirmed) ||
		errors.Is(err, order.ErrVerificationMismatch) ||
		errors.Is(err, order.ErrTooManyAttempts)
}
