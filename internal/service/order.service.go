package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/logger"
	"marketplace/internal/repo"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 100

	// maxText matches the VARCHAR(255) columns.
	maxText = 255
	// moneyScale and maxMoney match NUMERIC(10,2).
	moneyScale = 2
)

var maxMoney = decimal.New(1, 8)

func checkText(field, v string) error {
	if utf8.RuneCountInString(v) > maxText {
		return domain.Validation(field, fmt.Sprintf("must be at most %d characters", maxText))
	}
	return nil
}

// checkMoney rejects amounts the database would round or overflow.
func checkMoney(field string, v decimal.Decimal) error {
	if !v.Equal(v.Round(moneyScale)) {
		return domain.Validation(field, fmt.Sprintf("must have at most %d decimal places", moneyScale))
	}
	if v.Abs().GreaterThanOrEqual(maxMoney) {
		return domain.Validation(field, "must be less than "+maxMoney.String())
	}
	return nil
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Notifier is the part of the dispatcher the order lifecycle needs.
type Notifier interface {
	SendOrderStatusUpdate(ctx context.Context, order domain.Order)
}

type OrderLineRequest struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// LocationRequest keeps both coordinates optional so a half-filled location
// can be told apart from (0, 0).
type LocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type CreateOrderRequest struct {
	Name            string             `json:"name"`
	Address         string             `json:"address"`
	WhatsappContact string             `json:"whatsapp_contact"`
	ClientID        uuid.UUID          `json:"client_id"`
	Location        *LocationRequest   `json:"location"`
	Lines           []OrderLineRequest `json:"order_products"`
}

// Validate checks the request shape. It does not touch the catalog.
func (r CreateOrderRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return domain.Validation("name", "is required")
	case strings.TrimSpace(r.Address) == "":
		return domain.Validation("address", "is required")
	case strings.TrimSpace(r.WhatsappContact) == "":
		return domain.Validation("whatsapp_contact", "is required")
	case r.ClientID == uuid.Nil:
		return domain.Validation("client_id", "is required")
	case len(r.Lines) == 0:
		return domain.Validation("order_products", "must contain at least one product")
	}
	if err := checkText("name", strings.TrimSpace(r.Name)); err != nil {
		return err
	}
	if err := checkText("whatsapp_contact", strings.TrimSpace(r.WhatsappContact)); err != nil {
		return err
	}

	if loc := r.Location; loc != nil && (loc.Latitude != nil || loc.Longitude != nil) {
		switch {
		case loc.Latitude == nil:
			return domain.Validation("location.latitude", "is required with longitude")
		case loc.Longitude == nil:
			return domain.Validation("location.longitude", "is required with latitude")
		case *loc.Latitude < -90 || *loc.Latitude > 90:
			return domain.Validation("location.latitude", "must be between -90 and 90")
		case *loc.Longitude < -180 || *loc.Longitude > 180:
			return domain.Validation("location.longitude", "must be between -180 and 180")
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(r.Lines))
	for i, line := range r.Lines {
		field := fmt.Sprintf("order_products[%d]", i)
		if line.ProductID == uuid.Nil {
			return domain.Validation(field+".product_id", "is required")
		}
		if _, dup := seen[line.ProductID]; dup {
			return domain.Validation(field+".product_id", "appears more than once")
		}
		seen[line.ProductID] = struct{}{}
		if line.Quantity <= 0 {
			return domain.Validation(field+".quantity", "must be positive")
		}
		if line.Quantity > math.MaxInt32 {
			return domain.Validation(field+".quantity", fmt.Sprintf("must be at most %d", math.MaxInt32))
		}
		if !line.TotalValue.IsPositive() {
			return domain.Validation(field+".total_value", "must be positive")
		}
		if err := checkMoney(field+".total_value", line.TotalValue); err != nil {
			return err
		}
	}
	return nil
}

func (l *LocationRequest) toDomain() *domain.Location {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	return &domain.Location{Latitude: *l.Latitude, Longitude: *l.Longitude}
}

type ListOrdersQuery struct {
	Page     int
	Limit    int
	ClientID *uuid.UUID
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, q ListOrdersQuery) (*domain.OrderPage, error)
}

type orderService struct {
	tx          Transactor
	orderRepo   repo.OrderRepo
	catalogRepo repo.CatalogRepo
	notifier    Notifier
	log         *logrus.Entry
	now         func() time.Time
}

func NewOrderService(
	tx Transactor,
	orderRepo repo.OrderRepo,
	catalogRepo repo.CatalogRepo,
	notifier Notifier,
	log logrus.FieldLogger,
) OrderService {
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		notifier:    notifier,
		log:         logger.Component(log, "orders"),
		now:         time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := s.catalogRepo.FindClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.NotFound("client", req.ClientID)
	}

	ids := make([]uuid.UUID, len(req.Lines))
	for i, line := range req.Lines {
		ids[i] = line.ProductID
	}
	products, err := s.catalogRepo.FindProducts(ctx, nil, ids)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Address:         strings.TrimSpace(req.Address),
		WhatsappContact: strings.TrimSpace(req.WhatsappContact),
		ClientID:        req.ClientID,
		Status:          domain.OrderCreated,
		RequestedAt:     s.now().UTC(),
		Location:        req.Location.toDomain(),
		Lines:           make([]domain.OrderLine, 0, len(req.Lines)),
	}
	for i, line := range req.Lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, domain.NotFound("product", line.ProductID)
		}
		if product.ClientID != req.ClientID {
			return nil, domain.Validation(
				fmt.Sprintf("order_products[%d].product_id", i),
				"belongs to a different storefront",
			)
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:    order.ID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			TotalValue: line.TotalValue,
		})
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.orderRepo.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"client_id": order.ClientID,
		"lines":     len(order.Lines),
	}).Info("order created")

	s.notifier.SendOrderStatusUpdate(ctx, *order)
	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	target, err := domain.ParseOrderStatus(string(target))
	if err != nil {
		return nil, err
	}

	var (
		order *domain.Order
		from  domain.OrderStatus
	)
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		order, err = s.orderRepo.LockById(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.NotFound("order", orderID)
		}

		from = order.Status
		if err := order.Transition(target, s.now().UTC()); err != nil {
			return err
		}
		return s.orderRepo.UpdateOrderStatus(ctx, tx, order, from)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"client_id": order.ClientID,
		"from":      from,
		"to":        order.Status,
	}).Info("order status changed")

	s.notifier.SendOrderStatusUpdate(ctx, *order)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.NotFound("order", orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, q ListOrdersQuery) (*domain.OrderPage, error) {
	if q.Page < 1 {
		return nil, domain.Validation("page", "must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return nil, domain.Validation("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}

	orders, total, err := s.orderRepo.List(ctx, repo.OrderFilter{
		ClientID: q.ClientID,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &domain.OrderPage{
		Data:       orders,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}
