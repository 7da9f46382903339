package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prockx/storefront/internal/access"
	"github.com/prockx/storefront/internal/apperr"
	"github.com/prockx/storefront/internal/events"
	"github.com/prockx/storefront/internal/export"
	"github.com/prockx/storefront/internal/models"
	"github.com/prockx/storefront/internal/payment"
	"github.com/prockx/storefront/internal/repo"
	"github.com/prockx/storefront/internal/transport"
	"github.com/prockx/storefront/pkg/logging"
)

// Requester is the authenticated caller as seen by the auth middleware.
type Requester struct {
	ID   uuid.UUID
	Role string
}

func (r Requester) subject() *access.Subject {
	return access.NewSubject(r.ID, r.Role)
}

// Result is what a checkout hands back. PaymentSession is nil unless the
// buyer must be redirected to the card processor.
type Result struct {
	Order          *models.Order    `json:"order"`
	PaymentSession *payment.Session `json:"payment_session"`
}

type Service struct {
	Repo   *repo.GormRepo
	Access *access.Policy
	Events events.Publisher

	// Payments is nil when card sessions are not configured.
	Payments  payment.Provider
	Currency  string
	ClientURL string

	Metrics *Metrics
}

var paymentAliases = map[string]string{
	"card":             models.PaymentCard,
	"cash_on_delivery": models.PaymentCashOnDelivery,
	"cashondelivery":   models.PaymentCashOnDelivery,
	"cash":             models.PaymentCashOnDelivery,
}

func normalizePayment(method string) (string, bool) {
	m, ok := paymentAliases[strings.ToLower(strings.TrimSpace(method))]
	return m, ok
}

func nonNegative(v *decimal.Decimal, field string) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, nil
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be >= 0", apperr.ErrInvalidRequest, field)
	}
	if !models.IsMoney(*v) {
		return decimal.Zero, fmt.Errorf("%w: %s must have at most %d decimal places", apperr.ErrInvalidRequest, field, models.MoneyScale)
	}
	return *v, nil
}

// buildOrder validates a checkout request and prices it. Nothing is
// persisted here.
func buildOrder(who Requester, req transport.CreateOrderRequest) (*models.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", apperr.ErrInvalidRequest)
	}

	items := make([]models.OrderItem, 0, len(req.OrderItems))
	itemsTotal := decimal.Zero
	for i, in := range req.OrderItems {
		switch {
		case in.ProductID == nil || *in.ProductID == uuid.Nil:
			return nil, fmt.Errorf("%w: item %d: product_id is required", apperr.ErrInvalidRequest, i)
		case strings.TrimSpace(in.Name) == "":
			return nil, fmt.Errorf("%w: item %d: name is required", apperr.ErrInvalidRequest, i)
		case in.UnitPrice == nil:
			return nil, fmt.Errorf("%w: item %d: unit_price is required", apperr.ErrInvalidRequest, i)
		case in.UnitPrice.IsNegative():
			return nil, fmt.Errorf("%w: item %d: unit_price must be >= 0", apperr.ErrInvalidRequest, i)
		case !models.IsMoney(*in.UnitPrice):
			return nil, fmt.Errorf("%w: item %d: unit_price must have at most %d decimal places", apperr.ErrInvalidRequest, i, models.MoneyScale)
		case in.Quantity <= 0:
			return nil, fmt.Errorf("%w: item %d: quantity must be > 0", apperr.ErrInvalidRequest, i)
		case strings.TrimSpace(in.Image) == "":
			return nil, fmt.Errorf("%w: item %d: image is required", apperr.ErrInvalidRequest, i)
		}

		item := models.OrderItem{
			Position:  i,
			ProductID: *in.ProductID,
			Name:      in.Name,
			Image:     in.Image,
			UnitPrice: *in.UnitPrice,
			Quantity:  in.Quantity,
		}
		itemsTotal = itemsTotal.Add(item.LineTotal())
		items = append(items, item)
	}

	addr := req.ShippingAddress
	if addr == nil || strings.TrimSpace(addr.Street) == "" || strings.TrimSpace(addr.City) == "" {
		return nil, fmt.Errorf("%w: shipping street and city are required", apperr.ErrInvalidRequest)
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: payment_method is required", apperr.ErrInvalidRequest)
	}
	method, ok := normalizePayment(req.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment_method %q", apperr.ErrInvalidRequest, req.PaymentMethod)
	}

	tax, err := nonNegative(req.TaxPrice, "tax_price")
	if err != nil {
		return nil, err
	}
	shipping, err := nonNegative(req.ShippingPrice, "shipping_price")
	if err != nil {
		return nil, err
	}

	return &models.Order{
		UserID: who.ID,
		Items:  items,
		ShippingAddress: models.ShippingAddress{
			Street:  addr.Street,
			City:    addr.City,
			ZipCode: addr.ZipCode,
			Country: addr.Country,
		},
		PaymentMethod: method,
		ItemsTotal:    itemsTotal,
		TaxTotal:      tax,
		ShippingTotal: shipping,
		GrandTotal:    itemsTotal.Add(tax).Add(shipping),
		Status:        models.OrderStatusPending,
		IsPaid:        false,
		IsDelivered:   false,
	}, nil
}

// SubmitOrder turns a cart into a pending order. The steps after the order
// row is written (stock, payment session) are not rolled back on failure;
// each one is logged as a checkout_step so a partial checkout can be traced.
func (s *Service) SubmitOrder(ctx context.Context, who Requester, req transport.CreateOrderRequest) (*Result, error) {
	l := logging.FromContext(ctx).With("svc", "order.submit")

	if who.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}

	order, err := buildOrder(who, req)
	if err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return nil, err
	}

	if _, err := s.Repo.CreateOrder(ctx, order); err != nil {
		l.Error("create_order_error", "status", 500, "reason", "cannot save order", "error", err)
		return nil, err
	}
	l = l.With("order_id", order.ID)
	s.Metrics.inc(CounterOrdersCreated)
	step(l, "order_created", "items", len(order.Items), "grand_total", order.GrandTotal.String())
	s.publishCreated(ctx, order)

	if err := s.adjustStock(ctx, l, order); err != nil {
		return nil, err
	}

	result := &Result{Order: order}
	if order.PaymentMethod != models.PaymentCard || s.Payments == nil {
		step(l, "payment_session_skipped", "payment_method", order.PaymentMethod, "provider_configured", s.Payments != nil)
		return result, nil
	}

	sess, err := s.Payments.CreateCheckoutSession(ctx, s.sessionRequest(order))
	if err != nil {
		s.Metrics.inc(CounterPaymentSessionFailures)
		l.Error("checkout_step", "step", "payment_session_failed", "error", err)
		return nil, fmt.Errorf("%w: payment session for order %s: %v", apperr.ErrUpstream, order.ID, err)
	}
	s.Metrics.inc(CounterPaymentSessionsCreated)
	step(l, "payment_session_created", "session_id", sess.ID)

	result.PaymentSession = sess
	return result, nil
}

func (s *Service) adjustStock(ctx context.Context, l *slog.Logger, order *models.Order) error {
	for _, it := range order.Items {
		found, after, err := s.Repo.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			l.Error("checkout_step", "step", "stock_failed", "product_id", it.ProductID, "error", err)
			return fmt.Errorf("decrement stock for %s: %w", it.ProductID, err)
		}
		if !found {
			s.Metrics.inc(CounterStockMissingProduct)
			step(l, "stock_skipped", "product_id", it.ProductID, "reason", "product not found")
			continue
		}
		s.Metrics.inc(CounterStockAdjusted)
		step(l, "stock_adjusted", "product_id", it.ProductID, "quantity", it.Quantity, "stock", after)
		if after < 0 {
			s.Metrics.inc(CounterStockNegative)
			l.Warn("checkout_step", "step", "stock_negative", "product_id", it.ProductID, "stock", after)
		}
	}
	return nil
}

func (s *Service) sessionRequest(order *models.Order) payment.SessionRequest {
	items := make([]payment.LineItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, payment.LineItem{
			Name:       it.Name,
			UnitAmount: payment.MinorUnits(it.UnitPrice),
			Quantity:   int64(it.Quantity),
		})
	}
	success, cancel := payment.CallbackURLs(s.ClientURL, order.ID.String())
	return payment.SessionRequest{
		OrderID:    order.ID.String(),
		Currency:   s.Currency,
		Items:      items,
		SuccessURL: success,
		CancelURL:  cancel,
	}
}

func step(l *slog.Logger, name string, args ...any) {
	l.Info("checkout_step", append([]any{"step", name}, args...)...)
}

// GetOrder returns the order if the requester owns it or is an admin. A
// malformed id is reported as not found.
func (s *Service) GetOrder(ctx context.Context, who Requester, rawID string) (*models.Order, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: order not found", apperr.ErrNotFound)
	}

	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.Access.Allowed(who.subject(), access.OrderOf(order.UserID), access.ActRead)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no access to this order", apperr.ErrForbidden)
	}
	if who.Role != models.RoleAdmin {
		order.Owner = nil
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, who Requester) ([]models.Order, error) {
	if who.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}
	return s.Repo.ListOrdersByOwner(ctx, who.ID)
}

func (s *Service) ListAll(ctx context.Context, who Requester) ([]models.Order, error) {
	if err := s.require(who, access.Orders(), access.ActList); err != nil {
		return nil, err
	}
	return s.Repo.ListAllOrders(ctx)
}

// UpdateStatus patches any subset of status, is_paid and is_delivered.
// Any known status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, who Requester, rawID string, req transport.UpdateOrderStatusRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.update_status")

	// role check first so a missing id and a foreign id look the same
	if err := s.require(who, access.Orders(), access.ActUpdate); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: order not found", apperr.ErrNotFound)
	}
	current, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.require(who, access.OrderOf(current.UserID), access.ActUpdate); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Status != nil && *req.Status != "" {
		if !models.IsKnownStatus(*req.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidRequest, *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.IsPaid != nil {
		fields["is_paid"] = *req.IsPaid
	}
	if req.IsDelivered != nil {
		fields["is_delivered"] = *req.IsDelivered
	}
	if len(fields) == 0 {
		fields["updated_at"] = time.Now().UTC()
	}

	order, err := s.Repo.UpdateOrderFields(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	l.Info("order_status_updated", "order_id", order.ID, "from", current.Status, "to", order.Status,
		"is_paid", order.IsPaid, "is_delivered", order.IsDelivered)

	s.publish(ctx, order.ID, events.OrderStatusUpdated{
		Type:        "order_status_updated",
		OrderID:     order.ID,
		Status:      order.Status,
		IsPaid:      order.IsPaid,
		IsDelivered: order.IsDelivered,
		At:          time.Now().UTC(),
	})
	return order, nil
}

// Export writes every order as an XLSX workbook.
func (s *Service) Export(ctx context.Context, who Requester, w io.Writer) error {
	if err := s.require(who, access.Orders(), access.ActExport); err != nil {
		return err
	}
	orders, err := s.Repo.ListAllOrders(ctx)
	if err != nil {
		return err
	}
	return export.WriteOrders(w, orders)
}

func (s *Service) require(who Requester, res *access.Resource, act string) error {
	if who.ID == uuid.Nil {
		return fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}
	ok, err := s.Access.Allowed(who.subject(), res, act)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: admin access required", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) publishCreated(ctx context.Context, order *models.Order) {
	s.publish(ctx, order.ID, events.OrderCreated{
		Type:          "order_created",
		OrderID:       order.ID,
		UserID:        order.UserID,
		GrandTotal:    order.GrandTotal,
		PaymentMethod: order.PaymentMethod,
		At:            order.CreatedAt,
	})
}

func (s *Service) publish(ctx context.Context, orderID uuid.UUID, ev any) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, events.TopicOrders, orderID.String(), ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicOrders, "order_id", orderID, "error", err)
	}
}
