package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusdash/internal/api"
	"campusdash/internal/cart"
	"campusdash/internal/logger"
	"campusdash/internal/payment"
	"campusdash/internal/router"
	"campusdash/internal/session"
	"campusdash/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "campusdash/checkout"

type OrderAPI interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error)
}

type SessionSource interface {
	Session() session.Session
}

type Navigator interface {
	Navigate(screen router.Screen, params router.Params) error
}

type Options struct {
	DeliveryAddress      string
	DeliveryInstructions string

	// Tracer defaults to the global provider.
	Tracer trace.Tracer
}

// Service places orders in two phases: create the order on the backend,
// then confirm its payment intent.
type Service struct {
	cart     *cart.Store
	orders   OrderAPI
	payments payment.Confirmer
	sessions SessionSource
	nav      Navigator

	address      string
	instructions string
	tracer       trace.Tracer
	now          func() time.Time

	mu       sync.Mutex
	status   Status
	draft    *draft
	inFlight bool
	detached bool
}

func NewService(
	c *cart.Store,
	orders OrderAPI,
	payments payment.Confirmer,
	sessions SessionSource,
	nav Navigator,
	opts Options,
) *Service {
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Service{
		cart:         c,
		orders:       orders,
		payments:     payments,
		sessions:     sessions,
		nav:          nav,
		address:      opts.DeliveryAddress,
		instructions: opts.DeliveryInstructions,
		tracer:       opts.Tracer,
		now:          time.Now,
	}
}

// PlaceOrder runs both phases for the current cart. Any failure leaves the
// cart untouched. A retry with an unchanged cart pays for the order created
// by the previous attempt instead of creating another one.
func (s *Service) PlaceOrder(ctx context.Context, method payment.Method) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	log := logger.FromCtx(ctx).With(zap.String("op", "checkout.PlaceOrder"))

	snap := s.cart.Snapshot()
	sess := s.sessions.Session()

	switch {
	case snap.IsEmpty():
		return nil, s.fail(span, ErrEmptyCart, "Your cart is empty.")
	case !sess.Authenticated() || sess.UserID == "":
		return nil, s.fail(span, ErrNotAuthenticated, "Please log in to place an order.")
	case method.IsZero():
		return nil, s.fail(span, ErrMissingPaymentMethod, "Please enter a payment method.")
	}

	if !s.begin() {
		return nil, ErrInProgress
	}
	defer s.end()

	span.SetAttributes(
		attribute.String("restaurant_id", snap.RestaurantID),
		attribute.Int("cart.lines", len(snap.Lines)),
		attribute.String("cart.total", snap.Total.StringFixed(2)),
		attribute.String("payment.confirmer", s.payments.Name()),
	)

	d, err := s.draftFor(ctx, snap, sess.UserID)
	if err != nil {
		log.Warn("order creation failed", zap.Error(err))
		return nil, s.fail(span, err, failureMessage(err))
	}
	span.SetAttributes(attribute.String("order_id", d.orderID))

	s.setStatus(Status{Phase: PhaseAwaitingPayment, OrderID: d.orderID})

	res, err := s.confirm(ctx, d, method)
	if err != nil {
		log.Warn("payment failed", zap.String("order_id", d.orderID), zap.Error(err))
		return nil, s.fail(span, err, failureMessage(err))
	}

	// Only what was paid for leaves the cart; lines added while payment was
	// running stay for the next order.
	if left := s.cart.Settle(snap); left > 0 {
		log.Info("cart changed during checkout, unpaid lines kept", zap.Int("lines", left))
	}

	s.mu.Lock()
	s.draft = nil
	detached := s.detached
	s.mu.Unlock()

	placedAt := s.now()
	receipt := &Receipt{
		Reference:       utils.GenerateReceiptNumber(snap.RestaurantID, d.orderID, placedAt),
		OrderID:         d.orderID,
		PaymentIntentID: res.PaymentIntentID,
		Total:           snap.Total,
		Lines:           len(snap.Lines),
		PlacedAt:        placedAt,
	}
	log.Info("order placed",
		zap.String("order_id", d.orderID),
		zap.String("reference", receipt.Reference),
		zap.String("total", snap.Total.StringFixed(2)),
	)
	span.SetStatus(codes.Ok, "")

	if detached {
		log.Info("checkout detached, skipping navigation")
		return receipt, nil
	}

	s.setStatus(Status{Phase: PhaseSucceeded, OrderID: d.orderID})
	if err := s.nav.Navigate(router.ScreenOrders, router.Params{"order_id": d.orderID}); err != nil {
		log.Warn("navigation after checkout failed", zap.Error(err))
	}
	return receipt, nil
}

func (s *Service) draftFor(ctx context.Context, snap cart.Snapshot, userID string) (*draft, error) {
	s.mu.Lock()
	d := s.draft
	s.mu.Unlock()

	if d != nil && d.cartVersion == snap.Version && d.userID == userID {
		logger.FromCtx(ctx).Info("reusing unpaid order", zap.String("order_id", d.orderID))
		return d, nil
	}

	s.setStatus(Status{Phase: PhaseSubmitting})

	ctx, span := s.tracer.Start(ctx, "checkout.CreateOrder")
	defer span.End()

	req := api.CreateOrderRequest{
		CustomerID:      userID,
		RestaurantID:    snap.RestaurantID,
		OrderItems:      snap.OrderItems(),
		DeliveryAddress: s.address,
	}
	if s.instructions != "" {
		req.DeliveryInstructions = utils.StrPtr(s.instructions)
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if order.ClientSecret == "" {
		err := api.NewError("checkout.CreateOrder", api.KindServerError, ErrMissingClientSecret)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	d = &draft{
		orderID:      order.ID,
		clientSecret: order.ClientSecret,
		cartVersion:  snap.Version,
		userID:       userID,
	}
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
	return d, nil
}

func (s *Service) confirm(ctx context.Context, d *draft, method payment.Method) (*payment.Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ConfirmPayment",
		trace.WithAttributes(attribute.String("order_id", d.orderID)))
	defer span.End()

	res, err := s.payments.Confirm(ctx, d.clientSecret, method)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

// Status returns the last known phase and inline message.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Detach marks the screen as gone: later results still settle the cart but
// no longer update status or navigate.
func (s *Service) Detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}

// Attach undoes Detach when the screen is shown again.
func (s *Service) Attach() {
	s.mu.Lock()
	s.detached = false
	s.status = Status{}
	s.mu.Unlock()
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Service) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.detached {
		s.status = st
	}
}

func (s *Service) fail(span trace.Span, err error, message string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	s.mu.Lock()
	orderID := ""
	if s.draft != nil {
		orderID = s.draft.orderID
	}
	s.mu.Unlock()

	s.setStatus(Status{Phase: PhaseFailed, Message: message, OrderID: orderID})
	return err
}

func failureMessage(err error) string {
	switch {
	case api.IsKind(err, api.KindPaymentDeclined):
		if msg := api.MessageOf(err); msg != "" {
			return msg
		}
		return payment.DeclineMessage(payment.DeclineGeneric)
	case api.IsKind(err, api.KindNetworkUnreachable):
		return "Cannot reach the server. Your cart has been kept, please try again."
	case api.IsKind(err, api.KindUnauthenticated), api.IsKind(err, api.KindAuthorizationDenied):
		return "Your session has expired. Please log in again."
	case api.IsKind(err, api.KindValidationFailed), errors.Is(err, payment.ErrMissingMethod):
		if msg := api.MessageOf(err); msg != "" {
			return msg
		}
		return "Please check your order and payment details."
	default:
		return "Something went wrong placing your order. Please try again."
	}
}
