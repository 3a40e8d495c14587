package courier

import (
	"context"
	"errors"
	"slices"
	"sync"

	"campusdash/internal/api"
	"campusdash/internal/logger"
	"campusdash/internal/optimistic"
	"campusdash/internal/router"

	"go.uber.org/zap"
)

type CourierAPI interface {
	GetAvailableCourierOrders(ctx context.Context) ([]api.DasherOrderSummary, error)
	AcceptCourierOrder(ctx context.Context, orderID string) (*api.ActionResult, error)
	GetActiveCourierOrders(ctx context.Context) ([]api.DasherOrderSummary, error)
	CompleteCourierOrder(ctx context.Context, orderID string) (*api.ActionResult, error)
}

type Navigator interface {
	Navigate(screen router.Screen, params router.Params) error
}

// Board backs the dasher screens: orders open for pickup and the ones this
// courier is delivering. No lock is held across network calls.
type Board struct {
	client CourierAPI
	nav    Navigator

	mu        sync.Mutex
	available []api.DasherOrderSummary
	active    []api.DasherOrderSummary
	pending   map[string]bool
	message   string
	detached  bool
}

func NewBoard(client CourierAPI, nav Navigator) *Board {
	return &Board{
		client:  client,
		nav:     nav,
		pending: make(map[string]bool),
	}
}

// LoadAvailable replaces the available list. Orders with an accept in flight
// stay hidden.
func (b *Board) LoadAvailable(ctx context.Context) error {
	orders, err := b.client.GetAvailableCourierOrders(ctx)
	if err != nil {
		b.setMessage(userMessage(err))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached {
		return nil
	}
	b.available = slices.DeleteFunc(orders, func(o api.DasherOrderSummary) bool {
		return b.pending[o.OrderID]
	})
	b.message = ""
	return nil
}

func (b *Board) LoadActive(ctx context.Context) error {
	orders, err := b.client.GetActiveCourierOrders(ctx)
	if err != nil {
		b.setMessage(userMessage(err))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached {
		return nil
	}
	b.active = orders
	b.message = ""
	return nil
}

func (b *Board) Available() []api.DasherOrderSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.available)
}

func (b *Board) Active() []api.DasherOrderSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.active)
}

// Message is the inline text for the last failure, "" after a success.
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Accept removes the order from the available list before the server
// answers. On failure it goes back to its original position, once.
func (b *Board) Accept(ctx context.Context, orderID string) error {
	log := logger.FromCtx(ctx).With(zap.String("op", "courier.Accept"), zap.String("order_id", orderID))

	var taken api.DasherOrderSummary

	err := optimistic.Do(ctx,
		func() func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			idx := slices.IndexFunc(b.available, func(o api.DasherOrderSummary) bool { return o.OrderID == orderID })
			if idx < 0 || b.pending[orderID] {
				return nil
			}
			taken = b.available[idx]
			b.available = slices.Delete(b.available, idx, idx+1)
			b.pending[orderID] = true

			return func() {
				b.mu.Lock()
				defer b.mu.Unlock()
				delete(b.pending, orderID)
				if b.detached || slices.ContainsFunc(b.available, func(o api.DasherOrderSummary) bool { return o.OrderID == orderID }) {
					return
				}
				b.available = slices.Insert(b.available, min(idx, len(b.available)), taken)
			}
		},
		func(ctx context.Context) error {
			if taken.OrderID == "" {
				return b.rejectMissing(orderID)
			}
			_, err := b.client.AcceptCourierOrder(ctx, orderID)
			return err
		},
	)
	if err != nil {
		log.Warn("accept failed", zap.Error(err))
		b.setMessage(userMessage(err))
		return err
	}

	b.mu.Lock()
	delete(b.pending, orderID)
	detached := b.detached
	if !detached {
		taken.Status = api.StatusActive
		if !slices.ContainsFunc(b.active, func(o api.DasherOrderSummary) bool { return o.OrderID == orderID }) {
			b.active = append(b.active, taken)
		}
		b.message = ""
	}
	b.mu.Unlock()

	log.Info("order accepted")
	if detached {
		return nil
	}
	if err := b.nav.Navigate(router.ScreenActiveOrders, nil); err != nil {
		log.Warn("navigation after accept failed", zap.Error(err))
	}
	return nil
}

// Complete marks a delivery done. The order leaves the active list and the
// confirmation screen opens only after the server acknowledges.
func (b *Board) Complete(ctx context.Context, orderID string) error {
	log := logger.FromCtx(ctx).With(zap.String("op", "courier.Complete"), zap.String("order_id", orderID))

	b.mu.Lock()
	found := slices.ContainsFunc(b.active, func(o api.DasherOrderSummary) bool { return o.OrderID == orderID })
	busy := b.pending[orderID]
	if found && !busy {
		b.pending[orderID] = true
	}
	b.mu.Unlock()

	switch {
	case !found:
		b.setMessage(userMessage(ErrOrderNotFound))
		return ErrOrderNotFound
	case busy:
		return ErrActionInProgress
	}

	_, err := b.client.CompleteCourierOrder(ctx, orderID)

	b.mu.Lock()
	delete(b.pending, orderID)
	detached := b.detached
	if err == nil && !detached {
		b.active = slices.DeleteFunc(b.active, func(o api.DasherOrderSummary) bool { return o.OrderID == orderID })
		b.message = ""
	}
	b.mu.Unlock()

	if err != nil {
		log.Warn("complete failed", zap.Error(err))
		b.setMessage(userMessage(err))
		return err
	}

	log.Info("delivery completed")
	if detached {
		return nil
	}
	if err := b.nav.Navigate(router.ScreenDeliveryConfirmation, router.Params{"order_id": orderID}); err != nil {
		log.Warn("navigation after complete failed", zap.Error(err))
	}
	return nil
}

// Detach drops every result that arrives afterwards.
func (b *Board) Detach() {
	b.mu.Lock()
	b.detached = true
	b.mu.Unlock()
}

func (b *Board) rejectMissing(orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[orderID] {
		return ErrActionInProgress
	}
	return ErrOrderNotFound
}

func (b *Board) setMessage(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.detached {
		b.message = msg
	}
}

func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderNotFound):
		return "That order is no longer on your board."
	case errors.Is(err, ErrActionInProgress):
		return "Hang on, that order is already being updated."
	case api.IsKind(err, api.KindResourceConflict):
		return "Another dasher already accepted this order."
	case api.IsKind(err, api.KindNotFound):
		return "This order no longer exists."
	case api.IsKind(err, api.KindForbidden):
		return "You are not allowed to update this order."
	case api.IsKind(err, api.KindNetworkUnreachable):
		return "Cannot reach the server. Please try again."
	}
	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	return "Something went wrong. Please try again."
}
