package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// CreateOrder submits a draft order. The response carries the payment
// client secret. A fresh Idempotency-Key is sent unless ctx supplies one
// through WithIdempotencyKey.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	const op = "api.CreateOrder"

	key := idempotencyKeyFrom(ctx)
	if key == "" {
		key = uuid.NewString()
	}

	var res createOrderResponse
	err := c.do(ctx, call{
		op:             op,
		method:         http.MethodPost,
		path:           "/api/orders",
		body:           req,
		protected:      true,
		idempotencyKey: key,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.order(), nil
}

func (c *Client) GetOrderByID(ctx context.Context, orderID string) (*Order, error) {
	const op = "api.GetOrderByID"

	var raw []byte
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodGet,
		path:      "/api/orders/" + url.PathEscape(orderID),
		protected: true,
	}, &raw)
	if err != nil {
		return nil, err
	}

	var res createOrderResponse
	if err := decodeInto(op, raw, &res); err != nil {
		return nil, err
	}
	return res.order(), nil
}

func (c *Client) GetOrderHistory(ctx context.Context, customerID string) ([]Order, error) {
	const op = "api.GetOrderHistory"

	var raw []byte
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodGet,
		path:      "/api/orders/customer/" + url.PathEscape(customerID),
		protected: true,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeList[Order](op, raw, "orders")
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status OrderStatus) (*ActionResult, error) {
	const op = "api.UpdateOrderStatus"

	if !status.Valid() {
		return nil, NewError(op, KindValidationFailed, fmt.Errorf("unknown order status %q", status))
	}

	var res ActionResult
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodPut,
		path:      "/api/orders/" + url.PathEscape(orderID) + "/status",
		body:      updateStatusRequest{Status: status},
		protected: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
