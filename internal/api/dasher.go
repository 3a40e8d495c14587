package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) GetAvailableCourierOrders(ctx context.Context) ([]DasherOrderSummary, error) {
	const op = "api.GetAvailableCourierOrders"

	var raw []byte
	err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/api/dashers/orders/available", protected: true}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeList[DasherOrderSummary](op, raw, "orders")
}

func (c *Client) AcceptCourierOrder(ctx context.Context, orderID string) (*ActionResult, error) {
	var res ActionResult
	err := c.do(ctx, call{
		op:        "api.AcceptCourierOrder",
		method:    http.MethodPost,
		path:      "/api/dashers/orders/accept/" + url.PathEscape(orderID),
		body:      struct{}{},
		protected: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetActiveCourierOrders(ctx context.Context) ([]DasherOrderSummary, error) {
	const op = "api.GetActiveCourierOrders"

	var raw []byte
	err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/api/dashers/orders/active", protected: true}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeList[DasherOrderSummary](op, raw, "orders")
}

func (c *Client) CompleteCourierOrder(ctx context.Context, orderID string) (*ActionResult, error) {
	var res ActionResult
	err := c.do(ctx, call{
		op:        "api.CompleteCourierOrder",
		method:    http.MethodPost,
		path:      "/api/dashers/orders/" + url.PathEscape(orderID) + "/complete",
		body:      struct{}{},
		protected: true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
