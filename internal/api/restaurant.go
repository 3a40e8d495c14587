package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	const op = "api.ListRestaurants"

	var raw []byte
	if err := c.do(ctx, call{op: op, method: http.MethodGet, path: "/api/restaurants", protected: true}, &raw); err != nil {
		return nil, err
	}
	return decodeList[Restaurant](op, raw, "restaurants")
}

func (c *Client) GetRestaurant(ctx context.Context, restaurantID string) (*Restaurant, error) {
	const op = "api.GetRestaurant"

	var raw []byte
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodGet,
		path:      "/api/restaurants/" + url.PathEscape(restaurantID),
		protected: true,
	}, &raw)
	if err != nil {
		return nil, err
	}

	// Either the restaurant itself or {"restaurant": {...}}.
	var wrapped struct {
		Restaurant *Restaurant `json:"restaurant"`
	}
	if err := decodeInto(op, raw, &wrapped); err == nil && wrapped.Restaurant != nil {
		return wrapped.Restaurant, nil
	}

	var r Restaurant
	if err := decodeInto(op, raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GetMenu(ctx context.Context, restaurantID string) ([]MenuItem, error) {
	const op = "api.GetMenu"

	var raw []byte
	err := c.do(ctx, call{
		op:        op,
		method:    http.MethodGet,
		path:      "/api/restaurants/" + url.PathEscape(restaurantID) + "/menu",
		protected: true,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeList[MenuItem](op, raw, "menu")
}
