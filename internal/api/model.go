package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusActive    OrderStatus = "active"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAccepted, StatusPreparing, StatusReady,
		StatusActive, StatusPickedUp, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ---- auth ----

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsDasher bool   `json:"is_dasher"`
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	UserID       string
}

type loginResponse struct {
	AccessToken      string          `json:"access_token"`
	AccessTokenSpace string          `json:"access token"`
	RefreshToken     string          `json:"refresh_token"`
	ExpiresIn        int             `json:"expires_in"`
	User             json.RawMessage `json:"user"`
}

func (r loginResponse) token() string {
	if r.AccessTokenSpace != "" {
		return r.AccessTokenSpace
	}
	return r.AccessToken
}

// userID digs the id out of the several user shapes the backend has
// returned: {"User":{"ID":..}}, {"user":{"id":..}} and {"id":..}.
func (r loginResponse) userID() string {
	if len(r.User) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(r.User, &m); err != nil {
		return ""
	}
	if inner, ok := m["User"].(map[string]any); ok {
		if id := idString(inner["ID"]); id != "" {
			return id
		}
	}
	if inner, ok := m["user"].(map[string]any); ok {
		if id := idString(inner["id"]); id != "" {
			return id
		}
	}
	return idString(m["id"])
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}

// ---- restaurants ----

type Restaurant struct {
	ID         string  `json:"restaurant_id"`
	Name       string  `json:"restaurant_name"`
	LocationID *string `json:"location_id,omitempty"`
}

type MenuItem struct {
	FoodID       string          `json:"food_id"`
	RestaurantID string          `json:"restaurant_id"`
	CategoryID   *string         `json:"category_id,omitempty"`
	Name         string          `json:"food_name"`
	Price        decimal.Decimal `json:"price"`
	Availability bool            `json:"availability"`
}

// ---- orders ----

type OrderItem struct {
	FoodID   string          `json:"food_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	FoodName string          `json:"food_name,omitempty"`
}

// OrderItemInput is the outbound line shape; the backend expects a JSON
// number for price.
type OrderItemInput struct {
	FoodID   string  `json:"food_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	FoodName string  `json:"food_name,omitempty"`
}

type CreateOrderRequest struct {
	CustomerID           string           `json:"customer_id"`
	RestaurantID         string           `json:"restaurant_id"`
	OrderItems           []OrderItemInput `json:"order_items"`
	DeliveryAddress      string           `json:"delivery_address"`
	DeliveryInstructions *string          `json:"delivery_instructions,omitempty"`
}

type Order struct {
	ID                   string          `json:"id"`
	CustomerID           string          `json:"customer_id"`
	RestaurantID         string          `json:"restaurant_id"`
	DasherID             *string         `json:"dasher_id,omitempty"`
	Items                []OrderItem     `json:"order_items"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	DeliveryFee          decimal.Decimal `json:"delivery_fee"`
	DasherFee            decimal.Decimal `json:"dasher_fee"`
	Total                decimal.Decimal `json:"total"`
	Status               OrderStatus     `json:"status"`
	DeliveryAddress      string          `json:"delivery_address"`
	DeliveryInstructions *string         `json:"delivery_instructions,omitempty"`
	PaymentIntentID      *string         `json:"payment_intent_id,omitempty"`
	ClientSecret         string          `json:"client_secret,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// createOrderResponse accepts both a flat order carrying client_secret and
// {"order": {...}, "client_secret": "..."}.
type createOrderResponse struct {
	Order
	Nested *Order `json:"order,omitempty"`
}

func (r createOrderResponse) order() *Order {
	if r.Nested != nil {
		o := *r.Nested
		if o.ClientSecret == "" {
			o.ClientSecret = r.ClientSecret
		}
		return &o
	}
	o := r.Order
	return &o
}

type updateStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// ActionResult is returned by status-changing endpoints.
type ActionResult struct {
	Message string `json:"message"`
	Order   *Order `json:"order,omitempty"`
}

// ---- couriers ----

type DasherOrderSummary struct {
	OrderID         string          `json:"order_id"`
	RestaurantID    string          `json:"restaurant_id,omitempty"`
	RestaurantName  string          `json:"restaurant_name,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Status          OrderStatus     `json:"status,omitempty"`
	Total           decimal.Decimal `json:"total"`
	DasherFee       decimal.Decimal `json:"dasher_fee"`
	CreatedAt       time.Time       `json:"created_at"`
}

// UnmarshalJSON accepts "id" when "order_id" is absent.
func (d *DasherOrderSummary) UnmarshalJSON(data []byte) error {
	type alias DasherOrderSummary
	aux := struct {
		*alias
		ID string `json:"id"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if d.OrderID == "" {
		d.OrderID = aux.ID
	}
	return nil
}
