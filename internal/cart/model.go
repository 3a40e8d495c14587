package cart

import (
	"campusdash/internal/api"

	"github.com/shopspring/decimal"
)

// Item is what a menu contributes to the cart.
type Item struct {
	ItemID       string
	Name         string
	UnitPrice    decimal.Decimal
	RestaurantID string
}

// ItemFromMenu converts a menu entry into a cart item.
func ItemFromMenu(m api.MenuItem) Item {
	return Item{
		ItemID:       m.FoodID,
		Name:         m.Name,
		UnitPrice:    m.Price,
		RestaurantID: m.RestaurantID,
	}
}

type Line struct {
	ItemID       string
	Name         string
	UnitPrice    decimal.Decimal
	Quantity     int
	RestaurantID string
}

// Subtotal is UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable copy of the cart at a given version.
type Snapshot struct {
	Lines        []Line
	RestaurantID string
	Total        decimal.Decimal
	Version      uint64
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// OrderItems maps the lines into the order payload shape.
func (s Snapshot) OrderItems() []api.OrderItemInput {
	items := make([]api.OrderItemInput, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, api.OrderItemInput{
			FoodID:   l.ItemID,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.InexactFloat64(),
			FoodName: l.Name,
		})
	}
	return items
}
