package router

import (
	"slices"

	"campusdash/internal/auth"
)

type Screen string

const (
	ScreenLoading Screen = "Loading"

	ScreenLogin  Screen = "Login"
	ScreenSignup Screen = "Signup"

	ScreenHome              Screen = "Home"
	ScreenRestaurantDetails Screen = "RestaurantDetails"
	ScreenCart              Screen = "Cart"
	ScreenCheckout          Screen = "Checkout"
	ScreenOrders            Screen = "Orders"
	ScreenOrderDetails      Screen = "OrderDetails"

	ScreenDasherHome           Screen = "DasherHome"
	ScreenAvailableOrders      Screen = "AvailableOrders"
	ScreenActiveOrders         Screen = "ActiveOrders"
	ScreenDasherOrderDetails   Screen = "DasherOrderDetails"
	ScreenDeliveryConfirmation Screen = "DeliveryConfirmation"
)

type GraphName string

const (
	GraphLoading  GraphName = "loading"
	GraphAuth     GraphName = "auth"
	GraphCustomer GraphName = "customer"
	GraphCourier  GraphName = "courier"
)

// Graph is the set of screens reachable for one session state. The first
// screen is the initial route.
type Graph struct {
	Name    GraphName
	Screens []Screen
}

var (
	loadingGraph = Graph{Name: GraphLoading}
	authGraph    = Graph{Name: GraphAuth, Screens: []Screen{ScreenLogin, ScreenSignup}}

	customerGraph = Graph{Name: GraphCustomer, Screens: []Screen{
		ScreenHome,
		ScreenRestaurantDetails,
		ScreenCart,
		ScreenCheckout,
		ScreenOrders,
		ScreenOrderDetails,
	}}

	courierGraph = Graph{Name: GraphCourier, Screens: []Screen{
		ScreenDasherHome,
		ScreenAvailableOrders,
		ScreenActiveOrders,
		ScreenDasherOrderDetails,
		ScreenDeliveryConfirmation,
	}}
)

// Resolve maps a session state to its screen graph. It has no side effects.
func Resolve(state auth.State) Graph {
	switch state {
	case auth.StateUnauthenticated:
		return authGraph
	case auth.StateCustomer:
		return customerGraph
	case auth.StateCourier:
		return courierGraph
	default:
		return loadingGraph
	}
}

// Initial is the screen shown when the graph becomes active.
func (g Graph) Initial() Screen {
	if len(g.Screens) == 0 {
		return ScreenLoading
	}
	return g.Screens[0]
}

func (g Graph) Contains(s Screen) bool {
	return slices.Contains(g.Screens, s)
}
