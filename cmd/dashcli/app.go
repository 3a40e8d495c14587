package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"text/tabwriter"

	"campusdash/internal/api"
	"campusdash/internal/auth"
	"campusdash/internal/cart"
	"campusdash/internal/checkout"
	"campusdash/internal/config"
	"campusdash/internal/courier"
	"campusdash/internal/logger"
	"campusdash/internal/payment"
	"campusdash/internal/router"
	"campusdash/internal/session"
	"campusdash/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errQuit = errors.New("quit")

// app wires the client core together. Each shell command stands in for a
// screen: it is accepted only when that screen is in the active graph.
type app struct {
	client   *api.Client
	auth     *auth.Manager
	nav      *router.Navigator
	cart     *cart.Store
	checkout *checkout.Service
	board    *courier.Board

	menus map[string][]api.MenuItem
	out   io.Writer
}

func newApp(cfg *config.Config, store session.Store, confirmer payment.Confirmer, transport http.RoundTripper) *app {
	client := api.NewClient(api.Options{
		BaseURL:   cfg.APIBaseURL,
		Store:     store,
		Transport: transport,
		Timeout:   cfg.HTTPTimeout,
	})

	manager := auth.NewManager(client, store)
	client.SetUnauthorizedHandler(manager.HandleUnauthorized)

	nav := router.NewNavigator()
	nav.Bind(manager)

	items := cart.NewStore()

	a := &app{
		client: client,
		auth:   manager,
		nav:    nav,
		cart:   items,
		checkout: checkout.NewService(items, client, confirmer, manager, nav, checkout.Options{
			DeliveryAddress:      cfg.DeliveryAddress,
			DeliveryInstructions: cfg.DeliveryInstructions,
		}),
		board: courier.NewBoard(client, nav),
		menus: make(map[string][]api.MenuItem),
	}

	// A new user must never see the previous user's cart.
	manager.Subscribe(func(state auth.State, _ session.Session) {
		if !state.Authenticated() {
			items.Clear()
		}
	})
	return a
}

func (a *app) start(ctx context.Context) {
	a.auth.Restore(ctx)
}

type command struct {
	usage  string
	screen router.Screen // "" when always available
	authed bool
	run    func(ctx context.Context, args []string) error
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"login":       {usage: "login <email> <password> [courier]", screen: router.ScreenLogin, run: a.login},
		"signup":      {usage: "signup <email> <password> <confirm> [courier]", screen: router.ScreenSignup, run: a.signup},
		"logout":      {usage: "logout", authed: true, run: a.logout},
		"refresh":     {usage: "refresh", authed: true, run: a.refresh},
		"restaurants": {usage: "restaurants", screen: router.ScreenHome, run: a.restaurants},
		"menu":        {usage: "menu <restaurantID>", screen: router.ScreenRestaurantDetails, run: a.menu},
		"add":         {usage: "add <restaurantID> <foodID> [replace]", screen: router.ScreenRestaurantDetails, run: a.add},
		"remove":      {usage: "remove <foodID>", screen: router.ScreenCart, run: a.remove},
		"cart":        {usage: "cart", screen: router.ScreenCart, run: a.showCart},
		"clear":       {usage: "clear", screen: router.ScreenCart, run: a.clearCart},
		"checkout":    {usage: "checkout <card[/mm/yy/cvc]|pm_id>", screen: router.ScreenCheckout, run: a.placeOrder},
		"orders":      {usage: "orders", screen: router.ScreenOrders, run: a.orders},
		"order":       {usage: "order <orderID>", screen: router.ScreenOrderDetails, run: a.order},
		"available":   {usage: "available", screen: router.ScreenAvailableOrders, run: a.available},
		"accept":      {usage: "accept <orderID>", screen: router.ScreenAvailableOrders, run: a.accept},
		"active":      {usage: "active", screen: router.ScreenActiveOrders, run: a.active},
		"complete":    {usage: "complete <orderID>", screen: router.ScreenActiveOrders, run: a.complete},
		"screen":      {usage: "screen", run: a.screen},
		"stats":       {usage: "stats", run: a.stats},
		"help":        {usage: "help", run: a.help},
		"quit":        {usage: "quit", run: func(context.Context, []string) error { return errQuit }},
	}
}

// run reads commands until EOF, quit or ctx is done.
func (a *app) run(ctx context.Context, in io.Reader, out io.Writer) error {
	a.out = out
	cmds := a.commands()
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(out, "[%s]> ", a.nav.Current())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := utils.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		err := a.dispatch(ctx, cmds, fields[0], fields[1:])
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", a.describe(err))
		}
	}
}

func (a *app) dispatch(ctx context.Context, cmds map[string]command, name string, args []string) error {
	cmd, ok := cmds[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", name)
	}

	switch {
	case cmd.authed && !a.auth.State().Authenticated():
		return fmt.Errorf("%s needs a signed-in session", name)
	case cmd.screen != "":
		if err := a.nav.Navigate(cmd.screen, nil); err != nil {
			return fmt.Errorf("%s is not available here: %w", name, err)
		}
	}

	ctx = logger.WithRequestID(ctx, uuid.NewString())
	logger.FromCtx(ctx).Debug("command", zap.String("name", name), zap.Int("args", len(args)))
	return cmd.run(ctx, args)
}

func (a *app) describe(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, auth.ErrServerUnreachable), errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoAccountForRole), errors.Is(err, auth.ErrAccountExists),
		errors.Is(err, auth.ErrSessionExpired), auth.IsValidation(err):
		return auth.UserMessage(err)
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	}
	return err.Error()
}

func usage(cmd string, args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", cmd)
	}
	return nil
}

func roleArg(args []string, idx int) session.Role {
	if len(args) > idx && strings.EqualFold(args[idx], "courier") {
		return session.RoleCourier
	}
	return session.RoleCustomer
}

// ---- auth ----

func (a *app) login(ctx context.Context, args []string) error {
	if err := usage("login <email> <password> [courier]", args, 2); err != nil {
		return err
	}
	if err := a.auth.Login(ctx, args[0], args[1], roleArg(args, 2)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", a.auth.Session().UserEmail, a.auth.State())
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	if err := usage("signup <email> <password> <confirm> [courier]", args, 3); err != nil {
		return err
	}
	if err := a.auth.Signup(ctx, args[0], args[1], args[2], roleArg(args, 3)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account created, signed in as %s (%s)\n", a.auth.Session().UserEmail, a.auth.State())
	return nil
}

func (a *app) logout(ctx context.Context, _ []string) error {
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) refresh(ctx context.Context, _ []string) error {
	if err := a.auth.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "session refreshed")
	return nil
}

// ---- customer ----

func (a *app) restaurants(ctx context.Context, _ []string) error {
	list, err := a.client.ListRestaurants(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Name)
	}
	return w.Flush()
}

func (a *app) loadMenu(ctx context.Context, restaurantID string) ([]api.MenuItem, error) {
	if menu, ok := a.menus[restaurantID]; ok {
		return menu, nil
	}
	menu, err := a.client.GetMenu(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	a.menus[restaurantID] = menu
	return menu, nil
}

func (a *app) menu(ctx context.Context, args []string) error {
	if err := usage("menu <restaurantID>", args, 1); err != nil {
		return err
	}
	delete(a.menus, args[0])
	menu, err := a.loadMenu(ctx, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FOOD ID\tNAME\tPRICE\tAVAILABLE")
	for _, m := range menu {
		fmt.Fprintf(w, "%s\t%s\t$%s\t%t\n", m.FoodID, m.Name, m.Price.StringFixed(2), m.Availability)
	}
	return w.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	if err := usage("add <restaurantID> <foodID> [replace]", args, 2); err != nil {
		return err
	}
	menu, err := a.loadMenu(ctx, args[0])
	if err != nil {
		return err
	}

	var found *api.MenuItem
	for i := range menu {
		if menu[i].FoodID == args[1] {
			found = &menu[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("no item %s on the menu of %s", args[1], args[0])
	}
	if !found.Availability {
		return fmt.Errorf("%s is not available right now", found.Name)
	}

	item := cart.ItemFromMenu(*found)
	if item.RestaurantID == "" {
		item.RestaurantID = args[0]
	}

	if len(args) > 2 && args[2] == "replace" {
		err = a.cart.ReplaceWith(item)
	} else {
		err = a.cart.AddItem(item)
	}
	if errors.Is(err, cart.ErrRestaurantMismatch) {
		return fmt.Errorf("your cart has items from another restaurant; add %s %s replace to start a new cart", args[0], args[1])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s, cart total $%s\n", item.Name, a.cart.FormatTotal())
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if err := usage("remove <foodID>", args, 1); err != nil {
		return err
	}
	a.cart.RemoveItem(args[0])
	return a.showCart(ctx, nil)
}

func (a *app) showCart(_ context.Context, _ []string) error {
	if a.cart.IsEmpty() {
		fmt.Fprintln(a.out, "cart is empty")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FOOD ID\tNAME\tQTY\tSUBTOTAL")
	for _, l := range a.cart.Lines() {
		fmt.Fprintf(w, "%s\t%s\t%d\t$%s\n", l.ItemID, l.Name, l.Quantity, l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "\t\tTOTAL\t$%s\n", a.cart.FormatTotal())
	return w.Flush()
}

func (a *app) clearCart(_ context.Context, _ []string) error {
	a.cart.Clear()
	fmt.Fprintln(a.out, "cart cleared")
	return nil
}

func (a *app) placeOrder(ctx context.Context, args []string) error {
	var method payment.Method
	if len(args) > 0 {
		m, err := payment.ParseMethod(args[0])
		if err != nil {
			return err
		}
		method = m
	}

	receipt, err := a.checkout.PlaceOrder(ctx, method)
	if err != nil {
		if msg := a.checkout.Status().Message; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	fmt.Fprintf(a.out, "order %s placed, paid $%s (ref %s)\n",
		receipt.OrderID, receipt.Total.StringFixed(2), receipt.Reference)
	return nil
}

func (a *app) orders(ctx context.Context, _ []string) error {
	history, err := a.client.GetOrderHistory(ctx, a.auth.Session().UserID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(a.out, "no orders yet")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSTATUS\tTOTAL")
	for _, o := range history {
		fmt.Fprintf(w, "%s\t%s\t$%s\n", o.ID, o.Status, o.Total.StringFixed(2))
	}
	return w.Flush()
}

func (a *app) order(ctx context.Context, args []string) error {
	if err := usage("order <orderID>", args, 1); err != nil {
		return err
	}
	o, err := a.client.GetOrderByID(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s: %s, total $%s, deliver to %s\n", o.ID, o.Status, o.Total.StringFixed(2), o.DeliveryAddress)
	if note := utils.PtrString(o.DeliveryInstructions); note != "" {
		fmt.Fprintf(a.out, "  note: %s\n", note)
	}
	for _, it := range o.Items {
		fmt.Fprintf(a.out, "  %dx %s ($%s)\n", it.Quantity, it.FoodName, it.Price.StringFixed(2))
	}
	return nil
}

// ---- courier ----

func (a *app) printSummaries(list []api.DasherOrderSummary) error {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no orders")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tRESTAURANT\tDELIVER TO\tFEE")
	for _, o := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%s\n", o.OrderID, o.RestaurantName, o.DeliveryAddress, o.DasherFee.StringFixed(2))
	}
	return w.Flush()
}

func (a *app) available(ctx context.Context, _ []string) error {
	if err := a.board.LoadAvailable(ctx); err != nil {
		return err
	}
	return a.printSummaries(a.board.Available())
}

func (a *app) accept(ctx context.Context, args []string) error {
	if err := usage("accept <orderID>", args, 1); err != nil {
		return err
	}
	if err := a.board.Accept(ctx, args[0]); err != nil {
		return errors.New(a.board.Message())
	}
	fmt.Fprintf(a.out, "order %s accepted\n", args[0])
	return nil
}

func (a *app) active(ctx context.Context, _ []string) error {
	if err := a.board.LoadActive(ctx); err != nil {
		return err
	}
	return a.printSummaries(a.board.Active())
}

func (a *app) complete(ctx context.Context, args []string) error {
	if err := usage("complete <orderID>", args, 1); err != nil {
		return err
	}
	if err := a.board.Complete(ctx, args[0]); err != nil {
		return errors.New(a.board.Message())
	}
	fmt.Fprintf(a.out, "order %s delivered\n", args[0])
	return nil
}

// ---- misc ----

func (a *app) screen(_ context.Context, _ []string) error {
	g := a.nav.Graph()
	fmt.Fprintf(a.out, "session: %s, graph: %s, screen: %s\n", a.auth.State(), g.Name, a.nav.Current())
	return nil
}

func (a *app) stats(_ context.Context, _ []string) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OP\tCALLS\tFAILURES\tAVG")
	for _, s := range a.client.Stats() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Op, s.Calls, s.Failures, s.Average)
	}
	return w.Flush()
}

func (a *app) help(_ context.Context, _ []string) error {
	cmds := a.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		cmd := cmds[name]
		marker := " "
		if cmd.screen == "" || a.nav.Allows(cmd.screen) {
			if !cmd.authed || a.auth.State().Authenticated() {
				marker = "*"
			}
		}
		fmt.Fprintf(a.out, "%s %s\n", marker, cmd.usage)
	}
	fmt.Fprintln(a.out, "(* available on this screen)")
	return nil
}
