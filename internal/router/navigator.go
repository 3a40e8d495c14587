package router

import (
	"fmt"
	"maps"
	"sync"

	"campusdash/internal/auth"
	"campusdash/internal/logger"
	"campusdash/internal/session"

	"go.uber.org/zap"
)

type Params map[string]string

type route struct {
	screen Screen
	params Params
}

// Navigator keeps the active graph and its back stack. The graph only
// changes through Sync, i.e. when the session state changes.
type Navigator struct {
	mu    sync.Mutex
	graph Graph
	stack []route
}

func NewNavigator() *Navigator {
	n := &Navigator{}
	n.reset(Resolve(auth.StateUnknown))
	return n
}

// Bind syncs to the manager's current state and follows every transition.
func (n *Navigator) Bind(m *auth.Manager) (unbind func()) {
	unbind = m.Subscribe(func(state auth.State, _ session.Session) {
		n.Sync(state)
	})
	n.Sync(m.State())
	return unbind
}

// Sync swaps in the graph for state. The back stack resets only when the
// graph actually changes.
func (n *Navigator) Sync(state auth.State) {
	g := Resolve(state)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.graph.Name == g.Name {
		return
	}
	logger.L().Info("navigation graph changed",
		zap.String("from", string(n.graph.Name)),
		zap.String("to", string(g.Name)),
	)
	n.reset(g)
}

// Navigate moves to screen within the active graph. A screen already on the
// stack is returned to instead of being pushed twice.
func (n *Navigator) Navigate(screen Screen, params Params) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.graph.Contains(screen) {
		return fmt.Errorf("%w: %s not in %s graph", ErrScreenNotInGraph, screen, n.graph.Name)
	}

	for i, r := range n.stack {
		if r.screen == screen {
			n.stack = n.stack[:i+1]
			n.stack[i].params = maps.Clone(params)
			return nil
		}
	}
	n.stack = append(n.stack, route{screen: screen, params: maps.Clone(params)})
	return nil
}

// Back pops the current screen.
func (n *Navigator) Back() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) <= 1 {
		return ErrNothingToPop
	}
	n.stack = n.stack[:len(n.stack)-1]
	return nil
}

func (n *Navigator) Current() Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stack[len(n.stack)-1].screen
}

// Params of the current screen; never nil.
func (n *Navigator) Params() Params {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := maps.Clone(n.stack[len(n.stack)-1].params)
	if p == nil {
		p = Params{}
	}
	return p
}

func (n *Navigator) Graph() Graph {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.graph
}

// Allows reports whether screen is reachable in the active graph.
func (n *Navigator) Allows(screen Screen) bool {
	return n.Graph().Contains(screen)
}

// Stack lists the screens from root to current.
func (n *Navigator) Stack() []Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Screen, len(n.stack))
	for i, r := range n.stack {
		out[i] = r.screen
	}
	return out
}

func (n *Navigator) reset(g Graph) {
	n.graph = g
	n.stack = []route{{screen: g.Initial()}}
}
