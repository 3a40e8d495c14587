package cart

import (
	"sync"

	"campusdash/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Listener func(Snapshot)

// Store holds the in-progress order. All methods are safe for concurrent use.
// Listeners run one at a time, outside the state lock, and only ever see
// newer versions: a snapshot that lost a race to a later one is dropped.
// Listeners must not mutate the store.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	total   decimal.Decimal
	version uint64

	nextSub   int
	listeners map[int]Listener

	notifyMu  sync.Mutex
	delivered uint64
}

func NewStore() *Store {
	return &Store{
		total:     decimal.Zero,
		listeners: make(map[int]Listener),
	}
}

// AddItem bumps the quantity of an existing line or appends a new one.
func (s *Store) AddItem(item Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.lines) > 0 && s.lines[0].RestaurantID != item.RestaurantID {
		s.mu.Unlock()
		return ErrRestaurantMismatch
	}
	s.addLocked(item)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// ReplaceWith empties the cart and adds item in one step.
func (s *Store) ReplaceWith(item Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	s.mu.Lock()
	s.lines = nil
	s.addLocked(item)
	snap := s.commitLocked()
	s.mu.Unlock()

	logger.L().Info("cart replaced", zap.String("restaurant_id", item.RestaurantID))
	s.notify(snap)
	return nil
}

// RemoveItem drops the whole line for itemID. Missing ids are a no-op.
func (s *Store) RemoveItem(itemID string) {
	s.mu.Lock()
	idx := s.indexLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	snap := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Settle removes what was paid for in paid. An unchanged cart is emptied.
// When the cart changed after paid was taken, only the paid quantities come
// off and anything added since stays. It returns the lines left.
func (s *Store) Settle(paid Snapshot) int {
	s.mu.Lock()
	if s.version == paid.Version {
		s.lines = nil
		snap := s.commitLocked()
		s.mu.Unlock()
		s.notify(snap)
		return 0
	}

	changed := false
	for _, p := range paid.Lines {
		idx := s.indexLocked(p.ItemID)
		if idx < 0 || s.lines[idx].RestaurantID != p.RestaurantID {
			continue
		}
		changed = true
		if s.lines[idx].Quantity <= p.Quantity {
			s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
			continue
		}
		s.lines[idx].Quantity -= p.Quantity
	}
	if !changed {
		left := len(s.lines)
		s.mu.Unlock()
		return left
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	logger.L().Info("cart settled with unpaid lines left", zap.Int("lines", len(snap.Lines)))
	s.notify(snap)
	return len(snap.Lines)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// FormatTotal renders the total with two decimals, e.g. "13.50".
func (s *Store) FormatTotal() string {
	return s.TotalPrice().StringFixed(2)
}

func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Store) CanCheckout() bool {
	return !s.IsEmpty()
}

// RestaurantID is "" for an empty cart.
func (s *Store) RestaurantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked().RestaurantID
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every subsequent change.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func validateItem(item Item) error {
	if item.ItemID == "" || item.RestaurantID == "" {
		return ErrInvalidItem
	}
	if item.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

func (s *Store) indexLocked(itemID string) int {
	for i, l := range s.lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *Store) addLocked(item Item) {
	if idx := s.indexLocked(item.ItemID); idx >= 0 {
		s.lines[idx].Quantity++
		return
	}
	s.lines = append(s.lines, Line{
		ItemID:       item.ItemID,
		Name:         item.Name,
		UnitPrice:    item.UnitPrice,
		Quantity:     1,
		RestaurantID: item.RestaurantID,
	})
}

func (s *Store) commitLocked() Snapshot {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	s.total = total
	s.version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Lines:   append([]Line(nil), s.lines...),
		Total:   s.total,
		Version: s.version,
	}
	if len(s.lines) > 0 {
		snap.RestaurantID = s.lines[0].RestaurantID
	}
	return snap
}

func (s *Store) notify(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version

	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
