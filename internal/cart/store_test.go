package cart

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, price string) Item {
	return Item{
		ItemID:       id,
		Name:         "item " + id,
		UnitPrice:    decimal.RequireFromString(price),
		RestaurantID: "r1",
	}
}

func TestStore_AddItem(t *testing.T) {
	t.Run("Duplicate add increments quantity", func(t *testing.T) {
		s := NewStore()

		require.NoError(t, s.AddItem(item("A", "5.00")))
		require.NoError(t, s.AddItem(item("A", "5.00")))

		lines := s.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, "10.00", s.FormatTotal())
	})

	t.Run("Mixed items total", func(t *testing.T) {
		s := NewStore()

		require.NoError(t, s.AddItem(item("A", "5.00")))
		require.NoError(t, s.AddItem(item("B", "3.50")))
		require.NoError(t, s.AddItem(item("A", "5.00")))

		assert.True(t, s.TotalPrice().Equal(decimal.RequireFromString("13.50")))
		assert.Equal(t, "13.50", s.FormatTotal())
		assert.Equal(t, 2, s.Len())
		assert.True(t, s.CanCheckout())
	})

	t.Run("Validation", func(t *testing.T) {
		s := NewStore()

		assert.ErrorIs(t, s.AddItem(Item{RestaurantID: "r1"}), ErrInvalidItem)
		assert.ErrorIs(t, s.AddItem(item("A", "-1")), ErrInvalidPrice)
		assert.True(t, s.IsEmpty())
		assert.Equal(t, uint64(0), s.Version())
	})

	t.Run("Other restaurant rejected", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddItem(item("A", "5.00")))

		other := item("Z", "2.00")
		other.RestaurantID = "r2"

		assert.ErrorIs(t, s.AddItem(other), ErrRestaurantMismatch)
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, "r1", s.RestaurantID())

		require.NoError(t, s.ReplaceWith(other))
		assert.Equal(t, "r2", s.RestaurantID())
		assert.Equal(t, "2.00", s.FormatTotal())
	})
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddItem(item("A", "5.00")))
	require.NoError(t, s.AddItem(item("B", "3.50")))
	require.NoError(t, s.AddItem(item("C", "1.25")))

	before := s.Version()
	s.RemoveItem("missing")
	assert.Equal(t, before, s.Version(), "removing an absent id is a no-op")

	s.RemoveItem("B")
	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "A", lines[0].ItemID)
	assert.Equal(t, "C", lines[1].ItemID)
	assert.Equal(t, "6.25", s.FormatTotal())

	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.False(t, s.CanCheckout())
	assert.True(t, s.TotalPrice().IsZero())
	assert.Equal(t, "0.00", s.FormatTotal())
	assert.Equal(t, "", s.RestaurantID())
}

func TestStore_Subscribe(t *testing.T) {
	s := NewStore()

	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		got = append(got, snap)
	})

	require.NoError(t, s.AddItem(item("A", "5.00")))
	s.Clear()
	unsubscribe()
	require.NoError(t, s.AddItem(item("B", "1.00")))

	require.Len(t, got, 2)
	assert.Equal(t, "5.00", got[0].Total.StringFixed(2))
	assert.True(t, got[1].IsEmpty())
	assert.Less(t, got[0].Version, got[1].Version)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddItem(item("A", "5.00")))

	snap := s.Snapshot()
	require.NoError(t, s.AddItem(item("A", "5.00")))

	assert.Equal(t, 1, snap.Lines[0].Quantity)
	items := snap.OrderItems()
	require.Len(t, items, 1)
	assert.Equal(t, 5.0, items[0].Price)
	assert.Equal(t, "A", items[0].FoodID)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := NewStore()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "A"
			if i%2 == 1 {
				id = "B"
			}
			_ = s.AddItem(item(id, "0.10"))
		}(i)
	}
	wg.Wait()

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, n, lines[0].Quantity+lines[1].Quantity)
	assert.Equal(t, "20.00", s.FormatTotal())
	assert.Equal(t, uint64(n), s.Version())
}

func TestStore_Settle(t *testing.T) {
	t.Run("Unchanged cart is emptied", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddItem(item("A", "5.00")))
		require.NoError(t, s.AddItem(item("B", "3.50")))

		left := s.Settle(s.Snapshot())

		assert.Equal(t, 0, left)
		assert.True(t, s.IsEmpty())
		assert.Equal(t, "0.00", s.FormatTotal())
	})

	t.Run("Lines added after the snapshot stay", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddItem(item("A", "5.00")))
		require.NoError(t, s.AddItem(item("B", "3.50")))
		paid := s.Snapshot()

		require.NoError(t, s.AddItem(item("C", "2.00")))
		left := s.Settle(paid)

		assert.Equal(t, 1, left)
		lines := s.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, "C", lines[0].ItemID)
		assert.Equal(t, "2.00", s.FormatTotal())
	})

	t.Run("Extra quantity of a paid item stays", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddItem(item("A", "5.00")))
		paid := s.Snapshot()

		require.NoError(t, s.AddItem(item("A", "5.00")))
		require.NoError(t, s.AddItem(item("A", "5.00")))
		s.Settle(paid)

		lines := s.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, "10.00", s.FormatTotal())
	})

	t.Run("Cart replaced by another restaurant is kept", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddItem(item("A", "5.00")))
		paid := s.Snapshot()

		other := item("A", "9.00")
		other.RestaurantID = "r2"
		require.NoError(t, s.ReplaceWith(other))
		version := s.Version()
		s.Settle(paid)

		assert.Equal(t, 1, s.Len())
		assert.Equal(t, "r2", s.RestaurantID())
		assert.Equal(t, version, s.Version(), "nothing to settle, no new version")
	})
}

func TestStore_SubscribeDeliversInOrder(t *testing.T) {
	s := NewStore()

	var versions []uint64
	s.Subscribe(func(snap Snapshot) {
		versions = append(versions, snap.Version)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddItem(item("A", "1.00"))
		}()
	}
	wg.Wait()

	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		assert.Less(t, versions[i-1], versions[i], "listener saw a stale snapshot")
	}
	assert.Equal(t, s.Version(), versions[len(versions)-1], "latest state is always delivered")
}

// Any sequence of adds, removes and clears must keep the total equal to the
// sum over lines and never produce two lines for one item.
func TestStore_RandomizedOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prices := map[string]string{"A": "4.99", "B": "0.01", "C": "12.35", "D": "7.00", "E": "0.33"}
	ids := []string{"A", "B", "C", "D", "E"}

	for round := 0; round < 50; round++ {
		s := NewStore()
		for step := 0; step < 100; step++ {
			id := ids[rng.Intn(len(ids))]
			switch op := rng.Intn(10); {
			case op < 6:
				require.NoError(t, s.AddItem(item(id, prices[id])))
			case op < 9:
				s.RemoveItem(id)
			default:
				s.Clear()
			}

			lines := s.Lines()
			seen := make(map[string]bool)
			want := decimal.Zero
			for _, l := range lines {
				assert.False(t, seen[l.ItemID], "duplicate line for %s", l.ItemID)
				seen[l.ItemID] = true
				assert.GreaterOrEqual(t, l.Quantity, 1)
				want = want.Add(l.Subtotal())
			}
			require.True(t, want.Equal(s.TotalPrice()), "total %s != %s", s.TotalPrice(), want)
			assert.Equal(t, len(lines) == 0, s.IsEmpty())
		}
	}
}
