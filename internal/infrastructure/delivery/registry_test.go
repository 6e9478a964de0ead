package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry()

	c1 := &connection{userID: "sales-1"}
	c2 := &connection{userID: "sales-1"}
	c3 := &connection{userID: "shipper-1"}
	r.Add(c1)
	r.Add(c2)
	r.Add(c3)

	assert.Len(t, r.Lookup("sales-1"), 2, "a user may hold several connections")
	assert.Len(t, r.Lookup("shipper-1"), 1)
	assert.Empty(t, r.Lookup("ghost"))
	assert.Len(t, r.All(), 3)
	assert.ElementsMatch(t, []string{"sales-1", "shipper-1"}, r.ConnectedUsers())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()

	c1 := &connection{userID: "sales-1"}
	c2 := &connection{userID: "sales-1"}
	r.Add(c1)
	r.Add(c2)

	r.Remove(c1)
	assert.Len(t, r.Lookup("sales-1"), 1)

	r.Remove(c2)
	assert.Empty(t, r.Lookup("sales-1"))
	assert.Empty(t, r.ConnectedUsers(), "the user entry disappears with its last connection")

	// removing an unknown connection is a no-op
	r.Remove(c1)
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Add(&connection{userID: "sales-1"})

	conns := r.Lookup("sales-1")
	conns[0] = nil

	assert.NotNil(t, r.Lookup("sales-1")[0], "mutating a lookup result must not corrupt the registry")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	go func() {
		for i := 0; i < 100; i++ {
			c := &connection{userID: "sales-1"}
			r.Add(c)
			r.Remove(c)
		}
		close(done)
	}()

	for i := 0; i < 100; i++ {
		r.Lookup("sales-1")
		r.All()
	}
	<-done
}
