package codec

import (
	"math"
)

// Codec is the string vocabulary of one compiled table plus the typed
// encode and decode operations built on it.
//
// A Codec is not safe for concurrent mutation. Once frozen it is read-only
// and may be shared by any number of goroutines.
type Codec struct {
	ids    map[string]int
	values []string
	frozen bool
}

// New creates an empty Codec.
func New() *Codec {
	return &Codec{ids: make(map[string]int)}
}

// Add returns the id of s, inserting it when unseen. On a frozen Codec Add
// behaves like Lookup.
func (c *Codec) Add(s string) float64 {
	if id, ok := c.ids[s]; ok {
		return float64(id)
	}
	if c.frozen {
		return math.NaN()
	}
	id := len(c.values)
	c.ids[s] = id
	c.values = append(c.values, s)
	return float64(id)
}

// Lookup returns the id of s without inserting it, or NaN when s was never added.
func (c *Codec) Lookup(s string) float64 {
	if id, ok := c.ids[s]; ok {
		return float64(id)
	}
	return math.NaN()
}

// DecodeString returns the string behind id. NaN and unknown ids yield "".
func (c *Codec) DecodeString(id float64) string {
	if math.IsNaN(id) || math.IsInf(id, 0) {
		return ""
	}
	i := math.Round(id)
	if i < 0 || i >= float64(len(c.values)) {
		return ""
	}
	return c.values[int(i)]
}

// Freeze stops the vocabulary from growing.
func (c *Codec) Freeze() {
	c.frozen = true
}

// Frozen reports whether Freeze has been called.
func (c *Codec) Frozen() bool {
	return c.frozen
}

// Len returns the number of strings in the vocabulary.
func (c *Codec) Len() int {
	return len(c.values)
}

// Strings returns a copy of the vocabulary in id order.
func (c *Codec) Strings() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}
