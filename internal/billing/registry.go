package billing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/courierbill/internal/rates"
)

// Record holds the trimmed values of a courier's required columns for one row.
type Record map[string]string

// Courier describes how one courier's shipments are priced.
type Courier struct {
	// Key is the identifier used in upload paths, e.g. "franch".
	Key   string
	Label string

	// Columns lists the required columns. WeightColumn must be one of them.
	Columns      []string
	WeightColumn string

	Rates   rates.TableSpec
	Pricing rates.Pricing
	Round   func(float64) float64

	// Zone maps a row to the zone (or rate type) to price it in.
	Zone func(Record) (string, error)

	Messages Messages
}

var (
	registry   = make(map[string]Courier)
	registryMu sync.RWMutex
)

// Register adds a courier. It panics on a duplicate key or an incomplete
// definition, both of which are programming errors.
func Register(c Courier) {
	if c.Key == "" || c.Round == nil || c.Zone == nil || c.Rates.Name == "" {
		panic(fmt.Sprintf("billing: incomplete courier definition %q", c.Key))
	}
	if c.WeightColumn == "" {
		c.WeightColumn = "Weight"
	}
	if c.Label == "" {
		c.Label = c.Key
	}
	c.Messages = c.Messages.withDefaults()

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[c.Key]; exists {
		panic(fmt.Sprintf("billing: courier already registered: %s", c.Key))
	}
	registry[c.Key] = c
}

// Lookup returns the courier registered under key.
func Lookup(key string) (Courier, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[key]
	return c, ok
}

// Couriers returns every registered courier sorted by key.
func Couriers() []Courier {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Courier, 0, len(registry))
	for _, c := range registry {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// RateTables returns the table specs of all registered couriers.
func RateTables() []rates.TableSpec {
	couriers := Couriers()
	specs := make([]rates.TableSpec, len(couriers))
	for i, c := range couriers {
		specs[i] = c.Rates
	}
	return specs
}
