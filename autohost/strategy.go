package autohost

import (
	"math/rand"
	"sort"
)

// PickFunc chooses one id among candidates, which is never empty and sorted ascending.
type PickFunc func(rng *rand.Rand, candidates []int) int

// Strategy decides which gift box to open and which card to pick.
type Strategy struct {
	Name     string
	PickBox  PickFunc
	PickCard PickFunc
}

// DefaultStrategy is used when the configured name is unknown.
const DefaultStrategy = "sequential"

var registry = make(map[string]Strategy)

// Register adds or overwrites a strategy. Nil pick functions fall back to the sequential choice.
func Register(s Strategy) {
	if s.PickBox == nil {
		s.PickBox = first
	}
	if s.PickCard == nil {
		s.PickCard = first
	}
	registry[s.Name] = s
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func first(_ *rand.Rand, candidates []int) int {
	return candidates[0]
}

func uniform(rng *rand.Rand, candidates []int) int {
	return candidates[rng.Intn(len(candidates))]
}

func init() {
	Register(Strategy{Name: "sequential", PickBox: first, PickCard: first})
	Register(Strategy{Name: "random", PickBox: uniform, PickCard: uniform})
}
