// Package challenge holds the texts shown when a gift box is opened in the second phase.
// The text is decorative: the pass/fail outcome is always decided by the host.
package challenge

import (
	"math/rand"

	"chosen-one-server/game"
)

// DefaultTexts is the built-in catalog used when no texts are configured.
var DefaultTexts = []string{
	"Wearing glasses... you're out!",
	"Wearing white shoes... you're out!",
	"Phone battery below 50%... you're out!",
	"Whoever opens the box... is out!",
	"Wearing a watch... you're out!",
	"Lucky you! You're safe",
	"Wearing gold jewelry... you're out!",
	"Wearing something red... you're out!",
}

// Catalog holds challenge texts in registration order. Duplicates are ignored.
type Catalog struct {
	texts []string
	seen  map[string]struct{}
}

// Ensure *Catalog can feed the engine.
var _ game.ChallengeSource = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{seen: make(map[string]struct{})}
}

// FromTexts builds a catalog from texts, falling back to DefaultTexts when texts is empty.
func FromTexts(texts []string) *Catalog {
	c := NewCatalog()
	if len(texts) == 0 {
		texts = DefaultTexts
	}
	for _, t := range texts {
		c.Register(t)
	}
	if c.Len() == 0 {
		for _, t := range DefaultTexts {
			c.Register(t)
		}
	}
	return c
}

// Register adds a text to the catalog. Empty texts are skipped.
func (c *Catalog) Register(text string) {
	if text == "" {
		return
	}
	if _, exists := c.seen[text]; exists {
		return
	}
	c.seen[text] = struct{}{}
	c.texts = append(c.texts, text)
}

// All returns a copy of the texts in registration order.
func (c *Catalog) All() []string {
	out := make([]string, len(c.texts))
	copy(out, c.texts)
	return out
}

// Len returns the number of registered texts.
func (c *Catalog) Len() int {
	return len(c.texts)
}

// PickChallenge returns one text uniformly at random, or "" for an empty catalog.
// It satisfies the game.ChallengeSource interface.
func (c *Catalog) PickChallenge(rng *rand.Rand) string {
	if len(c.texts) == 0 {
		return ""
	}
	return c.texts[rng.Intn(len(c.texts))]
}
