package tarot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// ErrInsufficientDeckSize is matched by InsufficientDeckSizeError via errors.Is
var ErrInsufficientDeckSize = errors.New("insufficient deck size")

// InsufficientDeckSizeError is returned when more cards are requested than the deck holds
type InsufficientDeckSizeError struct {
	Requested int
	Available int
}

func (e *InsufficientDeckSizeError) Error() string {
	return fmt.Sprintf("requested %d cards, but the deck only has %d", e.Requested, e.Available)
}

func (e *InsufficientDeckSizeError) Is(target error) bool {
	return target == ErrInsufficientDeckSize
}

// InvalidCountError is returned for a non-positive draw count
type InvalidCountError struct {
	Requested int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("draw count must be positive, got %d", e.Requested)
}

// DrawnCard is a card as it came out of a single draw
type DrawnCard struct {
	Name        string
	Orientation Orientation
	Meaning     string
}

// Drawer draws cards from a fixed deck. It is safe for concurrent use.
type Drawer struct {
	deck []Card

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawer creates a drawer over a copy of deck. A nil src seeds a PCG source randomly.
func NewDrawer(deck []Card, src rand.Source) *Drawer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	d := make([]Card, len(deck))
	copy(d, deck)
	return &Drawer{
		deck: d,
		rng:  rand.New(src),
	}
}

// Size returns the number of cards in the deck
func (d *Drawer) Size() int {
	return len(d.deck)
}

// Draw picks count distinct cards uniformly at random and gives each an
// independent, equally likely orientation. Cards are returned in selection order.
func (d *Drawer) Draw(count int) ([]DrawnCard, error) {
	if count < 1 {
		return nil, &InvalidCountError{Requested: count}
	}
	if count > len(d.deck) {
		return nil, &InsufficientDeckSizeError{Requested: count, Available: len(d.deck)}
	}

	idx := make([]int, len(d.deck))
	for i := range idx {
		idx[i] = i
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Partial Fisher-Yates: the first count positions end up a uniform sample.
	drawn := make([]DrawnCard, 0, count)
	for i := 0; i < count; i++ {
		j := i + d.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]

		card := d.deck[idx[i]]
		orientation := Upright
		if d.rng.IntN(2) == 1 {
			orientation = Reversed
		}
		drawn = append(drawn, DrawnCard{
			Name:        card.Name,
			Orientation: orientation,
			Meaning:     card.Meaning(orientation),
		})
	}
	return drawn, nil
}

// FormatSpread renders one "- <name> (<orientation>): <meaning>" line per card
func FormatSpread(cards []DrawnCard) string {
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", c.Name, c.Orientation.Label(), c.Meaning))
	}
	return strings.Join(lines, "\n")
}
