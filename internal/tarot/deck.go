package tarot

// Card represents a tarot card with its two meanings
type Card struct {
	Name     string
	Upright  string
	Reversed string
}

// Orientation is the way a drawn card lies on the table
type Orientation int

const (
	Upright Orientation = iota
	Reversed
)

// Label returns the display string for the orientation
func (o Orientation) Label() string {
	if o == Reversed {
		return "Reversed"
	}
	return "Upright"
}

func (o Orientation) String() string {
	return o.Label()
}

// Meaning returns the meaning of the card for the given orientation
func (c Card) Meaning(o Orientation) string {
	if o == Reversed {
		return c.Reversed
	}
	return c.Upright
}

var defaultDeck = [...]Card{
	{Name: "Fool", Upright: "New beginnings", Reversed: "Recklessness"},
	{Name: "Magician", Upright: "Willpower", Reversed: "Manipulation"},
	{Name: "High Priestess", Upright: "Intuition", Reversed: "Secrets"},
	{Name: "Empress", Upright: "Creativity", Reversed: "Wastefulness"},
	{Name: "Emperor", Upright: "Stability", Reversed: "Control"},
}

// DefaultDeck returns a copy of the deck the bot reads from
func DefaultDeck() []Card {
	deck := make([]Card, len(defaultDeck))
	copy(deck, defaultDeck[:])
	return deck
}
