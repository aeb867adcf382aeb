// card/deck.go
package card

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyDeck is returned when dealing from a deck with no cards left.
var ErrEmptyDeck = errors.New("deck is empty")

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// Deck holds the cards still to be dealt. Deal takes from the end.
type Deck struct {
	cards []Card
}

// NewDeck builds a full deck and shuffles it with rng (Fisher-Yates).
// A nil rng uses the package-level source.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, DeckSize)}
	for _, s := range Suits() {
		for _, r := range Ranks() {
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}

	swap := func(i, j int) { d.cards[i], d.cards[j] = d.cards[j], d.cards[i] }
	if rng != nil {
		rng.Shuffle(len(d.cards), swap)
	} else {
		rand.Shuffle(len(d.cards), swap)
	}
	return d
}

// NewStackedDeck returns a deck that deals the given cards in order.
func NewStackedDeck(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	for i, c := range cards {
		d.cards[len(cards)-1-i] = c
	}
	return d
}

// Deal removes and returns the top card.
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	last := len(d.cards) - 1
	c := d.cards[last]
	d.cards = d.cards[:last]
	return c, nil
}

// Remaining returns how many cards are left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// NewRand returns a deterministic source for reproducible shuffles.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
