// card/card.go
package card

import (
	"fmt"
	"strings"
)

// Rank 牌面点数。数值越大牌越大：A 最小，K 最大
type Rank uint8

const (
	Ace Rank = iota
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// Suit 花色，不参与比较
type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var (
	rankNames = [...]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
	suitNames = [...]string{"♠", "♥", "♦", "♣"}
)

// Ranks lists every rank from lowest to highest.
func Ranks() []Rank {
	out := make([]Rank, 0, len(rankNames))
	for r := Ace; r <= King; r++ {
		out = append(out, r)
	}
	return out
}

// Suits lists the four suits.
func Suits() []Suit {
	return []Suit{Spades, Hearts, Diamonds, Clubs}
}

func (r Rank) Valid() bool { return r <= King }

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return rankNames[r]
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	for i, name := range rankNames {
		if strings.EqualFold(string(b), name) {
			*r = Rank(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", b)
}

func (s Suit) Valid() bool { return s <= Clubs }

func (s Suit) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Suit(%d)", uint8(s))
	}
	return suitNames[s]
}

func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	parsed, err := parseSuit(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Card 是不可变的值类型
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func New(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Ordering is the result of comparing two cards.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Compare orders two cards by rank only.
func Compare(a, b Card) Ordering {
	switch {
	case a.Rank > b.Rank:
		return Greater
	case a.Rank < b.Rank:
		return Less
	default:
		return Equal
	}
}

// Beats reports whether c outranks other.
func (c Card) Beats(other Card) bool {
	return Compare(c, other) == Greater
}

// Parse reads a card written as rank followed by suit, e.g. "10♥" or "Ks".
// Suits may be given as symbols or as one of the letters s, h, d, c.
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Card{}, fmt.Errorf("parse card: empty string")
	}

	for r := King; ; r-- {
		name := rankNames[r]
		if strings.HasPrefix(strings.ToUpper(s), name) {
			suit, err := parseSuit(s[len(name):])
			if err != nil {
				return Card{}, fmt.Errorf("parse card %q: %w", s, err)
			}
			return Card{Rank: r, Suit: suit}, nil
		}
		if r == Ace {
			break
		}
	}
	return Card{}, fmt.Errorf("parse card %q: unknown rank", s)
}

// MustParse is Parse for tests and fixtures; it panics on bad input.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseSuit(s string) (Suit, error) {
	switch strings.ToLower(s) {
	case "♠", "s":
		return Spades, nil
	case "♥", "h":
		return Hearts, nil
	case "♦", "d":
		return Diamonds, nil
	case "♣", "c":
		return Clubs, nil
	}
	return 0, fmt.Errorf("unknown suit %q", s)
}
