package card

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck_HasAllUniqueCards(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		d := NewDeck(NewRand(seed))
		require.Equal(t, DeckSize, d.Remaining())

		seen := make(map[Card]bool, DeckSize)
		for i := 0; i < DeckSize; i++ {
			c, err := d.Deal()
			require.NoError(t, err)
			require.True(t, c.Rank.Valid() && c.Suit.Valid(), "invalid card %v", c)
			require.False(t, seen[c], "card %s dealt twice", c)
			seen[c] = true
		}
		assert.Len(t, seen, DeckSize)

		_, err := d.Deal()
		assert.True(t, errors.Is(err, ErrEmptyDeck))
	}
}

func TestNewDeck_NilRandShuffles(t *testing.T) {
	d := NewDeck(nil)
	assert.Equal(t, DeckSize, d.Remaining())
}

func TestNewDeck_SameSeedSameOrder(t *testing.T) {
	a, b := NewDeck(NewRand(7)), NewDeck(NewRand(7))
	for a.Remaining() > 0 {
		ca, _ := a.Deal()
		cb, _ := b.Deal()
		require.Equal(t, ca, cb)
	}
}

func TestStackedDeck_DealsInOrder(t *testing.T) {
	d := NewStackedDeck(MustParse("K♠"), MustParse("2♥"))

	first, err := d.Deal()
	require.NoError(t, err)
	assert.Equal(t, New(King, Spades), first)

	second, err := d.Deal()
	require.NoError(t, err)
	assert.Equal(t, New(Two, Hearts), second)

	_, err = d.Deal()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestCompare_RankOrder(t *testing.T) {
	order := []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
	for i := range order {
		for j := range order {
			a := MustParse(order[i] + "♠")
			b := MustParse(order[j] + "♣")
			got := Compare(a, b)
			switch {
			case i > j:
				assert.Equal(t, Greater, got, "%s vs %s", a, b)
			case i < j:
				assert.Equal(t, Less, got, "%s vs %s", a, b)
			default:
				assert.Equal(t, Equal, got, "%s vs %s", a, b)
			}
		}
	}
}

func TestCompare_SuitNeverBreaksTies(t *testing.T) {
	for _, r := range Ranks() {
		for _, s1 := range Suits() {
			for _, s2 := range Suits() {
				assert.Equal(t, Equal, Compare(New(r, s1), New(r, s2)))
			}
		}
	}
}

func TestCompare_Transitive(t *testing.T) {
	ranks := Ranks()
	for _, a := range ranks {
		for _, b := range ranks {
			for _, c := range ranks {
				ca, cb, cc := New(a, Spades), New(b, Hearts), New(c, Clubs)
				if ca.Beats(cb) && cb.Beats(cc) {
					assert.True(t, ca.Beats(cc), "%s > %s > %s", ca, cb, cc)
				}
			}
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Card
	}{
		{"K♠", New(King, Spades)},
		{"10♥", New(Ten, Hearts)},
		{"ad", New(Ace, Diamonds)},
		{"Qc", New(Queen, Clubs)},
		{"2s", New(Two, Spades)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "1♠", "K", "Kx", "Z♠"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestCard_MarshalText(t *testing.T) {
	c := MustParse("10♦")
	rank, err := c.Rank.MarshalText()
	require.NoError(t, err)
	suit, err := c.Suit.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "10", string(rank))
	assert.Equal(t, "♦", string(suit))
	assert.Equal(t, "10♦", c.String())
}

func TestCard_JSON(t *testing.T) {
	data, err := json.Marshal(MustParse("Q♣"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank":"Q","suit":"♣"}`, string(data))

	var c Card
	require.NoError(t, json.Unmarshal(data, &c))
	assert.Equal(t, New(Queen, Clubs), c)

	assert.Error(t, json.Unmarshal([]byte(`{"rank":"X","suit":"♣"}`), &c))
}
