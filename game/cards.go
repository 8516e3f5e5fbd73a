package game

import "math/rand"

// Card is one face-down card of the final draw. Card i is dealt to the i-th survivor.
type Card struct {
	ID       int
	PlayerID int
	IsWinner bool
	Revealed bool
}

// DealFinalDraw creates one card per survivor with exactly one winning card.
// The winning slot is the first index of a shuffled index permutation.
func DealFinalDraw(rng *rand.Rand, survivors []int) []Card {
	n := len(survivors)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	winnerPos := order[0]

	cards := make([]Card, n)
	for i, playerID := range survivors {
		cards[i] = Card{
			ID:       i + 1,
			PlayerID: playerID,
			IsWinner: i == winnerPos,
		}
	}
	return cards
}

// WinningCards returns how many cards are flagged as the winner.
func WinningCards(cards []Card) int {
	n := 0
	for _, c := range cards {
		if c.IsWinner {
			n++
		}
	}
	return n
}

// AllRevealed returns true if every card has been revealed.
func AllRevealed(cards []Card) bool {
	for _, c := range cards {
		if !c.Revealed {
			return false
		}
	}
	return true
}
