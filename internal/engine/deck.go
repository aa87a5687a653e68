package engine

import (
	"math/rand/v2"
)

// BuildDeck lays out a fresh deck for the given stage and reports the winning
// image. The winning image appears exactly three times; every other image in
// the catalog appears at most once, and leftover slots are empty cards.
func BuildDeck(rng *rand.Rand, rules Rules, stage int) ([]Card, string) {
	size := rules.DeckSize(stage)
	if size < SelectionSize || len(rules.Images) == 0 {
		return []Card{}, ""
	}

	winning := rules.Images[rng.IntN(len(rules.Images))]

	images := make([]string, 0, size)
	for range SelectionSize {
		images = append(images, winning)
	}

	// The winning image must not come back as an extra, otherwise a fourth
	// copy would make any three of them a valid match.
	for _, img := range rules.Images {
		if len(images) == size {
			break
		}
		if img == winning {
			continue
		}
		images = append(images, img)
	}

	for len(images) < size {
		images = append(images, "")
	}

	rng.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})

	deck := make([]Card, size)
	for i, img := range images {
		deck[i] = Card{ID: i, Image: img}
	}
	return deck, winning
}
