package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var ErrInvalidRules = errors.New("invalid rules")

// Stages is the ladder of deck sizes, one entry per difficulty stage.
var Stages = []int{12, 16, 20, 24, 28, 32, 36, 40}

var DefaultImages = []string{
	"/img/goalkeeper-glove-soccer-sport-free-vector.jpg",
	"/img/owngoal.png",
	"/img/red.png",
	"/img/yellow.png",
	"/img/sports-soccer.png",
	"/img/soccer.png",
}

type Rules struct {
	DeckSizes    []int
	CountdownSec int
	ShortDelay   time.Duration // mismatched cards stay face up this long
	LongDelay    time.Duration // win banner before the next stage
	Images       []string
}

func DefaultRules() Rules {
	return Rules{
		DeckSizes:    append([]int(nil), Stages...),
		CountdownSec: 30,
		ShortDelay:   time.Second,
		LongDelay:    7 * time.Second,
		Images:       append([]string(nil), DefaultImages...),
	}
}

// Validate rejects any configuration that could produce an unwinnable round.
func (r Rules) Validate() error {
	var err error
	if len(r.DeckSizes) == 0 {
		err = multierr.Append(err, errors.New("no stages configured"))
	}
	for i, size := range r.DeckSizes {
		if size < SelectionSize {
			err = multierr.Append(err, fmt.Errorf("stage %d: deck size %d is smaller than %d", i, size, SelectionSize))
		}
	}
	if r.CountdownSec <= 0 {
		err = multierr.Append(err, fmt.Errorf("countdown must be positive, got %d", r.CountdownSec))
	}
	if r.ShortDelay <= 0 {
		err = multierr.Append(err, fmt.Errorf("short delay must be positive, got %s", r.ShortDelay))
	}
	if r.LongDelay <= 0 {
		err = multierr.Append(err, fmt.Errorf("long delay must be positive, got %s", r.LongDelay))
	}
	if len(r.Images) == 0 {
		err = multierr.Append(err, errors.New("image catalog is empty"))
	}
	seen := make(map[string]bool, len(r.Images))
	for i, img := range r.Images {
		switch {
		case img == "":
			err = multierr.Append(err, fmt.Errorf("image %d: empty identifier", i))
		case seen[img]:
			err = multierr.Append(err, fmt.Errorf("image %d: duplicate identifier %q", i, img))
		}
		seen[img] = true
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	return nil
}

func (r Rules) MaxStage() int {
	return len(r.DeckSizes) - 1
}

func (r Rules) ClampStage(stage int) int {
	if stage < 0 {
		return 0
	}
	if last := r.MaxStage(); stage > last {
		return last
	}
	return stage
}

func (r Rules) DeckSize(stage int) int {
	if len(r.DeckSizes) == 0 {
		return 0
	}
	return r.DeckSizes[r.ClampStage(stage)]
}
