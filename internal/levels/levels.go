package levels

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Flair text colors accepted by the community flair API.
const (
	TextDark  = "dark"
	TextLight = "light"
)

// Level is a named tier unlocked by cumulative score.
type Level struct {
	Rank            int    `json:"rank"`
	Name            string `json:"name"`
	Min             int64  `json:"min"`
	Max             int64  `json:"max"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	ExtraTime       int    `json:"extra_time"`
}

// Contains reports whether score falls in [Min, Max).
func (l Level) Contains(score int64) bool {
	return score >= l.Min && score < l.Max
}

// Table is an ordered list of levels by ascending Min.
type Table []Level

// Default is the level table used by the game.
var Default = Table{
	{Rank: 1, Name: "Riddle Rookie", Min: 0, Max: 100, BackgroundColor: "#E5EBEE", TextColor: TextDark},
	{Rank: 2, Name: "Emoji Explorer", Min: 100, Max: 250, BackgroundColor: "#FFD635", TextColor: TextDark},
	{Rank: 3, Name: "Puzzle Pal", Min: 250, Max: 500, BackgroundColor: "#FF8717", TextColor: TextDark, ExtraTime: 5},
	{Rank: 4, Name: "Clue Chaser", Min: 500, Max: 1000, BackgroundColor: "#0DD3BB", TextColor: TextDark, ExtraTime: 10},
	{Rank: 5, Name: "Riddle Wrangler", Min: 1000, Max: 2000, BackgroundColor: "#24A0ED", TextColor: TextLight, ExtraTime: 15},
	{Rank: 6, Name: "Emoji Sage", Min: 2000, Max: 4000, BackgroundColor: "#7193FF", TextColor: TextLight, ExtraTime: 20},
	{Rank: 7, Name: "Enigma Master", Min: 4000, Max: 8000, BackgroundColor: "#FF4500", TextColor: TextLight, ExtraTime: 25},
	{Rank: 8, Name: "Riddle Legend", Min: 8000, Max: math.MaxInt64, BackgroundColor: "#1A1A1B", TextColor: TextLight, ExtraTime: 30},
}

var (
	ErrEmptyTable = errors.New("level table is empty")
)

// Validate checks the table starts at zero, is contiguous and has unique,
// ascending ranks.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	if t[0].Min != 0 {
		return fmt.Errorf("first level %q must start at 0, got %d", t[0].Name, t[0].Min)
	}
	for i, l := range t {
		if l.Max <= l.Min {
			return fmt.Errorf("level %q has empty range [%d, %d)", l.Name, l.Min, l.Max)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if l.Min != prev.Max {
			return fmt.Errorf("level %q starts at %d, previous ends at %d", l.Name, l.Min, prev.Max)
		}
		if l.Rank <= prev.Rank {
			return fmt.Errorf("level %q rank %d is not above %d", l.Name, l.Rank, prev.Rank)
		}
	}
	return nil
}

// ByScore returns the level with the highest Min not above score. Scores past
// the last level stay on the last level; negative scores map to the first.
func (t Table) ByScore(score int64) Level {
	if len(t) == 0 {
		return Level{}
	}
	// first index whose Min is above score
	i := sort.Search(len(t), func(i int) bool { return t[i].Min > score })
	if i == 0 {
		return t[0]
	}
	return t[i-1]
}

// ByRank returns the level with the given rank.
func (t Table) ByRank(rank int) (Level, bool) {
	for _, l := range t {
		if l.Rank == rank {
			return l, true
		}
	}
	return Level{}, false
}

// ByScore looks score up in the Default table.
func ByScore(score int64) Level {
	return Default.ByScore(score)
}
