package emojiriddle

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
)

const (
	maxCategoryLength = 20
	maxAnswerLength   = 64
	maxRiddleLength   = 200
)

// ValidationError is a user-facing rejection. Nothing is stored when one is
// returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// ContentFilter screens free text written by players.
type ContentFilter interface {
	FilterContent(text string) (bool, string)
	GetRejectionMessage(reason string) string
}

// Normalize returns the canonical comparable form of a guess or answer:
// trimmed, inner whitespace collapsed and Unicode case folded.
func Normalize(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// emojiRanges covers the code points that start an emoji presentation
// sequence. Keycaps and text-style symbols followed by U+FE0F are handled in
// isEmojiCluster.
var emojiRanges = &unicode.RangeTable{
	LatinOffset: 2,
	R16: []unicode.Range16{
		{Lo: 0x00a9, Hi: 0x00a9, Stride: 1},
		{Lo: 0x00ae, Hi: 0x00ae, Stride: 1},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x21aa, Stride: 1},
		{Lo: 0x231a, Hi: 0x23ff, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x25fe, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b05, Hi: 0x2b55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 2},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

const (
	variationSelector16 = '\uFE0F'
	combiningKeycap     = '\u20E3'
)

// isEmojiCluster reports whether one grapheme cluster renders as an emoji.
// ZWJ sequences, skin tones and flags arrive here as a single cluster.
func isEmojiCluster(cluster string) bool {
	r, _ := utf8.DecodeRuneInString(cluster)
	if unicode.Is(emojiRanges, r) {
		return true
	}
	return strings.ContainsRune(cluster, variationSelector16) || strings.ContainsRune(cluster, combiningKeycap)
}

func containsEmoji(s string) bool {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		if isEmojiCluster(g.Str()) {
			return true
		}
	}
	return false
}

func isSeparator(cluster string) bool {
	return cluster == "+" || cluster == "-" || cluster == "="
}

// validateRiddle accepts emoji graphemes separated by whitespace and the
// operators + - =. Operators must sit between emojis: never first, last or
// twice in a row.
func validateRiddle(riddle string) error {
	if riddle == "" {
		return invalid("Riddle is required")
	}
	if uniseg.GraphemeClusterCount(riddle) > maxRiddleLength {
		return invalid("Your riddle is too long!")
	}

	emojis := 0
	lastWasSeparator := true // nothing before the first token
	g := uniseg.NewGraphemes(riddle)
	for g.Next() {
		cluster := g.Str()
		switch {
		case strings.TrimSpace(cluster) == "":
			continue
		case isSeparator(cluster):
			if lastWasSeparator {
				return invalid("Your riddle is invalid! Operators must sit between emojis")
			}
			lastWasSeparator = true
		case isEmojiCluster(cluster):
			emojis++
			lastWasSeparator = false
		default:
			return invalid("Your riddle is invalid! Only emojis, spaces and + - = are allowed")
		}
	}
	if emojis == 0 {
		return invalid("Your riddle needs at least one emoji")
	}
	if lastWasSeparator {
		return invalid("Your riddle is invalid! Operators must sit between emojis")
	}
	return nil
}

// ValidateSubmission checks a riddle form against the installation's allowed
// categories. filter may be nil.
func ValidateSubmission(form RiddleForm, categories []string, filter ContentFilter) error {
	category := strings.TrimSpace(form.Category)
	if !contains(categories, category) {
		return invalid("Riddle category not allowed")
	}
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return invalid("Your riddle category is too long!")
	}
	if containsEmoji(category) {
		return invalid("Your riddle category is invalid!")
	}

	if err := validateRiddle(strings.TrimSpace(form.Riddle)); err != nil {
		return err
	}

	answer := Normalize(form.Answer)
	if answer == "" {
		return invalid("Answer is required")
	}
	if utf8.RuneCountInString(answer) > maxAnswerLength {
		return invalid("Your answer is too long!")
	}
	if filter != nil {
		if ok, reason := filter.FilterContent(form.Answer); !ok {
			return invalid(filter.GetRejectionMessage(reason))
		}
	}
	return nil
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
