package emojiriddle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Cat", "cat"},
		{"  the   LION king ", "the lion king"},
		{"STRASSE", "strasse"},
		{"", ""},
		{" \t ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestValidateRiddle(t *testing.T) {
	valid := []string{
		"🐱",
		"🐱 + 🎩",
		"🦁👑",
		"👨‍👩‍👧 = 🏠",
		"👍🏽 - 👎",
		"🇫🇷 + 🥖",
		"1️⃣ + ❤️",
	}
	for _, r := range valid {
		assert.NoError(t, validateRiddle(r), "riddle %q", r)
	}

	invalid := []string{
		"",
		"+ 🐱",
		"🐱 +",
		"🐱 + + 🎩",
		"🐱 += 🎩",
		"cat 🐱",
		"🐱 * 🎩",
		"+",
		"   ",
		strings.Repeat("🐱", maxRiddleLength+1),
	}
	for _, r := range invalid {
		assert.Error(t, validateRiddle(r), "riddle %q", r)
	}
}

func TestValidateSubmission(t *testing.T) {
	categories := []string{"Movie", "Animal", "Averyveryverylongcategoryname"}
	ok := RiddleForm{Category: "Movie", Riddle: "🦈 + 🌊", Answer: "Jaws"}
	require.NoError(t, ValidateSubmission(ok, categories, fakeFilter{}))

	tests := []struct {
		name string
		form RiddleForm
		msg  string
	}{
		{"unknown category", RiddleForm{Category: "Book", Riddle: "🦈", Answer: "Jaws"}, "Riddle category not allowed"},
		{"long category", RiddleForm{Category: "Averyveryverylongcategoryname", Riddle: "🦈", Answer: "Jaws"}, "Your riddle category is too long!"},
		{"bad riddle", RiddleForm{Category: "Movie", Riddle: "shark", Answer: "Jaws"}, "Your riddle is invalid! Only emojis, spaces and + - = are allowed"},
		{"empty answer", RiddleForm{Category: "Movie", Riddle: "🦈", Answer: "   "}, "Answer is required"},
		{"long answer", RiddleForm{Category: "Movie", Riddle: "🦈", Answer: strings.Repeat("a", maxAnswerLength+1)}, "Your answer is too long!"},
		{"filtered answer", RiddleForm{Category: "Movie", Riddle: "🦈", Answer: "BadWord"}, "Your response contains inappropriate language."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubmission(tt.form, categories, fakeFilter{})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Message)
		})
	}
}

func TestValidateSubmissionRejectsEmojiCategory(t *testing.T) {
	err := ValidateSubmission(RiddleForm{Category: "Movie 🎬", Riddle: "🦈", Answer: "Jaws"}, []string{"Movie 🎬"}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Your riddle category is invalid!", verr.Message)
}
