// Package generator builds typing paragraphs from a word list.
package generator

import (
	"math/rand"
	"strings"
	"time"
	"unicode"
)

const (
	minSentenceWords = 6
	maxSentenceWords = 14
	commaPct         = 0.08
)

// Generator produces randomized typing paragraphs.
type Generator struct {
	rnd   *rand.Rand
	words []string
}

// New returns a Generator over words seeded with the current time.
func New(words []string) *Generator {
	return NewWithSeed(words, time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(words []string, seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), words: words}
}

// Paragraph returns about wordCount words split into capitalized sentences
// ending in periods, with occasional commas. It returns "" when the
// generator has no words.
func (g *Generator) Paragraph(wordCount int) string {
	if len(g.words) == 0 || wordCount <= 0 {
		return ""
	}
	var b strings.Builder
	remaining := wordCount
	for remaining > 0 {
		n := minSentenceWords + g.rnd.Intn(maxSentenceWords-minSentenceWords+1)
		if n > remaining || remaining-n < minSentenceWords {
			n = remaining
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(g.sentence(n))
		remaining -= n
	}
	return b.String()
}

func (g *Generator) sentence(n int) string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		word := g.words[g.rnd.Intn(len(g.words))]
		if i == 0 {
			word = capitalize(word)
		}
		if i > 0 && i < n-1 {
			word = applyComma(g.rnd, word)
		}
		words = append(words, word)
	}
	return strings.Join(words, " ") + "."
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyComma(rnd *rand.Rand, word string) string {
	if rnd.Float64() > commaPct {
		return word
	}
	return word + ","
}
