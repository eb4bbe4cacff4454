package datafactory

import (
	_ "embed"
	"math/rand/v2"
	"strings"
	"time"
)

//go:embed words.txt
var wordList string

// Word length bounds used by Text.
const (
	MinWordLength = 2
	MaxWordLength = 10
)

// Separator is appended after every word produced by Text.
const Separator = " "

const letters = "abcdefghijklmnopqrstuvwxyz"

var (
	dictionary = loadDictionary(wordList)

	surnames = []string{
		"Adams", "Baker", "Bernard", "Carter", "Clark", "Dubois", "Durand",
		"Evans", "Fournier", "Garcia", "Girard", "Harris", "Hughes", "Johnson",
		"Lambert", "Laurent", "Lefebvre", "Martin", "Mercier", "Miller",
		"Moreau", "Morel", "Nelson", "Parker", "Petit", "Phillips", "Richard",
		"Roux", "Simon", "Smith", "Thomas", "Turner", "Walker", "Wilson",
	}
	businessSuffixes = []string{
		"Associates", "Brothers", "Consulting", "Corporation", "Enterprises",
		"Group", "Holdings", "Industries", "Limited", "Partners", "Services",
		"Solutions", "Systems", "Trading", "Ventures",
	}
)

// loadDictionary indexes the embedded word list by word length.
func loadDictionary(raw string) map[int][]string {
	byLen := make(map[int][]string)
	for _, line := range strings.Split(raw, "\n") {
		w := strings.TrimSpace(line)
		if w == "" {
			continue
		}
		byLen[len(w)] = append(byLen[len(w)], w)
	}
	return byLen
}

// Factory produces pseudo-random values for test documents.
//
// A Factory is not safe for concurrent use.
type Factory struct {
	rnd *rand.Rand
}

// New returns a Factory backed by a freshly seeded generator.
func New() *Factory {
	return NewWithRand(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewWithRand returns a Factory drawing from rnd.
func NewWithRand(rnd *rand.Rand) *Factory {
	return &Factory{rnd: rnd}
}

// RandomWord returns a dictionary word whose length lies in [minLen, maxLen].
// When no dictionary word fits the bounds a word of random letters is built.
func (f *Factory) RandomWord(minLen, maxLen int) string {
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		minLen, maxLen = maxLen, minLen
		if minLen < 1 {
			minLen = 1
		}
	}

	total := 0
	for n := minLen; n <= maxLen; n++ {
		total += len(dictionary[n])
	}
	if total == 0 {
		return f.randomLetters(f.NumberBetween(minLen, maxLen))
	}

	pick := f.rnd.IntN(total)
	for n := minLen; n <= maxLen; n++ {
		words := dictionary[n]
		if pick < len(words) {
			return words[pick]
		}
		pick -= len(words)
	}
	return f.randomLetters(minLen)
}

func (f *Factory) randomLetters(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(letters[f.rnd.IntN(len(letters))])
	}
	return b.String()
}

// Text concatenates random words, each followed by Separator, until the
// result is at least minLength bytes long. At least one word is always
// produced.
func (f *Factory) Text(minLength int) string {
	var b strings.Builder
	for {
		b.WriteString(f.RandomWord(MinWordLength, MaxWordLength))
		b.WriteString(Separator)
		if b.Len() >= minLength {
			return b.String()
		}
	}
}

// NumberBetween returns a uniformly distributed integer in [lo, hi].
func (f *Factory) NumberBetween(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + int(f.rnd.Int64N(int64(hi)-int64(lo)+1))
}

// DateBetween returns a uniformly distributed instant in [from, to].
func (f *Factory) DateBetween(from, to time.Time) time.Time {
	if to.Before(from) {
		from, to = to, from
	}
	span := to.Sub(from)
	if span <= 0 {
		return from
	}
	return from.Add(time.Duration(f.rnd.Int64N(int64(span) + 1)))
}

// BusinessName returns a company name such as "Moreau Holdings".
func (f *Factory) BusinessName() string {
	return surnames[f.rnd.IntN(len(surnames))] + " " + businessSuffixes[f.rnd.IntN(len(businessSuffixes))]
}
