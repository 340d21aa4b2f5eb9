package texttools

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Attached particles stripped before a second dictionary lookup, longest first.
var prefixes = []string{"وال", "بال", "كال", "فال", "لل", "ال", "و", "ب", "ل", "ف", "ك"}

const minWordRunes = 2

type dictEntry struct {
	word string
	freq int
}

// Dictionary maps normalized Arabic words to their display form and frequency.
type Dictionary struct {
	entries map[string]dictEntry
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]dictEntry)}
}

// Len returns the number of distinct normalized words.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Add records word with the given frequency. Frequencies of words that
// normalize to the same key are summed; the most frequent spelling is kept
// for display.
func (d *Dictionary) Add(word string, freq int) {
	word = strings.TrimSpace(word)
	if word == "" {
		return
	}
	if freq <= 0 {
		freq = 1
	}
	key := Normalize(word, lookupOptions)
	cur, ok := d.entries[key]
	if !ok {
		d.entries[key] = dictEntry{word: word, freq: freq}
		return
	}
	if freq > cur.freq {
		cur.word = word
	}
	cur.freq += freq
	d.entries[key] = cur
}

// Load reads "word [frequency]" lines. Blank lines and lines starting with
// '#' are skipped.
func (d *Dictionary) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		freq := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("line %d: invalid frequency %q", line, fields[1])
			}
			freq = n
		}
		d.Add(fields[0], freq)
	}
	return scanner.Err()
}

// Contains reports whether word, or word without a leading particle, is known.
func (d *Dictionary) Contains(word string) bool {
	key := Normalize(word, lookupOptions)
	if _, ok := d.entries[key]; ok {
		return true
	}
	for _, p := range prefixes {
		rest := strings.TrimPrefix(key, p)
		if rest == key || utf8.RuneCountInString(rest) < minWordRunes {
			continue
		}
		if _, ok := d.entries[rest]; ok {
			return true
		}
	}
	return false
}

type candidate struct {
	word string
	dist int
	freq int
}

// Suggest returns up to limit known words within maxDist edits of word,
// ordered by distance, then frequency, then lexically. A word starting with
// an attached particle is also matched by its stem, and the particle is put
// back on those suggestions; they are kept only when closer than every match
// of the whole word.
func (d *Dictionary) Suggest(word string, maxDist, limit int) []string {
	key := Normalize(word, lookupOptions)

	best := make(map[string]candidate)
	d.collect([]rune(key), "", maxDist, best)

	stemDist := maxDist
	for _, c := range best {
		stemDist = min(stemDist, c.dist-1)
	}
	for _, p := range prefixes {
		stem := strings.TrimPrefix(key, p)
		if stemDist < 0 || stem == key || utf8.RuneCountInString(stem) < minWordRunes {
			continue
		}
		d.collect([]rune(stem), p, stemDist, best)
	}

	cands := make([]candidate, 0, len(best))
	for _, c := range best {
		cands = append(cands, c)
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		if cands[i].freq != cands[j].freq {
			return cands[i].freq > cands[j].freq
		}
		return cands[i].word < cands[j].word
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.word
	}
	return out
}

// editDistance is the optimal string alignment variant of the
// Damerau-Levenshtein distance. It stops early and returns bound+1 once every
// cell of a row exceeds bound.
func editDistance(a, b []rune, bound int) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev2 := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			v := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				v = min(v, prev2[j-2]+1)
			}
			cur[j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > bound {
			return bound + 1
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// collect adds every entry within maxDist of key to best, prefixed with
// prefix, keeping the closest match per suggested word.
func (d *Dictionary) collect(key []rune, prefix string, maxDist int, best map[string]candidate) {
	for k, e := range d.entries {
		kr := []rune(k)
		if abs(len(kr)-len(key)) > maxDist {
			continue
		}
		dist := editDistance(key, kr, maxDist)
		if dist > maxDist {
			continue
		}
		w := prefix + e.word
		if cur, ok := best[w]; ok && (cur.dist < dist || (cur.dist == dist && cur.freq >= e.freq)) {
			continue
		}
		best[w] = candidate{word: w, dist: dist, freq: e.freq}
	}
}

// Word is an Arabic word found in a text. Offset counts runes.
type Word struct {
	Text   string
	Offset int
	Length int
}

// Words splits text into runs of Arabic letters and marks.
func Words(text string) []Word {
	var words []Word
	runes := []rune(text)
	start := -1
	for i, r := range runes {
		if isWordRune(r, start >= 0) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, Word{Text: string(runes[start:i]), Offset: start, Length: i - start})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, Word{Text: string(runes[start:]), Offset: start, Length: len(runes) - start})
	}
	return words
}
