package texttools

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeOptions selects the Arabic normalization steps.
type NormalizeOptions struct {
	NFKC                bool
	RemoveDiacritics    bool
	RemoveTatweel       bool
	NormalizeAlef       bool
	NormalizeYaa        bool
	NormalizeTaaMarbuta bool
	NormalizeDigits     bool
	CollapseWhitespace  bool
}

// DefaultNormalizeOptions are the options used when a payload sets none.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		NFKC:               true,
		RemoveDiacritics:   true,
		RemoveTatweel:      true,
		NormalizeAlef:      true,
		NormalizeYaa:       true,
		CollapseWhitespace: true,
	}
}

// lookupOptions fold the orthographic variants that do not change a word.
var lookupOptions = NormalizeOptions{
	NFKC:             true,
	RemoveDiacritics: true,
	RemoveTatweel:    true,
	NormalizeAlef:    true,
	NormalizeYaa:     true,
}

const (
	tatweel     = 'ـ'
	alef        = 'ا'
	yaa         = 'ي'
	alefMaksura = 'ى'
	taaMarbuta  = 'ة'
	haa         = 'ه'
)

// Normalize applies opts to text. NFKC runs first so presentation forms and
// ligatures are folded before the letter-level rules.
func Normalize(text string, opts NormalizeOptions) string {
	if opts.NFKC {
		text = norm.NFKC.String(text)
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case opts.RemoveDiacritics && isDiacritic(r):
			continue
		case opts.RemoveTatweel && r == tatweel:
			continue
		case opts.NormalizeAlef && isAlefVariant(r):
			r = alef
		case opts.NormalizeYaa && r == alefMaksura:
			r = yaa
		case opts.NormalizeTaaMarbuta && r == taaMarbuta:
			r = haa
		case opts.NormalizeDigits && isArabicDigit(r):
			r = arabicDigitValue(r)
		}
		sb.WriteRune(r)
	}

	out := sb.String()
	if opts.CollapseWhitespace {
		out = strings.Join(strings.Fields(out), " ")
	}
	return out
}

func isDiacritic(r rune) bool {
	return (r >= 'ؐ' && r <= 'ؚ') ||
		(r >= 'ً' && r <= 'ٟ') ||
		r == 'ٰ' ||
		(r >= 'ۖ' && r <= 'ۭ')
}

func isAlefVariant(r rune) bool {
	switch r {
	case 'آ', 'أ', 'إ', 'ٱ':
		return true
	}
	return false
}

func isArabicDigit(r rune) bool {
	return (r >= '٠' && r <= '٩') || (r >= '۰' && r <= '۹')
}

func arabicDigitValue(r rune) rune {
	if r >= '۰' {
		return '0' + (r - '۰')
	}
	return '0' + (r - '٠')
}

// isWordRune reports whether r belongs to an Arabic word. Letters must be in
// the Arabic script; harakat and tatweel sit in the Inherited and Common
// scripts, so marks only count once a word has started.
func isWordRune(r rune, inWord bool) bool {
	if unicode.Is(unicode.Arabic, r) && unicode.IsLetter(r) {
		return true
	}
	if !inWord {
		return false
	}
	return isDiacritic(r) || r == tatweel || unicode.Is(unicode.Mn, r)
}
