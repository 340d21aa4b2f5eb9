// Package texttools implements the text_tools service: Arabic normalization
// and dictionary-based spell checking.
package texttools

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/registry"
)

const (
	Name                = "text_tools"
	Folder              = "texttools"
	TaskArabicNormalize = "arabic_normalize"
	TaskSpellcheck      = "spellcheck_ar"
)

const (
	defaultMaxSuggestions = 3
	maxSuggestionsCap     = 10
	defaultMaxDistance    = 2
	maxDistanceCap        = 3
)

//go:embed data/words_ar.txt
var embeddedWords []byte

// Plugin is the text_tools service.
type Plugin struct {
	*registry.Base
	dictPath string
	logger   *observability.Logger

	mu   sync.RWMutex
	dict *Dictionary
}

// New creates the text_tools service. The dictionary is loaded by Load.
func New(cfg config.TextToolsConfig, logger *observability.Logger) *Plugin {
	if logger == nil {
		logger = observability.Nop()
	}
	p := &Plugin{
		Base: registry.NewBase(domain.ServiceMeta{
			Name:           Name,
			Folder:         Folder,
			Kind:           domain.KindService,
			Description:    "Arabic text utilities: orthographic normalization and dictionary-based spell checking.",
			ExamplePayload: `{"text": "ذهب الطالب الى المدرسه"}`,
		}),
		dictPath: cfg.DictionaryPath,
		logger:   logger.WithService(Name),
	}
	p.Handle(TaskArabicNormalize, p.arabicNormalize)
	p.Handle(TaskSpellcheck, p.spellcheck)
	return p
}

// Cacheable reports that every task depends only on its payload.
func (p *Plugin) Cacheable(task string) bool {
	return true
}

// Load builds the spelling dictionary from the embedded word list and the
// optional configured file.
func (p *Plugin) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dict != nil {
		return nil
	}

	dict := NewDictionary()
	if err := dict.Load(bytes.NewReader(embeddedWords)); err != nil {
		return domain.ConfigError("failed to load embedded dictionary", err)
	}

	if p.dictPath != "" {
		f, err := os.Open(p.dictPath)
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("failed to open dictionary %s", p.dictPath), err)
		}
		defer f.Close()
		if err := dict.Load(f); err != nil {
			return domain.ConfigError(fmt.Sprintf("failed to read dictionary %s", p.dictPath), err)
		}
	}

	p.dict = dict
	p.logger.Info().Int("words", dict.Len()).Str("extra", p.dictPath).Msg("dictionary loaded")
	return nil
}

func (p *Plugin) dictionary() (*Dictionary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.dict == nil {
		return nil, domain.UnavailableError("dictionary not loaded", nil)
	}
	return p.dict, nil
}

func requireText(payload domain.Payload) (string, error) {
	v, ok := payload["text"]
	if !ok || v == nil {
		return "", domain.ValidationError("text is required", nil)
	}
	text, ok := v.(string)
	if !ok {
		return "", domain.ValidationError("text must be a string", nil)
	}
	return text, nil
}

func (p *Plugin) arabicNormalize(ctx context.Context, payload domain.Payload) (any, error) {
	text, err := requireText(payload)
	if err != nil {
		return nil, err
	}

	def := DefaultNormalizeOptions()
	opts := NormalizeOptions{
		NFKC:                payload.Bool("nfkc", def.NFKC),
		RemoveDiacritics:    payload.Bool("remove_diacritics", def.RemoveDiacritics),
		RemoveTatweel:       payload.Bool("remove_tatweel", def.RemoveTatweel),
		NormalizeAlef:       payload.Bool("normalize_alef", def.NormalizeAlef),
		NormalizeYaa:        payload.Bool("normalize_yaa", def.NormalizeYaa),
		NormalizeTaaMarbuta: payload.Bool("normalize_taa_marbuta", def.NormalizeTaaMarbuta),
		NormalizeDigits:     payload.Bool("normalize_digits", def.NormalizeDigits),
		CollapseWhitespace:  payload.Bool("collapse_whitespace", def.CollapseWhitespace),
	}

	normalized := Normalize(text, opts)
	return map[string]any{
		"text":       text,
		"normalized": normalized,
		"changed":    normalized != text,
	}, nil
}

// Misspelling is a word missing from the dictionary.
type Misspelling struct {
	Word        string   `json:"word"`
	Offset      int      `json:"offset"`
	Suggestions []string `json:"suggestions"`
}

func (p *Plugin) spellcheck(ctx context.Context, payload domain.Payload) (any, error) {
	text, err := requireText(payload)
	if err != nil {
		return nil, err
	}
	dict, err := p.dictionary()
	if err != nil {
		return nil, err
	}

	limit := payload.Int("max_suggestions", defaultMaxSuggestions)
	if limit <= 0 {
		limit = defaultMaxSuggestions
	}
	limit = min(limit, maxSuggestionsCap)

	maxDist := payload.Int("max_distance", defaultMaxDistance)
	if maxDist <= 0 {
		maxDist = defaultMaxDistance
	}
	maxDist = min(maxDist, maxDistanceCap)

	runes := []rune(text)
	var corrected []rune
	last := 0
	checked := 0
	misspelled := []Misspelling{}

	for _, w := range Words(text) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if w.Length < minWordRunes {
			continue
		}
		checked++
		if dict.Contains(w.Text) {
			continue
		}

		suggestions := dict.Suggest(w.Text, maxDist, limit)
		misspelled = append(misspelled, Misspelling{Word: w.Text, Offset: w.Offset, Suggestions: suggestions})

		if len(suggestions) > 0 {
			corrected = append(corrected, runes[last:w.Offset]...)
			corrected = append(corrected, []rune(suggestions[0])...)
			last = w.Offset + w.Length
		}
	}
	corrected = append(corrected, runes[last:]...)

	return map[string]any{
		"text":          text,
		"corrected":     string(corrected),
		"checked_words": checked,
		"misspelled":    misspelled,
	}, nil
}
