package texttools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	def := DefaultNormalizeOptions()

	tests := []struct {
		name string
		in   string
		opts NormalizeOptions
		want string
	}{
		{"diacritics", "مُحَمَّدٌ", def, "محمد"},
		{"tatweel", "العـــربية", def, "العربية"},
		{"alef variants", "أحمد إلى آخر ٱلله", def, "احمد الي اخر الله"},
		{"yaa", "على", def, "علي"},
		{"whitespace", "  في \t البيت \n", def, "في البيت"},
		{"presentation forms", "ﻻ", def, "لا"},
		{"taa marbuta off by default", "مدرسة", def, "مدرسة"},
		{"taa marbuta", "مدرسة", NormalizeOptions{NormalizeTaaMarbuta: true}, "مدرسه"},
		{"digits", "٢٠٢٥ و ۱۲", NormalizeOptions{NormalizeDigits: true}, "2025 و 12"},
		{"nothing enabled", "أَحمد  ـ", NormalizeOptions{}, "أَحمد  ـ"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in, tc.opts))
		})
	}
}

func TestWords(t *testing.T) {
	words := Words("قال: ذهبَ الولد، 42 hello كتاب")
	require.Len(t, words, 4)
	assert.Equal(t, "قال", words[0].Text)
	assert.Equal(t, 0, words[0].Offset)
	assert.Equal(t, "ذهبَ", words[1].Text)
	assert.Equal(t, 5, words[1].Offset)
	assert.Equal(t, "الولد", words[2].Text)
	assert.Equal(t, "كتاب", words[3].Text)
	assert.Equal(t, 26, words[3].Offset)
}

func TestWords_Vocalized(t *testing.T) {
	tests := []struct {
		in   string
		want []Word
	}{
		{"كِتَابٌ", []Word{{Text: "كِتَابٌ", Offset: 0, Length: 7}}},
		{"مُدَرِّسَةٌ جَمِيلَةٌ", []Word{{Text: "مُدَرِّسَةٌ", Offset: 0, Length: 11}, {Text: "جَمِيلَةٌ", Offset: 12, Length: 9}}},
		{"كتـــاب", []Word{{Text: "كتـــاب", Offset: 0, Length: 7}}},
		{"َ ب", []Word{{Text: "ب", Offset: 2, Length: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Words(tc.in))
		})
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"كتاب", "كتاب", 0},
		{"كتاب", "كتب", 1},
		{"مدرسه", "مدرسة", 1},
		{"كتاب", "كاتب", 1},
		{"abc", "acb", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, tc := range tests {
		t.Run(tc.a+"/"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, editDistance([]rune(tc.a), []rune(tc.b), 10))
		})
	}
	assert.Equal(t, 2, editDistance([]rune("abcdef"), []rune("uvwxyz"), 1), "bounded distance stops at bound+1")
}

func TestDictionary(t *testing.T) {
	d := NewDictionary()
	require.NoError(t, d.Load(strings.NewReader("# comment\n\nإلى 10\nالي 2\nكتاب\nكتب 5\n")))

	assert.Equal(t, 3, d.Len())
	assert.True(t, d.Contains("الى"))
	assert.True(t, d.Contains("والكتاب"), "attached particles are stripped")
	assert.True(t, d.Contains("كِتَاب"))
	assert.False(t, d.Contains("كتابة"))

	assert.Equal(t, []string{"كتاب", "كتب"}, d.Suggest("كتابب", 2, 5))
	assert.Equal(t, []string{"إلى"}, d.Suggest("ألي", 1, 5), "display form follows the most frequent spelling")

	err := d.Load(strings.NewReader("كلمة abc\n"))
	assert.Error(t, err)
}

func TestDictionary_SuggestKeepsParticle(t *testing.T) {
	d := NewDictionary()
	require.NoError(t, d.Load(strings.NewReader("مدرسة 5\nالمدرسة 4\n")))

	assert.Equal(t, []string{"والمدرسة", "المدرسة"}, d.Suggest("والمدرسه", 2, 3))
	assert.Equal(t, []string{"مدرسة"}, d.Suggest("مدرسه", 2, 3))
}

func newTestPlugin(t *testing.T, cfg config.TextToolsConfig) *registry.Registry {
	t.Helper()
	r := registry.New()
	r.MustRegister(New(cfg, nil))
	return r
}

func TestPlugin_Meta(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{})
	meta, err := r.Get(Name)
	require.NoError(t, err)
	assert.Equal(t, []string{TaskArabicNormalize, TaskSpellcheck}, meta.Tasks)
	assert.Equal(t, Folder, meta.Folder)
	assert.Empty(t, meta.Provider)
}

func TestPlugin_ArabicNormalize(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{})
	ctx := context.Background()

	res, err := r.Run(ctx, Name, TaskArabicNormalize, domain.Payload{"text": "  أَهْلاً   بِكُم  "})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	assert.Equal(t, "اهلا بكم", out["normalized"])
	assert.Equal(t, true, out["changed"])

	res, err = r.Run(ctx, Name, TaskArabicNormalize, domain.Payload{"text": "أهلا", "normalize_alef": false})
	require.NoError(t, err)
	out = res.Result.(map[string]any)
	assert.Equal(t, "أهلا", out["normalized"])
	assert.Equal(t, false, out["changed"])

	_, err = r.Run(ctx, Name, TaskArabicNormalize, domain.Payload{})
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))

	_, err = r.Run(ctx, Name, TaskArabicNormalize, domain.Payload{"text": 5})
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestPlugin_Spellcheck(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{})

	res, err := r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": "ذهب الطالب الى المدرسه"})
	require.NoError(t, err)

	out := res.Result.(map[string]any)
	assert.Equal(t, 4, out["checked_words"])
	misspelled := out["misspelled"].([]Misspelling)
	require.Len(t, misspelled, 1)
	assert.Equal(t, "المدرسه", misspelled[0].Word)
	assert.Equal(t, 15, misspelled[0].Offset)
	require.NotEmpty(t, misspelled[0].Suggestions)
	assert.Equal(t, "المدرسة", misspelled[0].Suggestions[0])
	assert.Equal(t, "ذهب الطالب الى المدرسة", out["corrected"])
}

func TestPlugin_SpellcheckVocalized(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{})

	text := "ذَهَبَ الطالب إلى المَدرسة"
	res, err := r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": text})
	require.NoError(t, err)

	out := res.Result.(map[string]any)
	assert.Equal(t, 4, out["checked_words"])
	assert.Empty(t, out["misspelled"])
	assert.Equal(t, text, out["corrected"])

	res, err = r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": "ذَهَبَ الى المَدرسه"})
	require.NoError(t, err)
	misspelled := res.Result.(map[string]any)["misspelled"].([]Misspelling)
	require.Len(t, misspelled, 1)
	assert.Equal(t, "المَدرسه", misspelled[0].Word)
	assert.Equal(t, 11, misspelled[0].Offset)
	assert.Equal(t, "المدرسة", misspelled[0].Suggestions[0])
}

func TestPlugin_SpellcheckLimits(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{})

	res, err := r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{
		"text":            "كتابب",
		"max_suggestions": float64(1),
		"max_distance":    float64(9),
	})
	require.NoError(t, err)
	misspelled := res.Result.(map[string]any)["misspelled"].([]Misspelling)
	require.Len(t, misspelled, 1)
	assert.Equal(t, []string{"كتاب"}, misspelled[0].Suggestions)

	res, err = r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": "hello 123"})
	require.NoError(t, err)
	out := res.Result.(map[string]any)
	assert.Equal(t, 0, out["checked_words"])
	assert.Empty(t, out["misspelled"])
	assert.Equal(t, "hello 123", out["corrected"])
}

func TestPlugin_CustomDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.txt")
	require.NoError(t, os.WriteFile(path, []byte("نيوروسيرف 5\n"), 0o644))

	r := newTestPlugin(t, config.TextToolsConfig{DictionaryPath: path})
	res, err := r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": "نيوروسيرف"})
	require.NoError(t, err)
	assert.Empty(t, res.Result.(map[string]any)["misspelled"])
}

func TestPlugin_MissingDictionaryFile(t *testing.T) {
	r := newTestPlugin(t, config.TextToolsConfig{DictionaryPath: filepath.Join(t.TempDir(), "missing.txt")})
	_, err := r.Run(context.Background(), Name, TaskSpellcheck, domain.Payload{"text": "كتاب"})
	assert.True(t, domain.IsType(err, domain.ErrorTypeUnavailable))
}
