package survey

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAffirmativeToken is the upper-case token whose presence marks a
// pain flag as affirmative.
const DefaultAffirmativeToken = "SIM"

// DefaultNullTokens are the literal placeholders treated as "no value".
var DefaultNullTokens = []string{"nan", "none", "null", ""}

// DefaultSectorAliases maps known sector spellings to their canonical label.
// Keys are matched after folding (lower case, accents removed).
var DefaultSectorAliases = map[string]string{
	"laminação gdr": "Laminação",
	"laminacao gdr": "Laminação",
	"laminacao":     "Laminação",
}

// DefaultAcronyms are the words kept upper case in canonical labels, whatever
// case the respondent typed them in.
var DefaultAcronyms = []string{"GDR", "RH", "TI"}

// zero-width characters and BOM carry no meaning in survey cells
var invisibleReplacer = strings.NewReplacer(
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2060", "",
	"\ufeff", "",
)

// NormalizerConfig configures a Normalizer
type NormalizerConfig struct {
	AffirmativeToken string
	NullTokens       []string
	SectorAliases    map[string]string
	RegionAliases    map[string]string
	Acronyms         []string
	Language         language.Tag
}

// Normalizer canonicalizes free-text survey values. It holds no mutable state
// and is safe for concurrent use.
type Normalizer struct {
	affirmative string
	nulls       map[string]struct{}
	aliases     map[Role]map[string]string
	acronyms    map[string]string
	lang        language.Tag
}

// NewNormalizer builds a Normalizer, filling zero config fields with defaults.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.AffirmativeToken == "" {
		cfg.AffirmativeToken = DefaultAffirmativeToken
	}
	if cfg.NullTokens == nil {
		cfg.NullTokens = DefaultNullTokens
	}
	if cfg.SectorAliases == nil {
		cfg.SectorAliases = DefaultSectorAliases
	}
	if cfg.Acronyms == nil {
		cfg.Acronyms = DefaultAcronyms
	}
	if cfg.Language == language.Und {
		cfg.Language = language.BrazilianPortuguese
	}

	n := &Normalizer{
		affirmative: strings.ToUpper(Clean(cfg.AffirmativeToken)),
		nulls:       make(map[string]struct{}, len(cfg.NullTokens)+1),
		aliases: map[Role]map[string]string{
			RoleSector:       buildAliases(cfg.SectorAliases),
			RolePainLocation: buildAliases(cfg.RegionAliases),
		},
		acronyms: make(map[string]string, len(cfg.Acronyms)),
		lang:     cfg.Language,
	}
	for _, a := range cfg.Acronyms {
		if key := Fold(a); key != "" {
			n.acronyms[key] = strings.ToUpper(Clean(a))
		}
	}
	n.nulls[""] = struct{}{}
	for _, tok := range cfg.NullTokens {
		n.nulls[strings.ToLower(Clean(tok))] = struct{}{}
	}
	return n
}

// buildAliases folds alias keys and makes every canonical label map to itself,
// so a second normalization pass is a no-op.
func buildAliases(src map[string]string) map[string]string {
	out := make(map[string]string, len(src)*2)
	for k, v := range src {
		out[Fold(k)] = Clean(v)
	}
	for _, v := range src {
		key := Fold(v)
		if _, exists := out[key]; !exists {
			out[key] = Clean(v)
		}
	}
	return out
}

// Clean strips invisible characters, repairs UTF-8 read as Windows-1252,
// trims and collapses whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = repairMojibake(s)
	s = norm.NFC.String(s)
	s = invisibleReplacer.Replace(s)
	// Fields splits on every Unicode White_Space rune, NBSP included
	return strings.Join(strings.Fields(s), " ")
}

// repairMojibake reverses the common "LaminaÃ§Ã£o" artifact. The repair is
// kept only when the re-encoded bytes form valid UTF-8.
func repairMojibake(s string) string {
	if !strings.ContainsAny(s, "ÃÂ") {
		return s
	}
	b, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(b) || b == s {
		return s
	}
	return b
}

// Fold returns the comparison key of s: cleaned, lower-cased, accents removed.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(Clean(s)))
	if err != nil {
		return strings.ToLower(Clean(s))
	}
	return folded
}

// IsNull reports whether s is a null sentinel
func (n *Normalizer) IsNull(s string) bool {
	_, ok := n.nulls[strings.ToLower(Clean(s))]
	return ok
}

// Canonical maps a raw value of the given role to its canonical form. The
// boolean is false when the value is a null sentinel.
func (n *Normalizer) Canonical(role Role, s string) (string, bool) {
	v := Clean(s)
	if _, null := n.nulls[strings.ToLower(v)]; null {
		return "", false
	}
	if table := n.aliases[role]; len(table) > 0 {
		if alias, ok := table[Fold(v)]; ok {
			v = alias
		}
	}
	switch role {
	case RoleSector, RolePainLocation:
		v = n.title(v)
	}
	return v, true
}

// Affirmative reports whether a pain flag value contains the affirmative token.
func (n *Normalizer) Affirmative(s string) bool {
	v, ok := n.Canonical(RolePainFlag, s)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToUpper(v), n.affirmative)
}

// title capitalizes each word for display. Configured acronyms are written in
// upper case. The result depends only on the folded form of each word.
func (n *Normalizer) title(s string) string {
	caser := cases.Title(n.lang)
	words := strings.Split(s, " ")
	for i, w := range words {
		core := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if acronym, ok := n.acronyms[Fold(core)]; ok && core != "" {
			words[i] = strings.Replace(w, core, acronym, 1)
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
