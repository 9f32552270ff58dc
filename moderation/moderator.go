// Package moderation censors blacklisted words in chat content before it is
// broadcast. Matching is resilient to leet speak and punctuation noise.
package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over a normalized version
// of the provided word list.
func NewModerator(log *slog.Logger, censoredWords []string, censoredChar rune) (*Moderator, error) {
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// Sanitize censors forbidden patterns in the content and returns the matched
// words. The detected language is logged alongside any match.
func (m *Moderator) Sanitize(content string) (string, []string) {
	sanitized, found := m.censor(content)
	if len(found) > 0 {
		info := whatlanggo.Detect(content)
		m.log.Warn("censored words detected",
			"lang", info.Lang.Iso6391(),
			"count", len(found))
	}
	return sanitized, found
}

// censor replaces every matched span with censoredChar while preserving the
// original spacing and punctuation.
func (m *Moderator) censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)

		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		origStart := mapping.origIdx[normStart]
		lastCharOrigIdx := mapping.origIdx[normEnd-1]
		origEnd := lastCharOrigIdx + 1

		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
	}

	return string(origRunes), found
}

// normalize lowercases, strips noise and undoes leet speak, keeping a map
// back to the original rune positions.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
