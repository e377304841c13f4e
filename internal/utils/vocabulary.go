package utils

import (
	"bufio"
	"os"
	"regexp"
	"sort"
	"strings"
)

// defaultVocabulary fixes terms machine translators commonly get wrong
var defaultVocabulary = map[string]string{
	"av actress":    "AV女优",
	"uncensored":    "无码",
	"creampie":      "中出",
	"married woman": "人妻",
}

type vocabularyEntry struct {
	pattern     *regexp.Regexp
	replacement string
}

// Vocabulary applies fixed term substitutions to translated text
type Vocabulary struct {
	entries []vocabularyEntry
}

// NewVocabulary builds a vocabulary from wrong→right pairs.
// Longer terms are applied first; ties are ordered lexically.
func NewVocabulary(terms map[string]string) *Vocabulary {
	all := make([]string, 0, len(terms))
	for k := range terms {
		if k != "" {
			all = append(all, k)
		}
	}
	sort.Strings(all)

	keys := make([]string, 0, len(all))
	seen := make(map[string]bool)
	for _, k := range all {
		lk := strings.ToLower(k)
		if seen[lk] {
			continue
		}
		seen[lk] = true
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	entries := make([]vocabularyEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, vocabularyEntry{
			pattern:     regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k)),
			replacement: terms[k],
		})
	}
	return &Vocabulary{entries: entries}
}

// DefaultVocabulary holds only the built-in terms
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(defaultVocabulary)
}

// LoadVocabulary loads wrong=right lines from a file on top of the built-in terms
func LoadVocabulary(path string) (*Vocabulary, error) {
	// If file doesn't exist, only the built-in terms apply
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultVocabulary(), nil
	}

	terms := make(map[string]string, len(defaultVocabulary))
	for k, v := range defaultVocabulary {
		terms[k] = v
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wrong, right, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(wrong) == "" {
			continue
		}
		terms[strings.ToLower(strings.TrimSpace(wrong))] = strings.TrimSpace(right)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewVocabulary(terms), nil
}

// Apply replaces every vocabulary term in text, case-insensitively
func (v *Vocabulary) Apply(text string) string {
	if v == nil {
		return text
	}
	for _, e := range v.entries {
		text = e.pattern.ReplaceAllLiteralString(text, e.replacement)
	}
	return text
}
