package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"golang.org/x/text/width"
)

var identifierRegex = regexp.MustCompile(`^[A-Z0-9]+(-[A-Z0-9]+)+$`)

// NormalizeIdentifier folds full-width characters, trims and upper-cases raw.
// Returns ErrInvalidIdentifier when the result is not a PREFIX-NUMBER code.
func NormalizeIdentifier(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(width.Fold.String(raw)))
	id = strings.ReplaceAll(id, "_", "-")
	if !identifierRegex.MatchString(id) {
		return "", fmt.Errorf("%q: %w", raw, models.ErrInvalidIdentifier)
	}
	return id, nil
}

// NormalizeSourceTitle makes sure a source title starts with the identifier.
// A title already carrying it (any case) is returned trimmed but otherwise unchanged.
func NormalizeSourceTitle(identifier, raw string) string {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	title := strings.TrimSpace(raw)
	if title == "" {
		return id
	}
	if startsWithCode(title, id) {
		return title
	}
	return id + " " + title
}

// startsWithCode reports whether title opens with the whole code id, so
// ABC-12 does not claim a title that starts with ABC-123.
func startsWithCode(title, id string) bool {
	if !strings.HasPrefix(strings.ToUpper(title), id) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(title[len(id):])
	return next == utf8.RuneError || !(unicode.IsLetter(next) || unicode.IsDigit(next))
}
