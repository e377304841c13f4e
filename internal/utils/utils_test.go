package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"abc-123", "ABC-123", false},
		{"  ssis-001 ", "SSIS-001", false},
		{"ＡＢＣ－１２３", "ABC-123", false},
		{"fc2-ppv-1234567", "FC2-PPV-1234567", false},
		{"abc_123", "ABC-123", false},
		{"abc123", "", true},
		{"", "", true},
		{"abc-123/../x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeIdentifier(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSourceTitle(t *testing.T) {
	assert.Equal(t, "ABC-123 Some title", NormalizeSourceTitle("abc-123", "Some title"))
	assert.Equal(t, "abc-123 already prefixed", NormalizeSourceTitle("ABC-123", "  abc-123 already prefixed "))
	assert.Equal(t, "ABC-123", NormalizeSourceTitle("abc-123", "   "))
	assert.Equal(t, "ABC-123【中字】", NormalizeSourceTitle("ABC-123", "ABC-123【中字】"))

	// a longer code sharing the prefix is not the same identifier
	assert.Equal(t, "ABC-12 ABC-123 another video", NormalizeSourceTitle("ABC-12", "ABC-123 another video"))
	assert.Equal(t, "ABC-12 abc-12A variant", NormalizeSourceTitle("abc-12", "abc-12A variant"))

	// applying twice changes nothing
	once := NormalizeSourceTitle("ABC-123", "Title")
	assert.Equal(t, once, NormalizeSourceTitle("ABC-123", once))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"chinese minutes", "98分钟", 5880},
		{"integer seconds", 5880, 5880},
		{"float seconds", 5880.4, 5880},
		{"unparseable", "n/a", 0},
		{"nil", nil, 0},
		{"negative int", -5, 0},
		{"negative string", "-3 min", 0},
		{"bare minutes", "120", 7200},
		{"combined units", "1h 38min", 5880},
		{"chinese combined", "1小时38分", 5880},
		{"seconds suffix", "90s", 90},
		{"clock hms", "01:38:00", 5880},
		{"clock ms", "98:00", 5880},
		{"iso", "PT1H38M", 5880},
		{"empty", "", 0},
		{"unsupported type", []string{"1"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.in))
		})
	}
}

func TestReleaseDate(t *testing.T) {
	assert.True(t, IsValidReleaseDate("2023-01-15"))
	assert.False(t, IsValidReleaseDate("15/01/2023"))
	assert.Equal(t, "2023-01-15", NormalizeReleaseDate("2023/01/15"))
	assert.Equal(t, "2023-01-15", NormalizeReleaseDate("2023.01.15"))
	assert.Equal(t, "unknown", NormalizeReleaseDate(" unknown "))
}

func TestVocabularyApply(t *testing.T) {
	v := NewVocabulary(map[string]string{
		"Tokyo":     "东京",
		"Tokyo Hot": "东京热",
	})

	// longest term first
	assert.Equal(t, "东京热 和 东京", v.Apply("tokyo hot 和 TOKYO"))

	var nilVocab *Vocabulary
	assert.Equal(t, "unchanged", nilVocab.Apply("unchanged"))
}

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.txt")
	content := "# comment\nfoo=bar\nbroken line\n  Creampie = 内射 \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, "bar", v.Apply("FOO"))
	assert.Equal(t, "内射", v.Apply("creampie"))

	missing, err := LoadVocabulary(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Equal(t, "无码", missing.Apply("Uncensored"))
}
