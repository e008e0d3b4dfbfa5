package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrdinal(t *testing.T) {
	testCases := []struct {
		id      string
		ordinal int
		ok      bool
	}{
		{"chapter-1", 1, true},
		{"chapter-10", 10, true},
		{"chapter-0", 0, false},
		{"chapter-", 0, false},
		{"chapter-x", 0, false},
		{"lesson-3", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			n, ok := ParseOrdinal(tc.id)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.ordinal, n)
		})
	}
}

func TestDefaultLayout(t *testing.T) {
	c := Default([]string{"math", "physics"}, 0)

	assert.Len(t, c.Subjects(), 2)
	assert.Len(t, c.Chapters("math"), DefaultChaptersPerSubject)

	ch, ok := c.Chapter("math", "chapter-6")
	require.True(t, ok)
	assert.Equal(t, 6, ch.Ordinal)
	assert.Equal(t, 2, ch.Semester)
	assert.Equal(t, DefaultTotalPages, ch.TotalPages)

	byOrd, ok := c.ChapterByOrdinal("physics", 5)
	require.True(t, ok)
	assert.Equal(t, "chapter-5", byOrd.ID)
	assert.Equal(t, 1, byOrd.Semester)

	_, ok = c.Chapter("history", "chapter-1")
	assert.False(t, ok)
	assert.Nil(t, c.Chapters("history"))
}

func TestLoadFile(t *testing.T) {
	content := `
subjects:
  - id: algebra
    title: Algebra
    chapters:
      - id: intro
        title: Introduction
        totalPages: 12
      - id: equations
        ordinal: 2
        semester: 2
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)

	intro, ok := c.Chapter("algebra", "intro")
	require.True(t, ok)
	assert.Equal(t, 1, intro.Ordinal)
	assert.Equal(t, 1, intro.Semester)
	assert.Equal(t, 12, intro.TotalPages)
	assert.Equal(t, "algebra", intro.SubjectID)

	eq, ok := c.ChapterByOrdinal("algebra", 2)
	require.True(t, ok)
	assert.Equal(t, "equations", eq.ID)
	assert.Equal(t, 2, eq.Semester)
	assert.Equal(t, DefaultTotalPages, eq.TotalPages)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
subjects:
  - id: a
    chapters:
      - {id: one, ordinal: 1}
      - {id: two, ordinal: 1}
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
subjects:
  - id: a
  - id: a
`))
	assert.Error(t, err)
}
