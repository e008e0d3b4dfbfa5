package progress

import (
	"edu_progress_backend/internal/model"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookJSONFormat(t *testing.T) {
	score := 85
	b := NewBook()
	b.put("physics", "chapter-2", &model.ChapterProgress{
		ChapterID:        "chapter-2",
		CurrentPage:      6,
		TotalPages:       20,
		CompletedQuizzes: map[int]bool{5: true},
		QuizScores:       map[int]int{5: 90},
		TestScore:        &score,
		LastAccessed:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	b.put("math", "chapter-1", &model.ChapterProgress{ChapterID: "chapter-1", CurrentPage: 1, TotalPages: 20})

	raw, err := b.MarshalJSON()
	require.NoError(t, err)

	// 键顺序与插入顺序一致
	assert.Less(t, strings.Index(string(raw), `"physics"`), strings.Index(string(raw), `"math"`))
	assert.Contains(t, string(raw), `"lastAccessed":"2026-01-02T03:04:05Z"`)
	assert.Contains(t, string(raw), `"completedQuizzes":{"5":true}`)

	var generic map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, float64(6), generic["physics"]["chapter-2"]["currentPage"])

	decoded := NewBook()
	require.NoError(t, decoded.UnmarshalJSON(raw))
	assert.Equal(t, []string{"physics", "math"}, decoded.subjectIDs())
	assert.Equal(t, 85, *decoded.get("physics", "chapter-2").TestScore)
	assert.NotNil(t, decoded.get("math", "chapter-1").QuizScores)
}

func TestBookUnmarshalFillsChapterID(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.UnmarshalJSON([]byte(`{"math":{"chapter-9":{"currentPage":3,"totalPages":20}}}`)))

	p := b.get("math", "chapter-9")
	require.NotNil(t, p)
	assert.Equal(t, "chapter-9", p.ChapterID)
	assert.Equal(t, 3, p.CurrentPage)
}

func TestBookUnmarshalRejectsNonObject(t *testing.T) {
	assert.Error(t, NewBook().UnmarshalJSON([]byte(`[1,2]`)))
	assert.NoError(t, NewBook().UnmarshalJSON([]byte(`null`)))
}

func TestBookPutReplacesUnreadableRecord(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.UnmarshalJSON([]byte(`{"math":{"chapter-1":{"totalPages":"x"},"chapter-2":{"currentPage":2}}}`)))
	assert.Equal(t, []string{"math/chapter-1"}, b.Skipped())
	assert.Nil(t, b.get("math", "chapter-1"))
	assert.Len(t, b.chapters("math"), 1)

	b.put("math", "chapter-1", &model.ChapterProgress{ChapterID: "chapter-1", CurrentPage: 5, TotalPages: 20})

	raw, err := b.MarshalJSON()
	require.NoError(t, err)
	decoded := NewBook()
	require.NoError(t, decoded.UnmarshalJSON(raw))
	assert.Empty(t, decoded.Skipped())
	assert.Equal(t, 5, decoded.get("math", "chapter-1").CurrentPage)

	var order []string
	for _, rec := range decoded.chapters("math") {
		order = append(order, rec.ChapterID)
	}
	assert.Equal(t, []string{"chapter-1", "chapter-2"}, order)
}
