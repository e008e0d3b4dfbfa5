package progress

import (
	"bytes"
	"edu_progress_backend/internal/model"
	"encoding/json"
	"fmt"
)

// Book 一个学习者的全部进度：subjectId -> chapterId -> ChapterProgress。
// 学科和章节都保留插入顺序，序列化后再加载顺序不变。
// 无法解析的学科或章节按原样保留，下次写回时原文输出。
type Book struct {
	order    []string
	subjects map[string]*subjectBook
	raw      map[string]json.RawMessage
	skipped  []string
}

type subjectBook struct {
	order    []string
	chapters map[string]*model.ChapterProgress
	raw      map[string]json.RawMessage
}

func NewBook() *Book {
	return &Book{
		subjects: make(map[string]*subjectBook),
		raw:      make(map[string]json.RawMessage),
	}
}

func newSubjectBook() *subjectBook {
	return &subjectBook{
		chapters: make(map[string]*model.ChapterProgress),
		raw:      make(map[string]json.RawMessage),
	}
}

func (b *Book) get(subjectID, chapterID string) *model.ChapterProgress {
	sb, ok := b.subjects[subjectID]
	if !ok {
		return nil
	}
	return sb.chapters[chapterID]
}

// put 写入记录。同名的未解析原文被新记录取代
func (b *Book) put(subjectID, chapterID string, p *model.ChapterProgress) {
	sb, ok := b.subjects[subjectID]
	if !ok {
		sb = newSubjectBook()
		b.subjects[subjectID] = sb
		if _, wasRaw := b.raw[subjectID]; wasRaw {
			delete(b.raw, subjectID)
		} else {
			b.order = append(b.order, subjectID)
		}
	}
	_, exists := sb.chapters[chapterID]
	_, wasRaw := sb.raw[chapterID]
	if !exists && !wasRaw {
		sb.order = append(sb.order, chapterID)
	}
	delete(sb.raw, chapterID)
	sb.chapters[chapterID] = p
}

// chapters 按插入顺序返回某学科下可读的记录
func (b *Book) chapters(subjectID string) []*model.ChapterProgress {
	sb, ok := b.subjects[subjectID]
	if !ok {
		return nil
	}
	out := make([]*model.ChapterProgress, 0, len(sb.order))
	for _, id := range sb.order {
		if rec, ok := sb.chapters[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// subjectIDs 按插入顺序返回可读的学科
func (b *Book) subjectIDs() []string {
	out := make([]string, 0, len(b.order))
	for _, id := range b.order {
		if _, ok := b.subjects[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Skipped 上次加载时未能解析的条目，形如 "math" 或 "math/chapter-1"
func (b *Book) Skipped() []string {
	return b.skipped
}

func (b *Book) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, subjectID := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, subjectID); err != nil {
			return nil, err
		}

		sb, ok := b.subjects[subjectID]
		if !ok {
			buf.Write(b.raw[subjectID])
			continue
		}
		buf.WriteByte('{')
		for j, chapterID := range sb.order {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, chapterID); err != nil {
				return nil, err
			}
			if raw, ok := sb.raw[chapterID]; ok {
				buf.Write(raw)
				continue
			}
			raw, err := json.Marshal(sb.chapters[chapterID])
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 整体不是 JSON 对象时返回错误；
// 单个学科或章节解析失败只跳过该条目，并保留原文。
func (b *Book) UnmarshalJSON(data []byte) error {
	fresh := NewBook()

	err := decodeObject(data, func(subjectID string, raw json.RawMessage) error {
		sb, skipped, err := decodeSubject(subjectID, raw)
		if err != nil {
			fresh.order = append(fresh.order, subjectID)
			fresh.raw[subjectID] = append(json.RawMessage(nil), raw...)
			fresh.skipped = append(fresh.skipped, subjectID)
			return nil
		}
		fresh.order = append(fresh.order, subjectID)
		fresh.subjects[subjectID] = sb
		fresh.skipped = append(fresh.skipped, skipped...)
		return nil
	})
	if err != nil {
		return err
	}

	*b = *fresh
	return nil
}

func decodeSubject(subjectID string, data json.RawMessage) (*subjectBook, []string, error) {
	sb := newSubjectBook()
	var skipped []string

	err := decodeObject(data, func(chapterID string, rec json.RawMessage) error {
		sb.order = append(sb.order, chapterID)

		var p model.ChapterProgress
		if err := json.Unmarshal(rec, &p); err != nil {
			sb.raw[chapterID] = append(json.RawMessage(nil), rec...)
			skipped = append(skipped, subjectID+"/"+chapterID)
			return nil
		}
		if p.ChapterID == "" {
			p.ChapterID = chapterID
		}
		if p.CompletedQuizzes == nil {
			p.CompletedQuizzes = map[int]bool{}
		}
		if p.QuizScores == nil {
			p.QuizScores = map[int]int{}
		}
		sb.chapters[chapterID] = &p
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subject %s: %w", subjectID, err)
	}
	return sb, skipped, nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte(':')
	return nil
}

// decodeObject 按出现顺序遍历 JSON 对象的键值，null 视为空对象
func decodeObject(data []byte, fn func(key string, value json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}
