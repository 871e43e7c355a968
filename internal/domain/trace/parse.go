// Package trace turns a raw composition-session submission into the typed
// event model, rejecting malformed, regressing or oversize traces.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/okian/inkcheck/internal/domain/model"
)

// Parse validates raw and builds a Session. It never reorders events: a
// timestamp that goes backwards rejects the whole trace. Unknown fields are
// ignored. The returned error is always a *Error on rejection.
func Parse(raw []byte, limits Limits) (*model.Session, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("", "invalid JSON: "+err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("", "unexpected data after the JSON object")
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, malformed("", "payload must be a JSON object")
	}

	// Size first so a pathological payload is never walked by the validator.
	if err := checkSize(root, limits.normalized()); err != nil {
		return nil, err
	}
	if err := validateShape(doc); err != nil {
		return nil, err
	}
	return buildSession(root)
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.MaxEvents <= 0 {
		l.MaxEvents = d.MaxEvents
	}
	if l.MaxTextChars <= 0 {
		l.MaxTextChars = d.MaxTextChars
	}
	return l
}

func checkSize(root map[string]any, limits Limits) error {
	if events, ok := root["events"].([]any); ok && len(events) > limits.MaxEvents {
		return &Error{
			Kind:   ErrOversizeTrace,
			Field:  "events",
			Reason: fmt.Sprintf("%d events exceeds the limit of %d", len(events), limits.MaxEvents),
		}
	}
	if text, ok := root["text"].(string); ok && len(text) > limits.MaxTextChars {
		// len is an upper bound on the rune count; only count when it matters.
		if n := utf8.RuneCountInString(text); n > limits.MaxTextChars {
			return &Error{
				Kind:   ErrOversizeTrace,
				Field:  "text",
				Reason: fmt.Sprintf("%d characters exceeds the limit of %d", n, limits.MaxTextChars),
			}
		}
	}
	return nil
}

func buildSession(root map[string]any) (*model.Session, error) {
	var (
		s   model.Session
		err error
	)
	s.SessionID, _ = root["session_id"].(string)
	s.FinalText, _ = root["text"].(string)
	if s.TotalChars, err = requiredInt(root, "total_chars", ""); err != nil {
		return nil, err
	}
	if s.TotalWords, err = requiredInt(root, "total_words", ""); err != nil {
		return nil, err
	}
	if s.StartTime, err = requiredInt(root, "startTime", ""); err != nil {
		return nil, err
	}
	if s.EndTime, err = requiredInt(root, "endTime", ""); err != nil {
		return nil, err
	}
	if s.DeclaredDurationSeconds, err = requiredInt(root, "duration_seconds", ""); err != nil {
		return nil, err
	}
	if s.EndTime < s.StartTime {
		return nil, &Error{
			Kind:   ErrTimestampRegression,
			Field:  "endTime",
			Reason: fmt.Sprintf("endTime %d precedes startTime %d", s.EndTime, s.StartTime),
		}
	}

	items, _ := root["events"].([]any)
	s.Events = make([]model.Event, 0, len(items))

	var (
		prevAt  int64
		lastKey int64
		seenKey bool
	)
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, malformed(fmt.Sprintf("events[%d]", i), "event must be an object")
		}
		path := fmt.Sprintf("events[%d]", i)
		at, err := requiredInt(m, "time", path)
		if err != nil {
			return nil, err
		}
		if i > 0 && at < prevAt {
			return nil, &Error{
				Kind:   ErrTimestampRegression,
				Field:  path + ".time",
				Reason: fmt.Sprintf("timestamp %d precedes the previous event timestamp %d", at, prevAt),
			}
		}
		prevAt = at

		kind, _ := m["type"].(string)
		switch model.Kind(kind) {
		case model.KindKey:
			key, _ := m["key"].(string)
			ev := model.KeyEvent{Key: key, At: at}
			if seenKey {
				ev.GapMillis = at - lastKey
				ev.GapKnown = true
			}
			seenKey = true
			lastKey = at
			s.Events = append(s.Events, ev)

		case model.KindPaste:
			length, err := requiredInt(m, "length", path)
			if err != nil {
				return nil, err
			}
			words, err := optionalInt(m, "words", path)
			if err != nil {
				return nil, err
			}
			s.Events = append(s.Events, model.PasteEvent{PastedLength: length, PastedWordCount: words, At: at})

		case model.KindEdit:
			delta, err := requiredInt(m, "delta", path)
			if err != nil {
				return nil, err
			}
			lengthKey := "length"
			if _, ok := m[lengthKey]; !ok {
				lengthKey = "totalLength"
			}
			length, err := requiredInt(m, lengthKey, path)
			if err != nil {
				return nil, err
			}
			words, err := optionalInt(m, "words", path)
			if err != nil {
				return nil, err
			}
			s.Events = append(s.Events, model.EditEvent{CurrentLength: length, Delta: delta, WordCount: words, At: at})

		case model.KindSuddenInsert, model.KindLargeInsert:
			length, err := requiredInt(m, "length", path)
			if err != nil {
				return nil, err
			}
			s.Events = append(s.Events, model.SuddenInsertEvent{InsertedLength: length, At: at, Source: model.Kind(kind)})

		default:
			return nil, malformed(path+".type", fmt.Sprintf("unrecognized event type %q", kind))
		}
	}
	return &s, nil
}

func requiredInt(m map[string]any, name, path string) (int64, error) {
	v, ok := m[name]
	if !ok {
		return 0, malformed(joinField(path, name), "missing required field")
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, malformed(joinField(path, name), err.Error())
	}
	return n, nil
}

func optionalInt(m map[string]any, name, path string) (int64, error) {
	if _, ok := m[name]; !ok {
		return 0, nil
	}
	return requiredInt(m, name, path)
}

func toInt64(v any) (int64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("expected an integer, got %s", num.String())
	}
	return int64(f), nil
}

func joinField(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
