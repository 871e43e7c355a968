// Package model contains domain models passed between layers.
package model

// Kind tags an Event variant. Values mirror the "type" field of the
// submission payload.
type Kind string

const (
	KindKey          Kind = "key"
	KindPaste        Kind = "paste"
	KindEdit         Kind = "edit"
	KindSuddenInsert Kind = "sudden_insert"
	KindLargeInsert  Kind = "large_insert"
)

// DefaultSuddenInsertChars is the edit delta above which an edit is treated
// as a non-keystroke insertion.
const DefaultSuddenInsertChars = 200

// Event is one observed behavioral event of a composition session.
// Implementations are value types and never mutated after parsing.
type Event interface {
	Kind() Kind
	// Timestamp is the producer clock in epoch milliseconds.
	Timestamp() int64
}

// KeyEvent is a single keydown.
type KeyEvent struct {
	Key string
	At  int64
	// GapMillis is the distance to the previous KeyEvent. Only meaningful
	// when GapKnown is set; the first keystroke of a session has no gap.
	GapMillis int64
	GapKnown  bool
}

func (e KeyEvent) Kind() Kind       { return KindKey }
func (e KeyEvent) Timestamp() int64 { return e.At }

// PasteEvent is a clipboard paste into the editor.
type PasteEvent struct {
	PastedLength    int64
	PastedWordCount int64
	At              int64
}

func (e PasteEvent) Kind() Kind       { return KindPaste }
func (e PasteEvent) Timestamp() int64 { return e.At }

// EditEvent records the document length after an input event.
type EditEvent struct {
	CurrentLength int64
	// Delta is the signed change since the previous edit (negative on deletion).
	Delta     int64
	WordCount int64
	At        int64
}

func (e EditEvent) Kind() Kind       { return KindEdit }
func (e EditEvent) Timestamp() int64 { return e.At }

// SuddenInsertEvent is a single large insertion. It is either derived from
// an EditEvent by DeriveSuddenInsert or carried over from a producer marker.
type SuddenInsertEvent struct {
	InsertedLength int64
	At             int64
	// Source is the producer tag (sudden_insert or large_insert) or
	// KindEdit for derived events.
	Source  Kind
	Derived bool
}

func (e SuddenInsertEvent) Kind() Kind       { return KindSuddenInsert }
func (e SuddenInsertEvent) Timestamp() int64 { return e.At }

// DeriveSuddenInsert classifies an edit. It reports a SuddenInsertEvent when
// the edit grew the document by more than threshold characters.
func DeriveSuddenInsert(e EditEvent, threshold int64) (SuddenInsertEvent, bool) {
	if threshold < 0 {
		threshold = 0
	}
	if e.Delta <= threshold {
		return SuddenInsertEvent{}, false
	}
	return SuddenInsertEvent{
		InsertedLength: e.Delta,
		At:             e.At,
		Source:         KindEdit,
		Derived:        true,
	}, true
}
