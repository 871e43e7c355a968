// Package features reduces a validated session to a fixed-shape feature
// vector in a single pass over its events.
package features

import (
	"math"
	"unicode/utf8"

	"github.com/okian/inkcheck/internal/domain/model"
)

// insertTally accumulates sudden insert counts from one source.
type insertTally struct {
	count int64
	max   int64
}

func (t *insertTally) add(length int64) {
	t.count++
	if length > t.max {
		t.max = length
	}
}

// Extract computes the feature vector of s. It is pure and deterministic and
// uses constant memory beyond the session itself.
//
// Sudden inserts are derived from edits with cfg.SuddenInsertChars whenever
// the trace carries any edit; producer insert markers are only counted for
// traces without edits, so the same insert is never counted twice.
func Extract(s *model.Session, cfg Config) model.FeatureVector {
	var (
		fv       model.FeatureVector
		gaps     runningStats
		median   medianEstimator
		derived  insertTally
		markers  insertTally
		typedRaw int64
	)

	for _, ev := range s.Events {
		switch e := ev.(type) {
		case model.KeyEvent:
			fv.KeyEventCount++
			typedRaw += typedDelta(e.Key)
			if e.GapKnown {
				g := float64(e.GapMillis)
				gaps.add(g)
				median.add(g)
				if e.GapMillis > cfg.LongPauseMillis {
					fv.LongPauseCount++
				}
			}

		case model.PasteEvent:
			fv.PasteEventCount++
			fv.TotalPastedChars = addSat(fv.TotalPastedChars, e.PastedLength)
			if e.PastedLength > fv.MaxSinglePasteChars {
				fv.MaxSinglePasteChars = e.PastedLength
			}

		case model.EditEvent:
			fv.EditEventCount++
			if e.Delta > fv.LargestSingleInsertChars {
				fv.LargestSingleInsertChars = e.Delta
			}
			if ins, ok := model.DeriveSuddenInsert(e, cfg.SuddenInsertChars); ok {
				derived.add(ins.InsertedLength)
			}

		case model.SuddenInsertEvent:
			markers.add(e.InsertedLength)
		}
	}

	inserts := markers
	if fv.EditEventCount > 0 {
		inserts = derived
	}
	fv.SuddenInsertCount = inserts.count
	fv.MaxSuddenInsertChars = inserts.max

	fv.KeyGapSampleCount = gaps.n
	if gaps.n > 0 {
		fv.CadenceDefined = true
		fv.MeanKeyGapMillis = gaps.mean
		fv.MedianKeyGapMillis = median.value()
		fv.KeyGapVarianceMillis = gaps.variance()
	}

	fv.TotalChars = s.TotalChars
	fv.TotalWords = s.TotalWords
	fv.SessionDurationSeconds = s.Duration()
	fv.TypedChars = max(typedRaw, 0)

	denominator := float64(max(s.TotalChars, 1))
	fv.PastedCharRatio = float64(fv.TotalPastedChars) / denominator
	fv.TypedVsFinalRatio = float64(fv.TypedChars) / denominator
	fv.CharsPerMinute = float64(s.TotalChars) / math.Max(1, float64(fv.SessionDurationSeconds)/60)

	return fv
}

// addSat adds two non-negative counts, pinning at math.MaxInt64.
func addSat(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// typedDelta is the number of characters a key adds to the document.
func typedDelta(key string) int64 {
	switch key {
	case "Enter", "Tab":
		return 1
	case "Backspace", "Delete":
		return -1
	}
	if utf8.RuneCountInString(key) == 1 {
		return 1
	}
	return 0
}
