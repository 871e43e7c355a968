package model

// Feature names as echoed in the response features map.
const (
	FeatureKeyEventCount            = "keyEventCount"
	FeaturePasteEventCount          = "pasteEventCount"
	FeatureEditEventCount           = "editEventCount"
	FeatureSuddenInsertCount        = "suddenInsertCount"
	FeatureKeyGapSampleCount        = "keyGapSampleCount"
	FeatureMeanKeyGapMillis         = "meanKeyGapMillis"
	FeatureMedianKeyGapMillis       = "medianKeyGapMillis"
	FeatureKeyGapVarianceMillis     = "keyGapVarianceMillis"
	FeatureLongPauseCount           = "longPauseCount"
	FeatureTotalPastedChars         = "totalPastedChars"
	FeatureMaxSinglePasteChars      = "maxSinglePasteChars"
	FeaturePastedCharRatio          = "pastedCharRatio"
	FeatureLargestSingleInsertChars = "largestSingleInsertChars"
	FeatureMaxSuddenInsertChars     = "maxSuddenInsertChars"
	FeatureTypedChars               = "typedChars"
	FeatureTypedVsFinalRatio        = "typedVsFinalRatio"
	FeatureTotalChars               = "totalChars"
	FeatureTotalWords               = "totalWords"
	FeatureSessionDurationSeconds   = "sessionDurationSeconds"
	FeatureCharsPerMinute           = "charsPerMinute"
)

// FeatureVector is the fixed-shape numeric summary of a session. It is a
// value type; callers receive copies.
type FeatureVector struct {
	KeyEventCount     int64
	PasteEventCount   int64
	EditEventCount    int64
	SuddenInsertCount int64

	// Cadence. Zero and CadenceDefined=false when no keystroke has a known gap.
	KeyGapSampleCount    int64
	MeanKeyGapMillis     float64
	MedianKeyGapMillis   float64
	KeyGapVarianceMillis float64
	CadenceDefined       bool
	LongPauseCount       int64

	TotalPastedChars         int64
	MaxSinglePasteChars      int64
	PastedCharRatio          float64
	LargestSingleInsertChars int64
	MaxSuddenInsertChars     int64

	TypedChars        int64
	TypedVsFinalRatio float64

	TotalChars             int64
	TotalWords             int64
	SessionDurationSeconds int64
	CharsPerMinute         float64
}

// Values returns a fresh name -> value map of every feature.
func (f FeatureVector) Values() map[string]float64 {
	return map[string]float64{
		FeatureKeyEventCount:            float64(f.KeyEventCount),
		FeaturePasteEventCount:          float64(f.PasteEventCount),
		FeatureEditEventCount:           float64(f.EditEventCount),
		FeatureSuddenInsertCount:        float64(f.SuddenInsertCount),
		FeatureKeyGapSampleCount:        float64(f.KeyGapSampleCount),
		FeatureMeanKeyGapMillis:         f.MeanKeyGapMillis,
		FeatureMedianKeyGapMillis:       f.MedianKeyGapMillis,
		FeatureKeyGapVarianceMillis:     f.KeyGapVarianceMillis,
		FeatureLongPauseCount:           float64(f.LongPauseCount),
		FeatureTotalPastedChars:         float64(f.TotalPastedChars),
		FeatureMaxSinglePasteChars:      float64(f.MaxSinglePasteChars),
		FeaturePastedCharRatio:          f.PastedCharRatio,
		FeatureLargestSingleInsertChars: float64(f.LargestSingleInsertChars),
		FeatureMaxSuddenInsertChars:     float64(f.MaxSuddenInsertChars),
		FeatureTypedChars:               float64(f.TypedChars),
		FeatureTypedVsFinalRatio:        f.TypedVsFinalRatio,
		FeatureTotalChars:               float64(f.TotalChars),
		FeatureTotalWords:               float64(f.TotalWords),
		FeatureSessionDurationSeconds:   float64(f.SessionDurationSeconds),
		FeatureCharsPerMinute:           f.CharsPerMinute,
	}
}
