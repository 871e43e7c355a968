package scoring

import "github.com/okian/inkcheck/internal/domain/model"

// Rule identifiers in declaration order.
const (
	RuleLargePasteVolume       model.RuleID = "large_paste_volume"
	RuleSingleGiantPaste       model.RuleID = "single_giant_paste"
	RuleSuddenInsertBursts     model.RuleID = "sudden_insert_bursts"
	RuleGiantInstantInsert     model.RuleID = "giant_instant_insert"
	RuleMechanicalCadence      model.RuleID = "mechanical_cadence"
	RuleNoOrganicTyping        model.RuleID = "no_organic_typing"
	RuleAbnormalThroughput     model.RuleID = "abnormal_throughput"
	RulePasteWithoutPauses     model.RuleID = "paste_without_pauses"
	RuleShortSession           model.RuleID = "short_session"
	RuleLowKeystrokeCoverage   model.RuleID = "low_keystroke_coverage"
	RuleInsufficientTypingData model.RuleID = "insufficient_typing_data"
)

// Rule is one additive scoring rule.
type Rule struct {
	ID            model.RuleID
	Reason        string
	DefaultWeight int
	Triggered     func(fv model.FeatureVector, t Thresholds) bool
}

func noOrganicTyping(fv model.FeatureVector) bool {
	return fv.KeyEventCount == 0 && fv.TotalChars > 0
}

// rules is evaluated top to bottom; the order is also the reason order.
var rules = []Rule{
	{
		ID:            RuleLargePasteVolume,
		Reason:        "large paste volume",
		DefaultWeight: 30,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.PastedCharRatio > t.PasteRatio
		},
	},
	{
		ID:            RuleSingleGiantPaste,
		Reason:        "single giant paste",
		DefaultWeight: 25,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.MaxSinglePasteChars > t.GiantPasteChars
		},
	},
	{
		ID:            RuleSuddenInsertBursts,
		Reason:        "sudden insert bursts",
		DefaultWeight: 25,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.SuddenInsertCount >= t.SuddenInsertCount
		},
	},
	{
		ID:            RuleGiantInstantInsert,
		Reason:        "very large instant content insertion",
		DefaultWeight: 30,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.MaxSuddenInsertChars > t.GiantInsertChars
		},
	},
	{
		ID:            RuleMechanicalCadence,
		Reason:        "mechanical typing cadence",
		DefaultWeight: 30,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.CadenceDefined &&
				fv.KeyGapVarianceMillis < t.CadenceVarianceEpsilon &&
				fv.KeyEventCount > t.CadenceMinKeyEvents
		},
	},
	{
		ID:            RuleNoOrganicTyping,
		Reason:        "no organic typing",
		DefaultWeight: 35,
		Triggered: func(fv model.FeatureVector, _ Thresholds) bool {
			return noOrganicTyping(fv)
		},
	},
	{
		ID:            RuleAbnormalThroughput,
		Reason:        "abnormal throughput",
		DefaultWeight: 20,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.CharsPerMinute > t.ThroughputCharsPerMinute
		},
	},
	{
		ID:            RulePasteWithoutPauses,
		Reason:        "continuous writing with heavy pasting",
		DefaultWeight: 15,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.LongPauseCount == 0 && fv.PastedCharRatio > t.PasteNoPauseRatio
		},
	},
	{
		ID:            RuleShortSession,
		Reason:        "very short writing time",
		DefaultWeight: 20,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.SessionDurationSeconds < t.ShortSessionSeconds && fv.TotalWords >= t.ShortSessionMinWords
		},
	},
	{
		ID:            RuleLowKeystrokeCoverage,
		Reason:        "low keystroke coverage of final text",
		DefaultWeight: 20,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.KeyEventCount > 0 &&
				fv.TotalChars >= t.LowTypedMinChars &&
				fv.TypedVsFinalRatio < t.LowTypedRatio
		},
	},
	{
		ID:            RuleInsufficientTypingData,
		Reason:        "insufficient typing data to establish baseline",
		DefaultWeight: 0,
		Triggered: func(fv model.FeatureVector, t Thresholds) bool {
			return fv.KeyGapSampleCount < t.InsufficientMinKeyGaps && !noOrganicTyping(fv)
		},
	},
}

// Rules returns a copy of the rule set in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func ruleByID(id model.RuleID) (Rule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
