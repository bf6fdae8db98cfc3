package extraction

import (
	"errors"
	"fmt"
	"reflect"
)

// Mode selects which extraction path produces results.
type Mode string

const (
	// ModeHeuristic runs the tagger and pattern extractors only.
	ModeHeuristic Mode = "heuristic"
	// ModeGenerative asks a generative model and fails if it fails.
	ModeGenerative Mode = "generative"
	// ModeHybrid asks a generative model and falls back to heuristics.
	ModeHybrid Mode = "hybrid"
)

// ErrUnknownMode is returned by ParseMode for unrecognized names.
var ErrUnknownMode = errors.New("unknown extraction mode")

// ParseMode validates a mode name. Empty means heuristic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeHeuristic:
		return ModeHeuristic, nil
	case ModeGenerative, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Thresholds holds every similarity cut-off and confidence adjustment the
// extractors use. Fields tagged `unit:"score"` must lie in [0,1].
type Thresholds struct {
	// Intent tagging.
	TagSimilarity       float64 `koanf:"tag_similarity" unit:"score"`
	TagMaxIntents       int     `koanf:"tag_max_intents"`
	MinSentenceLength   int     `koanf:"min_sentence_length"`
	DiscussionScore     float64 `koanf:"discussion_score" unit:"score"`
	SentenceFallback    float64 `koanf:"sentence_fallback" unit:"score"`
	KeywordOnlyScore    float64 `koanf:"keyword_only_score" unit:"score"`
	CandidateMinScore   float64 `koanf:"candidate_min_score" unit:"score"`
	DecisionAugmentMin  int     `koanf:"decision_augment_min"`
	DecisionAugmentConf float64 `koanf:"decision_augment_conf" unit:"score"`
	ActionAugmentMin    int     `koanf:"action_augment_min"`
	ActionAugmentConf   float64 `koanf:"action_augment_conf" unit:"score"`
	RiskAugmentMin      int     `koanf:"risk_augment_min"`
	RiskAugmentConf     float64 `koanf:"risk_augment_conf" unit:"score"`

	// Context windows, in segments.
	DecisionWindow      int `koanf:"decision_window"`
	DecisionExtendMax   int `koanf:"decision_extend_max"`
	ActionWindow        int `koanf:"action_window"`
	RiskWindow          int `koanf:"risk_window"`
	OwnerLookback       int `koanf:"owner_lookback"`
	MitigationLookahead int `koanf:"mitigation_lookahead"`
	MaxMitigations      int `koanf:"max_mitigations"`
	TitleMaxLength      int `koanf:"title_max_length"`
	PrefixLength        int `koanf:"prefix_length"`

	// Decision confidence.
	DecisionVerbBoost     float64 `koanf:"decision_verb_boost" unit:"score"`
	MultiParticipantBoost float64 `koanf:"multi_participant_boost" unit:"score"`

	// Action confidence.
	CompoundBase          float64 `koanf:"compound_base" unit:"score"`
	CompoundOwnerBoost    float64 `koanf:"compound_owner_boost" unit:"score"`
	CompoundDueBoost      float64 `koanf:"compound_due_boost" unit:"score"`
	ActionVerbBoost       float64 `koanf:"action_verb_boost" unit:"score"`
	UnassignedPenalty     float64 `koanf:"unassigned_penalty" unit:"score"`
	ActionConfidenceFloor float64 `koanf:"action_confidence_floor" unit:"score"`
	OwnerBoost            float64 `koanf:"owner_boost" unit:"score"`
	DueDateBoost          float64 `koanf:"due_date_boost" unit:"score"`
	DetailBoost           float64 `koanf:"detail_boost" unit:"score"`
	DetailMinLength       int     `koanf:"detail_min_length"`

	// Risk confidence.
	RiskVocabBoost  float64 `koanf:"risk_vocab_boost" unit:"score"`
	MitigationBoost float64 `koanf:"mitigation_boost" unit:"score"`
	ImpactBoost     float64 `koanf:"impact_boost" unit:"score"`
	TitleBoost      float64 `koanf:"title_boost" unit:"score"`
	MinRiskLength   int     `koanf:"min_risk_length"`

	// Deduplication.
	DecisionDedup float64 `koanf:"decision_dedup" unit:"score"`
	RiskDedup     float64 `koanf:"risk_dedup" unit:"score"`
	ActionMerge   float64 `koanf:"action_merge" unit:"score"`
}

// DefaultThresholds returns the tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TagSimilarity:       0.5,
		TagMaxIntents:       2,
		MinSentenceLength:   10,
		DiscussionScore:     0.4,
		SentenceFallback:    0.5,
		KeywordOnlyScore:    0.6,
		CandidateMinScore:   0.5,
		DecisionAugmentMin:  3,
		DecisionAugmentConf: 0.7,
		ActionAugmentMin:    5,
		ActionAugmentConf:   0.65,
		RiskAugmentMin:      3,
		RiskAugmentConf:     0.65,

		DecisionWindow:      3,
		DecisionExtendMax:   3,
		ActionWindow:        3,
		RiskWindow:          8,
		OwnerLookback:       5,
		MitigationLookahead: 7,
		MaxMitigations:      5,
		TitleMaxLength:      50,
		PrefixLength:        50,

		DecisionVerbBoost:     0.15,
		MultiParticipantBoost: 0.05,

		CompoundBase:          0.7,
		CompoundOwnerBoost:    0.1,
		CompoundDueBoost:      0.05,
		ActionVerbBoost:       0.1,
		UnassignedPenalty:     0.15,
		ActionConfidenceFloor: 0.3,
		OwnerBoost:            0.05,
		DueDateBoost:          0.05,
		DetailBoost:           0.05,
		DetailMinLength:       50,

		RiskVocabBoost:  0.15,
		MitigationBoost: 0.1,
		ImpactBoost:     0.05,
		TitleBoost:      0.05,
		MinRiskLength:   20,

		DecisionDedup: 0.8,
		RiskDedup:     0.8,
		ActionMerge:   0.75,
	}
}

// Validate rejects scores outside [0,1] and non-positive counts.
func (t Thresholds) Validate() error {
	v := reflect.ValueOf(t)
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name := f.Tag.Get("koanf")
		switch f.Type.Kind() {
		case reflect.Float64:
			if x := v.Field(i).Float(); f.Tag.Get("unit") == "score" && (x < 0 || x > 1) {
				return fmt.Errorf("%s must be within [0,1], got %v", name, x)
			}
		case reflect.Int:
			if x := v.Field(i).Int(); x <= 0 {
				return fmt.Errorf("%s must be positive, got %d", name, x)
			}
		}
	}
	return nil
}
