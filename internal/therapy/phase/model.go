package phase

import "strings"

// TherapyModel labels the therapeutic modality selected for a session.
type TherapyModel string

const (
	// ModelCognitiveBehavioral covers CBT-style structured interventions.
	ModelCognitiveBehavioral TherapyModel = "Cognitive & Behavioral"
	// ModelHumanisticExperiential covers humanistic and experiential work.
	ModelHumanisticExperiential TherapyModel = "Humanistic & Experiential"
	// ModelPsychodynamic covers psychodynamic and insight-oriented work.
	ModelPsychodynamic TherapyModel = "Psychodynamic & Insight-Oriented"
	// ModelSystemicFamily covers systemic and family approaches.
	ModelSystemicFamily TherapyModel = "Systemic & Family"
	// ModelThirdWave covers DBT/ACT acceptance-based approaches.
	ModelThirdWave TherapyModel = "Third-Wave & Acceptance-Based"
	// ModelTraumaFocused covers trauma-focused approaches.
	ModelTraumaFocused TherapyModel = "Trauma-Focused"
	// ModelNarrativeSolutionFocused covers narrative and solution-focused work.
	ModelNarrativeSolutionFocused TherapyModel = "Narrative & Solution-Focused"
)

// DefaultModel is used when classification is unavailable or unparseable.
const DefaultModel = ModelNarrativeSolutionFocused

// modelAliases normalizes the shorthand labels the classifier is allowed to
// return into canonical model labels.
var modelAliases = map[string]TherapyModel{
	"cbt":                              ModelCognitiveBehavioral,
	"cognitive & behavioral":           ModelCognitiveBehavioral,
	"humanistic":                       ModelHumanisticExperiential,
	"humanistic & experiential":        ModelHumanisticExperiential,
	"psychodynamic":                    ModelPsychodynamic,
	"psychodynamic & insight-oriented": ModelPsychodynamic,
	"systemic":                         ModelSystemicFamily,
	"systemic & family":                ModelSystemicFamily,
	"dbt":                              ModelThirdWave,
	"act":                              ModelThirdWave,
	"third-wave & acceptance-based":    ModelThirdWave,
	"trauma":                           ModelTraumaFocused,
	"trauma-focused":                   ModelTraumaFocused,
	"narrative":                        ModelNarrativeSolutionFocused,
	"solution-focused":                 ModelNarrativeSolutionFocused,
	"narrative & solution-focused":     ModelNarrativeSolutionFocused,
}

// Models lists every supported therapy model.
func Models() []TherapyModel {
	return []TherapyModel{
		ModelCognitiveBehavioral,
		ModelHumanisticExperiential,
		ModelPsychodynamic,
		ModelSystemicFamily,
		ModelThirdWave,
		ModelTraumaFocused,
		ModelNarrativeSolutionFocused,
	}
}

// ParseModel normalizes a classifier label into a supported therapy model.
func ParseModel(label string) (TherapyModel, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if model, ok := modelAliases[normalized]; ok {
		return model, nil
	}
	return "", ErrUnknownModel
}

// NormalizeModel parses label, falling back to DefaultModel when the label
// is not a supported model.
func NormalizeModel(label string) TherapyModel {
	model, err := ParseModel(label)
	if err != nil {
		return DefaultModel
	}
	return model
}
