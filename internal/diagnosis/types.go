package diagnosis

import "strings"

// Language selects the language the diagnosis is written in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage maps a request language code to a Language. Anything other
// than "hi" is English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageHindi)) {
		return LanguageHindi
	}
	return LanguageEnglish
}

// Name returns the language name used in prompts.
func (l Language) Name() string {
	if l == LanguageHindi {
		return "Hindi"
	}
	return "English"
}

// SymptomReport is the farmer's description of an observed crop problem.
type SymptomReport struct {
	Symptoms string
	Language Language
}

// DiagnosisResult is the diagnosis handed to the farmer. Field order matches
// the JSON contract.
type DiagnosisResult struct {
	Disease     string   `json:"disease"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Cause       string   `json:"cause"`
	Treatment   []string `json:"treatment"`
}

// PlantPart is the coarse part of the plant a symptom refers to.
type PlantPart string

const (
	PartLeaf    PlantPart = "leaf"
	PartFruit   PlantPart = "fruit"
	PartStem    PlantPart = "stem"
	PartRoot    PlantPart = "root"
	PartUnknown PlantPart = "unknown"
)

// PlantParts lists every plant part, unknown last.
var PlantParts = []PlantPart{PartLeaf, PartFruit, PartStem, PartRoot, PartUnknown}

// IssueType is the coarse class of crop problem.
type IssueType string

const (
	IssueInsect        IssueType = "insect"
	IssueDisease       IssueType = "disease"
	IssueNutrient      IssueType = "nutrient"
	IssueEnvironmental IssueType = "environmental"
	IssueUnknown       IssueType = "unknown"
)

// Source records where a returned diagnosis came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)
