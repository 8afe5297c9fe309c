package diagnosis

import "strings"

// keywordRule maps any of its terms to a label. Rule lists are evaluated in
// order and the first rule with a matching term wins.
type keywordRule[T any] struct {
	Label T
	Terms []string
}

// plantPartRules is checked top to bottom: leaf, fruit/pod, stem/shoot,
// root/wilt.
var plantPartRules = []keywordRule[PlantPart]{
	{Label: PartLeaf, Terms: []string{"leaf", "leaves", "foliage", "patta", "पत्ता", "पत्ती", "पत्ते"}},
	{Label: PartFruit, Terms: []string{"fruit", "pod", "boll", "berry", "grain", "phal", "फल", "फली"}},
	{Label: PartStem, Terms: []string{"stem", "shoot", "stalk", "branch", "tana", "तना"}},
	{Label: PartRoot, Terms: []string{"root", "wilt", "collar", "jad", "जड़", "मुरझा"}},
}

var issueTypeRules = []keywordRule[IssueType]{
	{Label: IssueInsect, Terms: []string{"hole", "tunnel", "chew", "bore", "caterpillar", "larva", "insect", "keeda", "कीड़"}},
	{Label: IssueDisease, Terms: []string{"rot", "fungal", "fungus", "spot", "mildew", "blight", "lesion", "mold", "mould"}},
	{Label: IssueNutrient, Terms: []string{"yellow", "deficiency", "stunted", "pale", "chlorosis", "पीला"}},
	{Label: IssueEnvironmental, Terms: []string{"heat", "drought", "waterlogging", "waterlogged", "frost", "scorch", "dry"}},
}

// InferPlantPart guesses which part of the plant the symptoms describe.
func InferPlantPart(symptoms string) PlantPart {
	return firstMatch(plantPartRules, symptoms, PartUnknown)
}

// InferIssueType guesses the class of problem the text describes.
func InferIssueType(text string) IssueType {
	return firstMatch(issueTypeRules, text, IssueUnknown)
}

func firstMatch[T any](rules []keywordRule[T], text string, none T) T {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return none
	}
	for _, r := range rules {
		for _, term := range r.Terms {
			if strings.Contains(lower, term) {
				return r.Label
			}
		}
	}
	return none
}
