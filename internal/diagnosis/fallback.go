package diagnosis

import "encoding/json"

type fallbackTemplate struct {
	Disease     string
	Description string
}

// Fallback text is authored to pass the default safety policy unchanged:
// no restricted substance, pest species or fertilizer term, and the only
// named product is written in its canonical "Neem oil" form.
var fallbackTemplates = map[PlantPart]fallbackTemplate{
	PartLeaf: {
		Disease:     "Leaf spot or leaf damage",
		Description: "Spots, holes, curling or colour change can be seen on the leaves.",
	},
	PartFruit: {
		Disease:     "Fruit-related damage or rot",
		Description: "Fruits show holes, soft patches, rotting or early fruit drop.",
	},
	PartStem: {
		Disease:     "Stem damage or decay",
		Description: "The stem or shoots show cracks, drying tips, small openings or dark patches.",
	},
	PartRoot: {
		Disease:     "Root damage or wilting",
		Description: "Plants droop or become weak because the roots are damaged or decaying.",
	},
	PartUnknown: {
		Disease:     "General crop health problem",
		Description: "The crop shows signs of stress that need a closer look in the field.",
	},
}

const (
	fallbackSeverity = "Moderate"
	fallbackCause    = "Usually a mix of factors such as insect attack, fungal or bacterial infection, poor soil health and weather stress."
)

var fallbackTreatment = []string{
	"Cultural control: remove and destroy affected plant parts, keep the field free of weeds and old crop remains, and avoid crowding plants.",
	"Organic or biological control: spray Neem oil at 3-5 ml per litre of water in the evening and repeat after 7 days if symptoms continue.",
	"Soil and crop management: keep good drainage, add well rotted compost or farmyard manure, and rotate crops every season.",
	"Safety precautions: wear gloves and a mask while spraying, follow the product label, and contact the local Krishi Vigyan Kendra or agriculture officer if the problem spreads.",
}

// GenerateFallback returns the offline diagnosis for a plant part. Unknown
// parts get the general template.
func GenerateFallback(part PlantPart) DiagnosisResult {
	tmpl, ok := fallbackTemplates[part]
	if !ok {
		tmpl = fallbackTemplates[PartUnknown]
	}
	treatment := make([]string, len(fallbackTreatment))
	copy(treatment, fallbackTreatment)

	return DiagnosisResult{
		Disease:     tmpl.Disease,
		Severity:    fallbackSeverity,
		Description: tmpl.Description,
		Cause:       fallbackCause,
		Treatment:   treatment,
	}
}

// FallbackText is the JSON encoding of GenerateFallback(part).
func FallbackText(part PlantPart) string {
	b, err := json.Marshal(GenerateFallback(part))
	if err != nil {
		// Only strings and a string slice; encoding cannot fail.
		panic(err)
	}
	return string(b)
}
