package diagnosis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanLeafDiagnosis = `{"disease":"Leaf spot","severity":"Low","description":"Brown spots on leaves","cause":"Fungal infection after rain","treatment":["Remove affected leaves","Spray neem oil 3 ml/L","Use pesticides carefully and wear gloves"]}`

func TestFilter_BannedSubstanceFallsBack(t *testing.T) {
	f := DefaultFilter()
	symptoms := "holes in brinjal fruit"
	want := FallbackText(PartFruit)

	variants := []string{
		`{"treatment":["spray monocrotophos 2ml/l"]}`,
		`{"treatment":["spray MONOCROTOPHOS"]}`,
		`{"treatment":["spray Mono-Crotophos"]}`,
		`{"treatment":["spray mono crotophos"]}`,
		`{"treatment":["spray mono_croto phos"]}`,
		`{"treatment":["spray \u006donocrotophos"]}`,
		`{"treatment":["ＭＯＮＯＣＲＯＴＯＰＨＯＳ"]}`,
		`{"treatment":["use Endosulfan 35 EC"]}`,
		`{"treatment":["methyl-parathion dust"]}`,
		`{"treatment":["old DDT stock"]}`,
		`{"treatment":["apply carbofuran granules"]}`,
	}

	for _, raw := range variants {
		t.Run(raw, func(t *testing.T) {
			v := f.Inspect(raw, symptoms)
			assert.True(t, v.Fallback)
			assert.Equal(t, CategoryBanned, v.Category)
			assert.Equal(t, PartFruit, v.PlantPart)
			assert.Equal(t, want, v.Output)
			assert.Equal(t, want, f.Apply(raw, symptoms))
		})
	}
}

func TestFilter_SpeciesFallsBack(t *testing.T) {
	f := DefaultFilter()

	variants := []string{
		`{"disease":"Helicoverpa armigera attack"}`,
		`{"disease":"Spodoptera damage"}`,
		`{"disease":"Stem borer"}`,
		`{"disease":"stem-borer"}`,
		`{"disease":"Stemborer"}`,
		`{"disease":"Fruit and shoot borer"}`,
		`{"disease":"Fruit borer"}`,
		`{"disease":"Leaf miner tunnels"}`,
	}

	for _, raw := range variants {
		t.Run(raw, func(t *testing.T) {
			v := f.Inspect(raw+cleanLeafDiagnosis, "leaf has tunnels")
			assert.True(t, v.Fallback)
			assert.Equal(t, CategorySpecies, v.Category)
			assert.Equal(t, FallbackText(PartLeaf), v.Output)
		})
	}
}

func TestFilter_FertilizerFallsBack(t *testing.T) {
	f := DefaultFilter()

	for _, raw := range []string{
		`{"treatment":["apply urea"]}`,
		`{"treatment":["top dress with DAP"]}`,
		`{"treatment":["NPK 19:19:19"]}`,
		`{"treatment":["mix 2 G/L"]}`,
	} {
		t.Run(raw, func(t *testing.T) {
			v := f.Inspect(raw, "")
			assert.True(t, v.Fallback)
			assert.Equal(t, CategoryFertilizer, v.Category)
			assert.Equal(t, FallbackText(PartUnknown), v.Output)
		})
	}
}

func TestFilter_CategoryPrecedence(t *testing.T) {
	f := DefaultFilter()
	v := f.Inspect(`{"treatment":["urea for stem borer, then phorate"]}`, "")
	require.True(t, v.Fallback)
	assert.Equal(t, CategoryBanned, v.Category)
	assert.Equal(t, "phorate", v.Trigger)
}

func TestFilter_CleanTextIsSanitized(t *testing.T) {
	f := DefaultFilter()
	v := f.Inspect(cleanLeafDiagnosis, "brown spots on leaf")

	assert.False(t, v.Fallback)
	assert.Empty(t, v.Trigger)
	assert.Equal(t,
		`{"disease":"Leaf spot","severity":"Low","description":"Brown spots on leaves","cause":"Fungal infection after rain","treatment":["Remove affected leaves","Spray Neem oil 3 ml/L","Use control measures carefully and wear gloves"]}`,
		v.Output,
	)
}

func TestFilter_EscapedTextIsSanitized(t *testing.T) {
	raw := `{"disease":"Leaf spot","severity":"Low","description":"Brown spots","cause":"Fungus","treatment":["Use \u0070esticides carefully","Spray NEEM\u0020oil 3 ml/L"]}`
	v := DefaultFilter().Inspect(raw, "brown spots on leaf")
	require.False(t, v.Fallback)

	var got DiagnosisResult
	require.NoError(t, json.Unmarshal([]byte(v.Output), &got))
	assert.Equal(t, "Leaf spot", got.Disease)
	assert.Equal(t, []string{"Use control measures carefully", "Spray Neem oil 3 ml/L"}, got.Treatment)
	assert.Equal(t,
		`{"disease":"Leaf spot","severity":"Low","description":"Brown spots","cause":"Fungus","treatment":["Use control measures carefully","Spray Neem oil 3 ml/L"]}`,
		v.Output,
	)
	assert.Equal(t, v.Output, DefaultFilter().Apply(v.Output, "brown spots on leaf"))
}

func TestFilter_PlainTextPesticides(t *testing.T) {
	raw := "Keep the field clean and use pesticides carefully. One pesticide is enough."
	got := DefaultFilter().Apply(raw, "")
	assert.Equal(t, "Keep the field clean and use control measures carefully. One control measures is enough.", got)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PESTICIDES", "control measures"},
		{"Pesticide use", "control measures use"},
		{"NEEM OIL and neem-oil", "Neem oil and Neem oil"},
		{"spinosad or SPINOSAD", "Spinosad or Spinosad"},
		{"pesticidal soap", "pesticidal soap"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Sanitize(got))
		})
	}
}

func TestFilter_AllowlistMode(t *testing.T) {
	p := DefaultPolicy()
	p.Mode = ModeAllowlist
	f, err := NewFilter(p)
	require.NoError(t, err)
	assert.Equal(t, ModeAllowlist, f.Mode())

	withSafe := f.Inspect(`{"treatment":["Spray Spinosad 0.3 ml/L"]}`, "")
	assert.False(t, withSafe.Fallback)

	without := f.Inspect(`{"treatment":["Remove weeds"]}`, "root is black")
	assert.True(t, without.Fallback)
	assert.Equal(t, TriggerNoSafeSubstance, without.Trigger)
	assert.Equal(t, FallbackText(PartRoot), without.Output)

	// The deny rules still run first.
	banned := f.Inspect(`{"treatment":["neem oil then lindane"]}`, "")
	assert.True(t, banned.Fallback)
	assert.Equal(t, "lindane", banned.Trigger)
}

func TestFilter_DenylistIgnoresMissingSafeSubstance(t *testing.T) {
	v := DefaultFilter().Inspect(`{"treatment":["Remove weeds"]}`, "")
	assert.False(t, v.Fallback)
}
