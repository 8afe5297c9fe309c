package diagnosis

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Verdict is the filter's decision for one model response.
type Verdict struct {
	// Fallback is true when the model text was discarded.
	Fallback bool

	// Trigger is the rule term that forced the fallback, or
	// TriggerNoSafeSubstance in allowlist mode.
	Trigger  string
	Category Category

	PlantPart PlantPart

	// Output is the text to hand on: sanitized model text or the fallback.
	Output string
}

// TriggerNoSafeSubstance is reported when allowlist mode finds no allowed
// substance in the model text.
const TriggerNoSafeSubstance = "no-safe-substance"

type compiledRule struct {
	Rule
	norm    string
	compact string
}

// Filter applies a safety Policy to model output. It is safe for
// concurrent use.
type Filter struct {
	mode  Mode
	deny  []compiledRule
	allow []compiledRule
}

// NewFilter compiles a policy.
func NewFilter(p Policy) (*Filter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{mode: p.Mode}
	for _, r := range p.orderedRules() {
		cr := compiledRule{Rule: r, norm: normalize(r.Term)}
		if r.Compact {
			cr.compact = compact(cr.norm)
		}
		if r.Action == ActionAllow {
			f.allow = append(f.allow, cr)
		} else {
			f.deny = append(f.deny, cr)
		}
	}
	return f, nil
}

// DefaultFilter returns a filter for DefaultPolicy.
func DefaultFilter() *Filter {
	f, err := NewFilter(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return f
}

// Mode returns the policy mode the filter enforces.
func (f *Filter) Mode() Mode {
	return f.mode
}

// Apply returns text that is safe to show: the sanitized model text, or the
// fallback diagnosis for the plant part inferred from symptoms.
func (f *Filter) Apply(raw, symptoms string) string {
	return f.Inspect(raw, symptoms).Output
}

// Inspect runs the policy over raw and reports why it passed or fell back.
func (f *Filter) Inspect(raw, symptoms string) Verdict {
	part := InferPlantPart(symptoms)
	subject := matchSubject(raw)
	flat := compact(subject)

	for _, r := range f.deny {
		if r.matches(subject, flat) {
			return Verdict{
				Fallback:  true,
				Trigger:   r.Term,
				Category:  r.Category,
				PlantPart: part,
				Output:    FallbackText(part),
			}
		}
	}

	if f.mode == ModeAllowlist && !f.anyAllowed(subject, flat) {
		return Verdict{
			Fallback:  true,
			Trigger:   TriggerNoSafeSubstance,
			Category:  CategorySafe,
			PlantPart: part,
			Output:    FallbackText(part),
		}
	}

	return Verdict{PlantPart: part, Output: sanitizeOutput(raw)}
}

func (f *Filter) anyAllowed(subject, flat string) bool {
	for _, r := range f.allow {
		if r.matches(subject, flat) {
			return true
		}
	}
	return false
}

func (r compiledRule) matches(subject, flat string) bool {
	if strings.Contains(subject, r.norm) {
		return true
	}
	return r.compact != "" && strings.Contains(flat, r.compact)
}

// matchSubject is the normalized text the rules run against. When raw is
// JSON the decoded string values are included too, so \u escapes cannot
// hide a term.
func matchSubject(raw string) string {
	subject := raw
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		var b strings.Builder
		collectStrings(v, &b)
		subject += "\n" + b.String()
	}
	return normalize(subject)
}

func collectStrings(v any, b *strings.Builder) {
	switch t := v.(type) {
	case string:
		b.WriteString(t)
		b.WriteByte('\n')
	case []any:
		for _, e := range t {
			collectStrings(e, b)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], b)
		}
	}
}

var (
	pesticideWord = regexp.MustCompile(`(?i)\bpesticides?\b`)
	neemOil       = regexp.MustCompile(`(?i)\bneem[\s_-]+oil\b`)
	spinosad      = regexp.MustCompile(`(?i)\bspinosad\b`)
)

// Sanitize rewrites "pesticide(s)" as "control measures" and fixes the
// casing of the known safe products. It is idempotent.
func Sanitize(text string) string {
	text = pesticideWord.ReplaceAllString(text, "control measures")
	text = neemOil.ReplaceAllString(text, "Neem oil")
	text = spinosad.ReplaceAllString(text, "Spinosad")
	return text
}

// sanitizeOutput runs Sanitize over raw and, when raw is a JSON document,
// over each decoded string value as well. The document is re-encoded in
// field order only if a decoded value changed.
func sanitizeOutput(raw string) string {
	text := Sanitize(raw)
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var b bytes.Buffer
	changed := false
	if err := sanitizeValue(dec, &b, &changed); err != nil || !changed {
		return text
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return text
	}
	return b.String()
}

var errBadToken = errors.New("unexpected json token")

func sanitizeValue(dec *json.Decoder, b *bytes.Buffer, changed *bool) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			b.WriteByte('{')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				key, err := dec.Token()
				if err != nil {
					return err
				}
				k, ok := key.(string)
				if !ok {
					return errBadToken
				}
				writeJSONString(b, k)
				b.WriteByte(':')
				if err := sanitizeValue(dec, b, changed); err != nil {
					return err
				}
			}
			b.WriteByte('}')
		case '[':
			b.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				if err := sanitizeValue(dec, b, changed); err != nil {
					return err
				}
			}
			b.WriteByte(']')
		default:
			return errBadToken
		}
		// closing delimiter
		_, err := dec.Token()
		return err
	case string:
		s := Sanitize(t)
		if s != t {
			*changed = true
		}
		writeJSONString(b, s)
	case json.Number:
		b.WriteString(t.String())
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case nil:
		b.WriteString("null")
	}
	return nil
}

func writeJSONString(b *bytes.Buffer, s string) {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	b.Truncate(b.Len() - 1)
}
