// Package regexdetector is a self-contained, local Detector backend: a set
// of regex rules over the PII label vocabulary, with optional per-label
// checksum validators to cut false positives. Grounded on the teacher's
// internal/interceptor/pattern.go rule-table shape, re-purposed from secret
// patterns to personal-data labels, and supplemented with German format
// validators from original_source's custom_types package.
package regexdetector

import (
	"context"
	"regexp"

	"github.com/hfi/privacy-gateway/internal/detector"
	"github.com/hfi/privacy-gateway/internal/domain"
)

// rule pairs a compiled pattern with the label it reports and an optional
// validator that can reject a match the regex alone is too loose to rule
// out (e.g. a German medical insurance ID needs its check digit, not just
// the shape).
type rule struct {
	label      string
	pattern    *regexp.Regexp
	confidence float64
	validate   func(match string) bool
}

// Detector is the regex/entropy-free local Detector backend. It holds no
// per-call state; Detect is a pure function of its inputs.
type Detector struct {
	rules     []rule
	threshold float64
}

// New compiles the default rule set.
func New(defaultThreshold float64) *Detector {
	return &Detector{rules: defaultRules(), threshold: defaultThreshold}
}

func defaultRules() []rule {
	return []rule{
		{
			label:      "email",
			confidence: 0.95,
			pattern:    regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		},
		{
			label:      "phone_number",
			confidence: 0.8,
			pattern:    regexp.MustCompile(`(?:\+\d{1,3}[\s\-]?)?(?:\(\d{2,4}\)[\s\-]?)?\d{3,4}[\s\-]?\d{3,4}[\s\-]?\d{0,4}`),
		},
		{
			label:      "ip_address",
			confidence: 0.9,
			pattern:    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`),
		},
		{
			label:      "iban",
			confidence: 0.9,
			pattern:    regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
		},
		{
			label:      "credit_card",
			confidence: 0.85,
			pattern:    regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
		},
		{
			label:      "german_id_number",
			confidence: 0.9,
			pattern:    regexp.MustCompile(`\b[CFGHJKLMNPRTVWXYZ][CFGHJKLMNPRTVWXYZ0-9]{8}\b`),
			validate:   validGermanIDNumber,
		},
		{
			label:      "german_license_plate",
			confidence: 0.9,
			pattern:    regexp.MustCompile(`\b[A-Z]{1,3}-[A-Z]{1,2}\d{1,4}\b`),
			validate:   validGermanLicensePlate,
		},
		{
			label:      "medical_insurance_id",
			confidence: 0.9,
			pattern:    regexp.MustCompile(`\b[A-Za-z]\d{9}\b`),
			validate:   validGermanMedicalInsuranceID,
		},
	}
}

// Detect implements detector.Detector.
func (d *Detector) Detect(ctx context.Context, texts []string, threshold float64) ([][]domain.Entity, error) {
	if texts == nil {
		return nil, detector.ErrInvalidInput
	}
	if threshold < 0 || threshold > 1 {
		return nil, detector.ErrInvalidInput
	}
	if threshold == 0 {
		threshold = d.threshold
	}

	out := make([][]domain.Entity, len(texts))
	for i, text := range texts {
		out[i] = d.detectOne(text, threshold)
	}
	return out, nil
}

func (d *Detector) detectOne(text string, threshold float64) []domain.Entity {
	var entities []domain.Entity
	for _, r := range d.rules {
		if r.confidence < threshold {
			continue
		}
		matches := r.pattern.FindAllStringIndex(text, -1)
		for _, m := range matches {
			start, end := m[0], m[1]
			value := text[start:end]
			if r.validate != nil && !r.validate(value) {
				continue
			}
			entities = append(entities, domain.Entity{
				Start: start,
				End:   end,
				Text:  value,
				Label: r.label,
				Score: r.confidence,
			})
		}
	}
	return entities
}

// Probe implements detector.Detector.
func (d *Detector) Probe(ctx context.Context) (detector.Info, error) {
	labels := make([]string, len(d.rules))
	for i, r := range d.rules {
		labels[i] = r.label
	}
	return detector.Info{
		SupportedLabels:  labels,
		DefaultThreshold: d.threshold,
		APIKeyRequired:   false,
	}, nil
}

var _ detector.Detector = (*Detector)(nil)
