// Package pseudonym implements the Replacer strategy that substitutes
// realistic, same-category synthetic values instead of numbered
// placeholders. Values are drawn deterministically from a locale-specific
// data table, seeded from the thread id and the entity's start offset. A
// (thread, original) pair keeps the pseudonym it got first because the
// Replacer records it in the Entity Store and looks it up before minting a
// new one.
//
// Locale selection is grounded on laplaque-ai-anonymizing-proxy's use of
// golang.org/x/text; the German-flavored data table mirrors
// original_source's focus on German PII types.
package pseudonym

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/text/language"

	"github.com/hfi/privacy-gateway/internal/domain"
	"github.com/hfi/privacy-gateway/internal/replacer"
)

var supportedLabels = []string{
	"person", "email", "phone_number", "iban", "address", "city",
}

// table holds the same-category synthetic values for one locale.
type table struct {
	names  []string
	cities []string
}

var tables = map[language.Tag]table{
	language.English: {
		names:  []string{"Alex Morgan", "Jordan Blake", "Taylor Reed", "Casey Quinn", "Riley Shaw"},
		cities: []string{"Springfield", "Fairview", "Riverside", "Greenville", "Madison"},
	},
	language.German: {
		names:  []string{"Max Mustermann", "Erika Musterfrau", "Jonas Becker", "Lena Hoffmann", "Felix Wagner"},
		cities: []string{"Musterstadt", "Neustadt", "Altdorf", "Langenfeld", "Rosenheim"},
	},
}

// Strategy is the pseudonym Replacer strategy.
type Strategy struct {
	locale language.Tag
}

// New parses localeTag (e.g. "en", "de") and returns a Strategy for it,
// falling back to English for an unrecognised or empty tag.
func New(localeTag string) *Strategy {
	tag, err := language.Parse(localeTag)
	if err != nil {
		tag = language.English
	}
	base, _ := tag.Base()
	resolved := language.English
	for t := range tables {
		tb, _ := t.Base()
		if tb == base {
			resolved = t
			break
		}
	}
	return &Strategy{locale: resolved}
}

// Name implements replacer.Strategy.
func (s *Strategy) Name() string { return "pseudonym" }

// SupportedLabels implements replacer.Strategy.
func (s *Strategy) SupportedLabels() []string { return supportedLabels }

// CreatePlaceholder deterministically selects a same-category value seeded
// from thread and the entity's position, so repeated entities of the same
// label within a thread get varied (not identical) pseudonyms.
func (s *Strategy) CreatePlaceholder(ctx context.Context, thread domain.ThreadID, e domain.Entity) (string, error) {
	tb := tables[s.locale]
	seed1 := uint64(0)
	seed2 := uint64(e.Start) + 1
	for i, b := range thread[:8] {
		seed1 |= uint64(b) << (8 * i)
	}
	for i, b := range thread[8:] {
		seed2 ^= uint64(b) << (8 * i)
	}
	r := rand.New(rand.NewPCG(seed1, seed2))

	switch e.Label {
	case "person":
		return tb.names[r.IntN(len(tb.names))], nil
	case "city":
		return tb.cities[r.IntN(len(tb.cities))], nil
	case "email":
		return fmt.Sprintf("user%d@example.invalid", r.IntN(100000)), nil
	case "phone_number":
		return fmt.Sprintf("+1-555-%04d", r.IntN(10000)), nil
	case "iban":
		return fmt.Sprintf("DE%02d%018d", r.IntN(100), r.Int64N(1_000_000_000_000_000_000)), nil
	case "address":
		return fmt.Sprintf("%d %s Street", r.IntN(9999)+1, tb.cities[r.IntN(len(tb.cities))]), nil
	default:
		return "", replacer.ErrUnsupportedEntity
	}
}
