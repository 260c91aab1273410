// Package report renders run outcomes for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// Format names an output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", eris.Wrapf(config.ErrInvalid, "report: unknown format %q", s)
	}
}

// reasonPhrases maps each drop reason to its sentence in the text report.
var reasonPhrases = map[model.DropReason]string{
	model.DropMalformedDate:  "%d were dropped because their date could not be parsed",
	model.DropExcluded:       "%d were dropped because they appear in an exclusion list",
	model.DropNotIncluded:    "%d were dropped because they do not appear in an inclusion list",
	model.DropDateBounds:     "%d were dropped because their date falls outside the requested range",
	model.DropQuery:          "%d were dropped because of the query predicate",
	model.DropQuality:        "%d were dropped because they fail a quality threshold",
	model.DropAmbiguousYear:  "%d were dropped because their year is ambiguous",
	model.DropAmbiguousMonth: "%d were dropped because their month is ambiguous",
	model.DropAmbiguousDay:   "%d were dropped because their day is ambiguous",
	model.DropSubsampling:    "%d were dropped because of subsampling criteria",
}

// reasonOrder fixes the report's reason ordering; map iteration is random.
var reasonOrder = []model.DropReason{
	model.DropMalformedDate,
	model.DropExcluded,
	model.DropNotIncluded,
	model.DropDateBounds,
	model.DropQuery,
	model.DropQuality,
	model.DropAmbiguousYear,
	model.DropAmbiguousMonth,
	model.DropAmbiguousDay,
	model.DropSubsampling,
}

// Write renders the outcome in the requested format.
func Write(w io.Writer, outcome *model.Outcome, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(outcome), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return eris.Wrap(enc.Encode(outcome), "report: encode yaml")
	default:
		return writeText(w, outcome)
	}
}

// writeText writes the human-readable summary with grouped digits.
func writeText(w io.Writer, outcome *model.Outcome) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "%d records were read.\n", outcome.TotalRecords); err != nil {
		return eris.Wrap(err, "report: write")
	}

	for _, reason := range reasonOrder {
		n := outcome.DropCounts[reason]
		if n == 0 {
			continue
		}
		phrase, ok := reasonPhrases[reason]
		if !ok {
			phrase = "%d were dropped (" + string(reason) + ")"
		}
		if _, err := p.Fprintf(w, "\t"+phrase+".\n", n); err != nil {
			return eris.Wrap(err, "report: write")
		}
	}
	// Reasons outside the fixed order still get a line.
	for reason, n := range outcome.DropCounts {
		if n == 0 || reasonPhrases[reason] != "" {
			continue
		}
		if _, err := p.Fprintf(w, "\t%d were dropped (%s).\n", n, string(reason)); err != nil {
			return eris.Wrap(err, "report: write")
		}
	}

	if outcome.ForceIncluded > 0 {
		if _, err := p.Fprintf(w, "\t%d were force-included regardless of the filters above.\n", outcome.ForceIncluded); err != nil {
			return eris.Wrap(err, "report: write")
		}
	}

	if len(outcome.Groups) > 0 {
		sampling := "evenly"
		if outcome.Probabilistic {
			sampling = "probabilistically"
		}
		if _, err := p.Fprintf(w, "Records were sampled %s across %d groups", sampling, len(outcome.Groups)); err != nil {
			return eris.Wrap(err, "report: write")
		}
		if outcome.Seeded {
			if _, err := fmt.Fprintf(w, " (seed %d)", outcome.Seed); err != nil {
				return eris.Wrap(err, "report: write")
			}
		}
		if _, err := fmt.Fprintln(w, "."); err != nil {
			return eris.Wrap(err, "report: write")
		}
	}

	if _, err := p.Fprintf(w, "%d records passed all filters.\n", len(outcome.Kept)); err != nil {
		return eris.Wrap(err, "report: write")
	}
	return nil
}

// WriteGroups writes the per-group breakdown table appended to verbose text
// reports.
func WriteGroups(w io.Writer, outcome *model.Outcome) error {
	p := message.NewPrinter(language.English)
	for _, g := range outcome.Groups {
		key := g.Key
		if key == "" {
			key = "all"
		}
		if _, err := p.Fprintf(w, "\t%s: kept %d of %d (quota %d)\n", key, g.Kept, g.Population, g.Quota); err != nil {
			return eris.Wrap(err, "report: write group")
		}
	}
	return nil
}
