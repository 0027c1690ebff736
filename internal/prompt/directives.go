// Package prompt supplies the default system directives per report type.
// Template content is deliberately short; full prompt bodies live outside
// this repository.
package prompt

import "github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"

// BaseDirective is the default system directive attached to catalog models.
const BaseDirective = "You are a SIFT methodology fact-checking analyst. " +
	"Investigate the source, find better coverage, and trace claims to their " +
	"original context. Be precise about what is verified versus inferred."

var reportDirectives = map[types.ReportType]string{
	types.ReportFullCheck: BaseDirective +
		" Produce a full SIFT check: claim summary, source analysis, " +
		"coverage comparison, context trace, and a confidence verdict.",
	types.ReportContextReport: BaseDirective +
		" Produce a context report: where the artifact first appeared, how " +
		"it spread, and what essential context is missing.",
	types.ReportCommunityNote: BaseDirective +
		" Draft a neutral, sourced community note of at most 700 characters.",
}

// Directive returns the system directive for a report type, falling back to
// the base directive for unknown tags.
func Directive(t types.ReportType) string {
	if d, ok := reportDirectives[t]; ok {
		return d
	}
	return BaseDirective
}
