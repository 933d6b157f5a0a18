package analysis

import (
	_ "embed"
	"strings"

	"github.com/fpang/case-insights/internal/casestore"
)

// Prompt templates use literal placeholder tokens rather than text/template
// so the prompt files stay copy-pasteable into a model console for tuning.

//go:embed prompts/summary.txt
var summaryTemplate string

//go:embed prompts/rca.txt
var rcaTemplate string

//go:embed prompts/lifecycle.txt
var lifecycleTemplate string

// summaryPrompt renders the case communications into the summary template.
// Each communication becomes a Time/From/Message block in thread order.
func summaryPrompt(comms []casestore.Communication) string {
	blocks := make([]string, 0, len(comms))
	for _, c := range comms {
		var b strings.Builder
		b.WriteString("Time: ")
		b.WriteString(c.TimeCreated)
		b.WriteString("\nFrom: ")
		b.WriteString(c.SubmittedBy)
		b.WriteString("\nMessage: ")
		b.WriteString(c.Body)
		blocks = append(blocks, b.String())
	}
	return strings.ReplaceAll(summaryTemplate, "{case_annotation}", strings.Join(blocks, "\n\n"))
}

// rcaPrompt renders the case summary into the root-cause template.
func rcaPrompt(summary string) string {
	return strings.ReplaceAll(rcaTemplate, "{Case_Summary}", summary)
}

// lifecyclePrompt renders the case summary into the lifecycle template.
func lifecyclePrompt(summary string) string {
	return strings.ReplaceAll(lifecycleTemplate, "{Case_Summary}", summary)
}
