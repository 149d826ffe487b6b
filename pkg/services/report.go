package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/template"
)

// ReportFormat selects the rendering of a run report.
type ReportFormat string

const (
	ReportFormatJSON     ReportFormat = "json"
	ReportFormatMarkdown ReportFormat = "markdown"
)

// Report is the renderable view of one run.
type Report struct {
	TaskID   string            `json:"task_id"`
	Status   models.TaskStatus `json:"status"`
	Progress int               `json:"progress"`
	Error    *models.TaskError `json:"error,omitempty"`

	Steps       []models.StepLog    `json:"steps"`
	Bundle      models.Bundle       `json:"bundle"`
	FinalOutput *models.FinalOutput `json:"final_output,omitempty"`
	FailedStep  models.StepKind     `json:"failed_step,omitempty"`
	Recoverable bool                `json:"recoverable"`
}

const markdownReport = `# Run Report: {{ .TaskID }}

- **Project**: {{ .Bundle.ProjectID }}
- **Topic**: {{ .Bundle.Topic }}
- **Status**: {{ .Status }} ({{ .Progress }}%)
{{- if .FailedStep }}
- **Failed step**: {{ .FailedStep }}{{ if .Recoverable }} (recoverable, resubmit with this task id){{ end }}
{{- end }}
{{- if .Error }}
- **Error**: {{ .Error.Code }}: {{ .Error.Message }}
{{- end }}

## Steps

| Step | Status | Provider | Retries | Duration |
|------|--------|----------|---------|----------|
{{- range .Steps }}
| {{ .Step }} | {{ .Status }} | {{ if .Provider }}{{ .Provider }}{{ else }}-{{ end }} | {{ .RetryCount }} | {{ .DurationMs }}ms |
{{- end }}
{{- if .Bundle.Research }}

## Research ({{ len .Bundle.Research.Sources }} sources via {{ .Bundle.Research.Provider }})

{{ .Bundle.Research.Insight.Summary }}
{{- range .Bundle.Research.Sources }}
- [{{ .Title }}]({{ .URL }})
{{- end }}
{{- end }}
{{- if .Bundle.Draft }}

## Draft

{{ truncate .Bundle.Draft.Content 400 }}
{{- end }}
{{- if .Bundle.Rewrite }}

## Platform Variants
{{ range $platform, $variant := .Bundle.Rewrite.Variants }}
### {{ $platform }}

- Titles: {{ join $variant.TitleCandidates "; " }}
{{- if $variant.Hashtags }}
- Hashtags: {{ join $variant.Hashtags " " }}
{{- end }}

{{ truncate $variant.Body 200 }}
{{ end }}
{{- end }}
{{- if .Bundle.Assets }}

## Asset

{{ if .Bundle.Assets.ImageURL }}![cover]({{ .Bundle.Assets.ImageURL }}) (via {{ .Bundle.Assets.Provider }}){{ else }}Skipped.{{ end }}
{{- end }}
{{- if .Bundle.Publish }}

## Publish

Mode: {{ .Bundle.Publish.Mode }}, status: {{ .Bundle.Publish.Status }}{{ if .Bundle.Publish.EditURL }} — [edit]({{ .Bundle.Publish.EditURL }}){{ end }}
{{- end }}
{{- if .Bundle.Analytics }}

## Analytics

{{ .Bundle.Analytics.Summary }}
{{- end }}
`

// BuildReport assembles the report view for a task. The snapshot payload
// must contain a decodable run payload.
func (s *Runs) BuildReport(ctx context.Context, taskID string) (*Report, error) {
	snapshot, err := s.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if len(snapshot.Payload) == 0 {
		return nil, ErrReportNotReady
	}

	payload, err := models.DecodeRunPayload(snapshot.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportNotReady, err)
	}

	return &Report{
		TaskID:      snapshot.TaskID,
		Status:      snapshot.Status,
		Progress:    snapshot.Progress,
		Error:       snapshot.Error,
		Steps:       payload.Steps,
		Bundle:      payload.Bundle,
		FinalOutput: payload.Bundle.FinalOutput,
		FailedStep:  payload.FailedStep,
		Recoverable: payload.Recoverable,
	}, nil
}

// RenderReport renders a task's report in the requested format. An empty
// format defaults to Markdown.
func (s *Runs) RenderReport(ctx context.Context, taskID string, format ReportFormat) (string, error) {
	if format == "" {
		format = ReportFormatMarkdown
	}

	report, err := s.BuildReport(ctx, taskID)
	if err != nil {
		return "", err
	}

	switch format {
	case ReportFormatJSON:
		raw, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", err
		}

		return string(raw), nil
	case ReportFormatMarkdown:
		return template.Render("report", markdownReport, report)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
