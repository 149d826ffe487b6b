package models

// ResearchTool selects which search surface the research stage queries.
type ResearchTool string

const (
	ResearchToolWebSearch  ResearchTool = "WEB_SEARCH"
	ResearchToolNewsSearch ResearchTool = "NEWS_SEARCH"
)

// TimeWindow bounds how far back the research stage looks for sources.
type TimeWindow string

const (
	TimeWindow24h TimeWindow = "24h"
	TimeWindow7d  TimeWindow = "7d"
	TimeWindow30d TimeWindow = "30d"
	TimeWindowAll TimeWindow = "all"
)

// Length is the requested draft length preset.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// DefaultPlatforms are the platform codes targeted when a run does not name
// its own set.
func DefaultPlatforms() []string {
	return []string{"WECHAT", "WEIBO", "XIAOHONGSHU", "ZHIHU"}
}

// RunOptions is the resolved, concrete option set persisted inside a bundle.
// Every field holds an effective value; defaults are applied by Normalize.
type RunOptions struct {
	ResearchTool       ResearchTool `json:"research_tool"`
	TimeWindow         TimeWindow   `json:"time_window"`
	Tone               string       `json:"tone"`
	Audience           string       `json:"audience"`
	Length             Length       `json:"length"`
	Platforms          []string     `json:"platforms"`
	GenerateAsset      bool         `json:"generate_asset"`
	PublishToWordpress bool         `json:"publish_to_wordpress"`
}

// Normalize fills unset option fields with their defaults. Boolean options
// are left as-is: they always carry an effective value once a request has
// been overlaid.
func (o *RunOptions) Normalize() {
	if o.ResearchTool == "" {
		o.ResearchTool = ResearchToolWebSearch
	}

	if o.TimeWindow == "" {
		o.TimeWindow = TimeWindow7d
	}

	if o.Tone == "" {
		o.Tone = "professional"
	}

	if o.Audience == "" {
		o.Audience = "general"
	}

	if o.Length == "" {
		o.Length = LengthMedium
	}

	if len(o.Platforms) == 0 {
		o.Platforms = DefaultPlatforms()
	}
}

// DefaultRunOptions returns the option set applied to a fresh run before any
// request overrides. Asset generation defaults on, publishing defaults off.
func DefaultRunOptions() RunOptions {
	opts := RunOptions{GenerateAsset: true, PublishToWordpress: false}
	opts.Normalize()

	return opts
}

// RunRequest is the submit-or-resume input. Pointer fields distinguish
// "explicitly supplied" from "absent" so that a resumed run only overrides
// the persisted options a caller actually set.
type RunRequest struct {
	ProjectID      string `json:"project_id"      validate:"required_without=ResumeTaskID"`
	Topic          string `json:"topic"`
	ResumeTaskID   string `json:"resume_task_id,omitempty"`
	TraceID        string `json:"trace_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	ResearchTool       string   `json:"research_tool,omitempty" validate:"omitempty,oneof=WEB_SEARCH NEWS_SEARCH"`
	TimeWindow         string   `json:"time_window,omitempty"   validate:"omitempty,oneof=24h 7d 30d all"`
	Tone               string   `json:"tone,omitempty"`
	Audience           string   `json:"audience,omitempty"`
	Length             string   `json:"length,omitempty"        validate:"omitempty,oneof=short medium long"`
	Platforms          []string `json:"platforms,omitempty"`
	GenerateAsset      *bool    `json:"generate_asset,omitempty"`
	PublishToWordpress *bool    `json:"publish_to_wordpress,omitempty"`
}

// Overlay applies the request's explicitly supplied fields on top of a base
// option set. Explicit values win over persisted ones.
func (r RunRequest) Overlay(base RunOptions) RunOptions {
	opts := base

	if r.ResearchTool != "" {
		opts.ResearchTool = ResearchTool(r.ResearchTool)
	}

	if r.TimeWindow != "" {
		opts.TimeWindow = TimeWindow(r.TimeWindow)
	}

	if r.Tone != "" {
		opts.Tone = r.Tone
	}

	if r.Audience != "" {
		opts.Audience = r.Audience
	}

	if r.Length != "" {
		opts.Length = Length(r.Length)
	}

	if len(r.Platforms) > 0 {
		opts.Platforms = append([]string(nil), r.Platforms...)
	}

	if r.GenerateAsset != nil {
		opts.GenerateAsset = *r.GenerateAsset
	}

	if r.PublishToWordpress != nil {
		opts.PublishToWordpress = *r.PublishToWordpress
	}

	opts.Normalize()

	return opts
}
