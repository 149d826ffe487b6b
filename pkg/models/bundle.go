package models

import "time"

// Bundle is the accumulating record of one run's inputs and per-stage
// outputs. A stage's sub-record is set if and only if that stage's step log
// entry is COMPLETED. Once a resume id is supplied the bundle is restored
// from the task registry, never rebuilt from scratch.
type Bundle struct {
	ProjectID string     `json:"project_id"`
	Topic     string     `json:"topic"`
	Options   RunOptions `json:"options"`

	Research  *ResearchResult  `json:"research,omitempty"`
	Draft     *DraftResult     `json:"draft,omitempty"`
	Rewrite   *RewriteResult   `json:"rewrite,omitempty"`
	Assets    *AssetResult     `json:"assets,omitempty"`
	Publish   *PublishResult   `json:"publish,omitempty"`
	Analytics *AnalyticsResult `json:"analytics,omitempty"`

	FinalOutput *FinalOutput `json:"final_output,omitempty"`
}

// Source is one research reference.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Insight is the research stage's synthesized takeaway.
type Insight struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"key_points,omitempty"`
	RecommendedTitles []string `json:"recommended_titles"`
}

// ResearchAttempt records one provider try, including the fallback, so a
// report shows which provider actually served the run.
type ResearchAttempt struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

type ResearchResult struct {
	Provider string            `json:"provider"`
	Sources  []Source          `json:"sources"`
	Insight  Insight           `json:"insight"`
	Attempts []ResearchAttempt `json:"attempts"`
}

type DraftResult struct {
	Content  string   `json:"content"`
	Warnings []string `json:"warnings"`
}

// PlatformVariant is the rewrite output for one target platform.
type PlatformVariant struct {
	TitleCandidates []string `json:"title_candidates"`
	Body            string   `json:"body"`
	Hashtags        []string `json:"hashtags,omitempty"`
}

type RewriteResult struct {
	Variants map[string]PlatformVariant `json:"variants"`
	Errors   []string                   `json:"errors"`
}

type AssetResult struct {
	ImageURL string `json:"image_url"`
	Provider string `json:"provider"`
	Note     string `json:"note,omitempty"`
}

type PublishResult struct {
	Mode    string `json:"mode,omitempty"`
	PostID  string `json:"post_id,omitempty"`
	EditURL string `json:"edit_url,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type AnalyticsResult struct {
	Summary       string    `json:"summary"`
	WordCount     int       `json:"word_count"`
	SourceCount   int       `json:"source_count"`
	PlatformCount int       `json:"platform_count"`
	HashtagCount  int       `json:"hashtag_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// FinalOutput is derived only after all six stages have completed.
type FinalOutput struct {
	Summary         string   `json:"summary"`
	TitleCandidates []string `json:"title_candidates"`
	PlatformCount   int      `json:"platform_count"`
	HasAsset        bool     `json:"has_asset"`
	PublishStatus   string   `json:"publish_status"`
}

// NewBundle creates a fresh bundle for a first run.
func NewBundle(projectID, topic string, opts RunOptions) *Bundle {
	opts.Normalize()

	return &Bundle{ProjectID: projectID, Topic: topic, Options: opts}
}

// DeriveFinalOutput computes the run summary from a fully populated bundle.
func (b *Bundle) DeriveFinalOutput() *FinalOutput {
	out := &FinalOutput{}

	if b.Research != nil {
		out.Summary = b.Research.Insight.Summary
		out.TitleCandidates = append(out.TitleCandidates, b.Research.Insight.RecommendedTitles...)
	}

	if b.Rewrite != nil {
		out.PlatformCount = len(b.Rewrite.Variants)
	}

	if b.Assets != nil && b.Assets.ImageURL != "" {
		out.HasAsset = true
	}

	if b.Publish != nil {
		out.PublishStatus = b.Publish.Status
	}

	return out
}
