package pipeline

// TextItem is the root item of a pipeline run. The analyzer stage fills in
// OutputDir and Analysis; downstream stages only read it.
type TextItem struct {
	ID        string                 `json:"id,omitempty"`
	Content   string                 `json:"content"`
	OutputDir string                 `json:"output_dir,omitempty"`
	Analysis  *ContextAnalysisResult `json:"context_analysis,omitempty"`
}

// AudioItem wraps a generated speech file
type AudioItem struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

// ImageItem wraps a generated cover image
type ImageItem struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

// VideoItem wraps the final composed video
type VideoItem struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

// BibleReference is one biblical mention extracted from the input text
type BibleReference struct {
	Reference string   `json:"reference"`
	Quotes    []string `json:"quotes"`
	Context   string   `json:"context"`
}

// ContextEvaluation is the analyzer's self-assessment of whether the input
// carries enough material for a complete podcast episode.
type ContextEvaluation struct {
	IsContextSufficient   bool     `json:"is_context_sufficient"`
	MissingElements       []string `json:"missing_elements"`
	EnrichmentSuggestions []string `json:"enrichment_suggestions"`
	CompletenessScore     float64  `json:"completeness_score"`
	ThoughtCompleteness   string   `json:"thought_completeness"`
}

// ContextAnalysisResult is the structured output of the text analysis stage
type ContextAnalysisResult struct {
	Topic                     string            `json:"topic"`
	BibleReferences           []BibleReference  `json:"bible_references"`
	Keywords                  []string          `json:"keywords"`
	Themes                    []string          `json:"themes"`
	Structure                 string            `json:"structure,omitempty"`
	TypologiesAndParallelisms []string          `json:"typologies_and_parallelisms"`
	Summary                   string            `json:"summary"`
	ContextEvaluation         ContextEvaluation `json:"context_evaluation"`
}

// Completeness labels reported in ContextEvaluation.ThoughtCompleteness
const (
	CompletenessComplete   = "complete"
	CompletenessPartial    = "partial"
	CompletenessIncomplete = "incomplete"
)

// CompletenessLabel derives the three-valued completeness label from a
// 0.0-1.0 score: >=0.8 complete, >=0.5 partial, below that incomplete.
func CompletenessLabel(score float64) string {
	switch {
	case score >= 0.8:
		return CompletenessComplete
	case score >= 0.5:
		return CompletenessPartial
	default:
		return CompletenessIncomplete
	}
}

// Normalize forces ThoughtCompleteness to agree with CompletenessScore.
// The model is asked to uphold this itself but nothing guarantees it does.
func (e *ContextEvaluation) Normalize() {
	e.ThoughtCompleteness = CompletenessLabel(e.CompletenessScore)
}
