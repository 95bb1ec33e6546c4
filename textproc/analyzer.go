package textproc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

const maxTopicRunes = 32

// completer is the slice of the llm client the analyzer needs
type completer interface {
	CompleteJSON(ctx context.Context, system, user string, out interface{}) error
}

// Analyzer extracts structured biblical context from the input text via a
// single structured-output LLM call. This stage has no offline fallback:
// without the analysis nothing downstream has meaningful content.
type Analyzer struct {
	cfg    *config.Config
	client completer
}

// New creates an Analyzer backed by the given completion client
func New(cfg *config.Config, client completer) *Analyzer {
	return &Analyzer{cfg: cfg, client: client}
}

// Run analyzes the text, creates the per-run output folder, persists the
// input and the analysis result, and attaches both the result and the
// folder path to the item.
func (a *Analyzer) Run(ctx context.Context, item *pipeline.TextItem) (*pipeline.TextItem, error) {
	log := logrus.WithField("stage", "textproc")

	if err := a.validate(item.Content); err != nil {
		return nil, err
	}

	lang := detectLanguage(item.Content)
	log.Infof("Analyzing biblical context (language: %s)", lang)

	var result pipeline.ContextAnalysisResult
	if err := a.client.CompleteJSON(ctx, systemPrompt(lang), item.Content, &result); err != nil {
		log.Errorf("Context analysis failed: %v", err)
		return nil, fmt.Errorf("context analysis: %w", err)
	}
	if result.Topic == "" {
		log.Error("Model did not return a valid structured result")
		return nil, fmt.Errorf("context analysis: no structured result")
	}
	result.ContextEvaluation.Normalize()

	folder := time.Now().Format("20060102_1504") + "_" + sanitizeTopic(result.Topic)
	outputDir := filepath.Join(a.cfg.Paths.Output, folder)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, "input.txt"), []byte(item.Content), 0644); err != nil {
		return nil, fmt.Errorf("save input: %w", err)
	}
	data, err := json.MarshalIndent(&result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "context_analysis.json"), data, 0644); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	item.OutputDir = outputDir
	item.Analysis = &result
	log.Infof("Analysis complete: topic=%q references=%d score=%.2f",
		result.Topic, len(result.BibleReferences), result.ContextEvaluation.CompletenessScore)
	return item, nil
}

func (a *Analyzer) validate(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("input text is empty")
	}
	n := utf8.RuneCountInString(trimmed)
	if max := a.cfg.Text.MaxLength; max > 0 && n > max {
		return fmt.Errorf("input text too long: %d runes (max %d)", n, max)
	}
	if min := a.cfg.Text.MinLength; min > 0 && n < min {
		// Short thoughts still produce a run, but the analysis will likely
		// come back as incomplete.
		logrus.WithField("stage", "textproc").
			Warnf("Input below configured minimum length (%d < %d runes)", n, min)
	}
	return nil
}

// detectLanguage classifies the input as Russian or English by the share
// of Cyrillic runes among letters. Ratio above 0.3 means Russian.
func detectLanguage(text string) string {
	var cyrillic, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
		}
		if r >= 0x0400 && r <= 0x04FF {
			cyrillic++
		}
	}
	if letters == 0 {
		return "English"
	}
	if float64(cyrillic)/float64(letters) > 0.3 {
		return "Russian"
	}
	return "English"
}

// sanitizeTopic strips all whitespace from the topic and caps it at 32
// runes so it is safe as a folder-name suffix.
func sanitizeTopic(topic string) string {
	joined := strings.Join(strings.Fields(topic), "")
	runes := []rune(joined)
	if len(runes) > maxTopicRunes {
		runes = runes[:maxTopicRunes]
	}
	return string(runes)
}

func systemPrompt(language string) string {
	return fmt.Sprintf(`You are an expert biblical analyst. Extract comprehensive biblical context from the user's text and assess its sufficiency for podcast creation.

You MUST respond with ONLY a valid JSON object — no markdown, no explanation. The object must have exactly these fields:
- "topic": string, 2-5 words in English (used for folder naming)
- "bible_references": array of {"reference": string, "quotes": [string], "context": string}
- "keywords": array of strings
- "themes": array of strings
- "structure": string or null
- "typologies_and_parallelisms": array of strings
- "summary": string, 2-3 sentences
- "context_evaluation": {"is_context_sufficient": bool, "missing_elements": [string], "enrichment_suggestions": [string], "completeness_score": number, "thought_completeness": string}

IMPORTANT REQUIREMENTS:
1. Extract ONLY what is explicitly present in the user's text - do not add external knowledge
2. For bible_references: provide biblical quotes in %[1]s (same language as user's text)
3. For topic: always use English (for folder naming)
4. For all other fields: use %[1]s (same language as user's text)

EXTRACTION GUIDELINES:
- bible_references: for each biblical mention or allusion:
  * reference: standard biblical reference in %[1]s (e.g., "Genesis 1:1-31")
    ! for English use King James Version (KJV), for Russian use Синодальный перевод (RST)
  * quotes: biblical text in %[1]s, at least one sentence each, use ellipsis (...) for long passages
  * context: brief explanation of what this verse/passage is about (not how it relates to user's text)
- keywords: key terms and concepts from the user's text
- themes: only theological, psychological, or historical themes explicitly present
- structure: only if there's clear structure (repetition, climax, rhythm, logical progression)
- typologies_and_parallelisms: only explicitly stated connections
- summary: 2-3 sentence summary of user's main thought

CONTEXT SUFFICIENCY ASSESSMENT:
- is_context_sufficient: true if the text contains enough material for a complete podcast
- completeness_score: 0.0 to 1.0
  * 0.8-1.0: complete thought with clear structure, biblical references, and sufficient detail
  * 0.5-0.7: partial thought with some missing elements but enough for a basic podcast
  * 0.0-0.4: incomplete thought requiring significant enrichment
- thought_completeness: 'complete' (0.8+), 'partial' (0.5-0.7), 'incomplete' (0.0-0.4)
- missing_elements: what is missing (e.g., "biblical references", "clear structure")
- enrichment_suggestions: what could be added (e.g., "add supporting Bible verses")

If any category has no clear examples in the text, leave it empty or null.
Focus on accuracy over completeness - better to extract less than to add what isn't there.`, language)
}
