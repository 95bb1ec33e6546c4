package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// The five stage contracts. Each stage does one transformation and is
// responsible for its own resilience; the driver never retries or skips.

// TextProcessor analyzes the raw text and attaches the structured result
type TextProcessor interface {
	Run(ctx context.Context, item *TextItem) (*TextItem, error)
}

// AudioGenerator produces a speech artifact from the analyzed text
type AudioGenerator interface {
	Run(ctx context.Context, item *TextItem) (*AudioItem, error)
}

// ImageGenerator produces a cover image from the analyzed text
type ImageGenerator interface {
	Run(ctx context.Context, item *TextItem) (*ImageItem, error)
}

// VideoCreator joins the audio and image artifacts into a video
type VideoCreator interface {
	Run(ctx context.Context, audio *AudioItem, image *ImageItem) (*VideoItem, error)
}

// Uploader publishes the video (or records upload metadata when disabled)
type Uploader interface {
	Run(ctx context.Context, item *VideoItem) (*VideoItem, error)
}

// Pipeline threads one text item through all five stages: the text item
// fans out to the audio and image stages, whose outputs the video stage
// joins. Execution is strictly sequential; the first error aborts the run.
type Pipeline struct {
	Text   TextProcessor
	Audio  AudioGenerator
	Image  ImageGenerator
	Video  VideoCreator
	Upload Uploader
}

// Run executes the full pipeline and returns the final video item
func (p *Pipeline) Run(ctx context.Context, item *TextItem) (*VideoItem, error) {
	logrus.WithField("stage", "pipeline").Info("Starting pipeline run")

	text, err := p.Text.Run(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("text processing: %w", err)
	}

	audio, err := p.Audio.Run(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("audio generation: %w", err)
	}

	image, err := p.Image.Run(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}

	video, err := p.Video.Run(ctx, audio, image)
	if err != nil {
		return nil, fmt.Errorf("video creation: %w", err)
	}

	uploaded, err := p.Upload.Run(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	logrus.WithField("stage", "pipeline").Infof("Pipeline complete: %s", uploaded.Path)
	return uploaded, nil
}

// RunState tracks the outcome of one pipeline run for the state file and
// the run-history store.
type RunState struct {
	RunID       string  `json:"run_id"`
	StartedAt   string  `json:"started_at"`
	CompletedAt string  `json:"completed_at"`
	Topic       string  `json:"topic,omitempty"`
	OutputDir   string  `json:"output_dir,omitempty"`
	AudioFile   string  `json:"audio_file,omitempty"`
	ImageFile   string  `json:"image_file,omitempty"`
	VideoFile   string  `json:"video_file,omitempty"`
	Score       float64 `json:"completeness_score,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// NewRunState starts tracking a run
func NewRunState(runID string) *RunState {
	return &RunState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Complete stamps the completion time and records the failure, if any
func (s *RunState) Complete(err error) {
	s.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		s.Error = err.Error()
	}
}

// Save writes the state as pipeline_state.json into dir. Best effort: a
// state file is never worth failing a run over.
func (s *RunState) Save(dir string) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		logrus.WithField("stage", "pipeline").Warnf("Could not marshal run state: %v", err)
		return
	}
	path := filepath.Join(dir, "pipeline_state.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.WithField("stage", "pipeline").Warnf("Could not save %s: %v", path, err)
	}
}
