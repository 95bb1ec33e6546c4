package pipeline

import (
	"context"
	"errors"
	"testing"
)

type fakeStages struct {
	calls    []string
	failAt   string
	textSeen []*TextItem
}

func (f *fakeStages) textProcessor() TextProcessor {
	return textFunc(func(ctx context.Context, item *TextItem) (*TextItem, error) {
		f.calls = append(f.calls, "text")
		if f.failAt == "text" {
			return nil, errors.New("boom")
		}
		return item, nil
	})
}

func (f *fakeStages) audioGenerator() AudioGenerator {
	return audioFunc(func(ctx context.Context, item *TextItem) (*AudioItem, error) {
		f.calls = append(f.calls, "audio")
		f.textSeen = append(f.textSeen, item)
		if f.failAt == "audio" {
			return nil, errors.New("boom")
		}
		return &AudioItem{Path: "speech.mp3"}, nil
	})
}

func (f *fakeStages) imageGenerator() ImageGenerator {
	return imageFunc(func(ctx context.Context, item *TextItem) (*ImageItem, error) {
		f.calls = append(f.calls, "image")
		f.textSeen = append(f.textSeen, item)
		if f.failAt == "image" {
			return nil, errors.New("boom")
		}
		return &ImageItem{Path: "cover.png"}, nil
	})
}

func (f *fakeStages) videoCreator() VideoCreator {
	return videoFunc(func(ctx context.Context, audio *AudioItem, image *ImageItem) (*VideoItem, error) {
		f.calls = append(f.calls, "video")
		if f.failAt == "video" {
			return nil, errors.New("boom")
		}
		return &VideoItem{Path: "video.mp4"}, nil
	})
}

func (f *fakeStages) uploader() Uploader {
	return uploadFunc(func(ctx context.Context, item *VideoItem) (*VideoItem, error) {
		f.calls = append(f.calls, "upload")
		if f.failAt == "upload" {
			return nil, errors.New("boom")
		}
		return item, nil
	})
}

type textFunc func(context.Context, *TextItem) (*TextItem, error)
type audioFunc func(context.Context, *TextItem) (*AudioItem, error)
type imageFunc func(context.Context, *TextItem) (*ImageItem, error)
type videoFunc func(context.Context, *AudioItem, *ImageItem) (*VideoItem, error)
type uploadFunc func(context.Context, *VideoItem) (*VideoItem, error)

func (f textFunc) Run(ctx context.Context, i *TextItem) (*TextItem, error)   { return f(ctx, i) }
func (f audioFunc) Run(ctx context.Context, i *TextItem) (*AudioItem, error) { return f(ctx, i) }
func (f imageFunc) Run(ctx context.Context, i *TextItem) (*ImageItem, error) { return f(ctx, i) }
func (f videoFunc) Run(ctx context.Context, a *AudioItem, i *ImageItem) (*VideoItem, error) {
	return f(ctx, a, i)
}
func (f uploadFunc) Run(ctx context.Context, i *VideoItem) (*VideoItem, error) { return f(ctx, i) }

func newPipeline(f *fakeStages) *Pipeline {
	return &Pipeline{
		Text:   f.textProcessor(),
		Audio:  f.audioGenerator(),
		Image:  f.imageGenerator(),
		Video:  f.videoCreator(),
		Upload: f.uploader(),
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	t.Parallel()

	f := &fakeStages{}
	video, err := newPipeline(f).Run(context.Background(), &TextItem{Content: "test"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if video == nil || video.Path != "video.mp4" {
		t.Fatalf("unexpected video item: %+v", video)
	}

	want := []string{"text", "audio", "image", "video", "upload"}
	if len(f.calls) != len(want) {
		t.Fatalf("expected %d stage calls, got %v", len(want), f.calls)
	}
	for i, name := range want {
		if f.calls[i] != name {
			t.Fatalf("stage order %v, want %v", f.calls, want)
		}
	}
}

func TestPipelineFanOutSharesTextItem(t *testing.T) {
	t.Parallel()

	f := &fakeStages{}
	item := &TextItem{Content: "test"}
	if _, err := newPipeline(f).Run(context.Background(), item); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(f.textSeen) != 2 {
		t.Fatalf("expected audio and image to both see the text item, got %d", len(f.textSeen))
	}
	if f.textSeen[0] != item || f.textSeen[1] != item {
		t.Fatal("audio and image stages must receive the same text item")
	}
}

func TestPipelineAbortsOnFirstError(t *testing.T) {
	t.Parallel()

	for _, failAt := range []string{"text", "audio", "image", "video", "upload"} {
		f := &fakeStages{failAt: failAt}
		_, err := newPipeline(f).Run(context.Background(), &TextItem{Content: "test"})
		if err == nil {
			t.Fatalf("failAt=%s: expected error", failAt)
		}
		if got := f.calls[len(f.calls)-1]; got != failAt {
			t.Fatalf("failAt=%s: pipeline ran past the failing stage, calls %v", failAt, f.calls)
		}
	}
}

func TestCompletenessLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  string
	}{
		{1.0, CompletenessComplete},
		{0.8, CompletenessComplete},
		{0.79, CompletenessPartial},
		{0.5, CompletenessPartial},
		{0.49, CompletenessIncomplete},
		{0.0, CompletenessIncomplete},
	}
	for _, c := range cases {
		if got := CompletenessLabel(c.score); got != c.want {
			t.Errorf("CompletenessLabel(%.2f) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestEvaluationNormalize(t *testing.T) {
	t.Parallel()

	e := ContextEvaluation{CompletenessScore: 0.9, ThoughtCompleteness: "partial"}
	e.Normalize()
	if e.ThoughtCompleteness != CompletenessComplete {
		t.Fatalf("Normalize left label %q, want %q", e.ThoughtCompleteness, CompletenessComplete)
	}
}
