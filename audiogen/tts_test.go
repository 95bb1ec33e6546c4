package audiogen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Format = "wav" // keep tests independent of ffmpeg
	return cfg
}

func textItem(t *testing.T) *pipeline.TextItem {
	t.Helper()
	return &pipeline.TextItem{
		Content:   "In the beginning",
		OutputDir: t.TempDir(),
	}
}

func TestRunWithoutCredentialProducesSilentAudio(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.API.ElevenLabsKey = ""
	s := New(cfg)

	item, err := s.Run(context.Background(), textItem(t))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	ext := filepath.Ext(item.Path)
	if ext != "."+cfg.Audio.Format && ext != ".wav" {
		t.Fatalf("unexpected extension %q", ext)
	}
	fi, err := os.Stat(item.Path)
	if err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatal("audio file is empty")
	}
}

func TestRunFallsBackOnServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.API.ElevenLabsKey = "test-key"
	s := New(cfg)
	s.BaseURL = srv.URL

	item, err := s.Run(context.Background(), textItem(t))
	if err != nil {
		t.Fatalf("Run must degrade, not fail: %v", err)
	}
	if _, err := os.Stat(item.Path); err != nil {
		t.Fatalf("placeholder audio missing: %v", err)
	}
}

func TestRunSavesSynthesizedAudio(t *testing.T) {
	t.Parallel()

	payload := []byte("fake-mp3-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/text-to-speech/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing xi-api-key header")
		}
		w.Write(payload)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.API.ElevenLabsKey = "test-key"
	s := New(cfg)
	s.BaseURL = srv.URL

	item, err := s.Run(context.Background(), textItem(t))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	data, err := os.ReadFile(item.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Fatal("saved audio does not match service response")
	}
}

func TestRunRequiresOutputDir(t *testing.T) {
	t.Parallel()

	s := New(testConfig(t))
	if _, err := s.Run(context.Background(), &pipeline.TextItem{Content: "x"}); err == nil {
		t.Fatal("expected error for missing output dir")
	}
}

func TestWriteSilentWAVShape(t *testing.T) {
	t.Parallel()

	for _, rate := range []int{16000, 22050, 44100} {
		path := filepath.Join(t.TempDir(), "silence.wav")
		if err := writeSilentWAV(path, 5, rate); err != nil {
			t.Fatalf("writeSilentWAV(rate=%d): %v", rate, err)
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		dec := wav.NewDecoder(f)
		buf, err := dec.FullPCMBuffer()
		f.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got := buf.Format.SampleRate; got != rate {
			t.Fatalf("sample rate %d, want %d", got, rate)
		}
		if got := buf.Format.NumChannels; got != 1 {
			t.Fatalf("channels %d, want 1", got)
		}
		if got := len(buf.Data); got != 5*rate {
			t.Fatalf("frames %d, want %d", got, 5*rate)
		}
		for i, sample := range buf.Data {
			if sample != 0 {
				t.Fatalf("non-zero sample at %d", i)
			}
		}
	}
}

func TestWriteRawSilentWAVShape(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "silence.wav")
	if err := writeRawSilentWAV(path, 5, 22050); err != nil {
		t.Fatal(err)
	}

	// Verify with the real decoder that the hand-assembled header parses
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("raw writer produced an invalid WAV file")
	}
	dur, err := dec.Duration()
	if err != nil {
		t.Fatal(err)
	}
	if got := dur.Seconds(); got < 4.99 || got > 5.01 {
		t.Fatalf("duration %.3fs, want 5s", got)
	}
	if dec.SampleRate != 22050 {
		t.Fatalf("sample rate %d, want 22050", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Fatalf("channels %d, want 1", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Fatalf("bit depth %d, want 16", dec.BitDepth)
	}
}

func TestCreateSilentAudioNeverFails(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	s := New(cfg)
	target := filepath.Join(t.TempDir(), "speech.wav")

	path := s.createSilentAudio(context.Background(), target)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("returned path does not exist: %v", err)
	}
}
