package audiogen

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	// Length of the silent placeholder clip written when synthesis fails
	silenceSeconds = 5
)

// Synthesizer generates speech via the ElevenLabs API. Speech is a
// non-critical asset: every failure degrades to a silent placeholder of
// the correct shape instead of aborting the pipeline.
type Synthesizer struct {
	// BaseURL is overridable for tests
	BaseURL string

	cfg        *config.Config
	httpClient *http.Client
}

// New creates a Synthesizer
func New(cfg *config.Config) *Synthesizer {
	return &Synthesizer{
		BaseURL:    defaultBaseURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Run produces speech.<format> in the item's output directory. It speaks
// the analysis summary when present, the raw content otherwise.
func (s *Synthesizer) Run(ctx context.Context, item *pipeline.TextItem) (*pipeline.AudioItem, error) {
	log := logrus.WithField("stage", "audio")

	if item.OutputDir == "" {
		return nil, fmt.Errorf("text item has no output directory (analyzer must run first)")
	}
	target := filepath.Join(item.OutputDir, "speech."+s.cfg.Audio.Format)

	text := item.Content
	if item.Analysis != nil && item.Analysis.Summary != "" {
		text = item.Analysis.Summary
	}

	if s.cfg.API.ElevenLabsKey == "" {
		log.Warn("ELEVENLABS_API_KEY not set, creating a silent audio placeholder")
		return &pipeline.AudioItem{ID: uuid.NewString(), Path: s.createSilentAudio(ctx, target)}, nil
	}

	if err := s.synthesize(ctx, text, target); err != nil {
		log.Errorf("Speech synthesis failed: %v, falling back to silent audio", err)
		return &pipeline.AudioItem{ID: uuid.NewString(), Path: s.createSilentAudio(ctx, target)}, nil
	}

	log.Infof("Speech ready: %s", target)
	return &pipeline.AudioItem{ID: uuid.NewString(), Path: target}, nil
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (s *Synthesizer) synthesize(ctx context.Context, text, target string) error {
	body, err := json.Marshal(ttsRequest{Text: text, ModelID: "eleven_multilingual_v2"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.BaseURL, s.cfg.Audio.VoiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", s.cfg.API.ElevenLabsKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("tts status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tts response: %w", err)
	}
	if len(audioBytes) == 0 {
		return fmt.Errorf("tts returned empty audio")
	}
	return os.WriteFile(target, audioBytes, 0644)
}

// createSilentAudio writes a silent clip as close to the requested target
// as it can get. Tiers: wav encoder (converted to the target format via
// ffmpeg when needed), raw PCM writer, and finally an empty placeholder.
// It never fails — the returned path always exists.
func (s *Synthesizer) createSilentAudio(ctx context.Context, target string) string {
	log := logrus.WithField("stage", "audio")

	wavPath := target
	if !strings.HasSuffix(target, ".wav") {
		wavPath = strings.TrimSuffix(target, filepath.Ext(target)) + ".wav"
	}

	if err := writeSilentWAV(wavPath, silenceSeconds, s.cfg.Audio.SampleRate); err != nil {
		log.Errorf("WAV encoder failed: %v, falling back to raw PCM writer", err)
		if err := writeRawSilentWAV(wavPath, silenceSeconds, s.cfg.Audio.SampleRate); err != nil {
			log.Errorf("Raw PCM writer failed: %v, writing empty placeholder", err)
			_ = os.WriteFile(target, nil, 0644)
			return target
		}
	}

	if wavPath == target {
		return target
	}
	if err := convertAudio(ctx, wavPath, target); err != nil {
		log.Warnf("Could not convert silent audio to %s: %v, keeping WAV", s.cfg.Audio.Format, err)
		return wavPath
	}
	_ = os.Remove(wavPath)
	return target
}

// writeSilentWAV emits a zero-amplitude mono 16-bit PCM clip
func writeSilentWAV(path string, seconds, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, seconds*sampleRate),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// writeRawSilentWAV hand-assembles the RIFF/PCM container for the same
// silent clip, for when the encoder path is unavailable
func writeRawSilentWAV(path string, seconds, sampleRate int) error {
	dataLen := seconds * sampleRate * 2 // mono, 16-bit

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))           // bits per sample
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))

	return os.WriteFile(path, b.Bytes(), 0644)
}

func convertAudio(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", src, dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg convert: %w (%s)", err, lastLine(out))
	}
	return nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
