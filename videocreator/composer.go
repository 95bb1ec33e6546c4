package videocreator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

const (
	// Clip length used when the audio duration cannot be measured
	defaultDurationSec = 5.0
	fadeSec            = 0.5
)

// Composer joins the still cover image and the speech track into a video
// via ffmpeg. Audio attachment and fades are best effort; only a failure
// of the bare image-to-video encode is fatal.
type Composer struct {
	cfg *config.Config
}

// New creates a Composer
func New(cfg *config.Config) *Composer {
	return &Composer{cfg: cfg}
}

// Run writes video.<format> next to the cover image and returns it
func (c *Composer) Run(ctx context.Context, audio *pipeline.AudioItem, image *pipeline.ImageItem) (*pipeline.VideoItem, error) {
	log := logrus.WithField("stage", "video")

	outDir := filepath.Dir(image.Path)
	target := filepath.Join(outDir, "video."+c.cfg.Video.Format)

	duration := probeDuration(ctx, audio.Path)
	log.Infof("Composing %.1fs video from %s + %s", duration, filepath.Base(image.Path), filepath.Base(audio.Path))

	// Re-encode the narration to AAC in a temp file so the mux step can
	// stream-copy it. Removed after encoding.
	tempAudio := filepath.Join(outDir, "temp-audio.m4a")
	withAudio := true
	if err := encodeAudio(ctx, audio.Path, tempAudio); err != nil {
		log.Warnf("Could not prepare audio track: %v, producing silent video", err)
		withAudio = false
	}
	defer os.Remove(tempAudio)

	var lastErr error
	for _, attempt := range composeAttempts(withAudio) {
		err := c.compose(ctx, image.Path, tempAudio, target, duration, attempt.fades, attempt.audio)
		if err == nil {
			if !attempt.fades {
				log.Warn("Fades were skipped for this video")
			}
			if !attempt.audio {
				log.Warn("Video was produced without an audio track")
			}
			log.Infof("Video ready: %s", target)
			return &pipeline.VideoItem{ID: uuid.NewString(), Path: target}, nil
		}
		lastErr = err
		log.Warnf("Compose attempt (fades=%v audio=%v) failed: %v", attempt.fades, attempt.audio, err)
	}

	return nil, fmt.Errorf("video encode: %w", lastErr)
}

type attempt struct {
	fades bool
	audio bool
}

// composeAttempts is the degradation ladder: full render first, then
// without fades, then a bare silent render.
func composeAttempts(withAudio bool) []attempt {
	if withAudio {
		return []attempt{{true, true}, {false, true}, {false, false}}
	}
	return []attempt{{true, false}, {false, false}}
}

func (c *Composer) compose(ctx context.Context, imagePath, audioPath, target string, duration float64, fades, audio bool) error {
	args := []string{"-y", "-loop", "1", "-i", imagePath}
	if audio {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-t", fmt.Sprintf("%.3f", duration),
		"-r", fmt.Sprintf("%d", c.cfg.Video.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
	)
	if fades {
		fadeOutStart := duration - fadeSec
		if fadeOutStart < 0 {
			fadeOutStart = 0
		}
		args = append(args, "-vf",
			fmt.Sprintf("fade=t=in:st=0:d=%.2f,fade=t=out:st=%.3f:d=%.2f", fadeSec, fadeOutStart, fadeSec))
	}
	if audio {
		args = append(args, "-c:a", "copy", "-shortest")
	}
	args = append(args, target)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w (%s)", err, lastLine(out))
	}
	return nil
}

func encodeAudio(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", src,
		"-c:a", "aac",
		"-b:a", "192k",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg audio encode: %w (%s)", err, lastLine(out))
	}
	return nil
}

// probeDuration measures the audio duration with ffprobe, defaulting to
// defaultDurationSec when it cannot be determined
func probeDuration(ctx context.Context, audioFile string) float64 {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioFile,
	).Output()
	if err != nil {
		logrus.WithField("stage", "video").
			Warnf("Could not probe audio duration: %v, using %.1fs default", err, defaultDurationSec)
		return defaultDurationSec
	}
	var dur float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err != nil || dur <= 0 {
		return defaultDurationSec
	}
	if dur < 1.0 {
		return 1.0
	}
	return dur
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
