package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"bible-podcaster/config"
	"bible-podcaster/pipeline"
)

// Uploader publishes the final video to YouTube when the upload stage is
// enabled and OAuth credentials are configured. Otherwise it only records
// upload metadata next to the video and passes the item through unchanged.
type Uploader struct {
	cfg *config.Config
}

// New creates an Uploader
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads the video or writes the metadata stub
func (u *Uploader) Run(ctx context.Context, item *pipeline.VideoItem) (*pipeline.VideoItem, error) {
	log := logrus.WithField("stage", "upload")

	if !u.cfg.Pipeline.YouTubeUploadEnabled {
		log.Info("YouTube upload disabled, writing metadata stub")
		return item, u.writeStub(item, "upload disabled")
	}
	if u.cfg.API.YouTubeClientID == "" || u.cfg.API.YouTubeClientSecret == "" || u.cfg.API.YouTubeRefreshToken == "" {
		log.Warn("YouTube OAuth credentials not set, writing metadata stub")
		return item, u.writeStub(item, "missing credentials")
	}

	videoURL, err := u.upload(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}
	log.Infof("Uploaded: %s", videoURL)
	return item, nil
}

func (u *Uploader) upload(ctx context.Context, item *pipeline.VideoItem) (string, error) {
	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", err
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(item),
			Description: "Generated by the Bible Podcaster pipeline.",
			CategoryId:  "27", // Education
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "private",
		},
	}

	f, err := os.Open(item.Path)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id), nil
}

func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	conf := &oauth2.Config{
		ClientID:     u.cfg.API.YouTubeClientID,
		ClientSecret: u.cfg.API.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.cfg.API.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// writeStub records what would have been uploaded. Best effort: a missing
// stub file should not fail the run.
func (u *Uploader) writeStub(item *pipeline.VideoItem, reason string) error {
	stub := map[string]interface{}{
		"title":      videoTitle(item),
		"video_file": item.Path,
		"uploaded":   false,
		"reason":     reason,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(stub, "", "  ")
	if err != nil {
		return nil
	}
	path := filepath.Join(filepath.Dir(item.Path), "upload_metadata.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		logrus.WithField("stage", "upload").Warnf("Could not save %s: %v", path, err)
	}
	return nil
}

// videoTitle derives a human-readable title from the run folder name,
// e.g. "20250823_1830_InTheBeginning" -> "Bible Podcaster: InTheBeginning"
func videoTitle(item *pipeline.VideoItem) string {
	folder := filepath.Base(filepath.Dir(item.Path))
	parts := strings.SplitN(folder, "_", 3)
	topic := folder
	if len(parts) == 3 {
		topic = parts[2]
	}
	return "Bible Podcaster: " + topic
}
