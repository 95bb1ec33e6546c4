package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bible-podcaster/audiogen"
	"bible-podcaster/config"
	"bible-podcaster/history"
	"bible-podcaster/imagegen"
	"bible-podcaster/llm"
	"bible-podcaster/logging"
	"bible-podcaster/pipeline"
	"bible-podcaster/textproc"
	"bible-podcaster/upload"
	"bible-podcaster/videocreator"
)

var (
	inputFile string
	cfgFile   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bible-podcaster",
		Short: "Turn a biblical thought into a narrated video",
		Long: "Bible Podcaster analyzes a short biblical thought with an LLM, synthesizes\n" +
			"speech, renders a title card and composes everything into an MP4.",
		SilenceUsage: true,
		RunE:         runPipeline,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to config file")
	root.Flags().StringVarP(&inputFile, "file", "f", "", "path to input text file (reads stdin when omitted)")
	root.AddCommand(newHistoryCmd())
	return root
}

func runPipeline(cmd *cobra.Command, args []string) error {
	// .env is local-dev convenience; real deployments use the environment
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	input, err := readInput()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Logs, cfg.Paths.Data} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	runID := uuid.NewString()[:8]
	logrus.Infof("Bible Podcaster starting, run %s", runID)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.Timeout())
	defer cancel()

	p := &pipeline.Pipeline{
		Text:   textproc.New(cfg, llm.New(cfg.API.OpenAIKey, cfg.LLM.Model)),
		Audio:  audiogen.New(cfg),
		Image:  imagegen.New(cfg),
		Video:  videocreator.New(cfg),
		Upload: upload.New(cfg),
	}

	state := pipeline.NewRunState(runID)
	item := &pipeline.TextItem{ID: runID, Content: input}

	video, runErr := p.Run(ctx, item)

	state.Complete(runErr)
	state.OutputDir = item.OutputDir
	if item.Analysis != nil {
		state.Topic = item.Analysis.Topic
		state.Score = item.Analysis.ContextEvaluation.CompletenessScore
	}
	if video != nil {
		state.VideoFile = video.Path
		state.AudioFile = filepath.Join(item.OutputDir, "speech."+cfg.Audio.Format)
		state.ImageFile = filepath.Join(item.OutputDir, "cover."+cfg.Image.Format)
	}
	if item.OutputDir != "" {
		state.Save(item.OutputDir)
	}
	recordHistory(cfg, state)

	if runErr != nil {
		return runErr
	}

	printSummary(item, video)
	return nil
}

func readInput() (string, error) {
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}
	fmt.Fprintln(os.Stderr, "Enter your biblical thought (end with Ctrl+D):")
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func recordHistory(cfg *config.Config, state *pipeline.RunState) {
	store, err := history.Open(filepath.Join(cfg.Paths.Data, "history.db"))
	if err != nil {
		logrus.Warnf("Could not open run history: %v", err)
		return
	}
	defer store.Close()

	started, _ := time.Parse(time.RFC3339, state.StartedAt)
	completed, _ := time.Parse(time.RFC3339, state.CompletedAt)
	err = store.Record(context.Background(), history.Run{
		ID:                state.RunID,
		Topic:             state.Topic,
		CompletenessScore: state.Score,
		VideoPath:         state.VideoFile,
		Error:             state.Error,
		StartedAt:         started,
		CompletedAt:       completed,
	})
	if err != nil {
		logrus.Warnf("Could not record run history: %v", err)
	}
}

func printSummary(item *pipeline.TextItem, video *pipeline.VideoItem) {
	bold := color.New(color.Bold)
	bold.Println("\n--- Biblical Context Analysis Result ---")

	if item.Analysis != nil {
		a := item.Analysis
		fmt.Printf("Topic: %s\n", color.GreenString(a.Topic))
		for _, ref := range a.BibleReferences {
			fmt.Printf("  %s — %s\n", color.CyanString(ref.Reference), ref.Context)
		}
		fmt.Printf("Keywords: %s\n", strings.Join(a.Keywords, ", "))
		fmt.Printf("Completeness: %s (%.2f)\n",
			a.ContextEvaluation.ThoughtCompleteness, a.ContextEvaluation.CompletenessScore)
	}
	fmt.Printf("Output dir: %s\n", item.OutputDir)
	if video != nil {
		fmt.Printf("Video: %s\n", color.GreenString(video.Path))
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			store, err := history.Open(filepath.Join(cfg.Paths.Data, "history.db"))
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				status := color.GreenString("ok")
				if r.Error != "" {
					status = color.RedString("failed")
				}
				fmt.Printf("%s  %s  %-32s  %.2f  %s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"), status, r.Topic,
					r.CompletenessScore, r.VideoPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
