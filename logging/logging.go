package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"bible-podcaster/config"
)

// Setup configures the global logrus logger: level and format from config,
// output teed to stderr and a size-rotated file under the logs directory.
func Setup(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if err := os.MkdirAll(cfg.Paths.Logs, 0755); err != nil {
		return err
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Paths.Logs, "pipeline.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}
