package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
	"io"
	"os"
)

const (
	AgentNameField = "agent"
	ActorIDField   = "actor"
	JobIDField     = "job"
	CycleField     = "cycle"
)

// File configures the optional rotating log file. An empty Path disables it.
type File struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewGlobal(level string, pretty bool, file File) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(l)

	var console io.Writer = os.Stderr
	if pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if file.Path == "" {
		log.Logger = log.Output(console)
		return nil
	}

	rotating := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   true,
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(console, rotating))
	return nil
}
