package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	base    *slog.Logger
	logFile *os.File
)

// InitLogger sends output to stdout and, when filename is set, to an append-only log file.
func InitLogger(filename string, level slog.Level) error {
	var out io.Writer = os.Stdout

	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, logFile)
	}

	base = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(base)

	return nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// L returns the process logger, initialising a stdout logger on first use.
func L() *slog.Logger {
	if base == nil {
		Init()
	}
	return base
}

// Init installs a stdout logger at info level.
func Init() {
	base = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func Debugf(format string, v ...interface{}) {
	L().Debug(fmt.Sprintf(format, v...))
}

func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

func Infof(format string, v ...interface{}) {
	L().Info(fmt.Sprintf(format, v...))
}

func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

func Warnf(format string, v ...interface{}) {
	L().Warn(fmt.Sprintf(format, v...))
}

func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

func Errorf(format string, v ...interface{}) {
	L().Error(fmt.Sprintf(format, v...))
}

// SetRunID tags every subsequent log line with the given run id.
func SetRunID(id string) {
	base = L().With("run_id", id)
	slog.SetDefault(base)
}
