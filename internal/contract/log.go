package contract

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	loggerMu sync.RWMutex
	logger   = newLogger(os.Stderr)
)

// newLogger builds the console logger used by every command. Colors are
// only emitted when writing to a terminal.
func newLogger(w io.Writer) zerolog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: noColor}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)
}

// SetLogOutput redirects log output, keeping the current level.
func SetLogOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	level := logger.GetLevel()
	logger = newLogger(w).Level(level)
}

// SetVerbose toggles debug logging.
func SetVerbose(verbose bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
}

func current() *zerolog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	l := logger
	return &l
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	current().Error().Err(err).Msg(msg)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	current().Warn().Err(err).Msg(msg)
}

// LogInfo logs an informational message with optional key/value pairs.
func LogInfo(msg string, kv ...any) {
	current().Info().Fields(kv).Msg(msg)
}

// LogDebug logs a debug message with optional key/value pairs.
// It is silent unless verbose mode is on.
func LogDebug(msg string, kv ...any) {
	current().Debug().Fields(kv).Msg(msg)
}
