package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"treasure-raffle/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
	fileOut  *rotatingWriter
)

// Init configures the global zerolog logger. When cfg.File is set, output is
// mirrored into a size-capped file that keeps cfg.Keep rotated generations.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var raw io.Writer = os.Stdout
	if cfg.File != "" {
		fw, err := newRotatingWriter(cfg.File, cfg.MaxMB, cfg.Keep)
		if err != nil {
			return err
		}
		writerMu.Lock()
		if fileOut != nil {
			_ = fileOut.Close()
		}
		fileOut = fw
		writerMu.Unlock()
		raw = io.MultiWriter(os.Stdout, fw)
	}

	writerMu.Lock()
	writer = raw
	writerMu.Unlock()

	var output io.Writer = raw
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: raw}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer is the raw sink used by Init; the HTTP access log shares it.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()
	if fileOut == nil {
		return nil
	}
	err := fileOut.Close()
	fileOut = nil
	writer = os.Stdout
	return err
}
