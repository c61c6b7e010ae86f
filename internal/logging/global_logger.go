// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultFileName is the active log file inside the logs directory.
	DefaultFileName = "geladeira.log"

	noCorrelation = "--------"
)

// Options selects where logs go.
type Options struct {
	// Dir holds rotated log files. Empty means "logs".
	Dir string
	// ToFile writes to a rotating file instead of stdout.
	ToFile bool
	// MaxTotalSizeMB caps the size of Dir; zero disables the cleaner.
	MaxTotalSizeMB int
	// MaxFileSizeMB rotates the active file; zero means 10.
	MaxFileSizeMB int
}

var (
	setupOnce sync.Once
	writerMu  sync.Mutex
	fileOut   *lumberjack.Logger
	ginOut    []*io.PipeWriter
)

// LogFormatter renders entries as
// [2026-01-02 15:04:05] [a1b2c3d4] [info ] [session.go:120] message | items=3
// The second column is the request id, or the pantry session key for entries
// logged outside a request.
type LogFormatter struct{}

// Format implements logrus.Formatter.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	correlation, skip := correlationOf(entry.Data)
	level := entry.Level.String()
	if entry.Level == log.WarnLevel {
		level = "warn"
	}

	fmt.Fprintf(buffer, "[%s] [%s] [%-5s] ", entry.Time.Format("2006-01-02 15:04:05"), correlation, level)
	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s:%d] ", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	buffer.WriteString(strings.TrimRight(entry.Message, "\r\n"))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for i, k := range keys {
		sep := ","
		if i == 0 {
			sep = " |"
		}
		fmt.Fprintf(buffer, "%s %s=%v", sep, k, entry.Data[k])
	}
	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

func correlationOf(data log.Fields) (value, key string) {
	for _, k := range []string{"request_id", "session"} {
		if v, ok := data[k].(string); ok && v != "" {
			return v, k
		}
	}
	return noCorrelation, ""
}

// SetupBaseLogger installs the formatter on the standard logrus logger and
// routes gin's own output through it. Only the first call has an effect.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stdout)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		info := log.StandardLogger().Writer()
		errs := log.StandardLogger().WriterLevel(log.ErrorLevel)
		gin.DefaultWriter = info
		gin.DefaultErrorWriter = errs
		ginOut = []*io.PipeWriter{info, errs}

		log.RegisterExitHandler(Close)
	})
}

// ConfigureLogOutput points the logger at stdout or a rotating file in opts.Dir
// and (re)starts the directory size cleaner.
func ConfigureLogOutput(opts Options) error {
	SetupBaseLogger()

	writerMu.Lock()
	defer writerMu.Unlock()

	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
	}

	active := ""
	if opts.ToFile {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logging: create %s: %w", dir, err)
		}
		maxSize := opts.MaxFileSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		active = filepath.Join(dir, DefaultFileName)
		fileOut = &lumberjack.Logger{Filename: active, MaxSize: maxSize}
		log.SetOutput(fileOut)
	} else {
		log.SetOutput(os.Stdout)
	}

	configureLogDirCleanerLocked(dir, opts.MaxTotalSizeMB, active)
	return nil
}

// Close stops the cleaner and closes file and gin outputs. main calls it on exit;
// it is also registered as a logrus exit handler.
func Close() {
	writerMu.Lock()
	defer writerMu.Unlock()

	stopLogDirCleanerLocked()
	if fileOut != nil {
		_ = fileOut.Close()
		fileOut = nil
		log.SetOutput(os.Stdout)
	}
	for _, w := range ginOut {
		_ = w.Close()
	}
	ginOut = nil
}
