// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const logDirCleanInterval = time.Minute

var cleanerStop chan struct{}

// configureLogDirCleanerLocked (re)starts the background size cleaner. Callers hold writerMu.
func configureLogDirCleanerLocked(logDir string, maxTotalSizeMB int, protectedPath string) {
	stopLogDirCleanerLocked()
	if maxTotalSizeMB <= 0 {
		return
	}

	limit := int64(maxTotalSizeMB) * 1024 * 1024
	stop := make(chan struct{})
	cleanerStop = stop

	go func() {
		ticker := time.NewTicker(logDirCleanInterval)
		defer ticker.Stop()
		for {
			if removed, err := enforceLogDirSizeLimit(logDir, limit, protectedPath); err != nil {
				log.Warnf("logging: failed to enforce log dir size limit: %v", err)
			} else if removed > 0 {
				log.Debugf("logging: removed %d old log file(s)", removed)
			}
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
}

func stopLogDirCleanerLocked() {
	if cleanerStop != nil {
		close(cleanerStop)
		cleanerStop = nil
	}
}

// enforceLogDirSizeLimit deletes the oldest *.log files in logDir until the total size
// fits in limit bytes. protectedPath (the active log file) is never deleted.
func enforceLogDirSizeLimit(logDir string, limit int64, protectedPath string) (int, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	type logFile struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []logFile
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil {
			continue
		}
		files = append(files, logFile{
			path:    filepath.Join(logDir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	removed := 0
	for _, f := range files {
		if total <= limit {
			break
		}
		if protectedPath != "" && filepath.Clean(f.path) == filepath.Clean(protectedPath) {
			continue
		}
		if errRemove := os.Remove(f.path); errRemove != nil {
			return removed, errRemove
		}
		total -= f.size
		removed++
	}
	return removed, nil
}
