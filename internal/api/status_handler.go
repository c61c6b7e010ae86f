// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minhageladeira/geladeira/internal/util"
)

// ServiceStatus represents the service status for API responses.
type ServiceStatus struct {
	StateDir         string      `json:"state_dir,omitempty"`
	ReadOnly         bool        `json:"read_only"`
	Store            string      `json:"store"`
	ActiveSessions   int         `json:"active_sessions"`
	VoiceAvailable   bool        `json:"voice_available"`
	LLMConfigured    bool        `json:"llm_configured"`
	Pantries         *FileStatus `json:"pantries,omitempty"`
	PermissionStatus string      `json:"permission_status"` // "ok", "warning", "error"
	Warnings         []string    `json:"warnings"`
	Errors           []string    `json:"errors"`
}

// FileStatus represents the status of a path inside the state directory.
type FileStatus struct {
	Path    string    `json:"path"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

func getFileStatus(path string) *FileStatus {
	status := &FileStatus{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		return status
	}
	status.Exists = true
	status.Size = info.Size()
	status.Mode = info.Mode().String()
	status.ModTime = info.ModTime()
	return status
}

// statusHandler serves /api/status. It is restricted to direct localhost callers
// unless status-allow-remote is set, since it exposes filesystem paths.
func (s *Server) statusHandler(c *gin.Context) {
	if !s.config().StatusAllowRemote && !util.IsLocalhostDirect(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "status is only available from localhost"})
		return
	}

	status := &ServiceStatus{
		Store:            "none",
		VoiceAvailable:   s.voiceAvailable,
		LLMConfigured:    s.llm != nil && s.llm.Settings().APIKey != "",
		PermissionStatus: "ok",
		Warnings:         []string{},
		Errors:           []string{},
	}
	if s.store != nil {
		status.Store = s.store.Name()
	}
	if s.manager != nil {
		status.ActiveSessions = s.manager.Len()
	}

	if sb := s.stateBox; sb != nil {
		status.StateDir = sb.RootPath()
		status.ReadOnly = sb.IsReadOnly()

		if _, err := os.Stat(sb.RootPath()); err != nil {
			if os.IsNotExist(err) {
				status.Warnings = append(status.Warnings, "state directory does not exist")
				status.PermissionStatus = "warning"
			} else {
				status.Errors = append(status.Errors, "failed to access state directory")
				status.PermissionStatus = "error"
			}
		}

		if status.Store == "file" {
			status.Pantries = getFileStatus(sb.PantriesDir())
			if info, err := os.Stat(sb.PantriesDir()); err == nil && info.Mode().Perm()&0o077 != 0 {
				status.Warnings = append(status.Warnings, "pantries directory has overly permissive permissions")
				if status.PermissionStatus == "ok" {
					status.PermissionStatus = "warning"
				}
			}
		}
	}

	c.JSON(http.StatusOK, status)
}
