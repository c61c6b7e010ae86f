// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/minhageladeira/geladeira/internal/logging"
)

const (
	feedWriteWait = 10 * time.Second
	feedPongWait  = 60 * time.Second
)

// feedPingPeriod must stay below feedPongWait.
var feedPingPeriod = (feedPongWait * 9) / 10

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type feedMessage struct {
	Type        string   `json:"type"`
	Ingredients []string `json:"ingredients"`
}

// pantryFeed pushes the ingredient list to the client every time it changes.
// An open feed keeps the session active; the connection ends when the client
// disconnects or the session is torn down.
func (s *Server) pantryFeed(c *gin.Context) {
	sess, err := s.manager.Acquire(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.sessionError(c, err)
		return
	}

	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.FromGin(c).Debugf("pantry feed: upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	updates, cancel := sess.Subscribe()
	defer cancel()

	// Reader: only needed to process pongs and notice the client closing.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, errRead := conn.ReadMessage(); errRead != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case items, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if errWrite := conn.WriteJSON(feedMessage{Type: "pantry", Ingredients: items}); errWrite != nil {
				return
			}
		case <-ticker.C:
			sess.Touch()
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if errPing := conn.WriteMessage(websocket.PingMessage, nil); errPing != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
