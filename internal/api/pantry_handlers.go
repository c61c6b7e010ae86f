// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minhageladeira/geladeira/internal/logging"
	"github.com/minhageladeira/geladeira/internal/pantry"
	"github.com/minhageladeira/geladeira/internal/voice"
)

const maxAudioBytes = 10 << 20

type addIngredientRequest struct {
	Name string `json:"name"`
}

type mutationResponse struct {
	pantry.View
	Changed bool `json:"changed"`
}

func (s *Server) getPantry(c *gin.Context) {
	sess, err := s.manager.Acquire(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) addIngredient(c *gin.Context) {
	var req addIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.mutate(c, func(sess *pantry.Session) (bool, error) { return sess.Add(req.Name) })
}

func (s *Server) removeIngredient(c *gin.Context) {
	name := c.Param("name")
	s.mutate(c, func(sess *pantry.Session) (bool, error) { return sess.Remove(name) })
}

func (s *Server) clearIngredients(c *gin.Context) {
	s.mutate(c, func(sess *pantry.Session) (bool, error) { return sess.Clear() })
}

func (s *Server) mutate(c *gin.Context, op func(*pantry.Session) (bool, error)) {
	var resp mutationResponse
	err := s.manager.Do(c.Request.Context(), identityFrom(c), func(sess *pantry.Session) error {
		changed, errOp := op(sess)
		if errOp != nil {
			return errOp
		}
		resp = mutationResponse{View: sess.View(), Changed: changed}
		return nil
	})
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) startVoice(c *gin.Context) {
	sess, err := s.manager.Acquire(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	add, _ := strconv.ParseBool(c.Query("add"))
	audio := http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	transcript, added, err := sess.Listen(c.Request.Context(), audio, c.ContentType(), add)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"transcript": transcript,
			"added":      added,
			"pantry":     sess.View(),
		})
	case errors.Is(err, voice.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "speech recognition unavailable"})
	case errors.Is(err, voice.ErrAlreadyListening):
		c.JSON(http.StatusConflict, gin.H{"error": "already listening"})
	case errors.Is(err, voice.ErrStopped):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "capture stopped"})
	case errors.Is(err, pantry.ErrNotReady), errors.Is(err, pantry.ErrSessionClosed):
		s.sessionError(c, err)
	default:
		logging.FromGin(c).Warnf("voice capture failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "recognition failed"})
	}
}

func (s *Server) stopVoice(c *gin.Context) {
	sess, ok := s.manager.Lookup(identityFrom(c))
	stopped := ok && sess.StopListening()
	c.JSON(http.StatusOK, gin.H{"stopped": stopped})
}

func (s *Server) recipesURL(c *gin.Context) {
	sess, err := s.manager.Acquire(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	link, ok := pantry.RecipesURL(s.config().Navigation.RecipesPath, sess.List())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no ingredients"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

func (s *Server) suggestRecipes(c *gin.Context) {
	if s.llm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "language model unavailable"})
		return
	}
	sess, err := s.manager.Acquire(c.Request.Context(), identityFrom(c))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	items := sess.List()
	link, ok := pantry.RecipesURL(s.config().Navigation.RecipesPath, items)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no ingredients"})
		return
	}
	suggestion, err := s.llm.SuggestRecipes(c.Request.Context(), items)
	if err != nil {
		logging.FromGin(c).Errorf("recipe suggestion failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion, "url": link})
}

func (s *Server) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pantry.ErrNotReady), errors.Is(err, pantry.ErrSessionClosed), errors.Is(err, pantry.ErrManagerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case c.Request.Context().Err() != nil:
		// client went away
		c.AbortWithStatus(499)
	default:
		logging.FromGin(c).Errorf("pantry session error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
