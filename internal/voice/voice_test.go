// Copyright 2026 The geladeira Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recognizerFunc func(ctx context.Context, audio io.Reader, contentType string) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	return f(ctx, audio, contentType)
}

func collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestCapture_ResultThenEnded(t *testing.T) {
	c := NewCapture(recognizerFunc(func(context.Context, io.Reader, string) (string, error) {
		return "  Tomate ", nil
	}))
	events, err := c.Start(context.Background(), strings.NewReader("x"), "audio/webm")
	require.NoError(t, err)

	got := collect(events)
	require.Len(t, got, 2)
	assert.Equal(t, EventResult, got[0].Kind)
	assert.Equal(t, "tomate", got[0].Transcript)
	assert.Equal(t, EventEnded, got[1].Kind)
	assert.False(t, c.Listening())
}

func TestCapture_ErrorThenEnded(t *testing.T) {
	boom := errors.New("mic exploded")
	c := NewCapture(recognizerFunc(func(context.Context, io.Reader, string) (string, error) {
		return "", boom
	}))
	events, err := c.Start(context.Background(), strings.NewReader("x"), "")
	require.NoError(t, err)

	_, err = Await(events)
	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Listening(), "listening state resets so the user may retry")
}

func TestCapture_EmptyTranscript(t *testing.T) {
	c := NewCapture(recognizerFunc(func(context.Context, io.Reader, string) (string, error) {
		return "   ", nil
	}))
	events, err := c.Start(context.Background(), strings.NewReader("x"), "")
	require.NoError(t, err)
	_, err = Await(events)
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestCapture_SingleFlightAndStop(t *testing.T) {
	started := make(chan struct{})
	c := NewCapture(recognizerFunc(func(ctx context.Context, _ io.Reader, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}))

	events, err := c.Start(context.Background(), strings.NewReader("x"), "")
	require.NoError(t, err)
	<-started
	assert.True(t, c.Listening())

	_, err = c.Start(context.Background(), strings.NewReader("y"), "")
	assert.ErrorIs(t, err, ErrAlreadyListening)

	assert.True(t, c.Stop())
	got := collect(events)
	require.Len(t, got, 1, "manual stop emits only ended")
	assert.Equal(t, EventEnded, got[0].Kind)

	assert.False(t, c.Stop())
	assert.False(t, c.Listening())
}

func TestAwait_StoppedWithoutResult(t *testing.T) {
	ch := make(chan Event, 1)
	ch <- Event{Kind: EventEnded}
	close(ch)
	_, err := Await(ch)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCapture_Unavailable(t *testing.T) {
	c := NewCapture(nil)
	assert.False(t, c.Available())
	_, err := c.Start(context.Background(), strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrUnavailable)

	var nilCapture *Capture
	assert.False(t, nilCapture.Available())
	assert.False(t, nilCapture.Stop())
}

func TestWhisperRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.ogg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "OGGDATA", string(data))

		_, _ = io.WriteString(w, `{"text":"Feijão"}`)
	}))
	defer srv.Close()

	rec := NewWhisperRecognizer(srv.URL+"/v1/", "sk-test", "whisper-1", "pt", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := rec.Recognize(ctx, strings.NewReader("OGGDATA"), "audio/ogg; codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "Feijão", text)
}

func TestWhisperRecognizer_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad audio"}}`)
	}))
	defer srv.Close()

	rec := NewWhisperRecognizer(srv.URL, "", "whisper-1", "", srv.Client())
	_, err := rec.Recognize(context.Background(), strings.NewReader("x"), "audio/webm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad audio")
}
