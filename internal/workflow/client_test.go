package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(map[Mode]Endpoint{
		ModeImageEdit:   {URL: url, Timeout: timeout},
		ModeTextToVideo: {URL: url, Timeout: timeout},
	}, zerolog.Nop())
}

func TestSubmit_Success(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"resultUrls":["https://x/y.png"]}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), ModeImageEdit, Payload{
		Prompt:   "red dress",
		ImageURL: "https://cdn/in.png",
		UserID:   "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", res.URL)
	assert.Equal(t, ModeImageEdit, got.Mode)
	assert.Equal(t, "red dress", got.Prompt)
	assert.Equal(t, "u1", got.UserID)
}

func TestSubmit_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestClient(srv.URL, 50*time.Millisecond).Submit(context.Background(), ModeTextToVideo, Payload{Prompt: "walk"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSubmit_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), ModeImageEdit, Payload{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubmit_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = newTestClient("http://"+addr, time.Second).Submit(context.Background(), ModeImageEdit, Payload{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubmit_NotConfigured(t *testing.T) {
	_, err := newTestClient("", time.Second).Submit(context.Background(), ModeAudioToVideo, Payload{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubmit_UpstreamStatusPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"image too small"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), ModeImageEdit, Payload{})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
	assert.Equal(t, "image too small", upstream.Message)
}

func TestSubmit_InternalServerErrorText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Internal Server Error"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).Submit(context.Background(), ModeImageEdit, Payload{})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
}

func TestModeKind(t *testing.T) {
	assert.Equal(t, "image", string(ModeImageEdit.Kind()))
	assert.Equal(t, "video", string(ModeAudioToVideo.Kind()))
}
