package announce_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"texttoaudio/internal/app/announce"
	"texttoaudio/internal/app/service"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnnounceRetriesUntilAccepted(t *testing.T) {
	assert := require.New(t)

	var attempts atomic.Int32
	var received service.Descriptor

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)
		assert.Equal("/services", r.URL.Path)

		if attempts.Add(1) < 3 {
			http.Error(w, "engine starting", http.StatusServiceUnavailable)
			return
		}

		assert.NoError(json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	descriptor := service.NewDescriptor(&service.Config{URL: "http://tts:8080"})

	announcer := announce.New(srv.Client(), &announce.Config{
		EngineURLs: []string{srv.URL + "/"},
		Retries:    5,
		RetryDelay: time.Millisecond,
	}, descriptor, discardLogger())

	assert.NoError(announcer.Announce(context.Background()))
	assert.EqualValues(3, attempts.Load())
	assert.Equal(service.Slug, received.Slug)
	assert.Equal("http://tts:8080", received.URL)
}

func TestAnnounceGivesUpPerEngine(t *testing.T) {
	assert := require.New(t)

	var failing, healthy atomic.Int32

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failing.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthy.Add(1)
	}))
	defer good.Close()

	announcer := announce.New(http.DefaultClient, &announce.Config{
		EngineURLs: []string{bad.URL, good.URL},
		Retries:    2,
		RetryDelay: time.Millisecond,
	}, service.NewDescriptor(nil), discardLogger())

	err := announcer.Announce(context.Background())
	assert.ErrorContains(err, "engine returned status 500: nope")
	assert.EqualValues(2, failing.Load())
	assert.EqualValues(1, healthy.Load())
}

func TestAnnounceDisabled(t *testing.T) {
	announcer := announce.New(nil, &announce.Config{}, service.NewDescriptor(nil), discardLogger())

	require.False(t, announcer.Enabled())
	require.NoError(t, announcer.Announce(context.Background()))
	require.NoError(t, announcer.Shutdown(context.Background()))
}

func TestShutdownRemovesService(t *testing.T) {
	assert := require.New(t)

	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodDelete, r.Method)
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	announcer := announce.New(srv.Client(), &announce.Config{EngineURLs: []string{srv.URL}}, service.NewDescriptor(nil), discardLogger())

	assert.NoError(announcer.Shutdown(context.Background()))
	assert.Equal("/services/"+service.Slug, path)
}

func TestAnnounceCancelledBeforeShutdown(t *testing.T) {
	assert := require.New(t)

	var mu sync.Mutex
	var methods []string

	firstPost := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method)
		mu.Unlock()

		if r.Method == http.MethodPost {
			select {
			case firstPost <- struct{}{}:
			default:
			}

			http.Error(w, "engine starting", http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	announcer := announce.New(srv.Client(), &announce.Config{
		EngineURLs: []string{srv.URL},
		Retries:    5,
		RetryDelay: time.Hour,
	}, service.NewDescriptor(nil), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- announcer.Announce(ctx)
	}()

	<-firstPost
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("announce did not stop after cancel")
	}

	assert.NoError(announcer.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal([]string{http.MethodPost, http.MethodDelete}, methods)
}
