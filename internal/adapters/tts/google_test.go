package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSynthesize(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"tl":     q.Get("tl"),
			"q":      q.Get("q"),
			"client": q.Get("client"),
		}
		w.Write([]byte("mp3-audio"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	audio, err := c.Synthesize(context.Background(), "hello world", "de")
	require.NoError(t, err)
	require.Equal(t, []byte("mp3-audio"), audio)
	require.Equal(t, "de", gotQuery["tl"])
	require.Equal(t, "hello world", gotQuery["q"])
	require.Equal(t, "tw-ob", gotQuery["client"])
}

func TestSynthesizeDefaultsLang(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "en", r.URL.Query().Get("tl"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), "hi", "")
	require.NoError(t, err)
}

func TestSynthesizeErrors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		_, err := NewClient("http://unused", time.Second).Synthesize(context.Background(), "", "en")
		require.Error(t, err)
	})

	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), "hi", "en")
		require.Error(t, err)
	})

	t.Run("empty audio", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), "hi", "en")
		require.Error(t, err)
	})
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Len(t, r.URL.Query().Get("q"), maxTextLen)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	long := make([]byte, maxTextLen*2)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewClient(srv.URL, time.Second).Synthesize(context.Background(), string(long), "en")
	require.NoError(t, err)
}
