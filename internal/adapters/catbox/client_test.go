package catbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perr "watchtower/internal/platform/errors"
)

func TestUpload_Form(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "fileupload", r.FormValue("reqtype"))
		assert.Equal(t, "hash", r.FormValue("userhash"))
		f, hdr, err := r.FormFile("fileToUpload")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "clip.mp4", hdr.Filename)
		assert.Equal(t, "payload", string(b))
		_, _ = io.WriteString(w, "https://files.catbox.moe/abc.mp4\n")
	}))
	defer srv.Close()

	c := NewClient(Options{URL: srv.URL, UserHash: "hash"})
	url, err := c.Upload(context.Background(), "clip.mp4", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.catbox.moe/abc.mp4", url)
}

func TestUpload_AnonymousOmitsUserHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, ok := r.MultipartForm.Value["userhash"]
		assert.False(t, ok)
		_, _ = io.WriteString(w, "https://files.catbox.moe/x.txt")
	}))
	defer srv.Close()

	_, err := NewClient(Options{URL: srv.URL}).Upload(context.Background(), "x.txt", []byte("x"))
	require.NoError(t, err)
}

func TestUpload_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "https://nope"},
		{"ok without url", http.StatusOK, "Internal error"},
		{"empty body", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			url, err := NewClient(Options{URL: srv.URL}).Upload(context.Background(), "a.png", []byte("a"))
			assert.Empty(t, url)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeUpstream))
		})
	}
}
