package archiver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"canvasgrab/lib/scrapers/canvas/core"

	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T, baseUrl string) *core.Client {
	t.Helper()
	client, err := core.NewClient(context.Background(), core.ClientOptions{
		BaseUrl: baseUrl,
	})
	require.NoError(t, err)
	return client
}

func TestResolveFileURLDirectMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses/101/files/42":
			http.Redirect(w, r, "/files/42/download?download_frd=1", http.StatusFound)
		case "/files/42/download":
			w.Write([]byte("%PDF-1.7"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestCore(t, server.URL)
	resolved := ResolveFileURL(context.Background(), client, server.URL+"/courses/101/files/42")
	require.Equal(t, server.URL+"/files/42/download?download_frd=1", resolved)
}

func TestResolveFileURLThroughLandingPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses/101/files/42":
			w.Write([]byte(`
				<html><body>
					<a download="true" href="/files/42/download?download_frd=1">Download lecture.pdf</a>
				</body></html>
			`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestCore(t, server.URL)
	resolved := ResolveFileURL(context.Background(), client, server.URL+"/courses/101/files/42")
	require.Equal(t, server.URL+"/files/42/download?download_frd=1", resolved)
}

func TestResolveFileURLFallsBackToMarkerAnchor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses/101/files/42":
			w.Write([]byte(`
				<html><body>
					<a href="/courses/101">Back to course</a>
					<a href="/files/42/download?download_frd=1">lecture.pdf</a>
				</body></html>
			`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestCore(t, server.URL)
	resolved := ResolveFileURL(context.Background(), client, server.URL+"/courses/101/files/42")
	require.Equal(t, server.URL+"/files/42/download?download_frd=1", resolved)
}

func TestResolveFileURLNoDownloadLinkFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer server.Close()

	client := newTestCore(t, server.URL)
	target := server.URL + "/courses/101/files/42"
	require.Equal(t, target, ResolveFileURL(context.Background(), client, target))
}

// an error landing page is not scanned for anchors, the original url comes
// back untouched
func TestResolveFileURLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><body><a href="/files/42/download?download_frd=1">login</a></body></html>`))
	}))
	defer server.Close()

	client := newTestCore(t, server.URL)
	target := server.URL + "/courses/101/files/42"
	require.Equal(t, target, ResolveFileURL(context.Background(), client, target))
}

// the resolver must never abort the pipeline, a dead endpoint just returns
// the original url
func TestResolveFileURLTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestCore(t, server.URL)
	server.Close()

	target := server.URL + "/courses/101/files/42"
	require.Equal(t, target, ResolveFileURL(context.Background(), client, target))
}
