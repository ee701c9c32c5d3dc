package archiver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"canvasgrab/lib/scrapers/canvas/core"
	"canvasgrab/lib/scrapers/canvas/view"
	"canvasgrab/lib/sqliteutil"
	"canvasgrab/lib/telemetry"
	"canvasgrab/services/archiver/db"

	"github.com/stretchr/testify/require"
)

// fakeCanvas wires up the routes a full archive run touches.
func fakeCanvas(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var fileFetches atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<table><tr class="course-list-table-row">
				<td class="course-list-star-column"><span data-course-id="101"></span></td>
				<td class="course-list-course-title-column"><span class="name">Systems</span></td>
			</tr></table>
		`))
	})
	mux.HandleFunc("/courses/101/modules", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<div class="item-group-condensed context_module">
				<span class="name">Week 1</span>
				<li class="context_module_item"><a class="item_link" href="/courses/101/modules/items/1">Lecture slides</a></li>
				<li class="context_module_item"><a class="item_link" href="/courses/101/modules/items/2">Intro</a></li>
			</div>
		`))
	})
	// item 1: a file item whose landing page carries the marked download anchor
	mux.HandleFunc("/courses/101/modules/items/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<html><body>
				<a download="true" href="/files/1/download?download_frd=1">Download slides.pdf</a>
			</body></html>
		`))
	})
	mux.HandleFunc("/files/1/download", func(w http.ResponseWriter, r *http.Request) {
		fileFetches.Add(1)
		w.Write([]byte("%PDF-1.7 slides"))
	})
	// item 2: a wiki page with one embedded attachment
	mux.HandleFunc("/courses/101/modules/items/2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/courses/101/pages/intro", http.StatusFound)
	})
	mux.HandleFunc("/courses/101/pages/intro", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>ENV = {"WIKI_PAGE":{"body":"<p>Read the <a href=\"/uploads/notes.pdf\">notes handout</a> and the <a href=\"https://example.com/wiki/go\">wiki</a></p>"}}</script>`))
	})
	mux.HandleFunc("/uploads/notes.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.7 notes"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &fileFetches
}

func setupArchiver(t *testing.T, baseUrl, root string) (*Archiver, *Manifest) {
	t.Helper()
	cleanup := telemetry.SetupForTesting(t, "test:services/archiver")
	t.Cleanup(cleanup)

	coreClient, err := core.NewClient(context.Background(), core.ClientOptions{
		BaseUrl: baseUrl,
	})
	require.NoError(t, err)

	database, err := sqliteutil.OpenDB(db.Schema, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	manifest := NewManifest(database)

	downloader := &Downloader{Client: coreClient, Manifest: manifest}
	return New(view.NewClient(coreClient), downloader, Options{Root: root}), manifest
}

func TestRunArchivesCourseTree(t *testing.T) {
	server, fileFetches := fakeCanvas(t)
	root := t.TempDir()
	a, manifest := setupArchiver(t, server.URL, root)

	err := a.Run(context.Background())
	require.NoError(t, err)

	// the file item landed under <root>/<course>/<module>/
	slides := filepath.Join(root, "Systems", "Week 1", "slides.pdf")
	require.FileExists(t, slides)
	contents, err := os.ReadFile(slides)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 slides", string(contents))

	// the page landed as markdown with its attachment rehomed alongside
	page := filepath.Join(root, "Systems", "Week 1", "Intro.md")
	require.FileExists(t, page)
	markdown, err := os.ReadFile(page)
	require.NoError(t, err)
	require.Contains(t, string(markdown), "(notes.pdf)")
	require.Contains(t, string(markdown), "https://example.com/wiki/go")
	require.FileExists(t, filepath.Join(root, "Systems", "Week 1", "notes.pdf"))

	entries, err := manifest.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// re-running fetches nothing, completed downloads are skipped by
	// file existence
	fetched := fileFetches.Load()
	err = a.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, fetched, fileFetches.Load())
}

// a module item that redirects straight to a file triggers exactly one
// download and no page transform
func TestArchiveItemFileShortCircuit(t *testing.T) {
	server, fileFetches := fakeCanvas(t)
	root := t.TempDir()
	a, manifest := setupArchiver(t, server.URL, root)

	a.ArchiveItem(context.Background(), filepath.Join(root, "m"), view.Item{
		Title: "Lecture slides",
		Url:   server.URL + "/courses/101/modules/items/1",
	})

	require.Equal(t, int64(1), fileFetches.Load())
	require.FileExists(t, filepath.Join(root, "m", "slides.pdf"))

	entries, err := manifest.All(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// no markdown was produced for a file item
	matches, err := filepath.Glob(filepath.Join(root, "m", "*.md"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestArchiveItemSkipsUnknownKind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/courses/101/quizzes/9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>a quiz</body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	root := t.TempDir()
	a, _ := setupArchiver(t, server.URL, root)

	a.ArchiveItem(context.Background(), filepath.Join(root, "m"), view.Item{
		Title: "Quiz",
		Url:   server.URL + "/courses/101/quizzes/9",
	})

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}
