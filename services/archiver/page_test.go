package archiver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPageBody(t *testing.T) {
	pageHtml := `<script>ENV = {"WIKI_PAGE":{"title":"Intro","body":"<p>Hello \"world\"</p>"}}</script>`
	body, ok := ExtractPageBody(pageHtml)
	require.True(t, ok)
	require.Equal(t, `<p>Hello "world"</p>`, body)
}

func TestExtractPageBodyEntities(t *testing.T) {
	pageHtml := `"body":"<p>Tom &amp; Jerry</p>"`
	body, ok := ExtractPageBody(pageHtml)
	require.True(t, ok)
	require.Equal(t, "<p>Tom & Jerry</p>", body)
}

func TestExtractPageBodyEscapedSlashes(t *testing.T) {
	pageHtml := `"body":"<a href=\"\/files\/42\">x<\/a>"`
	body, ok := ExtractPageBody(pageHtml)
	require.True(t, ok)
	require.Equal(t, `<a href="/files/42">x</a>`, body)
}

func TestExtractPageBodyMissing(t *testing.T) {
	_, ok := ExtractPageBody(`<html><body>no script payload</body></html>`)
	require.False(t, ok)
}

func wikiPage(body string) string {
	quoted := strings.ReplaceAll(body, `\`, `\\`)
	quoted = strings.ReplaceAll(quoted, `"`, `\"`)
	return fmt.Sprintf(`<script>ENV = {"WIKI_PAGE":{"body":"%s"}}</script>`, quoted)
}

func TestTransformRewritesDownloadedLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "handout.pdf") {
			w.Write([]byte("%PDF-1.7"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	downloadDir := t.TempDir()
	transformer := &PageTransformer{
		Downloader: &Downloader{Client: newTestCore(t, server.URL)},
	}

	page := wikiPage(
		`<h1>Week 1</h1>` +
			`<p><a href="/uploads/handout.pdf">Week 1 handout</a></p>` +
			`<p><a href="https://example.com/wiki/background">Background wiki reading</a></p>`,
	)

	markdown, ok := transformer.Transform(context.Background(), page, downloadDir)
	require.True(t, ok)

	// the downloadable link was rehomed, the navigational one untouched
	require.Contains(t, markdown, "(handout.pdf)")
	require.NotContains(t, markdown, server.URL+"/uploads/handout.pdf")
	require.Contains(t, markdown, "https://example.com/wiki/background")
	require.Contains(t, markdown, "Week 1")
	require.FileExists(t, filepath.Join(downloadDir, "handout.pdf"))
}

// a failed download leaves the anchor pointing at its original remote href,
// the markdown must never reference a local file that does not exist
func TestTransformKeepsRemoteLinkOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	downloadDir := t.TempDir()
	transformer := &PageTransformer{
		Downloader: &Downloader{Client: newTestCore(t, server.URL)},
	}

	page := wikiPage(`<p><a href="/uploads/handout.pdf">Week 1 handout</a></p>`)

	markdown, ok := transformer.Transform(context.Background(), page, downloadDir)
	require.True(t, ok)
	require.Contains(t, markdown, "](/uploads/handout.pdf)")
	require.NoFileExists(t, filepath.Join(downloadDir, "handout.pdf"))
}

func TestTransformNoBody(t *testing.T) {
	transformer := &PageTransformer{}
	_, ok := transformer.Transform(context.Background(), "<html><body></body></html>", t.TempDir())
	require.False(t, ok)
}

func TestFindFileDownloadLinkMarkedAnchor(t *testing.T) {
	pageHtml := `
		<html><body>
			<a download="true" href="/files/42/download?download_frd=1">Download lecture.pdf</a>
		</body></html>`

	absolutize := func(href string) string { return "https://school.instructure.com" + href }
	name, url, ok := FindFileDownloadLink(pageHtml, absolutize)
	require.True(t, ok)
	require.Equal(t, "lecture.pdf", name)
	require.Equal(t, "https://school.instructure.com/files/42/download?download_frd=1", url)
}

func TestFindFileDownloadLinkClassified(t *testing.T) {
	pageHtml := `
		<html><body>
			<a href="#section">Jump</a>
			<a href="mailto:prof@example.com">Email</a>
			<a href="/courses/101/files/42">Week 1 handout</a>
		</body></html>`

	absolutize := func(href string) string { return "https://school.instructure.com" + href }
	name, url, ok := FindFileDownloadLink(pageHtml, absolutize)
	require.True(t, ok)
	require.Equal(t, "Week 1 handout", name)
	require.Equal(t, "https://school.instructure.com/courses/101/files/42", url)
}

func TestFindFileDownloadLinkNone(t *testing.T) {
	pageHtml := `<html><body><a href="/courses/101/wiki">Wiki home</a></body></html>`
	absolutize := func(href string) string { return "https://school.example.edu" + href }
	_, _, ok := FindFileDownloadLink(pageHtml, absolutize)
	require.False(t, ok)
}

func TestTransformMarkdownOutputToDisk(t *testing.T) {
	// conversion keeps heading and link structure
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	transformer := &PageTransformer{
		Downloader: &Downloader{Client: newTestCore(t, server.URL)},
	}
	page := wikiPage(`<h2>Reading</h2><p>See <a href="https://example.com/wiki/background">the wiki</a>.</p>`)

	markdown, ok := transformer.Transform(context.Background(), page, t.TempDir())
	require.True(t, ok)
	require.Contains(t, markdown, "## Reading")
	require.Contains(t, markdown, "[the wiki](https://example.com/wiki/background)")

	path := filepath.Join(t.TempDir(), "Reading.md")
	require.NoError(t, os.WriteFile(path, []byte(markdown), 0644))
}
