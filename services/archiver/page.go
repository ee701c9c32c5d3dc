package archiver

import (
	"context"
	"html"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"canvasgrab/lib/htmlutil"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

var converter = md.NewConverter("", true, nil)

// canvas embeds the rich-content body of a wiki page as an escaped JSON
// string literal inside a script payload instead of rendered markup.
var wikiBodyRegex = regexp.MustCompile(`"body":"((?:[^"\\]|\\.)*)"`)

// ExtractPageBody recovers the real markup of a wiki page from the script
// payload. Anything unexpected degrades to "no body found" instead of
// failing hard.
func ExtractPageBody(pageHtml string) (string, bool) {
	groups := wikiBodyRegex.FindStringSubmatch(pageHtml)
	if len(groups) < 2 {
		return "", false
	}

	// json allows escaping forward slashes, strconv.Unquote does not
	escaped := strings.ReplaceAll(groups[1], `\/`, "/")

	unquoted, err := strconv.Unquote(`"` + escaped + `"`)
	if err != nil {
		return "", false
	}
	return html.UnescapeString(unquoted), true
}

type resolvedLink struct {
	anchor   htmlutil.Anchor
	url      string
	filename string
}

// PageTransformer rewrites a wiki page's rich-content body so embedded file
// references point at locally downloaded copies, then converts the result
// to markdown.
type PageTransformer struct {
	Downloader *Downloader
}

// Transform returns the markdown rendition of the page, or ok=false when
// the page carries no renderable body. Links whose downloads fail keep
// their original remote href: the produced markdown must never reference a
// local path that does not exist.
func (t *PageTransformer) Transform(ctx context.Context, pageHtml, downloadDir string) (string, bool) {
	ctx, span := tracer.Start(ctx, "TransformPage")
	defer span.End()

	body, ok := ExtractPageBody(pageHtml)
	if !ok {
		slog.WarnContext(ctx, "could not find wiki page body in page html")
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page body")
		slog.WarnContext(ctx, "could not parse wiki page body", "err", err)
		return "", false
	}

	// phase 1: collect candidates
	links := t.collectDownloadableLinks(ctx, doc)
	slog.InfoContext(ctx, "scanned page links",
		"downloadable", len(links),
		"total", doc.Find("a[href]").Length(),
	)

	// phase 2: download, then rewrite only the anchors whose file actually
	// landed on disk
	for _, link := range links {
		savePath := filepath.Join(downloadDir, link.filename)
		_, err := t.Downloader.Download(ctx, link.url, savePath)
		if err != nil {
			slog.WarnContext(ctx, "keeping remote link",
				"file", link.filename, "url", link.url, "err", err)
			continue
		}
		htmlutil.SetAttr(link.anchor.Node, "href", link.filename)
	}

	// phase 3: serialize and convert
	markdown := converter.Convert(doc.Selection)
	return markdown, true
}

func (t *PageTransformer) collectDownloadableLinks(ctx context.Context, doc *goquery.Document) []resolvedLink {
	var links []resolvedLink
	for _, anchor := range htmlutil.GetAnchors(doc.Find("a[href]")) {
		href := anchor.Href
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			continue
		}

		fullUrl := t.Downloader.Client.Absolutize(href)
		if !Classify(fullUrl, anchor.Name) {
			continue
		}

		filename := ResolveFilename(fullUrl, anchor.Name)
		slog.DebugContext(ctx, "found downloadable link",
			"text", anchor.Name, "url", fullUrl, "filename", filename)
		links = append(links, resolvedLink{
			anchor:   anchor,
			url:      fullUrl,
			filename: filename,
		})
	}
	return links
}

// FindFileDownloadLink decides whether a module item's landing page is a
// canvas file page, returning the file's name and download url when it is.
// The explicitly marked download action wins; otherwise the first anchor
// the classifier accepts is taken.
func FindFileDownloadLink(pageHtml string, absolutize func(string) string) (string, string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHtml))
	if err != nil {
		return "", "", false
	}

	marked := doc.Find(`a[download=true]`).First()
	if href, ok := marked.Attr("href"); ok && strings.Contains(href, directDownloadMarker) {
		name := stripDownloadPrefix(htmlutil.CleanText(marked.Text()))
		return strings.TrimSpace(name), absolutize(href), true
	}

	for _, anchor := range htmlutil.GetAnchors(doc.Find("a[href]")) {
		href := anchor.Href
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
			continue
		}
		fullUrl := absolutize(href)
		if Classify(fullUrl, anchor.Name) {
			return ResolveFilename(fullUrl, anchor.Name), fullUrl, true
		}
	}

	return "", "", false
}
