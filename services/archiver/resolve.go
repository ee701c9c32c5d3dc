package archiver

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"canvasgrab/lib/htmlutil"
	"canvasgrab/lib/scrapers/canvas/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// directDownloadMarker is the query convention canvas uses to mean "serve
// raw bytes instead of a landing page".
const directDownloadMarker = "/download?download_frd=1"

// ResolveFileURL follows an opaque file reference through canvas landing
// pages to the actual binary endpoint. It never fails: any transport error
// is logged and the original url returned, so a bad probe can only cost us
// this one link.
func ResolveFileURL(ctx context.Context, client *core.Client, rawUrl string) string {
	ctx, span := tracer.Start(ctx, "ResolveFileURL")
	defer span.End()
	span.SetAttributes(attribute.String("url", rawUrl))

	// nothing to resolve when the url already addresses the raw bytes
	if strings.Contains(rawUrl, "download_frd=1") {
		return rawUrl
	}

	res, err := client.Http.R().
		SetContext(ctx).
		Get(rawUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve probe failed")
		slog.WarnContext(ctx, "could not resolve canvas file url", "url", rawUrl, "err", err)
		return rawUrl
	}
	if res.IsError() {
		slog.WarnContext(ctx, "could not resolve canvas file url", "url", rawUrl, "status", res.StatusCode())
		return rawUrl
	}

	finalUrl := rawUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}

	// redirects landed on the raw bytes already
	if strings.Contains(finalUrl, "download_frd=1") {
		return finalUrl
	}

	if !isCanvasContentPage(client, finalUrl) {
		return finalUrl
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "could not parse canvas file page", "url", finalUrl, "err", err)
		return finalUrl
	}

	// the file preview page marks its download action explicitly
	if href, ok := doc.Find(`a[download=true]`).First().Attr("href"); ok && href != "" {
		return client.Absolutize(href)
	}

	// failing that, any anchor carrying the direct-download marker will do
	for _, a := range htmlutil.GetAnchors(doc.Find("a[href]")) {
		if strings.Contains(a.Href, directDownloadMarker) {
			return client.Absolutize(a.Href)
		}
	}

	return finalUrl
}

// a url still counts as a canvas content page when it sits on the session's
// own host or any instructure domain and addresses files or course content
func isCanvasContentPage(client *core.Client, rawUrl string) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	onCanvasHost := parsed.Host == client.BaseUrl.Host ||
		strings.Contains(parsed.Host, "instructure.com")
	return onCanvasHost &&
		(strings.Contains(parsed.Path, "/files/") || strings.Contains(parsed.Path, "/courses/"))
}
