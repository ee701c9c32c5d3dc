package archiver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"canvasgrab/lib/scrapers/canvas/core"

	"github.com/jedib0t/go-pretty/v6/progress"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Outcome describes a single download attempt. Skipped outcomes mean the
// file already existed and no network fetch happened.
type Outcome struct {
	LocalPath string
	SourceUrl string
	ByteCount int64
	Validated bool
	Message   string
	Skipped   bool
}

// Downloader fetches file artifacts through an authenticated session.
// Progress and Manifest are both optional.
type Downloader struct {
	Client   *core.Client
	Progress progress.Writer
	Manifest *Manifest
}

// Download materializes the artifact behind rawUrl at savePath. Re-running
// with an existing savePath is a no-op. A failed validation does not delete
// the file, it is flagged in the outcome instead.
func (d *Downloader) Download(ctx context.Context, rawUrl, savePath string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "Download")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", rawUrl),
		attribute.String("save_path", savePath),
	)

	filename := filepath.Base(savePath)

	if _, err := os.Stat(savePath); err == nil {
		slog.InfoContext(ctx, "already downloaded", "file", filename)
		return Outcome{LocalPath: savePath, SourceUrl: rawUrl, Skipped: true}, nil
	}
	err := os.MkdirAll(filepath.Dir(savePath), 0755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create directories")
		return Outcome{}, err
	}

	resolved := ResolveFileURL(ctx, d.Client, rawUrl)
	if resolved != rawUrl {
		slog.DebugContext(ctx, "resolved file url", "from", rawUrl, "to", resolved)
	}

	written, err := d.fetch(ctx, resolved, savePath, filename)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		slog.ErrorContext(ctx, "error downloading", "file", filename, "err", err)
		return Outcome{}, err
	}

	valid, message := ValidateFile(savePath, filepath.Ext(savePath))
	outcome := Outcome{
		LocalPath: savePath,
		SourceUrl: rawUrl,
		ByteCount: written,
		Validated: valid,
		Message:   message,
	}

	if valid {
		slog.InfoContext(ctx, "downloaded", "file", filename, "bytes", written)
	} else {
		slog.WarnContext(ctx, "downloaded with warning", "file", filename, "warning", message)
	}

	if d.Manifest != nil {
		err := d.Manifest.Record(ctx, outcome)
		if err != nil {
			slog.WarnContext(ctx, "failed to record download outcome", "file", filename, "err", err)
		}
	}

	return outcome, nil
}

// fetch streams the response body straight to disk.
func (d *Downloader) fetch(ctx context.Context, rawUrl, savePath, filename string) (int64, error) {
	res, err := d.Client.Http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawUrl)
	if err != nil {
		return 0, err
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return 0, fmt.Errorf("fetch '%s': status %d", rawUrl, res.StatusCode())
	}

	var tracker *progress.Tracker
	if d.Progress != nil {
		tracker = &progress.Tracker{
			Message: filename,
			Total:   res.RawResponse.ContentLength,
			Units:   progress.UnitsBytes,
		}
		d.Progress.AppendTracker(tracker)
		defer tracker.MarkAsDone()
	}

	f, err := os.Create(savePath)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(f, trackedReader{r: body, tracker: tracker})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// a partial file would short-circuit the next run as if it were
		// complete, drop it so a re-invocation retries the fetch
		os.Remove(savePath)
		return 0, err
	}
	return written, nil
}

type trackedReader struct {
	r       io.Reader
	tracker *progress.Tracker
}

func (t trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if t.tracker != nil && n > 0 {
		t.tracker.Increment(int64(n))
	}
	return n, err
}
