package archiver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"canvasgrab/lib/scrapers/canvas/view"
	"canvasgrab/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/archiver")

type Options struct {
	// directory the <course>/<module>/<file> tree is materialized under
	Root string
	// fixed pause after each top-level file download to stay under
	// canvas rate limits
	Delay time.Duration
}

// Archiver walks the course/module/item hierarchy sequentially and
// materializes every item on disk. One item is fully processed, nested
// downloads included, before the next begins; the unit of failure isolation
// is a single item or a single link, no error aborts the run.
type Archiver struct {
	view        view.Client
	downloader  *Downloader
	transformer *PageTransformer
	opts        Options
}

func New(viewClient view.Client, downloader *Downloader, opts Options) *Archiver {
	return &Archiver{
		view:        viewClient,
		downloader:  downloader,
		transformer: &PageTransformer{Downloader: downloader},
		opts:        opts,
	}
}

func (a *Archiver) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "archiver:Run")
	defer span.End()

	courses, err := a.view.Courses(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list courses")
		return err
	}
	slog.InfoContext(ctx, "found courses", "count", len(courses))

	for _, course := range courses {
		a.archiveCourse(ctx, course)
	}
	return nil
}

func (a *Archiver) archiveCourse(ctx context.Context, course view.Course) {
	ctx, span := tracer.Start(ctx, "archiver:archiveCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.Name))

	slog.InfoContext(ctx, "processing course", "name", course.Name)

	modules, err := a.view.Modules(ctx, course)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list modules")
		slog.WarnContext(ctx, "failed to fetch modules", "course", course.Name, "err", err)
		return
	}
	slog.InfoContext(ctx, "found modules", "course", course.Name, "count", len(modules))

	courseName := dirName(course.Name)
	for _, module := range modules {
		moduleDir := filepath.Join(a.opts.Root, courseName, dirName(module.Name))
		slog.InfoContext(ctx, "processing module", "name", module.Name)
		for _, item := range module.Items {
			a.ArchiveItem(ctx, moduleDir, item)
		}
	}
}

// ArchiveItem fetches an item's landing page once and dispatches on what it
// turned out to be: a file page gets its artifact downloaded, a wiki page is
// rewritten and saved as markdown, anything else is skipped.
func (a *Archiver) ArchiveItem(ctx context.Context, moduleDir string, item view.Item) {
	ctx, span := tracer.Start(ctx, "archiver:ArchiveItem")
	defer span.End()
	span.SetAttributes(attribute.String("title", item.Title))

	slog.InfoContext(ctx, "processing module item", "title", item.Title)

	finalUrl, pageHtml, err := a.view.ItemPage(ctx, item)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch item page")
		slog.WarnContext(ctx, "failed to fetch module item page", "title", item.Title, "err", err)
		return
	}

	if filename, downloadUrl, ok := FindFileDownloadLink(string(pageHtml), a.downloader.Client.Absolutize); ok {
		name := textutil.SanitizeFilename(filename)
		if name == "" {
			name = fallbackFilename
		}
		_, err := a.downloader.Download(ctx, downloadUrl, filepath.Join(moduleDir, name))
		if err != nil {
			slog.WarnContext(ctx, "failed to download file item", "file", name, "err", err)
		}
		time.Sleep(a.opts.Delay)
		return
	}

	if strings.Contains(finalUrl, "/pages/") {
		a.archivePage(ctx, moduleDir, item, string(pageHtml))
		return
	}

	slog.InfoContext(ctx, "skipped item, neither file nor page", "title", item.Title, "url", finalUrl)
}

func (a *Archiver) archivePage(ctx context.Context, moduleDir string, item view.Item, pageHtml string) {
	markdown, ok := a.transformer.Transform(ctx, pageHtml, moduleDir)
	if !ok {
		slog.WarnContext(ctx, "page has no renderable content", "title", item.Title)
		return
	}

	name := textutil.SanitizeFilename(item.Title)
	if name == "" {
		name = fallbackFilename
	}
	savePath := filepath.Join(moduleDir, name+".md")

	err := os.MkdirAll(moduleDir, 0755)
	if err != nil {
		slog.WarnContext(ctx, "failed to create module directory", "dir", moduleDir, "err", err)
		return
	}
	err = os.WriteFile(savePath, []byte(markdown), 0644)
	if err != nil {
		slog.WarnContext(ctx, "failed to save page markdown", "path", savePath, "err", err)
		return
	}
	slog.InfoContext(ctx, "saved page as markdown", "file", filepath.Base(savePath))
}

func dirName(name string) string {
	sanitized := textutil.SanitizeFilename(name)
	if sanitized == "" {
		return "Unnamed"
	}
	return sanitized
}
