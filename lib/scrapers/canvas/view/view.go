package view

import (
	"bytes"
	"context"
	"fmt"

	"canvasgrab/lib/htmlutil"
	"canvasgrab/lib/scrapers/canvas/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/canvas/view")

type Client struct {
	Core *core.Client
}

func NewClient(coreClient *core.Client) Client {
	return Client{Core: coreClient}
}

type Course struct {
	Name string
	Id   string
}

type Item struct {
	Title string
	Url   string
}

type Module struct {
	Name  string
	Items []Item
}

// Courses scrapes the dashboard course table.
func (c Client) Courses(ctx context.Context) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "client:Courses")
	defer span.End()

	res, err := c.Core.Http.R().
		SetContext(ctx).
		Get("/courses")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "bad status")
		return nil, fmt.Errorf("fetch course list: status %d", res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	return parseCourses(doc), nil
}

func parseCourses(doc *goquery.Document) []Course {
	var courses []Course
	doc.Find("tr.course-list-table-row").Each(func(_ int, row *goquery.Selection) {
		name := htmlutil.CleanText(row.Find(".course-list-course-title-column .name").Text())
		id, ok := row.Find(".course-list-star-column [data-course-id]").Attr("data-course-id")
		if name == "" || !ok {
			return
		}
		courses = append(courses, Course{Name: name, Id: id})
	})
	return courses
}

// Modules scrapes the topic-organized outline of a course into ordered
// modules of (title, url) items.
func (c Client) Modules(ctx context.Context, course Course) ([]Module, error) {
	ctx, span := tracer.Start(ctx, "client:Modules")
	defer span.End()
	span.SetAttributes(attribute.String("course_id", course.Id))

	res, err := c.Core.Http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/courses/%s/modules", course.Id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "bad status")
		return nil, fmt.Errorf("fetch modules of course %s: status %d", course.Id, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	return c.parseModules(doc), nil
}

func (c Client) parseModules(doc *goquery.Document) []Module {
	var modules []Module
	doc.Find("div.item-group-condensed.context_module").Each(func(_ int, moduleDiv *goquery.Selection) {
		name := htmlutil.CleanText(moduleDiv.Find("span.name").First().Text())
		if name == "" {
			name = "UnknownModule"
		}

		var items []Item
		moduleDiv.Find("li.context_module_item").Each(func(_ int, li *goquery.Selection) {
			link := li.Find("a.item_link").First()
			if link.Length() == 0 {
				return
			}
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			items = append(items, Item{
				Title: htmlutil.CleanText(link.Text()),
				Url:   c.Core.Absolutize(href),
			})
		})

		modules = append(modules, Module{Name: name, Items: items})
	})
	return modules
}

// ItemPage fetches a module item's landing page once, following redirects,
// and reports both the final url and the body. The final url is what decides
// how the item is handled downstream.
func (c Client) ItemPage(ctx context.Context, item Item) (string, []byte, error) {
	ctx, span := tracer.Start(ctx, "client:ItemPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", item.Url))

	res, err := c.Core.Http.R().
		SetContext(ctx).
		Get(item.Url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", nil, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "bad status")
		return "", nil, fmt.Errorf("fetch module item '%s': status %d", item.Title, res.StatusCode())
	}

	finalUrl := item.Url
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	return finalUrl, res.Body(), nil
}
