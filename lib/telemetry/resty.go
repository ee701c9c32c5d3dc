package telemetry

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentResty attaches a span to every request made through the client.
func InstrumentResty(client *resty.Client, tracerName string) {
	tracer := otel.Tracer(tracerName)

	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)
		req.SetContext(ctx)
		return nil
	}
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	// setting request attributes here since res.Request.RawRequest is nil
	// in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	return nil
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	span.SetName(fmt.Sprintf("http %s", req.Method))
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}
}
