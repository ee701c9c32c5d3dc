package restyutil

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// InstrumentOutput receives a rendered request/response transcript for
// every request made through an instrumented client.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	idcounter *uint64
}

type messageIdKey struct{}

// InstrumentClient dumps request/response transcripts to `output` whenever
// debug logging is enabled. `output` can be nil, in which case the function
// is a no-op.
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	i := instrumentCtx{output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(cli *resty.Client, req *resty.Request) error {
	ctx := req.Context()
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	slog.DebugContext(
		ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", messageId,
	)
	req.SetContext(context.WithValue(ctx, messageIdKey{}, messageId))
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	messageId, ok := ctx.Value(messageIdKey{}).(string)
	if !ok {
		return nil
	}

	i.output.Write(messageId, formatHttpMessage(res))
	slog.DebugContext(
		ctx, "request succeeded",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"message_id", messageId,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	messageId, _ := ctx.Value(messageIdKey{}).(string)
	slog.ErrorContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", messageId,
	)
}
