// Package index serves the root greeting.
package index

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/huma-hello/internal/platform/alloc"
	applog "github.com/janisto/huma-hello/internal/platform/logging"
)

const (
	// Greeting is the body of every successful response from GET /.
	Greeting = "Hello, world!"

	contentType = "text/plain; charset=utf-8"
)

// Register wires GET / into the provided API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-index",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greet the caller",
		Responses: map[string]*huma.Response{
			strconv.Itoa(http.StatusOK): {
				Description: "Static greeting",
				Content: map[string]*huma.MediaType{
					contentType: {Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Greeting}}},
				},
			},
		},
	}, getHandler)
}

// getHandler ignores the request entirely; the body is written as raw text
// rather than through huma's JSON/CBOR marshalers.
func getHandler(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	applog.LoggerFromContext(ctx).Debug("index get", zap.String("allocator", alloc.Name))
	return &huma.StreamResponse{Body: writeGreeting}, nil
}

func writeGreeting(hctx huma.Context) {
	buf := alloc.Malloc(len(Greeting))
	defer alloc.Free(buf)
	copy(buf, Greeting)

	hctx.SetHeader("Content-Type", contentType)
	hctx.SetHeader("Content-Length", strconv.Itoa(len(buf)))
	hctx.SetStatus(http.StatusOK)
	if _, err := hctx.BodyWriter().Write(buf); err != nil {
		applog.LogWarn(hctx.Context(), "write greeting failed", zap.Error(err))
	}
}
