package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPISpec []byte

var (
	openAPIOnce   sync.Once
	openAPIRouter routers.Router
	openAPIErr    error
)

func loadOpenAPIRouter() (routers.Router, error) {
	openAPIOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPISpec)
		if err != nil {
			openAPIErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openAPIErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		router, err := legacyrouter.NewRouter(doc)
		if err != nil {
			openAPIErr = fmt.Errorf("build openapi router: %w", err)
			return
		}
		openAPIRouter = router
	})
	return openAPIRouter, openAPIErr
}

// openAPIValidationMiddleware rejects requests that do not match the
// embedded document. Routes the document does not know pass through.
func openAPIValidationMiddleware(next http.Handler) http.Handler {
	router, err := loadOpenAPIRouter()
	if err != nil {
		slog.Error("openapi_validation_disabled", "error", err)
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			if isUnknownRoute(err) {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		if r.Body != nil && r.ContentLength != 0 && strings.TrimSpace(r.Header.Get("Content-Type")) == "" {
			r.Header.Set("Content-Type", "application/json")
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			slog.Warn("http_request_invalid",
				"request_id", requestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isUnknownRoute reports whether FindRoute failed because the document has
// no such path or method. The router returns fresh RouteError values, so
// the reason text is what identifies them.
func isUnknownRoute(err error) bool {
	var routeErr *routers.RouteError
	if !errors.As(err, &routeErr) {
		return false
	}
	return routeErr.Reason == routers.ErrPathNotFound.Error() ||
		routeErr.Reason == routers.ErrMethodNotAllowed.Error()
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Reason != "" {
		return "invalid request: " + reqErr.Reason
	}
	return "invalid request body"
}
