package gemini

import (
	"errors"
	"net/http"

	"google.golang.org/genai"

	"github.com/kirillkom/matercare-assistant/internal/infrastructure/resilience"
)

// classifyError maps genai API errors onto the shared HTTP status policy.
func classifyError(err error) resilience.ErrorClassification {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTPError(&resilience.HTTPStatusError{
			Backend:    "gemini",
			StatusCode: apiErr.Code,
			Status:     http.StatusText(apiErr.Code),
			Body:       apiErr.Message,
		})
	}
	return resilience.ClassifyHTTPError(err)
}
