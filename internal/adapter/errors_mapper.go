package adapter

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)

	case code == http.StatusConflict:
		return &ConflictError{Remote: resp.Body()}

	case code == http.StatusTooManyRequests:
		return &ThrottledError{RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After"))}

	case code >= http.StatusInternalServerError:
		if body == "" {
			body = http.StatusText(code)
		}
		return fmt.Errorf("%w: http %d: %s", ErrUnavailable, code, body)

	case code >= http.StatusBadRequest:
		if body == "" {
			body = http.StatusText(code)
		}
		return &RejectedError{StatusCode: code, Reason: body}

	default:
		if body == "" {
			body = http.StatusText(code)
		}
		return fmt.Errorf("http %d: %s", code, body)
	}
}

// parseRetryAfter understands the delay-seconds form of the Retry-After
// header. The HTTP-date form is rare on throttling responses and is treated
// as no hint.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
