package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mknoufi/stockverify/internal/config"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/models"
)

// expiryLeeway is subtracted from a token's exp claim so a token about to
// lapse mid-request is refreshed before the request is sent.
const expiryLeeway = 30 * time.Second

type httpRemoteClient struct {
	client *resty.Client
	tokens TokenSource
	logger *logger.Logger
}

// NewHTTPRemoteClient builds the resty-backed [RemoteClient] for the
// warehouse API described by cfg.
func NewHTTPRemoteClient(cfg config.Adapter, tokens TokenSource, log *logger.Logger) (RemoteClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: empty base url", config.ErrInvalidAdapterConfigs)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout)

	return &httpRemoteClient{client: cli, tokens: tokens, logger: log}, nil
}

func (h *httpRemoteClient) CreateSession(ctx context.Context, idempotencyKey string, m models.SessionMutation) (models.Session, error) {
	var out models.Session
	err := h.send(ctx, http.MethodPost, "/api/sessions", idempotencyKey, m, &out)
	if err != nil {
		return models.Session{}, fmt.Errorf("create session request: %w", err)
	}
	return out, nil
}

func (h *httpRemoteClient) UpdateSessionStatus(ctx context.Context, idempotencyKey string, m models.SessionMutation) (models.Session, error) {
	var out models.Session
	path := "/api/sessions/" + url.PathEscape(m.Session.ID) + "/status"
	err := h.send(ctx, http.MethodPatch, path, idempotencyKey, m, &out)
	if err != nil {
		return models.Session{}, fmt.Errorf("update session status request: %w", err)
	}
	return out, nil
}

func (h *httpRemoteClient) CreateCountLine(ctx context.Context, idempotencyKey string, m models.CountLineMutation) (models.CountLine, error) {
	var out models.CountLine
	path := "/api/sessions/" + url.PathEscape(m.Line.SessionID) + "/lines"
	err := h.send(ctx, http.MethodPost, path, idempotencyKey, m, &out)
	if err != nil {
		return models.CountLine{}, fmt.Errorf("create count line request: %w", err)
	}
	return out, nil
}

func (h *httpRemoteClient) UpdateCountLine(ctx context.Context, idempotencyKey string, m models.CountLineMutation) (models.CountLine, error) {
	var out models.CountLine
	path := "/api/count-lines/" + url.PathEscape(m.Line.ID)
	err := h.send(ctx, http.MethodPut, path, idempotencyKey, m, &out)
	if err != nil {
		return models.CountLine{}, fmt.Errorf("update count line request: %w", err)
	}
	return out, nil
}

func (h *httpRemoteClient) CreateUnknownItem(ctx context.Context, idempotencyKey string, m models.UnknownItemMutation) (models.UnknownItem, error) {
	var out models.UnknownItem
	err := h.send(ctx, http.MethodPost, "/api/unknown-items", idempotencyKey, m, &out)
	if err != nil {
		return models.UnknownItem{}, fmt.Errorf("create unknown item request: %w", err)
	}
	return out, nil
}

func (h *httpRemoteClient) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("q", query).
		Get("/api/items/search")
	if err != nil {
		return nil, fmt.Errorf("search items request: %w: %w", ErrUnavailable, err)
	}

	if mapErr := mapHTTPError(resp); mapErr != nil {
		if retried, retryErr := h.replayAfterRefresh(ctx, mapErr, func(req *resty.Request) (*resty.Response, error) {
			return req.SetQueryParam("q", query).Get("/api/items/search")
		}); retryErr != nil {
			return nil, retryErr
		} else if retried != nil {
			resp = retried
		}
	}

	var items []models.Item
	if err = json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return items, nil
}

// send issues one mutation request and decodes the canonical server record
// into out. A 401 triggers a single token refresh and replay of the same
// request before the error is surfaced.
func (h *httpRemoteClient) send(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	execute := func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetHeader("Idempotency-Key", idempotencyKey).
			SetBody(body).
			Execute(method, path)
	}

	resp, err := execute(h.authedRequest(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if mapErr := mapHTTPError(resp); mapErr != nil {
		retried, retryErr := h.replayAfterRefresh(ctx, mapErr, execute)
		if retryErr != nil {
			return retryErr
		}
		resp = retried
	}

	if out != nil {
		if err = json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}

	return nil
}

// replayAfterRefresh retries a request exactly once after refreshing the
// bearer token, and only when the original failure was a 401. For any other
// failure it returns the original mapped error unchanged.
func (h *httpRemoteClient) replayAfterRefresh(
	ctx context.Context,
	original error,
	execute func(*resty.Request) (*resty.Response, error),
) (*resty.Response, error) {
	if h.tokens == nil || !isUnauthorized(original) {
		return nil, original
	}

	token, err := h.tokens.Refresh(ctx)
	if err != nil {
		h.logger.Err(err).Msg("token refresh after 401 failed")
		return nil, original
	}

	req := h.client.R().SetContext(ctx).SetHeader("Authorization", "Bearer "+token)
	resp, err := execute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if mapErr := mapHTTPError(resp); mapErr != nil {
		return nil, mapErr
	}

	return resp, nil
}

func (h *httpRemoteClient) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if h.tokens == nil {
		return req
	}

	token := h.tokens.Token()
	if token != "" && tokenExpired(token, time.Now()) {
		if fresh, err := h.tokens.Refresh(ctx); err == nil {
			token = fresh
		} else {
			h.logger.Warn().Err(err).Msg("proactive token refresh failed, sending stale token")
		}
	}
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// tokenExpired inspects the unverified exp claim of a JWT bearer token.
// Signature verification is the server's job; the client only wants to avoid
// sending a request it already knows will bounce.
func tokenExpired(tokenString string, now time.Time) bool {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Time.Before(now.Add(expiryLeeway))
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
