package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"

	"github.com/labstack/echo/v4"

	"cors-proxy-go/internal/model"
	"cors-proxy-go/internal/service"
)

// Preflight response headers advertised to browsers.
const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, Authorization, X-RapidAPI-Key, X-RapidAPI-Host, X-API-Key"
)

// ProxyHandler relays GET requests to the target URL named in the query string.
type ProxyHandler struct {
	service *service.Forwarder
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.Forwarder, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Preflight answers the browser's CORS preflight with a 200 and no body.
func (h *ProxyHandler) Preflight(c echo.Context) error {
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, "*")
	header.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
	header.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
	return c.NoContent(http.StatusOK)
}

// Handle relays the request to the target URL and streams the response back.
// Only the upstream status, Content-Type and body reach the caller.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:       req.Context(),
		TargetURL: c.QueryParam("url"),
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, pr.TargetURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.Response().Header().Set(echo.HeaderContentType, resp.ContentType)
	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"target", service.RedactKeys(pr.TargetURL),
		)
	}

	return nil
}

// mapError converts forwarding failures into CORS-enabled JSON error
// responses. Client mistakes map to 400, everything upstream maps to 500;
// nothing propagates far enough to crash the handler.
func (h *ProxyHandler) mapError(c echo.Context, target string, err error) error {
	h.logger.Error("proxy error",
		"err", service.RedactKeys(err.Error()),
		"target", service.RedactKeys(target),
	)

	if errors.Is(err, service.ErrMissingTargetURL) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing url query parameter",
		})
	}

	if errors.Is(err, service.ErrInvalidTargetURL) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "url parameter must be an absolute http or https URL",
		})
	}

	if errors.Is(err, service.ErrTargetNotAllowed) {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "target host is not allowed",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "upstream request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "client disconnected",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "upstream request timed out",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "proxy error",
	})
}
