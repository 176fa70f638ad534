// Package service implements the core relay forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"cors-proxy-go/internal/client"
	"cors-proxy-go/internal/config"
	"cors-proxy-go/internal/model"
	"cors-proxy-go/internal/rules"
)

// Forwarding errors surfaced to the handler for status mapping.
var (
	// ErrMissingTargetURL is returned when the url query parameter is absent.
	ErrMissingTargetURL = errors.New("missing url query parameter")

	// ErrInvalidTargetURL is returned when the target is not an absolute http(s) URL.
	ErrInvalidTargetURL = errors.New("url parameter must be an absolute http or https URL")

	// ErrTargetNotAllowed is returned when the target host is outside the allowlist.
	ErrTargetNotAllowed = errors.New("target host is not in the allowlist")
)

// defaultContentType is used when the upstream response has no Content-Type.
const defaultContentType = "application/json"

// Forwarder relays GET requests to arbitrary third-party endpoints,
// injecting credential headers selected by the rule set.
type Forwarder struct {
	client       *client.UpstreamClient
	rules        *rules.Set
	allowedHosts map[string]bool // empty means any host
	logger       *slog.Logger
}

// NewForwarder creates a Forwarder from the configured rule set and host
// allowlist. An empty allowlist permits any host.
func NewForwarder(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*Forwarder, error) {
	rs, err := cfg.RuleSet()
	if err != nil {
		return nil, fmt.Errorf("build rule set: %w", err)
	}

	allowed := make(map[string]bool, len(cfg.Upstream.AllowedHosts))
	for _, h := range cfg.Upstream.AllowedHosts {
		allowed[h] = true
	}

	return &Forwarder{
		client:       c,
		rules:        rs,
		allowedHosts: allowed,
		logger:       logger.With("component", "forwarder"),
	}, nil
}

// Forward validates the target URL, resolves injection headers and issues the
// outbound request. The caller is responsible for closing the response body.
//
// Only the upstream status code, Content-Type and body survive the relay;
// every other upstream header is dropped. A missing upstream Content-Type is
// replaced with application/json.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if pr.TargetURL == "" {
		return nil, ErrMissingTargetURL
	}

	u, err := url.Parse(pr.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTargetURL, pr.TargetURL)
	}

	if len(f.allowedHosts) > 0 && !f.allowedHosts[u.Hostname()] {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotAllowed, u.Hostname())
	}

	header := f.rules.Resolve(pr.TargetURL)

	resp, err := f.client.Get(pr.Ctx, pr.TargetURL, header)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	rule, matched := f.rules.Match(pr.TargetURL)
	f.logger.Info("proxied request",
		"target", RedactKeys(pr.TargetURL),
		"status", resp.StatusCode,
		"rule", rule,
		"rule_matched", matched,
	)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &model.ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        resp.Body,
	}, nil
}
