// Package model defines shared types for the relay.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest describes a single relay request: the target URL extracted
// from the inbound query string, plus the inbound request context so that
// a client disconnect cancels the outbound call.
type ProxyRequest struct {
	Ctx       context.Context
	TargetURL string
}

// UpstreamResponse is the raw upstream response as returned by the client.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ProxyResponse carries the parts of the upstream response that are relayed
// back to the caller. Everything else the upstream sent is discarded.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}
