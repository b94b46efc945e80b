package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
)

type response struct {
	Status int
	Header http.Header
	Body   []byte
}

type request struct {
	op      string
	method  string
	url     string
	accept  string
	body    any
	headers map[string]string
	// noAuth skips the bearer token, used by the token call itself.
	noAuth bool
}

// send performs one HTTP exchange. Every transport, status or encoding
// failure comes back as a *common.APIError. There are no retries.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	logger := c.logger.With("req_id", reqID, "op", r.op)
	start := time.Now()

	var reader io.Reader
	var size int
	if r.body != nil {
		bs, err := json.Marshal(r.body)
		if err != nil {
			logger.Error("api.http.encode_error", "error", err)
			return nil, common.NewAPIError(r.op, 0, "", fmt.Errorf("encode json: %w", err))
		}
		reader = bytes.NewReader(bs)
		size = len(bs)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
	if err != nil {
		logger.Error("api.http.build_request_error", "error", err)
		return nil, common.NewAPIError(r.op, 0, "", fmt.Errorf("build request: %w", err))
	}

	accept := r.accept
	if accept == "" {
		accept = constants.MediaTypeJSON
	}
	req.Header.Set("Accept", accept)
	if r.body != nil {
		req.Header.Set("Content-Type", constants.MediaTypeJSON)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if !r.noAuth && c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			logger.Error("api.http.token_error", "error", err)
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	logger.Info("api.http.request", "method", r.method, "url", r.url, "content_length", size)

	resp, err := c.hc.Do(req)
	if err != nil {
		logger.Error("api.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAPIError(r.op, 0, "", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("api.http.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("api.http.read_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAPIError(r.op, resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}

	logger.Info("api.http.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
	}
	if resp.StatusCode/100 != 2 {
		return nil, common.NewAPIError(r.op, resp.StatusCode, string(raw), nil)
	}
	return &response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// decode validates raw against schema and unmarshals it into out.
func (c *Client) decode(op string, schema *compiledSchema, raw []byte, out any) error {
	if schema != nil {
		if err := schema.Validate(raw); err != nil {
			c.logger.Error("api.decode.schema_validation_failed", "op", op, "error", err)
			return common.NewAPIError(op, 0, "", err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("api.decode.unmarshal_failed", "op", op, "error", err, "raw_bytes", len(raw))
		return common.NewAPIError(op, 0, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
