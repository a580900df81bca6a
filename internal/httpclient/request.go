package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes a single HTTP call.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)
	SetBody(body any) Request
	SetHeader(key, value string) Request
}

// Response wraps http.Response with the fully read body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

type requestBuilder struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	baseURL        string
	headers        map[string]string
	body           any
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

// SetBody sets the request body. Values other than []byte and string are
// JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) execute(ctx context.Context, method, url string) (*Response, error) {
	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("provider", r.providerName),
		),
	)
	defer span.End()

	fullURL := url
	if r.baseURL != "" && !strings.HasPrefix(url, "http") {
		fullURL = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(url, "/")
	}

	bodyReader, err := r.encodeBody()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		r.recordError(ctx, span, err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{Response: resp, body: body}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if response.IsError() {
		span.SetStatus(codes.Error, resp.Status)
	}

	r.recordMetrics(ctx, !response.IsError())

	return response, nil
}

func (r *requestBuilder) encodeBody() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(raw), nil
	}
}

func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false)
}

func (r *requestBuilder) recordMetrics(ctx context.Context, success bool) {
	r.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", r.providerName),
		attribute.Bool("success", success),
	))
}
