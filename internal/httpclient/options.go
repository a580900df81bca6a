// Package httpclient provides an HTTP client instrumented with OpenTelemetry
// tracing and request metrics.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ClientOptions holds configuration for the instrumented HTTP client.
type ClientOptions struct {
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
}

// ClientOption is a function that configures ClientOptions.
type ClientOption func(*ClientOptions)

func newClientOptions(opts ...ClientOption) *ClientOptions {
	options := &ClientOptions{
		providerName:   "default",
		requestTimeout: defaultRequestTimeout,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *ClientOptions) {
		o.meterProvider = mp
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *ClientOptions) {
		o.tracer = tracer
	}
}

// WithProviderName labels metrics and spans with the remote's name.
func WithProviderName(name string) ClientOption {
	return func(o *ClientOptions) {
		o.providerName = name
	}
}

// WithRoundTripper sets the base transport before instrumentation.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if timeout > 0 {
			o.requestTimeout = timeout
		}
	}
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		o.headers = headers
	}
}

// WithBaseURL sets the base URL for relative request paths.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		o.baseURL = url
	}
}
