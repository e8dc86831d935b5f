package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/metrics"
	"github.com/google/go-github/v60/github"
	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single remote request.
	DefaultTimeout = 20 * time.Second

	tracerName = "github.com/FernandoVinha/TheManager/internal/remote"
	apiPrefix  = "/api/v1/"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the remote code-hosting API with an administrator token.
type Client struct {
	api     *github.Client
	baseURL string
	timeout time.Duration
	log     *zap.Logger
	tracer  trace.Tracer
}

// New builds a Client rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote: base url is required")
	}
	apiURL, err := url.Parse(base + apiPrefix)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if apiURL.Scheme == "" || apiURL.Host == "" {
		return nil, fmt.Errorf("remote: base url %q must be absolute", cfg.BaseURL)
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		httpClient = &clone
	}
	httpClient.Transport = &tokenTransport{token: cfg.Token, base: httpClient.Transport}

	api := github.NewClient(httpClient)
	api.BaseURL = apiURL
	api.UploadURL = apiURL
	api.UserAgent = "themanager"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		api:     api,
		baseURL: base,
		timeout: timeout,
		log:     logger.WithModule("remote"),
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// BaseURL returns the web root of the remote without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RepoWebURL is the browser URL of owner/name.
func (c *Client) RepoWebURL(owner, name string) string {
	return c.baseURL + "/" + url.PathEscape(owner) + "/" + url.PathEscape(name)
}

// do issues one request. out may be nil. Every outcome is traced, counted and
// folded into an *Error.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, opts ...github.RequestOption) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("remote.operation", op),
			attribute.String("http.method", method),
		),
	)
	defer span.End()

	start := time.Now()
	status, err := c.send(ctx, op, method, path, body, out, opts...)
	elapsed := time.Since(start)

	metrics.RemoteLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	metrics.RemoteRequests.WithLabelValues(op, outcome(err)).Inc()

	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	c.log.Debug("remote request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
	return err
}

func (c *Client) send(ctx context.Context, op, method, path string, body, out any, opts ...github.RequestOption) (int, error) {
	req, err := c.api.NewRequest(method, path, body, opts...)
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}

	resp, err := c.api.Do(ctx, req, out)
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	if err == nil {
		return status, nil
	}

	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		if out != nil && len(accepted.Raw) > 0 {
			if jsonErr := json.Unmarshal(accepted.Raw, out); jsonErr != nil {
				return http.StatusAccepted, &Error{Op: op, Status: http.StatusAccepted, Body: string(accepted.Raw), Err: jsonErr}
			}
		}
		return http.StatusAccepted, nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode, &Error{
			Op:      op,
			Status:  errResp.Response.StatusCode,
			Message: errResp.Message,
			Body:    readBody(errResp.Response),
			Err:     err,
		}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return http.StatusTooManyRequests, &Error{
			Op:      op,
			Status:  http.StatusTooManyRequests,
			Message: rateErr.Message,
			Err:     err,
		}
	}

	return status, &Error{Op: op, Status: status, Err: err}
}

// readBody returns the error body that the transport repopulated after decoding.
func readBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// endpoint joins escaped path segments below the API root.
func endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// withQuery appends the url-tagged fields of opts to path.
func withQuery(path string, opts any) (string, error) {
	values, err := query.Values(opts)
	if err != nil {
		return "", err
	}
	if encoded := values.Encode(); encoded != "" {
		return path + "?" + encoded, nil
	}
	return path, nil
}
