package accurate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/farxc/accurate-sales-etl/internal/logger"
)

// RetryPolicy bounds the retries of transient failures: transport errors,
// HTTP 429 and HTTP 5xx. Everything else fails on the first attempt.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

type Options struct {
	Timeout time.Duration
	// RequestsPerSecond caps the request rate across every endpoint. Zero disables it.
	RequestsPerSecond float64
	AuthRetry         RetryPolicy
	DataRetry         RetryPolicy
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the Accurate OAuth and sales-invoice endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	authRetry  RetryPolicy
	dataRetry  RetryPolicy
	logger     *logger.Logger
}

func NewClient(opts Options, appLogger *logger.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		authRetry:  opts.AuthRetry,
		dataRetry:  opts.DataRetry,
		logger:     appLogger,
	}
}

type request struct {
	method string
	url    string
	query  url.Values
	header http.Header
	body   []byte
}

type response struct {
	statusCode int
	body       []byte
}

// send executes req under policy. It returns *HTTPError for non-2xx
// responses and the transport error otherwise.
func (c *Client) send(ctx context.Context, policy RetryPolicy, req request) (*response, error) {
	const component = "AccurateClient"

	target, err := url.Parse(req.url)
	if err != nil {
		return nil, err
	}
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var resp *response
	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, values := range req.header {
			for _, v := range values {
				httpReq.Header.Add(k, v)
			}
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer httpResp.Body.Close()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return err
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			httpErr := &HTTPError{
				Method:     req.method,
				Path:       target.Path,
				StatusCode: httpResp.StatusCode,
				Body:       respBody,
			}
			if httpErr.Retryable() {
				return httpErr
			}
			return backoff.Permanent(httpErr)
		}

		resp = &response{statusCode: httpResp.StatusCode, body: respBody}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn(component, "Transient failure, retrying: method=%s path=%s wait=%s error=%v", req.method, target.Path, wait, err)
	}

	if err := backoff.RetryNotify(operation, newBackOff(ctx, policy), notify); err != nil {
		return nil, err
	}
	return resp, nil
}

func newBackOff(ctx context.Context, policy RetryPolicy) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.MaxElapsedTime = 0

	retries := policy.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// envelope is the {"s": bool, "d": ...} wrapper of every Accurate API response.
type envelope struct {
	S *bool           `json:"s"`
	D json.RawMessage `json:"d"`
}

var errEnvelopeMissingData = errors.New("response has no d field")

// decodeEnvelope unmarshals d into out. s == false is reported as an error
// carrying d, which then holds Accurate's messages.
func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}
	if env.S != nil && !*env.S {
		return &apiFailure{Messages: string(env.D)}
	}
	if len(env.D) == 0 || bytes.Equal(bytes.TrimSpace(env.D), []byte("null")) {
		return errEnvelopeMissingData
	}
	return json.Unmarshal(env.D, out)
}

// apiFailure is a 2xx response whose envelope says s=false.
type apiFailure struct {
	Messages string
}

func (e *apiFailure) Error() string {
	return "accurate reported failure: " + e.Messages
}

func bearerHeader(accessToken string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}
