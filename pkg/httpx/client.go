package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/jklein/kleinchat/pkg/logs"
)

// Client is a thin JSON client bound to one base URL.
type Client struct {
	Client  *http.Client
	BaseUrl string
}

func NewClient(baseUrl string, timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		BaseUrl: baseUrl,
	}
}

// NewDefaultClient creates a client with a 10s timeout.
func NewDefaultClient(baseUrl string) *Client {
	return NewClient(baseUrl, 10*time.Second)
}

// NewStreamClient creates a client without a deadline, for requests whose
// response body is an open-ended stream.
func NewStreamClient(baseUrl string) *Client {
	return &Client{
		Client:  &http.Client{},
		BaseUrl: baseUrl,
	}
}

func (c *Client) buildRequest(ctx context.Context, options *RequestOption) (*http.Request, error) {
	var body io.Reader
	if options.Body != nil {
		if raw, ok := options.Body.([]byte); ok {
			body = bytes.NewBuffer(raw)
		} else {
			jsonData, err := json.Marshal(options.Body)
			if err != nil {
				return nil, errors.WithMessage(err, "marshal request body")
			}
			body = bytes.NewBuffer(jsonData)
		}
	}
	reqURL := c.BaseUrl + options.Path
	if len(options.Query) > 0 {
		params := url.Values{}
		for key, value := range options.Query {
			params.Add(key, value)
		}
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, options.Method.String(), reqURL, body)
	if err != nil {
		return nil, errors.WithMessage(err, "build request")
	}
	if options.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range options.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

// Do sends the request and returns a response whose body is fully buffered, so
// callers may read it more than once.
func (c *Client) Do(ctx context.Context, options *RequestOption) (*http.Response, error) {
	start := time.Now()
	request, err := c.buildRequest(ctx, options)
	if err != nil {
		return nil, err
	}
	response, err := c.Client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	response.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	logs.CtxDebugf(ctx, "[httpx] %s %s -> %d (%dms, request_id: %s)",
		options.Method, options.Path, response.StatusCode,
		time.Since(start).Milliseconds(), options.RequestID)
	return response, nil
}

// DoStream sends the request and returns the response with its body left open.
// The caller owns closing the body.
func (c *Client) DoStream(ctx context.Context, options *RequestOption) (*http.Response, error) {
	request, err := c.buildRequest(ctx, options)
	if err != nil {
		return nil, err
	}
	response, err := c.Client.Do(request)
	if err != nil {
		return nil, err
	}
	logs.CtxDebugf(ctx, "[httpx] %s %s -> %d (streaming, request_id: %s)",
		options.Method, options.Path, response.StatusCode, options.RequestID)
	return response, nil
}

// DoWithPtr sends the request and unmarshals the response body into resp.
func (c *Client) DoWithPtr(ctx context.Context, options *RequestOption, resp interface{}) error {
	response, err := c.Do(ctx, options)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bodyBytes, resp)
}
