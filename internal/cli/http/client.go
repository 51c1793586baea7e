package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"codeduel/pkg/utils/contextkey"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	userAgent       = "codeduel-client"
)

// ResponseInfo carries response details.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// OK reports a 2xx status.
func (r ResponseInfo) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client wraps HTTP requests to the platform. Cookies set by the platform
// (the login session) are kept in a jar and replayed on later calls.
type Client struct {
	baseURL string
	timeout time.Duration
	jar     http.CookieJar
}

func New(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		jar:     jar,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// Cookies returns the cookies stored for the base URL.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// SetCookies seeds the jar, typically from persisted actor state.
func (c *Client) SetCookies(cookies []*http.Cookie) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse base url failed: %w", err)
	}
	c.jar.SetCookies(u, cookies)
	return nil
}

// Post sends a JSON body to path and returns the raw response. Non-2xx
// statuses are not errors at this level.
func (c *Client) Post(ctx context.Context, path string, body []byte) (ResponseInfo, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	client := &http.Client{Timeout: c.timeout, Jar: c.jar}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	requestID, _ := ctx.Value(contextkey.RequestID).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)
	info.RequestID = requestID

	start := time.Now()
	resp, err := client.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	info.Body = bodyBytes
	return info, nil
}
