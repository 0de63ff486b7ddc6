package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vehicle-bot/internal/config"
	"vehicle-bot/internal/domain"
)

const (
	defaultIdentifierField = "Props"
	defaultTimeout         = 10 * time.Second
	maxResponseBytes       = 1 << 20
)

// HTTPStatusError captures non-2xx provider responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("lookup: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client queries the vehicle registration provider.
type Client struct {
	url             string
	template        map[string]any
	cookie          string
	identifierField string
	httpClient      *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithIdentifierField overrides the request key the identifier is injected
// under.
func WithIdentifierField(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.identifierField = name
		}
	}
}

// NewClient creates a Client. template is the provider request body the
// identifier is merged into; it is copied so later changes by the caller do
// not leak into requests. cookies is a raw `k=v; k=v` header value.
func NewClient(endpoint string, template map[string]any, cookies string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("lookup: url must not be empty")
	}
	c := &Client{
		url:             endpoint,
		template:        maps.Clone(template),
		cookie:          NormalizeCookies(cookies),
		identifierField: defaultIdentifierField,
		httpClient:      &http.Client{Timeout: defaultTimeout},
	}
	if c.template == nil {
		c.template = map[string]any{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig builds a Client from provider settings: the raw JSON body
// template, cookie string, identifier field and request timeout.
func NewClientFromConfig(cfg config.LookupConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	template, err := ParseTemplate(cfg.Body)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.URL, template, cfg.Cookies,
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		WithIdentifierField(cfg.IdentifierField),
	)
}

// ParseTemplate decodes a JSON request-body template. The template must be a
// JSON object.
func ParseTemplate(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var tmpl map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("lookup: decode body template: %w", err)
	}
	if tmpl == nil {
		return nil, errors.New("lookup: body template must be a JSON object")
	}
	return tmpl, nil
}

// NormalizeCookies parses a cookie header value and re-serializes it as
// `name=value` pairs joined by "; ". Segments without a name or "=" (such as
// Secure or HttpOnly copied from a browser) are skipped, the first occurrence
// of a name wins, surrounding quotes are dropped and percent-escapes are
// decoded when valid. Values are otherwise passed through untouched.
func NormalizeCookies(raw string) string {
	seen := make(map[string]struct{})
	parts := make([]string, 0, 4)
	for _, seg := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(seg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		parts = append(parts, name+"="+decodeCookieValue(value))
	}
	return strings.Join(parts, "; ")
}

func decodeCookieValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	if !strings.Contains(v, "%") {
		return v
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

// buildRequestBody shallow-merges the template with the identifier.
func (c *Client) buildRequestBody(identifier string) map[string]any {
	body := maps.Clone(c.template)
	if body == nil {
		body = map[string]any{}
	}
	body[c.identifierField] = []string{identifier}
	return body
}

// Lookup sends one request for identifier and returns the normalized record.
// Every failure is a *Error.
func (c *Client) Lookup(ctx context.Context, identifier string) (domain.NormalizedRecord, error) {
	body, err := json.Marshal(c.buildRequestBody(identifier))
	if err != nil {
		return domain.NormalizedRecord{}, providerError(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.NormalizedRecord{}, transportError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return domain.NormalizedRecord{}, err
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return domain.NormalizedRecord{}, providerError(err)
	}
	rec, err := Normalize(doc)
	if err != nil {
		return domain.NormalizedRecord{}, providerError(err)
	}
	return rec, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, providerError(&HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        c.url,
			Body:       string(buf),
		})
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response body: %w", err))
	}
	return buf, nil
}

func decodeDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if doc == nil {
		return nil, errors.New("decode response: body is not a JSON object")
	}
	return doc, nil
}
