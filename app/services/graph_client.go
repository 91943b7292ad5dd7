package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/amirphl/Susanoo/models"
)

// BodyEncoding selects how POST fields are sent to a Graph endpoint
type BodyEncoding string

const (
	BodyEncodingForm BodyEncoding = "form"
	BodyEncodingJSON BodyEncoding = "json"
)

// GraphPlatform describes one Graph API flavour
type GraphPlatform struct {
	Platform models.Platform
	BaseURL  string
	Encoding BodyEncoding
}

// FacebookGraph is the page-publishing API, form encoded
func FacebookGraph(baseURL string) GraphPlatform {
	return GraphPlatform{Platform: models.PlatformFacebook, BaseURL: baseURL, Encoding: BodyEncodingForm}
}

// InstagramGraph is the content-publishing API, JSON encoded
func InstagramGraph(baseURL string) GraphPlatform {
	return GraphPlatform{Platform: models.PlatformInstagram, BaseURL: baseURL, Encoding: BodyEncodingJSON}
}

// GraphAPIError is returned for any non-2xx Graph response
type GraphAPIError struct {
	Platform   models.Platform
	StatusCode int
	Message    string
}

func (e *GraphAPIError) Error() string {
	return e.Message
}

// IsGraphAPIError reports whether err wraps a Graph API rejection
func IsGraphAPIError(err error) bool {
	var gerr *GraphAPIError
	return errors.As(err, &gerr)
}

// GraphResponse is a decoded Graph API JSON body
type GraphResponse map[string]any

// ID returns the "id" field, which Graph returns as a string
func (r GraphResponse) ID() string {
	return r.String("id")
}

func (r GraphResponse) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// GraphClient issues authenticated calls against one Graph API flavour
type GraphClient struct {
	platform GraphPlatform
	client   *http.Client
}

// NewGraphClient creates a Graph client; a nil http client uses http.DefaultClient
func NewGraphClient(platform GraphPlatform, client *http.Client) *GraphClient {
	if client == nil {
		client = http.DefaultClient
	}
	platform.BaseURL = strings.TrimRight(platform.BaseURL, "/")
	return &GraphClient{platform: platform, client: client}
}

// Platform returns the platform this client talks to
func (c *GraphClient) Platform() models.Platform {
	return c.platform.Platform
}

// Post sends fields plus the access token to path
func (c *GraphClient) Post(ctx context.Context, path, accessToken string, fields map[string]any) (GraphResponse, error) {
	endpoint := c.platform.BaseURL + "/" + strings.TrimLeft(path, "/")

	var (
		body        io.Reader
		contentType string
	)
	switch c.platform.Encoding {
	case BodyEncodingJSON:
		payload := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			payload[k] = v
		}
		payload["access_token"] = accessToken
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", c.platform.Platform, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	default:
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, formValue(v))
		}
		form.Set("access_token", accessToken)
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	return c.do(req)
}

// Get reads path with the given query; the access token travels as a query parameter
func (c *GraphClient) Get(ctx context.Context, path, accessToken string, query url.Values) (GraphResponse, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("access_token", accessToken)

	endpoint := c.platform.BaseURL + "/" + strings.TrimLeft(path, "/") + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	return c.do(req)
}

func (c *GraphClient) do(req *http.Request) (GraphResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.platform.Platform, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.platform.Platform, err)
	}

	var decoded GraphResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode %s response: %w", c.platform.Platform, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GraphAPIError{
			Platform:   c.platform.Platform,
			StatusCode: resp.StatusCode,
			Message:    graphErrorMessage(decoded),
		}
	}
	if decoded == nil {
		decoded = GraphResponse{}
	}
	return decoded, nil
}

func graphErrorMessage(body GraphResponse) string {
	if errObj, ok := body["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return "Unknown error"
}

func formValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []byte:
		return string(t)
	default:
		if raw, err := json.Marshal(t); err == nil {
			return strings.Trim(string(raw), `"`)
		}
		return fmt.Sprint(t)
	}
}
