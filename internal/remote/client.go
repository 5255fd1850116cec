// ABOUTME: HTTP client for the remote menu endpoint.
// ABOUTME: Fetches the canonical menu JSON and resolves dish image URLs.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/harperreed/littlelemon/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultMenuURL      = "https://raw.githubusercontent.com/Meta-Mobile-Developer-PC/Working-With-Data-API/main/capstone.json"
	DefaultImageBaseURL = "https://github.com/Meta-Mobile-Developer-PC/Working-With-Data-API/blob/main/images?raw=true"
	DefaultTimeout      = 30 * time.Second

	// maxBodySize caps how much of the response body is read.
	maxBodySize = 4 << 20
)

// ErrFetch wraps every failure to download or decode the menu.
var ErrFetch = errors.New("fetch menu")

// StatusError reports a non-2xx response from the menu endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Fetcher retrieves the menu from somewhere. The service depends on this, not on Client.
type Fetcher interface {
	FetchMenu(ctx context.Context) ([]models.MenuItem, error)
}

// Client downloads the menu over HTTP.
type Client struct {
	menuURL      string
	imageBaseURL string
	userAgent    string
	http         *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithMenuURL overrides the menu endpoint.
func WithMenuURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.menuURL = u
		}
	}
}

// WithImageBaseURL overrides the base used by ImageURL.
func WithImageBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.imageBaseURL = u
		}
	}
}

// WithTimeout sets the whole-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New returns a Client with the default endpoint and a 30 second timeout.
func New(opts ...Option) *Client {
	c := &Client{
		menuURL:      DefaultMenuURL,
		imageBaseURL: DefaultImageBaseURL,
		userAgent:    "littlelemon",
		http:         &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MenuURL returns the endpoint this client fetches from.
func (c *Client) MenuURL() string {
	return c.menuURL
}

type menuResponse struct {
	Menu []menuEntry `json:"menu"`
}

type menuEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Price       price  `json:"price"`
	Category    string `json:"category"`
}

// price accepts either a JSON string or a JSON number and keeps the text as sent.
type price string

func (p *price) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price must be a string or number: %w", err)
	}
	*p = price(n.String())
	return nil
}

// FetchMenu performs one GET against the menu endpoint. It never retries.
// All errors wrap ErrFetch; non-2xx responses also carry a *StatusError.
func (c *Client) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	ctx, span := otel.Tracer("littlelemon/remote").Start(ctx, "remote.FetchMenu")
	defer span.End()
	span.SetAttributes(attribute.String("url.full", c.menuURL))

	items, err := c.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	span.SetAttributes(attribute.Int("menu.items", len(items)))
	return items, nil
}

func (c *Client) fetch(ctx context.Context) ([]models.MenuItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.menuURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var body menuResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}

	items := make([]models.MenuItem, 0, len(body.Menu))
	for _, e := range body.Menu {
		items = append(items, models.MenuItem{
			Title:         e.Name,
			Description:   e.Description,
			Price:         string(e.Price),
			ImageFileName: e.Image,
			Category:      e.Category,
		})
	}
	return items, nil
}

// ImageURL resolves an image file name against the image base URL.
// The base's query string (such as ?raw=true) is kept.
func (c *Client) ImageURL(fileName string) string {
	return ResolveImageURL(c.imageBaseURL, fileName)
}

// ResolveImageURL appends fileName to base's path and escapes it.
// An empty file name or unparseable base yields "".
func ResolveImageURL(base, fileName string) string {
	if fileName == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.JoinPath(fileName).String()
}
