package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public backend.
const DefaultBaseURL = "https://islambackend.fly.dev"

// TokenStore persists the admin bearer token between calls and sessions.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Client communicates with the prayer-times backend.
type Client struct {
	httpClient *http.Client
	tokens     TokenStore
	log        zerolog.Logger
	// BaseURL is the API base URL. Exported for testing with httptest.
	BaseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithTokenStore enables authenticated calls backed by s.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log:     zerolog.Nop(),
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSections fetches one page of selectable cities. page < 1 fetches the first page.
func (c *Client) ListSections(ctx context.Context, page int) (*SectionsResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out SectionsResponse
	if err := c.get(ctx, "/sections/list", q, false, &out); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return &out, nil
}

// ListPrayerTimes fetches the prayer-time records for city.
func (c *Client) ListPrayerTimes(ctx context.Context, city string) (*PrayerTimesResponse, error) {
	q := url.Values{}
	q.Set("q", city)
	var out PrayerTimesResponse
	if err := c.get(ctx, "/prayer-times/list", q, false, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch prayer times for %q: %w", city, err)
	}
	return &out, nil
}

// TodayPrayerTime returns the first record for city, which the backend
// orders as today's. It returns ErrNoPrayerTimes when the list is empty.
func (c *Client) TodayPrayerTime(ctx context.Context, city string) (*PrayerTime, error) {
	resp, err := c.ListPrayerTimes(ctx, city)
	if err != nil {
		return nil, err
	}
	if len(resp.PrayerTimes) == 0 {
		return nil, fmt.Errorf("%q: %w", city, ErrNoPrayerTimes)
	}
	rec := resp.PrayerTimes[0]
	return &rec, nil
}

// ListAdhkarCategories fetches remembrance categories.
func (c *Client) ListAdhkarCategories(ctx context.Context) (*AdhkarCategoriesResponse, error) {
	var out AdhkarCategoriesResponse
	if err := c.get(ctx, "/adhkar-categories/list", nil, false, &out); err != nil {
		return nil, fmt.Errorf("failed to list adhkar categories: %w", err)
	}
	return &out, nil
}

// ListAdhkar fetches remembrances, filtered by category when categoryID > 0.
func (c *Client) ListAdhkar(ctx context.Context, categoryID int) (*AdhkarResponse, error) {
	path := "/adhkar/list"
	q := url.Values{}
	if categoryID > 0 {
		path = "/adhkar/category"
		q.Set("category_id", strconv.Itoa(categoryID))
	}
	var out AdhkarResponse
	if err := c.get(ctx, path, q, false, &out); err != nil {
		return nil, fmt.Errorf("failed to list adhkar: %w", err)
	}
	return &out, nil
}

// ListHadiths fetches hadiths, filtered by topic when topic is non-empty.
func (c *Client) ListHadiths(ctx context.Context, topic string) (*HadithsResponse, error) {
	path := "/hadiths/list"
	q := url.Values{}
	if topic != "" {
		path = "/hadiths/topic"
		q.Set("topic", topic)
	}
	var out HadithsResponse
	if err := c.get(ctx, path, q, false, &out); err != nil {
		return nil, fmt.Errorf("failed to list hadiths: %w", err)
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token and stores it.
func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResponse, error) {
	form := url.Values{}
	form.Set("phone_number", phone)
	form.Set("password", password)

	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", nil, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", false, &out)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login failed: no token in response")
	}
	if c.tokens != nil {
		if err := c.tokens.SetToken(ctx, out.Token); err != nil {
			return nil, fmt.Errorf("failed to store token: %w", err)
		}
	}
	return &out, nil
}

// Me returns the account behind the stored token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out MeResponse
	if err := c.get(ctx, "/me", nil, true, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Subscribe registers a push token for a city's notifications. The backend
// handles the messaging provider.
func (c *Client) Subscribe(ctx context.Context, pushToken string, sectionID int) error {
	form := url.Values{}
	form.Set("token", pushToken)
	form.Set("section_id", strconv.Itoa(sectionID))

	var out MutationResponse
	err := c.do(ctx, http.MethodPost, "/subscribe", nil, strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", false, &out)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, auth bool, out any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, "", auth, out)
}

// do performs one request. Authenticated calls attach the stored bearer token,
// replace it when the response carries a new one, and clear it on 401.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string, auth bool, out any) error {
	reqURL := c.BaseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if auth {
		token, err := c.token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && auth && c.tokens != nil {
			if err := c.tokens.ClearToken(ctx); err != nil {
				c.log.Warn().Err(err).Msg("failed to clear token after 401")
			}
		}
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if auth {
		c.rollToken(ctx, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrNotLoggedIn
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// rollToken persists a refreshed token found in an authenticated response body.
func (c *Client) rollToken(ctx context.Context, data []byte) {
	if c.tokens == nil {
		return
	}
	var probe struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Token == "" {
		return
	}
	if err := c.tokens.SetToken(ctx, probe.Token); err != nil {
		c.log.Warn().Err(err).Msg("failed to store refreshed token")
		return
	}
	c.log.Debug().Msg("bearer token refreshed")
}
