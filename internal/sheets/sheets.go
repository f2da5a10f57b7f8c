// Package sheets loads pins from a Google Sheets spreadsheet or from a local
// CSV export with the same column layout.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"pinmap/internal/annotate"
)

const (
	DefaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	DefaultTimeout = 15 * time.Second

	memberRange  = "A3:AB"
	paletteRange = "E2:E"
)

// Source names the two ranges a pin set is built from.
type Source struct {
	SpreadsheetID      string
	MemberSheet        string
	ColorSpreadsheetID string
	ColorSheet         string
}

func (s Source) colorSpreadsheet() string {
	if s.ColorSpreadsheetID != "" {
		return s.ColorSpreadsheetID
	}
	return s.SpreadsheetID
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Range      string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sheets: %s: status %d: %s", e.Range, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sheets: %s: status %d", e.Range, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchPins downloads the member and palette ranges concurrently and maps
// the member rows to pins. Malformed rows are dropped.
func (c *Client) FetchPins(ctx context.Context, src Source) ([]annotate.Pin, error) {
	if src.SpreadsheetID == "" || src.MemberSheet == "" {
		return nil, errors.New("sheets: spreadsheet id and member sheet are required")
	}

	var members, palette [][]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := c.values(gctx, src.SpreadsheetID, src.MemberSheet+"!"+memberRange)
		members = rows
		return err
	})
	if src.ColorSheet != "" {
		g.Go(func() error {
			rows, err := c.values(gctx, src.colorSpreadsheet(), src.ColorSheet+"!"+paletteRange)
			palette = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pins, dropped := Parse(members, newPalette(palette))
	if dropped > 0 {
		c.log.Warn("dropped malformed pin rows", "dropped", dropped, "kept", len(pins))
	}
	c.log.Info("pins fetched", "pins", len(pins), "palette", len(palette))
	return pins, nil
}

func (c *Client) values(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(rng))
	if c.apiKey != "" {
		u += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", rng)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", rng)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		_ = json.NewDecoder(resp.Body).Decode(&ae)
		return nil, &StatusError{Range: rng, StatusCode: resp.StatusCode, Message: ae.Error.Message}
	}
	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, errors.Wrapf(err, "decode %s", rng)
	}
	return vr.Values, nil
}
