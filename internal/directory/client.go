// Package directory talks to the remote server-browser API over HTTP+JSON.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/beatnet/serverbrowser/internal/proto"
	"github.com/beatnet/serverbrowser/internal/util"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = util.DefaultRequestTimeout
	}
	return &Client{
		BaseURL: util.NormalizeBaseURL(baseURL),
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// postJSON performs a POST with a JSON body, drains the response body, and
// decodes JSON into out. Non-2xx statuses are returned as errors.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("POST %s: status %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("POST %s: decode response: %w", path, err)
	}
	return nil
}

// Announce publishes (or refreshes) a lobby listing. On success the returned
// response carries the directory-assigned key for the listing.
func (c *Client) Announce(ctx context.Context, listing proto.DirectoryListing) (proto.AnnounceResponse, error) {
	var out proto.AnnounceResponse
	if err := c.postJSON(ctx, "/api/v1/announce", listing, &out); err != nil {
		return proto.AnnounceResponse{}, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "announce rejected"
		}
		return out, fmt.Errorf("announce: %s", msg)
	}
	return out, nil
}

// UnAnnounce retracts a previously announced lobby. The returned bool is true
// only when the directory confirms the entry is gone.
func (c *Client) UnAnnounce(ctx context.Context, req proto.UnannounceRequest) (bool, error) {
	var out proto.UnannounceResponse
	if err := c.postJSON(ctx, "/api/v1/unannounce", req, &out); err != nil {
		return false, err
	}
	return out.Success && out.Removed, nil
}

// Browse fetches one page of public lobbies. query may be empty.
func (c *Client) Browse(ctx context.Context, offset int, query string) (proto.BrowseResult, error) {
	u := c.BaseURL + "/api/v1/browse?offset=" + strconv.Itoa(offset)
	if query != "" {
		u += "&query=" + url.QueryEscape(query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return proto.BrowseResult{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return proto.BrowseResult{}, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return proto.BrowseResult{}, fmt.Errorf("GET /api/v1/browse: status %s", resp.Status)
	}
	var out proto.BrowseResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return proto.BrowseResult{}, err
	}
	return out, nil
}
