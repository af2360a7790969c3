// Package remote talks to the ingestion service: metrics delivery, vessel
// metadata upserts and monitoring configuration fetches, all JSON over HTTP
// with bearer auth.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/saildata/trackd/internal/buffer"
	"github.com/saildata/trackd/internal/httputil"
	"github.com/saildata/trackd/internal/version"
)

// StatusError reports a non-success HTTP status from the server.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server responded with status %d", e.Op, e.StatusCode)
}

// AckRow is one acknowledged row in the metrics response. The server returns
// timestamps in UTC, sometimes without an explicit zone designator.
type AckRow struct {
	Time AckTime `json:"time"`
}

// AckTime unmarshals the server's timestamp formats.
type AckTime struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as the zone-less form the
// ingestion service emits, which is implicitly UTC.
func (t *AckTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// Metadata is the vessel descriptor document upserted to the server.
type Metadata struct {
	Name          string   `json:"name"`
	MMSI          string   `json:"mmsi,omitempty"`
	ClientID      string   `json:"client_id"`
	Length        float64  `json:"length,omitempty"`
	Beam          float64  `json:"beam,omitempty"`
	Height        float64  `json:"height,omitempty"`
	ShipType      int      `json:"ship_type,omitempty"`
	PluginVersion string   `json:"plugin_version"`
	ServerVersion string   `json:"server_version,omitempty"`
	Channels      []string `json:"channels,omitempty"`
	Time          string   `json:"time"`
}

// MonitoringDoc is the remote monitoring configuration document.
type MonitoringDoc struct {
	Channels  []string  `json:"channels"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client is the ingestion service API client.
type Client struct {
	base  string
	token string
	http  httputil.Doer
	log   zerolog.Logger
}

// New constructs a Client. base is the service root URL; doer handles request
// execution and carries the request timeout.
func New(base, token string, doer httputil.Doer, logger zerolog.Logger) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  doer,
		log:   logger.With().Str("component", "remote").Logger(),
	}
}

// PostMetrics submits a batch of buffered records and returns the rows the
// server acknowledged. Any status other than 201 Created is a failure.
func (c *Client) PostMetrics(ctx context.Context, records []buffer.Record) ([]AckRow, error) {
	body, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics batch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/metrics?select=time", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metrics submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, &StatusError{Op: "metrics submission", StatusCode: resp.StatusCode}
	}

	var rows []AckRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode metrics response: %w", err)
	}
	return rows, nil
}

// PostMetadata upserts the vessel descriptor. The server merges on the vessel
// key, so repeated posts are idempotent.
func (c *Client) PostMetadata(ctx context.Context, md Metadata) error {
	body, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/metadata?on_conflict=vessel_id", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=headers-only,resolution=merge-duplicates")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("metadata submission failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return &StatusError{Op: "metadata submission", StatusCode: resp.StatusCode}
	}
	return nil
}

// FetchMonitoring retrieves the monitoring configuration document. A
// non-zero newerThan asks only for a document updated since then; the server
// answers 200 with the document or an empty object when nothing changed.
func (c *Client) FetchMonitoring(ctx context.Context, newerThan time.Time) (*MonitoringDoc, error) {
	path := "/monitoring"
	if !newerThan.IsZero() {
		path += "?updated_at=gt." + url.QueryEscape(newerThan.UTC().Format(time.RFC3339))
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitoring fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "monitoring fetch", StatusCode: resp.StatusCode}
	}

	var doc MonitoringDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode monitoring document: %w", err)
	}
	return &doc, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}
