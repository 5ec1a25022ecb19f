// Package espm is a thin client for the building-benchmarking service. The
// service speaks XML over Basic auth; property ids live on the remote side
// and are never persisted locally.
package espm

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/n0hyd/energy-app-sub001/internal/metrics"
)

const requestTimeout = 15 * time.Second

// UpstreamError carries the status and message the benchmarking service
// answered with, so handlers can relay them as a gateway failure.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("benchmarking service returned status %d: %s", e.StatusCode, e.Message)
}

// Account identifies the credential holder on the benchmarking service.
type Account struct {
	XMLName  xml.Name `xml:"account"`
	ID       int64    `xml:"id"`
	Username string   `xml:"username"`
	Email    string   `xml:"contact>email"`
}

// PropertyLink is one entry of the remote property list.
type PropertyLink struct {
	ID   int64  `xml:"id,attr"`
	Hint string `xml:"hint,attr"`
	Link string `xml:"link,attr"`
}

// Property is the payload for creating a property on the remote side.
type Property struct {
	XMLName             xml.Name       `xml:"property"`
	Name                string         `xml:"name"`
	PrimaryFunction     string         `xml:"primaryFunction"`
	Address             Address        `xml:"address"`
	ConstructionStatus  string         `xml:"constructionStatus"`
	GrossFloorArea      GrossFloorArea `xml:"grossFloorArea"`
	OccupancyPercentage int            `xml:"occupancyPercentage"`
	IsFederalProperty   bool           `xml:"isFederalProperty"`
}

type Address struct {
	Address1   string `xml:"address1,attr"`
	City       string `xml:"city,attr"`
	State      string `xml:"state,attr"`
	PostalCode string `xml:"postalCode,attr"`
	Country    string `xml:"country,attr"`
}

type GrossFloorArea struct {
	Units string `xml:"units,attr"`
	Value int64  `xml:"value"`
}

type propertyListResponse struct {
	XMLName xml.Name       `xml:"response"`
	Links   []PropertyLink `xml:"links>link"`
}

type createResponse struct {
	XMLName xml.Name `xml:"response"`
	ID      int64    `xml:"id"`
}

type errorResponse struct {
	XMLName xml.Name `xml:"response"`
	Errors  []struct {
		Description string `xml:"errorDescription,attr"`
	} `xml:"errors>error"`
}

// Client talks to the benchmarking service with Basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// GetAccount fetches the account the configured credentials belong to.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	body, err := c.do(ctx, "get_account", http.MethodGet, "/account", nil)
	if err != nil {
		return nil, err
	}

	var account Account
	if err := xml.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &account, nil
}

// ListProperties returns the property links registered under the account.
func (c *Client) ListProperties(ctx context.Context, accountID int64) ([]PropertyLink, error) {
	path := fmt.Sprintf("/account/%d/property/list", accountID)
	body, err := c.do(ctx, "list_properties", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list propertyListResponse
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode property list response: %w", err)
	}
	return list.Links, nil
}

// CreateProperty registers a property under the account and returns the
// remote property id.
func (c *Client) CreateProperty(ctx context.Context, accountID int64, property Property) (int64, error) {
	payload, err := xml.Marshal(property)
	if err != nil {
		return 0, fmt.Errorf("failed to encode property: %w", err)
	}

	path := fmt.Sprintf("/account/%d/property", accountID)
	body, err := c.do(ctx, "create_property", http.MethodPost, path, payload)
	if err != nil {
		return 0, err
	}

	var created createResponse
	if err := xml.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("failed to decode create response: %w", err)
	}
	return created.ID, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/xml")
	if payload != nil {
		req.Header.Set("Content-Type", "application/xml")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ESPMRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ESPMRequestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("failed to execute %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	metrics.ESPMRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(resp.StatusCode, body),
		}
	}

	return body, nil
}

// upstreamMessage pulls the error description out of the service's XML error
// envelope, falling back to the status text when the body is something else.
func upstreamMessage(statusCode int, body []byte) string {
	var parsed errorResponse
	if err := xml.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Description != "" {
		return parsed.Errors[0].Description
	}
	return http.StatusText(statusCode)
}
