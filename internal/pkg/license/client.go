package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const (
	upsertPath = "/admin/license/upsert"
	updatePath = "/admin/license/update"
)

// Client talks to the external license authority. The two operations carry
// deliberately different failure contracts: CreateOrExtend returns every
// failure to the caller because issuance gates entitlement, while
// UpdateFromSubscription swallows every failure because an admin action
// must never be blocked by an unreachable authority.
type Client struct {
	BaseURL    string
	APIToken   string // bearer token for license issuance
	AdminToken string // X-Admin-Token for defensive updates

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from LICENSE_* environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(env.GetEnv("LICENSE_API_BASE_URL", "")), "/"),
		APIToken:   strings.TrimSpace(env.GetEnv("LICENSE_API_TOKEN", "")),
		AdminToken: strings.TrimSpace(env.GetEnv("LICENSE_ADMIN_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UpsertInput is the window a settled payment grants, forwarded to the
// authority. A nil ExpiresAt requests a lifetime license.
type UpsertInput struct {
	UserEmail         string
	PlanCode          string
	StartsAt          time.Time
	ExpiresAt         *time.Time
	MaxRequestsPerDay int
}

// UpdateInput carries an admin-side change to an already-issued license.
// Nil optional fields are omitted from the request entirely so the
// authority never interprets an untouched field as "clear this".
type UpdateInput struct {
	SubscriptionID uint
	UserEmail      string
	LicenseKey     string
	Status         *string
	ExpiresAt      *time.Time
	AddDays        *int
	MaxRequests    *int
}

// CreateOrExtend asks the authority to issue a license for the given window
// or extend the existing one. Any failure (configuration, network, non-2xx,
// response without a license key) is returned to the caller, which is
// expected to flag the subscription instead of activating it.
func (c *Client) CreateOrExtend(ctx context.Context, in UpsertInput) (*License, error) {
	if c.BaseURL == "" {
		return nil, errors.New("LICENSE_API_BASE_URL is not configured")
	}
	if c.APIToken == "" {
		return nil, errors.New("LICENSE_API_TOKEN is not configured")
	}
	email := strings.TrimSpace(in.UserEmail)
	if email == "" {
		return nil, errors.New("user email is required for license issuance")
	}

	body := map[string]interface{}{
		"userEmail":         email,
		"planCode":          strings.TrimSpace(in.PlanCode),
		"startsAt":          in.StartsAt.UTC().Format(time.RFC3339),
		"maxRequestsPerDay": in.MaxRequestsPerDay,
	}
	if in.ExpiresAt != nil {
		body["expiresAt"] = in.ExpiresAt.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+upsertPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("license upsert failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	lic, err := DecodeLicenseResponse(respBody)
	if err != nil {
		return nil, fmt.Errorf("license upsert returned an unusable response: %w", err)
	}
	return lic, nil
}

// UpdateFromSubscription pushes an admin-side subscription change to the
// authority. It never fails from the caller's point of view: missing
// configuration, a missing license key, network errors and non-2xx
// responses are logged and dropped. Only explicitly provided fields are
// serialized.
func (c *Client) UpdateFromSubscription(ctx context.Context, in UpdateInput) {
	if c.BaseURL == "" || c.AdminToken == "" {
		log.Printf("license update skipped for subscription %d: license authority not configured", in.SubscriptionID)
		return
	}
	key := strings.TrimSpace(in.LicenseKey)
	if key == "" {
		log.Printf("license update skipped for subscription %d: no license key on record", in.SubscriptionID)
		return
	}

	body := map[string]interface{}{
		"subscriptionId": in.SubscriptionID,
		"userEmail":      strings.TrimSpace(in.UserEmail),
		"licenseKey":     key,
	}
	if in.Status != nil {
		body["status"] = *in.Status
	}
	if in.ExpiresAt != nil {
		body["expiresAt"] = in.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if in.AddDays != nil {
		body["addDays"] = *in.AddDays
	}
	if in.MaxRequests != nil {
		body["maxRequests"] = *in.MaxRequests
	}
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("license update for subscription %d not sent: %v", in.SubscriptionID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+updatePath, bytes.NewReader(payload))
	if err != nil {
		log.Printf("license update for subscription %d not sent: %v", in.SubscriptionID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", c.AdminToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("license update for subscription %d failed: %v", in.SubscriptionID, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("license update for subscription %d rejected: status=%d", in.SubscriptionID, resp.StatusCode)
	}
}
