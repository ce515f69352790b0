package license

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// License is the internal shape of an authority-issued entitlement.
type License struct {
	Key         string
	PlanCode    string
	ExpiresAt   *time.Time
	LimitPerDay int
}

// licenseWire enumerates every field name the authority has used for each
// concept across its API versions. Responses may also arrive wrapped in a
// "data" envelope.
type licenseWire struct {
	Data json.RawMessage `json:"data"`

	LicenseKey      string `json:"licenseKey"`
	LicenseKeySnake string `json:"license_key"`
	Key             string `json:"key"`
	License         string `json:"license"`

	Plan          string `json:"plan"`
	PlanCode      string `json:"planCode"`
	PlanCodeSnake string `json:"plan_code"`

	ExpiresAt       json.RawMessage `json:"expiresAt"`
	ExpiresAtSnake  json.RawMessage `json:"expires_at"`
	ValidUntil      json.RawMessage `json:"validUntil"`
	ValidUntilSnake json.RawMessage `json:"valid_until"`

	LimitPerDay      *int `json:"limitPerDay"`
	LimitPerDaySnake *int `json:"limit_per_day"`
	MaxRequests      *int `json:"maxRequestsPerDay"`
	MaxRequestsSnake *int `json:"max_requests_per_day"`
}

// DecodeLicenseResponse maps an authority response onto the internal
// License type, resolving the authority's field-name synonyms. A response
// that carries no license key under any known name is an error; issuance
// must never silently succeed with an empty key.
func DecodeLicenseResponse(body []byte) (*License, error) {
	var wire licenseWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("malformed license response: %w", err)
	}

	// Unwrap a {"data": {...}} envelope once.
	if len(wire.Data) > 0 && string(wire.Data) != "null" {
		var inner licenseWire
		if err := json.Unmarshal(wire.Data, &inner); err != nil {
			return nil, fmt.Errorf("malformed license response envelope: %w", err)
		}
		inner.Data = nil
		wire = inner
	}

	key := firstNonEmpty(wire.LicenseKey, wire.LicenseKeySnake, wire.Key, wire.License)
	if key == "" {
		return nil, errors.New("license response contains no license key")
	}

	expiresAt, err := parseAuthorityTime(firstNonEmptyRaw(wire.ExpiresAt, wire.ExpiresAtSnake, wire.ValidUntil, wire.ValidUntilSnake))
	if err != nil {
		return nil, err
	}

	lic := &License{
		Key:       key,
		PlanCode:  firstNonEmpty(wire.PlanCode, wire.PlanCodeSnake, wire.Plan),
		ExpiresAt: expiresAt,
	}
	for _, limit := range []*int{wire.LimitPerDay, wire.LimitPerDaySnake, wire.MaxRequests, wire.MaxRequestsSnake} {
		if limit != nil {
			lic.LimitPerDay = *limit
			break
		}
	}
	return lic, nil
}

// authorityTimeLayouts are the timestamp renderings seen from the authority.
var authorityTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseAuthorityTime accepts the authority's timestamp variants: an RFC3339
// string (with or without zone), a plain date, unix seconds as a number, or
// null/absent. Anything else is an error rather than a silent nil.
func parseAuthorityTime(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		for _, layout := range authorityTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		return nil, fmt.Errorf("license response carries unparseable expiry %q", s)
	}

	if secs, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("license response carries unparseable expiry %s", string(raw))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmptyRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}
