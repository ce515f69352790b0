package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const verifyURL = "https://hcaptcha.com/siteverify"

var client = &http.Client{Timeout: 5 * time.Second}

type verifyResponse struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verify checks a checkout captcha token against the hCaptcha API. Callers
// gate on HCAPTCHA_SECRET being set; an empty secret here is an error, not
// a pass.
func Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, errors.New("hcaptcha token is empty")
	}

	secret := env.GetEnv("HCAPTCHA_SECRET", "")
	if secret == "" {
		return false, errors.New("hcaptcha secret is not set")
	}

	form := url.Values{
		"secret":   {secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("hcaptcha verify: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("hcaptcha verify: %w", err)
	}
	defer resp.Body.Close()

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("hcaptcha verify: decode response: %w", err)
	}

	if !result.Success {
		if len(result.ErrorCodes) > 0 {
			return false, fmt.Errorf("hcaptcha validation failed: %s", strings.Join(result.ErrorCodes, ", "))
		}
		return false, errors.New("hcaptcha validation failed")
	}
	return true, nil
}
