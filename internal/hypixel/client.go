// Package hypixel wraps the Hypixel SkyBlock and Mojang HTTP APIs behind
// a small fetcher the scanner consumes. Failures are returned, never
// logged fatally: a broken account fetch must not stop a poll cycle.
package hypixel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// ErrRateLimited marks an HTTP 429 from the profiles endpoint.
var ErrRateLimited = errors.New("hypixel: rate limited")

const defaultBaseURL = "https://api.hypixel.net"

type Config struct {
	APIKey  string
	BaseURL string // override for tests
	Timeout time.Duration
	// RatePerMin bounds profile requests; Hypixel keys allow 120/min.
	RatePerMin int
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 60
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin/6+1),
	}
}

// API payload shapes; only the fields the scanner needs are decoded.

type profilesResponse struct {
	Success  bool         `json:"success"`
	Cause    string       `json:"cause"`
	Profiles []apiProfile `json:"profiles"`
}

type apiProfile struct {
	ProfileID string                     `json:"profile_id"`
	CuteName  string                     `json:"cute_name"`
	Members   map[string]json.RawMessage `json:"members"`
}

type apiMember struct {
	Forge struct {
		Processes map[string]map[string]json.RawMessage `json:"forge_processes"`
	} `json:"forge"`
	MiningCore struct {
		Nodes struct {
			ForgeTime *int `json:"forge_time"`
		} `json:"nodes"`
	} `json:"mining_core"`
}

type apiSlot struct {
	ID        string `json:"id"`
	StartTime *int64 `json:"startTime"`
}

// Profiles fetches and normalizes all SkyBlock profiles for an account.
// The account UUID is the undashed Mojang form used as the member key.
func (c *Client) Profiles(ctx context.Context, accountUUID string) ([]Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("uuid", FormatUUID(accountUUID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/skyblock/profiles?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read profiles response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profiles request failed: status %d", resp.StatusCode)
	}

	var pr profilesResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode profiles response: %w", err)
	}
	if !pr.Success {
		if pr.Cause == "" {
			pr.Cause = "unknown cause"
		}
		return nil, fmt.Errorf("profiles request rejected: %s", pr.Cause)
	}

	// Members are keyed by the undashed UUID regardless of how the
	// account was registered.
	memberKey := strings.ReplaceAll(accountUUID, "-", "")
	out := make([]Profile, 0, len(pr.Profiles))
	for _, ap := range pr.Profiles {
		out = append(out, normalizeProfile(ap, memberKey))
	}
	return out, nil
}

func normalizeProfile(ap apiProfile, accountUUID string) Profile {
	p := Profile{
		ID:            ap.ProfileID,
		CuteName:      ap.CuteName,
		ForgeTimeTier: -1,
	}
	if p.CuteName == "" {
		p.CuteName = "Unknown Profile"
	}

	raw, ok := ap.Members[accountUUID]
	if !ok {
		return p
	}
	var m apiMember
	if err := json.Unmarshal(raw, &m); err != nil {
		return p
	}
	if m.MiningCore.Nodes.ForgeTime != nil {
		p.ForgeTimeTier = *m.MiningCore.Nodes.ForgeTime
	}

	for group, slots := range m.Forge.Processes {
		for index, rawSlot := range slots {
			var s apiSlot
			// Individual garbage slots are skipped, not fatal.
			if err := json.Unmarshal(rawSlot, &s); err != nil {
				continue
			}
			if s.ID == "" || s.StartTime == nil {
				continue
			}
			p.Slots = append(p.Slots, Slot{
				Group:   group,
				Index:   index,
				ItemID:  s.ID,
				StartMS: *s.StartTime,
			})
		}
	}
	return p
}

// FormatUUID inserts dashes into a 32-character Mojang UUID; anything else
// passes through unchanged.
func FormatUUID(u string) string {
	if len(u) != 32 {
		return u
	}
	return u[0:8] + "-" + u[8:12] + "-" + u[12:16] + "-" + u[16:20] + "-" + u[20:32]
}
