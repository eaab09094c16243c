package hypixel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

const mojangProfileURL = "https://api.mojang.com/users/profiles/minecraft/"

// MojangClient resolves Minecraft usernames to account UUIDs, backing the
// per-cycle backfill of registrations that were stored by username.
type MojangClient struct {
	http    *http.Client
	baseURL string // test override; empty uses the public endpoints
}

func NewMojangClient(timeout time.Duration) *MojangClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MojangClient{http: &http.Client{Timeout: timeout}}
}

// UUIDForUsername resolves a username to its undashed UUID.
func (c *MojangClient) UUIDForUsername(ctx context.Context, username string) (string, error) {
	base := c.baseURL
	if base == "" {
		base = mojangProfileURL
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.getJSON(ctx, base+username, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("mojang: no uuid for %q", username)
	}
	return out.ID, nil
}

func (c *MojangClient) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mojang: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
