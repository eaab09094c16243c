package store

import (
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"forgewatch/pkg/logx"
)

// PreferenceWebhook is the only delivery preference this daemon acts on.
// Anything else means the user opted out of outbound notifications.
const PreferenceWebhook = "webhook"

// Account is one registered Minecraft account of a user.
type Account struct {
	UUID        string `json:"uuid"`
	Username    string `json:"username,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`

	// QuickForgeLevel overrides the perk tier reported by the API when
	// set (1..20); 0 means no override.
	QuickForgeLevel int `json:"quick_forge_level,omitempty"`
}

// Registration is one user's entry: accounts plus delivery preference.
type Registration struct {
	Accounts   []Account
	Preference string
}

// registrationDoc is the current on-disk form. The registration command
// layer historically stored a bare account array per user; both forms are
// accepted on load.
type registrationDoc struct {
	Accounts   []Account `json:"accounts"`
	Preference string    `json:"notification_preference"`
}

// LoadRegistrations reads the registration document. The file is owned by
// the interactive registration layer; this side only ever reads it, fresh
// at the start of every poll cycle.
func LoadRegistrations(path string, log logx.Logger) map[string]Registration {
	out := map[string]Registration{}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("registration file missing; no users registered", logx.String("path", path))
		} else {
			log.Warn("registration file unreadable; treating as empty", logx.String("path", path), logx.Err(err))
		}
		return out
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Warn("registration file malformed; treating as empty", logx.String("path", path), logx.Err(err))
		return out
	}

	for userID, msg := range raw {
		reg, ok := decodeRegistration(userID, msg, log)
		if !ok {
			continue
		}
		if len(reg.Accounts) == 0 {
			continue
		}
		out[userID] = reg
	}

	log.Debug("registrations loaded", logx.Int("users", len(out)))
	return out
}

func decodeRegistration(userID string, msg json.RawMessage, log logx.Logger) (Registration, bool) {
	// Legacy form: plain list of accounts, preference defaults to webhook.
	var legacy []Account
	if err := json.Unmarshal(msg, &legacy); err == nil {
		return Registration{
			Accounts:   cleanAccounts(userID, legacy, log),
			Preference: PreferenceWebhook,
		}, true
	}

	var doc registrationDoc
	if err := json.Unmarshal(msg, &doc); err != nil {
		log.Warn("invalid registration entry; skipping user", logx.String("user", userID), logx.Err(err))
		return Registration{}, false
	}
	pref := strings.TrimSpace(doc.Preference)
	if pref == "" {
		pref = PreferenceWebhook
	}
	return Registration{
		Accounts:   cleanAccounts(userID, doc.Accounts, log),
		Preference: pref,
	}, true
}

// cleanAccounts drops entries with no usable identity. An account with a
// username but no UUID is kept; the poll loop resolves it before scanning.
func cleanAccounts(userID string, in []Account, log logx.Logger) []Account {
	out := make([]Account, 0, len(in))
	for _, acc := range in {
		if strings.TrimSpace(acc.UUID) == "" && strings.TrimSpace(acc.Username) == "" {
			log.Warn("registered account missing uuid and username; skipping", logx.String("user", userID))
			continue
		}
		out = append(out, acc)
	}
	return out
}
