package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Credentials holds the secrets a lab needs.
// WHCC uses the consumer pair, Mpix the API pair, ROES only the API key.
type Credentials struct {
	ConsumerKey    string `json:"consumer_key,omitempty"`
	ConsumerSecret string `json:"consumer_secret,omitempty"`
	APIKey         string `json:"api_key,omitempty"`
	APISecret      string `json:"api_secret,omitempty"`
}

// IsZero reports whether no credential is set
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// Masked returns a copy safe to show in the admin portal
func (c Credentials) Masked() Credentials {
	return Credentials{
		ConsumerKey:    mask(c.ConsumerKey),
		ConsumerSecret: mask(c.ConsumerSecret),
		APIKey:         mask(c.APIKey),
		APISecret:      mask(c.APISecret),
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// ProviderSettings is the configuration of one lab for one studio
type ProviderSettings struct {
	StudioID    uuid.UUID
	Provider    ProviderCode
	Enabled     bool
	Sandbox     bool
	Credentials Credentials
	UpdatedAt   time.Time
}

// DefaultProviderSettings returns the disabled sandbox configuration
func DefaultProviderSettings(studioID uuid.UUID, code ProviderCode) ProviderSettings {
	return ProviderSettings{
		StudioID: studioID,
		Provider: code,
		Enabled:  false,
		Sandbox:  true,
	}
}

// HasCredentials reports whether the credentials the provider needs are present
func (s ProviderSettings) HasCredentials() bool {
	c := s.Credentials
	switch s.Provider {
	case ProviderWHCC:
		return c.ConsumerKey != "" && c.ConsumerSecret != ""
	case ProviderMpix:
		return c.APIKey != "" && c.APISecret != ""
	case ProviderROES:
		return c.APIKey != ""
	case ProviderStandard:
		return true
	default:
		return false
	}
}

// Route is the fulfillment path chosen for a checkout
type Route struct {
	Provider ProviderCode
	Settings ProviderSettings
}

// StudioSettings is the configuration of every lab for one studio
type StudioSettings struct {
	StudioID  uuid.UUID
	Providers map[ProviderCode]ProviderSettings
}

// DefaultStudioSettings returns settings with every lab disabled
func DefaultStudioSettings(studioID uuid.UUID) *StudioSettings {
	s := &StudioSettings{
		StudioID:  studioID,
		Providers: make(map[ProviderCode]ProviderSettings, len(Priority)),
	}
	for _, code := range Priority {
		s.Providers[code] = DefaultProviderSettings(studioID, code)
	}
	return s
}

// Get returns the settings of a lab, or the disabled default
func (s *StudioSettings) Get(code ProviderCode) ProviderSettings {
	if ps, ok := s.Providers[code]; ok {
		return ps
	}
	return DefaultProviderSettings(s.StudioID, code)
}

// Set replaces the settings of a lab
func (s *StudioSettings) Set(ps ProviderSettings) {
	if s.Providers == nil {
		s.Providers = make(map[ProviderCode]ProviderSettings, len(Priority))
	}
	ps.StudioID = s.StudioID
	s.Providers[ps.Provider] = ps
}

// SelectRoute picks the first enabled lab in priority order (WHCC, Mpix, ROES).
// When no lab is enabled the standard path is returned.
// Credentials are not consulted: an enabled lab without credentials is still
// selected and fails at submit time.
func (s *StudioSettings) SelectRoute() Route {
	for _, code := range Priority {
		if ps := s.Get(code); ps.Enabled {
			return Route{Provider: code, Settings: ps}
		}
	}
	return Route{
		Provider: ProviderStandard,
		Settings: ProviderSettings{StudioID: s.StudioID, Provider: ProviderStandard, Enabled: true},
	}
}

// EnabledProviders lists the enabled labs in priority order
func (s *StudioSettings) EnabledProviders() []ProviderCode {
	var out []ProviderCode
	for _, code := range Priority {
		if s.Get(code).Enabled {
			out = append(out, code)
		}
	}
	return out
}

// ProviderSettingsRecord is a stored row before decoding.
// Credentials are sealed; Provider is unvalidated.
type ProviderSettingsRecord struct {
	StudioID          uuid.UUID
	Provider          string
	Enabled           bool
	Sandbox           bool
	SealedCredentials []byte
	UpdatedAt         time.Time
}

// ProviderSettingsRepository stores per-studio lab settings
type ProviderSettingsRepository interface {
	// FindByStudio returns every stored row for the studio, possibly none
	FindByStudio(ctx context.Context, studioID uuid.UUID) ([]ProviderSettingsRecord, error)
	// Save upserts the row keyed by studio and provider
	Save(ctx context.Context, record *ProviderSettingsRecord) error
}

// CredentialSealer encrypts credentials at rest
type CredentialSealer interface {
	Seal(creds Credentials) ([]byte, error)
	Open(sealed []byte) (Credentials, error)
}

// SettingsProvider loads the settings used at checkout time.
// Implementations never fail on malformed data; they fall back to defaults.
type SettingsProvider interface {
	Load(ctx context.Context, studioID uuid.UUID) (*StudioSettings, error)
}
