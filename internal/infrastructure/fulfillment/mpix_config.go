package fulfillment

import (
	"strings"
	"time"

	"github.com/photolab/backend/internal/infrastructure/config"
)

const (
	// MpixSandboxURL is the Mpix sandbox API base
	MpixSandboxURL = "https://sandbox.api.mpix.com/v1"
	// MpixProductionURL is the Mpix production API base
	MpixProductionURL = "https://api.mpix.com/v1"

	defaultMpixSKU = "PRINT-4X6-LUSTER"
)

// MpixConfig holds the Mpix settings shared by every studio
type MpixConfig struct {
	SandboxURL    string
	ProductionURL string
	Timeout       time.Duration
	DefaultSKU    string
}

// NewMpixConfig converts the application config, filling defaults
func NewMpixConfig(cfg config.MpixConfig) *MpixConfig {
	c := &MpixConfig{
		SandboxURL:    cfg.SandboxURL,
		ProductionURL: cfg.ProductionURL,
		Timeout:       cfg.Timeout,
		DefaultSKU:    cfg.DefaultSKU,
	}
	c.applyDefaults()
	return c
}

func (c *MpixConfig) applyDefaults() {
	if c.SandboxURL == "" {
		c.SandboxURL = MpixSandboxURL
	}
	if c.ProductionURL == "" {
		c.ProductionURL = MpixProductionURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.DefaultSKU == "" {
		c.DefaultSKU = defaultMpixSKU
	}
}

// BaseURL returns the API base for the sandbox or production environment
func (c *MpixConfig) BaseURL(sandbox bool) string {
	if sandbox {
		return strings.TrimRight(c.SandboxURL, "/")
	}
	return strings.TrimRight(c.ProductionURL, "/")
}
