package fulfillment

import (
	"errors"
	"strings"
	"time"

	"github.com/photolab/backend/internal/infrastructure/config"
)

const (
	// WHCCSandboxURL is the WHCC sandbox API host
	WHCCSandboxURL = "https://sandbox.apps.whcc.com"
	// WHCCProductionURL is the WHCC production API host
	WHCCProductionURL = "https://apps.whcc.com"

	defaultWHCCShippingAttributeUID  = 96
	defaultWHCCPackagingAttributeUID = 545
	defaultWHCCNodeID                = 10000
)

// ErrWHCCConfigMissingShipFrom is returned when no ship-from address is configured
var ErrWHCCConfigMissingShipFrom = errors.New("whcc: ship-from address is required")

// WHCCConfig holds the WHCC settings shared by every studio.
// Credentials and the sandbox flag come from the studio's provider settings.
type WHCCConfig struct {
	SandboxURL            string
	ProductionURL         string
	Timeout               time.Duration
	ShippingAttributeUID  int
	PackagingAttributeUID int
	DefaultNodeID         int
	DefaultProductUID     int
	ShipFrom              config.AddressConfig
}

// NewWHCCConfig converts the application config, filling defaults
func NewWHCCConfig(cfg config.WHCCConfig) *WHCCConfig {
	c := &WHCCConfig{
		SandboxURL:            cfg.SandboxURL,
		ProductionURL:         cfg.ProductionURL,
		Timeout:               cfg.Timeout,
		ShippingAttributeUID:  cfg.ShippingAttributeUID,
		PackagingAttributeUID: cfg.PackagingAttributeUID,
		DefaultNodeID:         cfg.DefaultNodeID,
		DefaultProductUID:     cfg.DefaultProductUID,
		ShipFrom:              cfg.ShipFrom,
	}
	c.applyDefaults()
	return c
}

func (c *WHCCConfig) applyDefaults() {
	if c.SandboxURL == "" {
		c.SandboxURL = WHCCSandboxURL
	}
	if c.ProductionURL == "" {
		c.ProductionURL = WHCCProductionURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.ShippingAttributeUID == 0 {
		c.ShippingAttributeUID = defaultWHCCShippingAttributeUID
	}
	if c.PackagingAttributeUID == 0 {
		c.PackagingAttributeUID = defaultWHCCPackagingAttributeUID
	}
	if c.DefaultNodeID == 0 {
		c.DefaultNodeID = defaultWHCCNodeID
	}
}

// Validate checks the configuration
func (c *WHCCConfig) Validate() error {
	c.applyDefaults()
	if c.ShipFrom.Name == "" || c.ShipFrom.Line1 == "" || c.ShipFrom.City == "" {
		return ErrWHCCConfigMissingShipFrom
	}
	return nil
}

// BaseURL returns the host for the sandbox or production environment
func (c *WHCCConfig) BaseURL(sandbox bool) string {
	if sandbox {
		return strings.TrimRight(c.SandboxURL, "/")
	}
	return strings.TrimRight(c.ProductionURL, "/")
}
