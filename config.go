package webchat

import (
	"fmt"
	"maps"
	"strings"

	"github.com/pthm/webchat/lib/encoding"
)

// DefaultBaseURL is where the production widget is hosted.
const DefaultBaseURL = "https://web-chat.global.assistant.watson.appdomain.cloud"

// DefaultClientVersion is requested when Config.ClientVersion is empty.
const DefaultClientVersion = "latest"

// entryScript is the file the remote host serves under each version path.
const entryScript = "WatsonAssistantChatEntry.js"

// Config describes a widget to create.
//
// A Container detects configuration changes by pointer identity: passing a
// new *Config with identical fields tears the widget down and creates a new
// one. Hosts that re-render often should keep the pointer stable.
//
// Only a handful of keys are interpreted here. Everything else the widget
// accepts goes in Extra, which is passed through untouched.
type Config struct {
	IntegrationID     string `json:"integrationID" yaml:"integrationID" toml:"integrationID"`
	Region            string `json:"region" yaml:"region" toml:"region"`
	ServiceInstanceID string `json:"serviceInstanceID,omitempty" yaml:"serviceInstanceID,omitempty" toml:"serviceInstanceID,omitempty"`
	SubscriptionID    string `json:"subscriptionID,omitempty" yaml:"subscriptionID,omitempty" toml:"subscriptionID,omitempty"`

	// ClientVersion selects the widget version path. Empty means "latest".
	ClientVersion string `json:"clientVersion,omitempty" yaml:"clientVersion,omitempty" toml:"clientVersion,omitempty"`

	// Namespace labels diagnostics and lets several widgets share a page.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" toml:"namespace,omitempty"`

	// CloudPrivateHostURL points at a private-cloud deployment. Used to derive
	// the script URL when no explicit host URL is given.
	CloudPrivateHostURL string `json:"cloudPrivateHostURL,omitempty" yaml:"cloudPrivateHostURL,omitempty" toml:"cloudPrivateHostURL,omitempty"`

	// CSPNonce is forwarded to the widget and to ScriptTag.
	CSPNonce string `json:"cspNonce,omitempty" yaml:"cspNonce,omitempty" toml:"cspNonce,omitempty"`

	// OnLoad is ignored by Container, which owns load and render ordering.
	// Use WithBeforeRender or WithAfterRender instead.
	OnLoad func(Instance) `json:"-" yaml:"-" toml:"-"`

	// Element is an optional host node the widget renders into.
	Element Node `json:"-" yaml:"-" toml:"-"`

	// Extra holds widget options this package does not interpret.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty" toml:"extra,omitempty"`
}

// Values flattens the serializable fields and Extra into one map, the shape
// the widget's entry point expects. Known keys win over Extra on collision.
func (c *Config) Values() map[string]any {
	m := make(map[string]any, len(c.Extra)+8)
	maps.Copy(m, c.Extra)

	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("integrationID", c.IntegrationID)
	set("region", c.Region)
	set("serviceInstanceID", c.ServiceInstanceID)
	set("subscriptionID", c.SubscriptionID)
	set("clientVersion", c.ClientVersion)
	set("namespace", c.Namespace)
	set("cloudPrivateHostURL", c.CloudPrivateHostURL)
	set("cspNonce", c.CSPNonce)
	return m
}

// ConfigFromValues is the inverse of Values: known keys fill the named
// fields when they hold strings, everything else lands in Extra.
func ConfigFromValues(m map[string]any) *Config {
	cfg := &Config{}
	fields := map[string]*string{
		"integrationID":       &cfg.IntegrationID,
		"region":              &cfg.Region,
		"serviceInstanceID":   &cfg.ServiceInstanceID,
		"subscriptionID":      &cfg.SubscriptionID,
		"clientVersion":       &cfg.ClientVersion,
		"namespace":           &cfg.Namespace,
		"cloudPrivateHostURL": &cfg.CloudPrivateHostURL,
		"cspNonce":            &cfg.CSPNonce,
	}
	for k, v := range m {
		if dst, ok := fields[k]; ok {
			if s, ok := v.(string); ok {
				*dst = s
				continue
			}
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]any)
		}
		cfg.Extra[k] = v
	}
	return cfg
}

// Fingerprint is a short digest of Values for log lines. Configs that carry
// unserializable Extra values report "-".
func (c *Config) Fingerprint() string {
	if c == nil {
		return ""
	}
	fp, err := encoding.Fingerprint(c)
	if err != nil {
		return "-"
	}
	return fp
}

// Version returns ClientVersion, defaulting to "latest".
func (c *Config) Version() string {
	if c == nil || c.ClientVersion == "" {
		return DefaultClientVersion
	}
	return c.ClientVersion
}

// Validate reports missing required keys.
func (c *Config) Validate() error {
	var missing []string
	if c.IntegrationID == "" {
		missing = append(missing, "integrationID")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// withoutOnLoad returns a shallow copy with OnLoad cleared. The copy is what
// reaches the entry point; the original pointer stays the identity.
func (c *Config) withoutOnLoad() *Config {
	cp := *c
	cp.OnLoad = nil
	return &cp
}

// ScriptURL resolves the entry script URL for cfg.
//
// The base is hostURL if set, else the private-cloud host plus
// "/static/webchat", else DefaultBaseURL. A trailing slash on either
// supplied base is dropped.
func ScriptURL(cfg *Config, hostURL string) string {
	base := DefaultBaseURL
	switch {
	case hostURL != "":
		base = removeTrailingSlash(hostURL)
	case cfg != nil && cfg.CloudPrivateHostURL != "":
		base = removeTrailingSlash(cfg.CloudPrivateHostURL) + "/static/webchat"
	}
	return base + "/versions/" + cfg.Version() + "/" + entryScript
}
