package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvProfile      = "BUNDLEPATCH_PROFILE"
	EnvPlistBackend = "BUNDLEPATCH_PLIST_BACKEND"
)

// Build settings the bundle updater rewrites.
const (
	SettingProductName       = "PRODUCT_NAME"
	SettingBundleIdentifier  = "PRODUCT_BUNDLE_IDENTIFIER"
	SettingEntitlements      = "CODE_SIGN_ENTITLEMENTS"
	SettingSigningIdentity   = "CODE_SIGN_IDENTITY"
	SettingDevelopmentTeam   = "DEVELOPMENT_TEAM"
	SettingHardenedRuntime   = "ENABLE_HARDENED_RUNTIME"
	SettingDeploymentTarget  = "MACOSX_DEPLOYMENT_TARGET"
	DefaultTokenPattern      = `[A-Za-z][A-Za-z0-9_]*-[0-9][A-Za-z0-9.-]*`
	DefaultCopyrightSuffix   = "© 2023 maintained by Paul C. Pratt"
	DefaultSigningIdentity   = "Developer ID Application"
	DefaultEntitlementsValue = "{name}.entitlements"
)

// Profile holds the project-specific knowledge the bundle updater needs:
// which literal values to strip from each build setting, how to find the
// version token in the existing Get Info string, and the fixed strings it
// writes.
type Profile struct {
	// StaleValues lists, per build setting, every literal that must be
	// removed before the new value is added. Values not listed here survive.
	StaleValues map[string][]string `yaml:"stale_values"`

	TokenPattern    string `yaml:"token_pattern"`
	CopyrightSuffix string `yaml:"copyright_suffix"`
	SigningIdentity string `yaml:"signing_identity"`
	// Entitlements is the CODE_SIGN_ENTITLEMENTS value; "{name}" is
	// replaced with the app name.
	Entitlements string `yaml:"entitlements"`

	PlistBackend  string `yaml:"plist_backend"`
	Configuration string `yaml:"configuration"`

	token *regexp.Regexp
}

// ProfileError reports an invalid profile field.
type ProfileError struct {
	Path    string
	Field   string
	Message string
}

func (e *ProfileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("profile %s: %s - %s", e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("profile: %s - %s", e.Field, e.Message)
}

// DefaultProfile returns the built-in profile for the Mini vMac project.
func DefaultProfile() *Profile {
	p := &Profile{
		StaleValues: map[string][]string{
			SettingProductName:      {"minivmac"},
			SettingBundleIdentifier: {"com.gryphel.minivmac"},
			SettingEntitlements:     {"minivmac.entitlements"},
			SettingSigningIdentity:  {"-", "Apple Development", "Mac Developer", "Developer ID Application"},
			SettingDevelopmentTeam:  {""},
			SettingHardenedRuntime:  {"NO", "YES"},
			SettingDeploymentTarget: {
				"10.6", "10.7", "10.8", "10.9", "10.10", "10.11", "10.12",
				"10.13", "10.14", "10.15", "11.0", "12.0", "13.0", "14.0",
			},
		},
		TokenPattern:    DefaultTokenPattern,
		CopyrightSuffix: DefaultCopyrightSuffix,
		SigningIdentity: DefaultSigningIdentity,
		Entitlements:    DefaultEntitlementsValue,
	}
	p.token = regexp.MustCompile(p.TokenPattern)
	return p
}

// LoadProfile returns the default profile overlaid with the YAML file at
// path. An empty path falls back to $BUNDLEPATCH_PROFILE, then to defaults
// alone. BUNDLEPATCH_PLIST_BACKEND overrides an unset plist_backend.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		path = os.Getenv(EnvProfile)
	}

	p := DefaultProfile()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
		if err := p.merge(path, data); err != nil {
			return nil, err
		}
	}

	if p.PlistBackend == "" {
		p.PlistBackend = os.Getenv(EnvPlistBackend)
	}
	return p, nil
}

func (p *Profile) merge(path string, data []byte) error {
	var overlay Profile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return &ProfileError{Path: path, Field: "yaml", Message: err.Error()}
	}

	for setting, values := range overlay.StaleValues {
		p.StaleValues[setting] = values
	}
	if overlay.TokenPattern != "" {
		re, err := regexp.Compile(overlay.TokenPattern)
		if err != nil {
			return &ProfileError{Path: path, Field: "token_pattern", Message: err.Error()}
		}
		p.TokenPattern = overlay.TokenPattern
		p.token = re
	}
	if overlay.CopyrightSuffix != "" {
		p.CopyrightSuffix = overlay.CopyrightSuffix
	}
	if overlay.SigningIdentity != "" {
		p.SigningIdentity = overlay.SigningIdentity
	}
	if overlay.Entitlements != "" {
		p.Entitlements = overlay.Entitlements
	}
	if overlay.PlistBackend != "" {
		p.PlistBackend = overlay.PlistBackend
	}
	if overlay.Configuration != "" {
		p.Configuration = overlay.Configuration
	}
	return nil
}

// Token returns the compiled token pattern.
func (p *Profile) Token() *regexp.Regexp {
	if p.token == nil {
		p.token = regexp.MustCompile(p.TokenPattern)
	}
	return p.token
}

// Stale returns the literals to remove from setting before adding a value.
func (p *Profile) Stale(setting string) []string {
	return p.StaleValues[setting]
}

// EntitlementsFor returns the CODE_SIGN_ENTITLEMENTS value for appName.
func (p *Profile) EntitlementsFor(appName string) string {
	return strings.ReplaceAll(p.Entitlements, "{name}", appName)
}
