// Package bundle rewrites an app's identity in its Xcode project and
// Info.plist.
//
// The project is always saved before the Info.plist is inspected. When the
// version token cannot be found in CFBundleGetInfoString the update stops
// with an *ExtractionError: the project keeps its new settings and no
// Info.plist field is written.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/moasq/bundlepatch/internal/config"
	"github.com/moasq/bundlepatch/internal/infoplist"
	"github.com/moasq/bundlepatch/internal/xcodeproj"
)

// Options are the values to write.
type Options struct {
	ProjectPath string
	InfoPath    string
	BundleID    string
	Name        string
	Build       string
	Version     string

	// Team and Minimum select the extended form, which also configures
	// signing and the deployment target. Both or neither must be set.
	Team    string
	Minimum string
}

// Extended reports whether signing and deployment settings are updated.
func (o Options) Extended() bool {
	return o.Team != "" || o.Minimum != ""
}

// Validate checks that every required value is present.
func (o Options) Validate() error {
	required := []struct{ flag, value string }{
		{"project", o.ProjectPath},
		{"info", o.InfoPath},
		{"bundleid", o.BundleID},
		{"name", o.Name},
		{"build", o.Build},
		{"version", o.Version},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required value: %s", r.flag)
		}
	}
	if o.Extended() && (o.Team == "" || o.Minimum == "") {
		return fmt.Errorf("team and minimum must be given together")
	}
	return nil
}

// SettingChange is one build setting rewrite.
type SettingChange struct {
	Setting string
	Stale   []string
	Value   string
}

// Result reports what Update wrote.
type Result struct {
	Settings []SettingChange
	Token    string
	GetInfo  string
	Fields   []infoplist.Field
}

// ExtractionError means the existing Get Info string has no version token.
// A missing Get Info string is reported with an empty Raw and Err set to
// infoplist.ErrNoKey.
type ExtractionError struct {
	Field string
	Raw   string
	Err   error
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to parse %s: %q", e.Field, e.Raw)
}

// RecordOpener opens the Info.plist record for a path.
type RecordOpener func(path string) (infoplist.Record, error)

// Updater applies Options using a profile's stale values and patterns.
type Updater struct {
	profile *config.Profile
	open    RecordOpener

	// Progress, when set, receives one line per step.
	Progress func(msg string)
}

// NewUpdater returns an updater. A nil opener uses infoplist.Open with the
// profile's backend.
func NewUpdater(profile *config.Profile, open RecordOpener) *Updater {
	if profile == nil {
		profile = config.DefaultProfile()
	}
	if open == nil {
		open = func(path string) (infoplist.Record, error) {
			backend, err := infoplist.ParseBackend(profile.PlistBackend)
			if err != nil {
				return nil, err
			}
			return infoplist.Open(path, backend)
		}
	}
	return &Updater{profile: profile, open: open}
}

func (u *Updater) progress(format string, args ...any) {
	if u.Progress != nil {
		u.Progress(fmt.Sprintf(format, args...))
	}
}

// Settings returns the build setting rewrites for opts, in the order they
// are applied.
func (u *Updater) Settings(opts Options) []SettingChange {
	change := func(setting, value string) SettingChange {
		return SettingChange{Setting: setting, Stale: u.profile.Stale(setting), Value: value}
	}
	changes := []SettingChange{
		change(config.SettingProductName, opts.Name),
		change(config.SettingBundleIdentifier, opts.BundleID),
	}
	if opts.Extended() {
		changes = append(changes,
			change(config.SettingEntitlements, u.profile.EntitlementsFor(opts.Name)),
			change(config.SettingSigningIdentity, u.profile.SigningIdentity),
			change(config.SettingDevelopmentTeam, opts.Team),
			change(config.SettingHardenedRuntime, "YES"),
			change(config.SettingDeploymentTarget, opts.Minimum),
		)
	}
	return changes
}

// Update rewrites the project, then the Info.plist.
func (u *Updater) Update(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	u.progress("Updating Xcode project…")
	changes, err := u.UpdateProject(opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Settings: changes}

	u.progress("Updating Info.plist…")
	record, err := u.open(opts.InfoPath)
	if err != nil {
		return res, err
	}

	raw, err := record.Get(ctx, infoplist.KeyGetInfoString)
	if errors.Is(err, infoplist.ErrNoKey) {
		return res, &ExtractionError{Field: infoplist.KeyGetInfoString, Err: err}
	}
	if err != nil {
		return res, err
	}
	token, err := ExtractToken(u.profile.Token(), raw)
	if err != nil {
		return res, err
	}
	res.Token = token
	res.GetInfo = ComposeGetInfo(opts.Name, opts.Version, token, u.profile.CopyrightSuffix)
	u.progress("%s", res.GetInfo)

	res.Fields = []infoplist.Field{
		{Key: infoplist.KeyExecutable, Value: opts.Name},
		{Key: infoplist.KeyIdentifier, Value: opts.BundleID},
		{Key: infoplist.KeyName, Value: opts.Name},
		{Key: infoplist.KeyVersion, Value: opts.Build},
		{Key: infoplist.KeyShortVersionString, Value: opts.Version},
		{Key: infoplist.KeyGetInfoString, Value: res.GetInfo},
	}
	if err := record.Apply(ctx, res.Fields); err != nil {
		return res, err
	}
	return res, nil
}

// UpdateProject applies the build setting rewrites and saves the project.
func (u *Updater) UpdateProject(opts Options) ([]SettingChange, error) {
	project, err := xcodeproj.Load(opts.ProjectPath)
	if err != nil {
		return nil, err
	}
	project.SetConfiguration(u.profile.Configuration)

	changes := u.Settings(opts)
	for _, c := range changes {
		if err := project.RemoveFlags(c.Setting, c.Stale...); err != nil {
			return nil, err
		}
		if err := project.AddFlags(c.Setting, c.Value); err != nil {
			return nil, err
		}
	}

	if err := project.Save(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ExtractToken returns the first match of re in raw.
func ExtractToken(re *regexp.Regexp, raw string) (string, error) {
	token := re.FindString(raw)
	if token == "" {
		return "", &ExtractionError{Field: infoplist.KeyGetInfoString, Raw: raw}
	}
	return token, nil
}

// ComposeGetInfo builds the CFBundleGetInfoString value.
func ComposeGetInfo(name, version, token, suffix string) string {
	return fmt.Sprintf("%s %s (%s, %s)", name, version, token, suffix)
}
