package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/moasq/bundlepatch/internal/config"
	"github.com/moasq/bundlepatch/internal/infoplist"
	"github.com/moasq/bundlepatch/internal/xcodeproj"
	"howett.net/plist"
)

type fixture struct {
	project string
	info    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		project: filepath.Join(dir, "minivmac.xcodeproj", "project.pbxproj"),
		info:    filepath.Join(dir, "Info.plist"),
	}
	if err := os.MkdirAll(filepath.Dir(f.project), 0o755); err != nil {
		t.Fatal(err)
	}
	for src, dst := range map[string]string{"project.pbxproj": f.project, "Info.plist": f.info} {
		data, err := os.ReadFile(filepath.Join("testdata", src))
		if err != nil {
			t.Fatalf("failed to read testdata/%s: %v", src, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", dst, err)
		}
	}
	return f
}

func (f fixture) setGetInfo(t *testing.T, value string) {
	t.Helper()
	rec := infoplist.NewFileRecord(f.info)
	if err := rec.Apply(context.Background(), []infoplist.Field{{Key: infoplist.KeyGetInfoString, Value: value}}); err != nil {
		t.Fatalf("failed to seed Get Info string: %v", err)
	}
}

func (f fixture) options() Options {
	return Options{
		ProjectPath: f.project,
		InfoPath:    f.info,
		BundleID:    "com.example.fooapp",
		Name:        "FooApp",
		Build:       "42",
		Version:     "1.2.3",
	}
}

func fileUpdater(profile *config.Profile) *Updater {
	return NewUpdater(profile, func(path string) (infoplist.Record, error) {
		return infoplist.NewFileRecord(path), nil
	})
}

func readPlist(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var dict map[string]any
	if _, err := plist.Unmarshal(data, &dict); err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return dict
}

func configFlags(t *testing.T, path, setting string) map[string][]string {
	t.Helper()
	p, err := xcodeproj.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	out := make(map[string][]string)
	for _, c := range p.Configurations() {
		set, err := c.Flags(setting)
		if err != nil {
			t.Fatal(err)
		}
		out[c.Name] = set.Values()
	}
	return out
}

func TestUpdateBaseForm(t *testing.T) {
	f := newFixture(t)
	u := fileUpdater(config.DefaultProfile())
	var steps []string
	u.Progress = func(msg string) { steps = append(steps, msg) }

	res, err := u.Update(context.Background(), f.options())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	wantGetInfo := "FooApp 1.2.3 (minivmac-36.04, © 2023 maintained by Paul C. Pratt)"
	if res.GetInfo != wantGetInfo {
		t.Fatalf("GetInfo = %q, want %q", res.GetInfo, wantGetInfo)
	}

	for _, setting := range []string{config.SettingProductName, config.SettingBundleIdentifier} {
		want := map[string]string{config.SettingProductName: "FooApp", config.SettingBundleIdentifier: "com.example.fooapp"}[setting]
		for name, values := range configFlags(t, f.project, setting) {
			if !reflect.DeepEqual(values, []string{want}) {
				t.Errorf("%s %s = %v, want [%s]", name, setting, values, want)
			}
		}
	}
	// Base form leaves signing settings alone.
	for name, values := range configFlags(t, f.project, config.SettingDeploymentTarget) {
		if !reflect.DeepEqual(values, []string{"10.13"}) {
			t.Errorf("%s deployment target = %v, want untouched", name, values)
		}
	}

	dict := readPlist(t, f.info)
	want := map[string]string{
		infoplist.KeyExecutable:         "FooApp",
		infoplist.KeyIdentifier:         "com.example.fooapp",
		infoplist.KeyName:               "FooApp",
		infoplist.KeyVersion:            "42",
		infoplist.KeyShortVersionString: "1.2.3",
		infoplist.KeyGetInfoString:      wantGetInfo,
		"LSMinimumSystemVersion":        "10.13",
	}
	for k, v := range want {
		if dict[k] != v {
			t.Errorf("Info.plist %s = %v, want %q", k, dict[k], v)
		}
	}

	if len(steps) != 3 || steps[2] != wantGetInfo {
		t.Errorf("progress = %q", steps)
	}
}

func TestUpdateComposesFromExistingToken(t *testing.T) {
	f := newFixture(t)
	f.setGetInfo(t, "FooApp-1.2.3, Copyright 2023")

	res, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), f.options())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if res.Token != "FooApp-1.2.3" {
		t.Fatalf("Token = %q, want FooApp-1.2.3", res.Token)
	}
	for _, part := range []string{"FooApp", "1.2.3", "FooApp-1.2.3", config.DefaultCopyrightSuffix} {
		if !strings.Contains(res.GetInfo, part) {
			t.Errorf("GetInfo %q missing %q", res.GetInfo, part)
		}
	}
}

func TestUpdateExtractionFailureSavesProjectOnly(t *testing.T) {
	f := newFixture(t)
	f.setGetInfo(t, "36.04 - 2020")
	plistBefore, err := os.ReadFile(f.info)
	if err != nil {
		t.Fatal(err)
	}

	res, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), f.options())
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Update() error = %v, want *ExtractionError", err)
	}
	if extractErr.Raw != "36.04 - 2020" {
		t.Fatalf("ExtractionError.Raw = %q", extractErr.Raw)
	}
	if !strings.Contains(err.Error(), "36.04 - 2020") {
		t.Fatalf("error message %q should carry the raw value", err.Error())
	}
	if res == nil || len(res.Fields) != 0 {
		t.Fatalf("no fields should be reported written: %+v", res)
	}

	plistAfter, err := os.ReadFile(f.info)
	if err != nil {
		t.Fatal(err)
	}
	if string(plistAfter) != string(plistBefore) {
		t.Fatal("Info.plist must not be written when extraction fails")
	}

	for name, values := range configFlags(t, f.project, config.SettingProductName) {
		if !reflect.DeepEqual(values, []string{"FooApp"}) {
			t.Fatalf("%s PRODUCT_NAME = %v; project should already be saved", name, values)
		}
	}
}

func TestUpdateExtendedFormNoDuplicates(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Team = "ABCDE12345"
	opts.Minimum = "11.0"

	if _, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), opts); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := map[string][]string{
		config.SettingDevelopmentTeam:  {"ABCDE12345"},
		config.SettingDeploymentTarget: {"11.0"},
		config.SettingHardenedRuntime:  {"YES"},
		config.SettingSigningIdentity:  {config.DefaultSigningIdentity},
		config.SettingEntitlements:     {"FooApp.entitlements"},
	}
	for setting, values := range want {
		got := configFlags(t, f.project, setting)
		if len(got) != 2 {
			t.Fatalf("expected two configurations, got %v", got)
		}
		for name, v := range got {
			if !reflect.DeepEqual(v, values) {
				t.Errorf("%s %s = %v, want %v", name, setting, v, values)
			}
		}
	}
}

func TestUpdateTwiceConverges(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Team = "ABCDE12345"
	opts.Minimum = "11.0"
	u := fileUpdater(config.DefaultProfile())

	first, err := u.Update(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Update() error = %v", err)
	}
	projectAfterFirst, _ := os.ReadFile(f.project)
	plistAfterFirst, _ := os.ReadFile(f.info)

	second, err := u.Update(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Update() error = %v", err)
	}

	if second.Token != "minivmac-36.04" {
		t.Errorf("rerun Token = %q, want minivmac-36.04", second.Token)
	}
	if second.GetInfo != first.GetInfo {
		t.Errorf("rerun GetInfo = %q, want %q", second.GetInfo, first.GetInfo)
	}
	projectAfterSecond, _ := os.ReadFile(f.project)
	plistAfterSecond, _ := os.ReadFile(f.info)
	if string(projectAfterSecond) != string(projectAfterFirst) {
		t.Error("rerun changed project.pbxproj")
	}
	if string(plistAfterSecond) != string(plistAfterFirst) {
		t.Error("rerun changed Info.plist")
	}
	for name, v := range configFlags(t, f.project, config.SettingDeploymentTarget) {
		if !reflect.DeepEqual(v, []string{"11.0"}) {
			t.Errorf("%s deployment target = %v after rerun", name, v)
		}
	}
}

func TestUpdateLeavesProjectLevelSettingsAlone(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Team = "ABCDE12345"
	opts.Minimum = "11.0"

	if _, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), opts); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	data, err := os.ReadFile(f.project)
	if err != nil {
		t.Fatal(err)
	}
	var root map[string]any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		t.Fatalf("failed to parse saved project: %v", err)
	}
	objects := root["objects"].(map[string]any)
	for _, id := range []string{"0B1C2D3E4F5A6B7C8D9E0F20", "0B1C2D3E4F5A6B7C8D9E0F21"} {
		settings := objects[id].(map[string]any)["buildSettings"].(map[string]any)
		for _, setting := range []string{config.SettingProductName, config.SettingBundleIdentifier, config.SettingDevelopmentTeam, config.SettingEntitlements} {
			if v, ok := settings[setting]; ok {
				t.Errorf("project-level %s gained %s = %v", id, setting, v)
			}
		}
		if settings[config.SettingDeploymentTarget] != "10.9" || settings[config.SettingSigningIdentity] != "-" {
			t.Errorf("project-level %s settings changed: %v", id, settings)
		}
	}
}

func TestUpdateMissingGetInfoIsExtractionError(t *testing.T) {
	f := newFixture(t)
	plistData := `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict><key>CFBundleName</key><string>minivmac</string></dict></plist>
`
	if err := os.WriteFile(f.info, []byte(plistData), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), f.options())
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("Update() error = %v, want *ExtractionError", err)
	}
	if extractErr.Raw != "" || !errors.Is(err, infoplist.ErrNoKey) {
		t.Fatalf("ExtractionError = %+v, want empty Raw wrapping ErrNoKey", extractErr)
	}
	after, _ := os.ReadFile(f.info)
	if string(after) != plistData {
		t.Fatal("Info.plist must not be written when the Get Info string is missing")
	}
}

func TestUpdateUnknownStaleValueAccumulates(t *testing.T) {
	f := newFixture(t)
	profile := config.DefaultProfile()
	profile.StaleValues[config.SettingProductName] = nil

	if _, err := fileUpdater(profile).Update(context.Background(), f.options()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	for name, v := range configFlags(t, f.project, config.SettingProductName) {
		if !reflect.DeepEqual(v, []string{"minivmac", "FooApp"}) {
			t.Errorf("%s PRODUCT_NAME = %v, want unlisted stale value kept", name, v)
		}
	}
}

func TestUpdateMissingProjectWritesNothing(t *testing.T) {
	f := newFixture(t)
	before, _ := os.ReadFile(f.info)
	opts := f.options()
	opts.ProjectPath = filepath.Join(t.TempDir(), "missing.pbxproj")

	if _, err := fileUpdater(config.DefaultProfile()).Update(context.Background(), opts); err == nil {
		t.Fatal("expected error for missing project")
	}
	after, _ := os.ReadFile(f.info)
	if string(before) != string(after) {
		t.Fatal("Info.plist changed despite project load failure")
	}
}

func TestOptionsValidate(t *testing.T) {
	base := Options{ProjectPath: "p", InfoPath: "i", BundleID: "b", Name: "n", Build: "1", Version: "1.0"}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	missing := base
	missing.Build = ""
	if err := missing.Validate(); err == nil || !strings.Contains(err.Error(), "build") {
		t.Fatalf("Validate() error = %v, want missing build", err)
	}

	half := base
	half.Team = "ABCDE12345"
	if err := half.Validate(); err == nil {
		t.Fatal("Validate() should require minimum with team")
	}
}

func TestComposeGetInfo(t *testing.T) {
	got := ComposeGetInfo("FooApp", "1.2.3", "FooApp-1.2.3", "© 2023 maintained by Paul C. Pratt")
	want := "FooApp 1.2.3 (FooApp-1.2.3, © 2023 maintained by Paul C. Pratt)"
	if got != want {
		t.Fatalf("ComposeGetInfo() = %q, want %q", got, want)
	}
}
