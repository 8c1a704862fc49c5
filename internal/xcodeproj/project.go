// Package xcodeproj edits build settings in an Xcode project.pbxproj file.
//
// The file is an OpenStep property list. Flag edits address the
// XCBuildConfiguration objects reached from the root project's targets
// through their build configuration lists; project-level configurations and
// every other object are carried through Load/Save with their values
// untouched.
//
// Save re-encodes the whole file. The /* ... */ annotations and section
// markers Xcode writes are dropped and strings are re-quoted, so the first
// save after Xcode has touched the file rewrites most lines. Xcode restores
// its layout the next time it saves the project. Saving an already saved
// project produces identical bytes.
package xcodeproj

import (
	"bytes"
	"fmt"
	"os"
	
	"howett.net/plist"
)

const utf8Header = "// !$*UTF8*$!"

// Project is a loaded project.pbxproj.
type Project struct {
	path   string
	header bool
	format int
	root   map[string]any

	// configuration narrows flag edits to build configurations with this
	// name. Empty means every configuration.
	configuration string
}

// BuildConfiguration is one XCBuildConfiguration object.
type BuildConfiguration struct {
	ID     string
	Name   string
	Target string

	settings map[string]any
}

// Load parses the project file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes project data. path is where Save will write.
func Parse(path string, data []byte) (*Project, error) {
	var root map[string]any
	format, err := plist.Unmarshal(data, &root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	if _, ok := root["objects"].(map[string]any); !ok {
		return nil, fmt.Errorf("failed to parse project %s: no objects dictionary", path)
	}
	return &Project{
		path:   path,
		header: bytes.HasPrefix(bytes.TrimSpace(data), []byte(utf8Header)),
		format: format,
		root:   root,
	}, nil
}

// Path returns the file the project was loaded from.
func (p *Project) Path() string {
	return p.path
}

// SetConfiguration restricts flag edits to configurations named name
// (e.g. "Release"). An empty name selects all configurations.
func (p *Project) SetConfiguration(name string) {
	p.configuration = name
}

// Configurations returns the target build configurations in scope, in
// target order and then configuration list order. The project-level
// configurations are not included.
func (p *Project) Configurations() []*BuildConfiguration {
	objects, _ := p.root["objects"].(map[string]any)
	rootID, _ := p.root["rootObject"].(string)
	root, _ := objects[rootID].(map[string]any)
	targets, _ := root["targets"].([]any)

	var configs []*BuildConfiguration
	seen := make(map[string]bool)
	for _, t := range targets {
		targetID, _ := t.(string)
		target, ok := objects[targetID].(map[string]any)
		if !ok {
			continue
		}
		targetName, _ := target["name"].(string)
		listID, _ := target["buildConfigurationList"].(string)
		list, _ := objects[listID].(map[string]any)
		ids, _ := list["buildConfigurations"].([]any)
		for _, v := range ids {
			id, _ := v.(string)
			obj, ok := objects[id].(map[string]any)
			if !ok || obj["isa"] != "XCBuildConfiguration" || seen[id] {
				continue
			}
			name, _ := obj["name"].(string)
			if p.configuration != "" && name != p.configuration {
				continue
			}
			seen[id] = true
			settings, ok := obj["buildSettings"].(map[string]any)
			if !ok {
				settings = make(map[string]any)
				obj["buildSettings"] = settings
			}
			configs = append(configs, &BuildConfiguration{ID: id, Name: name, Target: targetName, settings: settings})
		}
	}
	return configs
}

// Flags returns the values of setting in this configuration.
func (c *BuildConfiguration) Flags(setting string) (*FlagSet, error) {
	set, err := decodeFlagSet(c.settings[setting])
	if err != nil {
		return nil, fmt.Errorf("build setting %s in %s/%s: %w", setting, c.Target, c.Name, err)
	}
	return set, nil
}

func (c *BuildConfiguration) store(setting string, set *FlagSet) {
	if v, ok := set.encode(); ok {
		c.settings[setting] = v
		return
	}
	delete(c.settings, setting)
}

// AddFlags adds values to setting in every configuration in scope.
func (p *Project) AddFlags(setting string, values ...string) error {
	return p.edit(setting, func(set *FlagSet) {
		for _, v := range values {
			set.Add(v)
		}
	})
}

// RemoveFlags removes values from setting in every configuration in scope.
// A setting left with no values is deleted.
func (p *Project) RemoveFlags(setting string, values ...string) error {
	return p.edit(setting, func(set *FlagSet) {
		for _, v := range values {
			set.Remove(v)
		}
	})
}

func (p *Project) edit(setting string, fn func(*FlagSet)) error {
	configs := p.Configurations()
	if len(configs) == 0 {
		if p.configuration != "" {
			return fmt.Errorf("no target build configuration named %q in %s", p.configuration, p.path)
		}
		return fmt.Errorf("no target build configurations in %s", p.path)
	}
	for _, c := range configs {
		set, err := c.Flags(setting)
		if err != nil {
			return err
		}
		fn(set)
		c.store(setting, set)
	}
	return nil
}

// Flags returns the union of setting's values across configurations in
// scope.
func (p *Project) Flags(setting string) (*FlagSet, error) {
	union := NewFlagSet()
	for _, c := range p.Configurations() {
		set, err := c.Flags(setting)
		if err != nil {
			return nil, err
		}
		for _, v := range set.Values() {
			union.Add(v)
		}
	}
	return union, nil
}

// Encode renders the project in its original format.
func (p *Project) Encode() ([]byte, error) {
	data, err := plist.MarshalIndent(p.root, p.format, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}
	if p.header && (p.format == plist.OpenStepFormat || p.format == plist.GNUStepFormat) {
		data = append([]byte(utf8Header+"\n"), data...)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data, nil
}

// Save writes the project back to the path it was loaded from.
func (p *Project) Save() error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(p.path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(p.path, data, perm); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}
