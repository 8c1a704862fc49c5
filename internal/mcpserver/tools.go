package mcpserver

import (
	"context"
	"fmt"

	"github.com/moasq/bundlepatch/internal/bundle"
	"github.com/moasq/bundlepatch/internal/config"
	"github.com/moasq/bundlepatch/internal/redefine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type redefineInput struct {
	File  string `json:"file" jsonschema:"Path to the header file to patch"`
	Key   string `json:"key" jsonschema:"Macro name, matched literally"`
	Value string `json:"value" jsonschema:"String value to write; it is wrapped in double quotes"`
}

type redefineOutput struct {
	Message       string `json:"message"`
	Matched       int    `json:"matched"`
	BackupPath    string `json:"backup_path"`
	BackupCreated bool   `json:"backup_created"`
}

func handleRedefine(ctx context.Context, req *mcp.CallToolRequest, input redefineInput) (*mcp.CallToolResult, redefineOutput, error) {
	res, err := redefine.Rewrite(input.File, input.Key, input.Value)
	if err != nil {
		return nil, redefineOutput{}, err
	}

	msg := fmt.Sprintf("Rewrote %d #define %s line(s) in %s", res.Matched, input.Key, input.File)
	if res.Matched == 0 {
		msg = fmt.Sprintf("No #define %s lines found in %s; file left unchanged", input.Key, input.File)
	}
	return nil, redefineOutput{
		Message:       msg,
		Matched:       res.Matched,
		BackupPath:    res.BackupPath,
		BackupCreated: res.BackupCreated,
	}, nil
}

type updateBundleInput struct {
	Project  string `json:"project" jsonschema:"Path to project.pbxproj"`
	Info     string `json:"info" jsonschema:"Path to Info.plist"`
	BundleID string `json:"bundle_id" jsonschema:"Bundle identifier e.g. com.example.app"`
	Name     string `json:"name" jsonschema:"App name, used for PRODUCT_NAME and CFBundleName"`
	Build    string `json:"build" jsonschema:"Build number for CFBundleVersion"`
	Version  string `json:"version" jsonschema:"Marketing version for CFBundleShortVersionString"`
	Team     string `json:"team,omitempty" jsonschema:"Development team ID; requires minimum"`
	Minimum  string `json:"minimum,omitempty" jsonschema:"Minimum macOS version; requires team"`
	Profile  string `json:"profile,omitempty" jsonschema:"Optional YAML profile with stale values and patterns"`
}

type updateBundleOutput struct {
	Message  string   `json:"message"`
	GetInfo  string   `json:"get_info"`
	Settings []string `json:"settings"`
}

func handleUpdateBundle(ctx context.Context, req *mcp.CallToolRequest, input updateBundleInput) (*mcp.CallToolResult, updateBundleOutput, error) {
	profile, err := config.LoadProfile(input.Profile)
	if err != nil {
		return nil, updateBundleOutput{}, err
	}

	opts := bundle.Options{
		ProjectPath: input.Project,
		InfoPath:    input.Info,
		BundleID:    input.BundleID,
		Name:        input.Name,
		Build:       input.Build,
		Version:     input.Version,
		Team:        input.Team,
		Minimum:     input.Minimum,
	}
	res, err := bundle.NewUpdater(profile, nil).Update(ctx, opts)
	if err != nil {
		return nil, updateBundleOutput{}, err
	}

	settings := make([]string, 0, len(res.Settings))
	for _, s := range res.Settings {
		settings = append(settings, s.Setting+" = "+s.Value)
	}
	return nil, updateBundleOutput{
		Message:  fmt.Sprintf("Updated %d build settings and %d Info.plist fields", len(res.Settings), len(res.Fields)),
		GetInfo:  res.GetInfo,
		Settings: settings,
	}, nil
}
