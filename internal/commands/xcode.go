package commands

import (
	"errors"
	"fmt"

	"github.com/moasq/bundlepatch/internal/bundle"
	"github.com/moasq/bundlepatch/internal/config"
	"github.com/moasq/bundlepatch/internal/infoplist"
	"github.com/moasq/bundlepatch/internal/terminal"
	"github.com/spf13/cobra"
)

// NewXcodeCmd creates the xcodeupdate root command.
func NewXcodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xcodeupdate",
		Short: "Rename an app in its Xcode project and Info.plist",
		Long: `Set the product name and bundle identifier in project.pbxproj, then
update the bundle fields of Info.plist and rebuild CFBundleGetInfoString.

Passing --team and --minimum also sets the entitlements file, signing
identity, development team, hardened runtime and MACOSX_DEPLOYMENT_TARGET.

The project is saved before Info.plist is read. If the existing Get Info
string has no version token the command fails and Info.plist is left as is.

Example:
  xcodeupdate -p minivmac.xcodeproj/project.pbxproj -i cfg/Info.plist \
    -d com.example.fooapp -n FooApp -b 42 -v 1.2.3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runXcode,
	}

	cmd.Flags().StringP("project", "p", "", "The path to the pbxproj file: example.xcodeproj/project.pbxproj")
	cmd.Flags().StringP("info", "i", "", "The path to the Info.plist file: cfg/Info.plist")
	cmd.Flags().StringP("bundleid", "d", "", "The bundle ID")
	cmd.Flags().StringP("name", "n", "", "The app name")
	cmd.Flags().StringP("build", "b", "", "The build version string")
	cmd.Flags().StringP("version", "v", "", "The marketing version string")
	for _, name := range []string{"project", "info", "bundleid", "name", "build", "version"} {
		_ = cmd.MarkFlagRequired(name)
	}

	cmd.Flags().StringP("team", "t", "", "The development team ID (requires --minimum)")
	cmd.Flags().StringP("minimum", "m", "", "The minimum macOS version (requires --team)")
	cmd.MarkFlagsRequiredTogether("team", "minimum")

	cmd.Flags().String("profile", "", "YAML profile with stale values and patterns (default $"+config.EnvProfile+")")
	cmd.Flags().String("plist-backend", "", "How to edit Info.plist: auto, plutil or file")
	cmd.Flags().String("configuration", "", "Only edit this build configuration (e.g. Release)")

	cmd.AddCommand(newMCPCmd())

	return cmd
}

func xcodeOptions(cmd *cobra.Command) bundle.Options {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return bundle.Options{
		ProjectPath: get("project"),
		InfoPath:    get("info"),
		BundleID:    get("bundleid"),
		Name:        get("name"),
		Build:       get("build"),
		Version:     get("version"),
		Team:        get("team"),
		Minimum:     get("minimum"),
	}
}

func runXcode(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	updater := bundle.NewUpdater(profile, nil)
	updater.Progress = terminal.Info

	opts := xcodeOptions(cmd)
	res, err := updater.Update(cmd.Context(), opts)
	if err != nil {
		var extractErr *bundle.ExtractionError
		if errors.As(err, &extractErr) {
			terminal.Error(fmt.Sprintf("Failed to parse Get Info string: %s", extractErr.Raw))
			terminal.Warning(fmt.Sprintf("%s was already saved; Info.plist was not changed", opts.ProjectPath))
		}
		return err
	}

	terminal.Header("Build settings")
	for _, s := range res.Settings {
		terminal.Detail(s.Setting, s.Value)
	}
	terminal.Header("Info.plist")
	for _, f := range res.Fields {
		terminal.Detail(f.Key, f.Value)
	}
	terminal.Success(fmt.Sprintf("Updated %s and %s", opts.ProjectPath, opts.InfoPath))
	return nil
}

// loadProfile reads the profile and applies command-line overrides.
func loadProfile(cmd *cobra.Command) (*config.Profile, error) {
	path, _ := cmd.Flags().GetString("profile")
	profile, err := config.LoadProfile(path)
	if err != nil {
		return nil, err
	}

	if backend, _ := cmd.Flags().GetString("plist-backend"); backend != "" {
		profile.PlistBackend = backend
	}
	if _, err := infoplist.ParseBackend(profile.PlistBackend); err != nil {
		return nil, err
	}
	if configuration, _ := cmd.Flags().GetString("configuration"); configuration != "" {
		profile.Configuration = configuration
	}
	return profile, nil
}
