package commands

import (
	"fmt"

	"github.com/moasq/bundlepatch/internal/redefine"
	"github.com/moasq/bundlepatch/internal/terminal"
	"github.com/spf13/cobra"
)

// NewRedefineCmd creates the redefine root command.
func NewRedefineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redefine",
		Short: "Rewrite a #define in a source file",
		Long: `Rewrite every "#define KEY ..." line in a file to #define KEY "VALUE".

The first run against a file copies it to FILE-backup; later runs leave that
backup alone, so it always holds the file as it was before any rewrite.

Example:
  redefine --file src/CNFUDALL.h --key kStrAppName --string FooApp`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRedefine,
	}

	cmd.Flags().StringP("file", "f", "", "The file to update")
	cmd.Flags().StringP("key", "k", "", "The key to update in the given file")
	cmd.Flags().StringP("string", "s", "", "The string value to insert")
	for _, name := range []string{"file", "key", "string"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runRedefine(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	key, _ := cmd.Flags().GetString("key")
	value, _ := cmd.Flags().GetString("string")

	terminal.Info(fmt.Sprintf("Updating %s…", file))

	res, err := redefine.Rewrite(file, key, value)
	if err != nil {
		return err
	}
	if res.BackupCreated {
		terminal.Detail("Backup", res.BackupPath)
	}
	if res.Matched == 0 {
		terminal.Warning(fmt.Sprintf("No \"#define %s\" lines in %s; file unchanged", key, file))
		return nil
	}

	terminal.Success(fmt.Sprintf("Set %s to %q (%d line(s))", key, value, res.Matched))
	return nil
}
