package cmds

import (
	"github.com/spf13/cobra"
)

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newBuildsCmd())
	root.AddCommand(newTriggersCmd())
	root.AddCommand(newTuiCmd())
	return nil
}
