package vps

import "github.com/spf13/cobra"

// Actions defines VPS lifecycle operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Deploy(cmd *cobra.Command, args []string) error
	Buy(cmd *cobra.Command, args []string) error
	Start(cmd *cobra.Command, args []string) error
	Stop(cmd *cobra.Command, args []string) error
	Suspend(cmd *cobra.Command, args []string) error
	Unsuspend(cmd *cobra.Command, args []string) error
	Upgrade(cmd *cobra.Command, args []string) error
	Reinstall(cmd *cobra.Command, args []string) error
	RM(cmd *cobra.Command, args []string) error
	Share(cmd *cobra.Command, args []string) error
	Unshare(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
	Inspect(cmd *cobra.Command, args []string) error
	SSH(cmd *cobra.Command, args []string) error
	StopAll(cmd *cobra.Command, args []string) error
	Stats(cmd *cobra.Command, args []string) error
}

// Command builds the "vps" parent command with all subcommands.
// VPS arguments are either a container name or OWNER#N.
func Command(h Actions) *cobra.Command {
	vpsCmd := &cobra.Command{
		Use:   "vps",
		Short: "Manage VPS containers",
	}

	createCmd := &cobra.Command{
		Use:   "create [flags] OWNER",
		Short: "Create a container for OWNER with explicit resources (admin)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	addOwnerFlags(createCmd)
	createCmd.Flags().Int("ram", 0, "memory in GB")
	createCmd.Flags().Int("cpu", 0, "CPU cores")
	createCmd.Flags().Int("disk", 0, "disk in GB")
	createCmd.Flags().String("plan", "", "plan label recorded on the VPS")
	_ = createCmd.MarkFlagRequired("ram")
	_ = createCmd.MarkFlagRequired("cpu")
	_ = createCmd.MarkFlagRequired("disk")

	deployCmd := &cobra.Command{
		Use:   "deploy [flags] OWNER PLAN",
		Short: "Create a container for OWNER from a catalog plan (admin)",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Deploy,
	}
	addOwnerFlags(deployCmd)

	buyCmd := &cobra.Command{
		Use:   "buy [flags] PLAN",
		Short: "Buy a paid plan with credits",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Buy,
	}
	addOwnerFlags(buyCmd)
	buyCmd.Flags().String("processor", "intel", "processor type (intel|amd)")

	startCmd := &cobra.Command{
		Use:   "start VPS [VPS...]",
		Short: "Start stopped VPS(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Start,
	}

	stopCmd := &cobra.Command{
		Use:   "stop VPS [VPS...]",
		Short: "Stop running VPS(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Stop,
	}

	suspendCmd := &cobra.Command{
		Use:   "suspend VPS [VPS...]",
		Short: "Force-stop and suspend VPS(s) (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Suspend,
	}

	unsuspendCmd := &cobra.Command{
		Use:   "unsuspend VPS [VPS...]",
		Short: "Lift a suspension and start VPS(s) (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Unsuspend,
	}

	upgradeCmd := &cobra.Command{
		Use:   "upgrade [flags] VPS",
		Short: "Change memory and CPU limits (admin)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Upgrade,
	}
	upgradeCmd.Flags().Int("ram", 0, "new memory in GB")
	upgradeCmd.Flags().Int("cpu", 0, "new CPU cores")
	_ = upgradeCmd.MarkFlagRequired("ram")
	_ = upgradeCmd.MarkFlagRequired("cpu")

	reinstallCmd := &cobra.Command{
		Use:   "reinstall [flags] VPS",
		Short: "Delete and relaunch a VPS from the default image (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Reinstall,
	}
	reinstallCmd.Flags().BoolP("yes", "y", false, "confirm without prompting")

	rmCmd := &cobra.Command{
		Use:   "rm VPS [VPS...]",
		Short: "Delete VPS(s) and their records (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.RM,
	}

	shareCmd := &cobra.Command{
		Use:   "share VPS USER",
		Short: "Grant USER access to a VPS you own",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Share,
	}

	unshareCmd := &cobra.Command{
		Use:   "unshare VPS USER",
		Short: "Revoke USER's access to a VPS you own",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE:  h.Unshare,
	}

	listCmd := &cobra.Command{
		Use:     "list [OWNER]",
		Aliases: []string{"ls"},
		Short:   "List VPS records (default: your own)",
		Args:    cobra.MaximumNArgs(1),
		RunE:    h.List,
	}
	listCmd.Flags().Bool("shared", false, "list VPS shared with you instead")

	inspectCmd := &cobra.Command{
		Use:   "inspect VPS",
		Short: "Show the VPS record and live status (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Inspect,
	}

	sshCmd := &cobra.Command{
		Use:   "ssh VPS",
		Short: "Open a tmate session in a running VPS",
		Args:  cobra.ExactArgs(1),
		RunE:  h.SSH,
	}

	stopAllCmd := &cobra.Command{
		Use:   "stopall [flags]",
		Short: "Force-stop every unprotected running VPS (admin)",
		Args:  cobra.NoArgs,
		RunE:  h.StopAll,
	}
	stopAllCmd.Flags().String("reason", "", "reason recorded on each stopped VPS")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fleet counts and host usage",
		Args:  cobra.NoArgs,
		RunE:  h.Stats,
	}

	vpsCmd.AddCommand(
		createCmd,
		deployCmd,
		buyCmd,
		startCmd,
		stopCmd,
		suspendCmd,
		unsuspendCmd,
		upgradeCmd,
		reinstallCmd,
		rmCmd,
		shareCmd,
		unshareCmd,
		listCmd,
		inspectCmd,
		sshCmd,
		stopAllCmd,
		statsCmd,
	)
	return vpsCmd
}

func addOwnerFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "owner display name used in the container name")
	cmd.Flags().String("os", "", "image to launch (default: configured default image)")
}
