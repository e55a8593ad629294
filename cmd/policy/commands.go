package policy

import "github.com/spf13/cobra"

// Actions defines administrative policy operations.
type Actions interface {
	Protect(cmd *cobra.Command, args []string) error
	Unprotect(cmd *cobra.Command, args []string) error
	ProtectionEnable(cmd *cobra.Command, args []string) error
	ProtectionDisable(cmd *cobra.Command, args []string) error
	ProtectionInfo(cmd *cobra.Command, args []string) error

	AdminAdd(cmd *cobra.Command, args []string) error
	AdminRemove(cmd *cobra.Command, args []string) error
	AdminList(cmd *cobra.Command, args []string) error

	Maintenance(cmd *cobra.Command, args []string) error

	PlanList(cmd *cobra.Command, args []string) error
	PlanAdd(cmd *cobra.Command, args []string) error
	PlanRM(cmd *cobra.Command, args []string) error
}

// Commands builds the protect, admin, maintenance and plan command trees.
func Commands(h Actions) []*cobra.Command {
	protectCmd := &cobra.Command{
		Use:   "protect",
		Short: "Exempt users from bulk stops",
	}
	protectCmd.AddCommand(
		&cobra.Command{Use: "add USER", Short: "Protect USER (admin)", Args: cobra.ExactArgs(1), RunE: h.Protect},
		&cobra.Command{Use: "rm USER", Short: "Unprotect USER (admin)", Args: cobra.ExactArgs(1), RunE: h.Unprotect},
		&cobra.Command{Use: "enable", Short: "Turn protection on (main admin)", Args: cobra.NoArgs, RunE: h.ProtectionEnable},
		&cobra.Command{Use: "disable", Short: "Turn protection off (main admin)", Args: cobra.NoArgs, RunE: h.ProtectionDisable},
		&cobra.Command{Use: "info", Short: "Show protection state (JSON)", Args: cobra.NoArgs, RunE: h.ProtectionInfo},
	)

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrators",
	}
	adminCmd.AddCommand(
		&cobra.Command{Use: "add USER", Short: "Make USER an admin (main admin)", Args: cobra.ExactArgs(1), RunE: h.AdminAdd},
		&cobra.Command{Use: "rm USER", Short: "Remove USER from the admins (main admin)", Args: cobra.ExactArgs(1), RunE: h.AdminRemove},
		&cobra.Command{Use: "list", Aliases: []string{"ls"}, Short: "List admins", Args: cobra.NoArgs, RunE: h.AdminList},
	)

	maintenanceCmd := &cobra.Command{
		Use:       "maintenance [on|off]",
		Short:     "Show or toggle maintenance mode (main admin to toggle)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      h.Maintenance,
	}

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage the plan catalog",
	}
	planAddCmd := &cobra.Command{
		Use:   "add [flags] NAME",
		Short: "Add a custom plan (admin)",
		Args:  cobra.ExactArgs(1),
		RunE:  h.PlanAdd,
	}
	planAddCmd.Flags().String("type", "paid", "plan type (paid|boost|invite)")
	planAddCmd.Flags().Int("ram", 0, "memory in GB")
	planAddCmd.Flags().Int("cpu", 0, "CPU cores")
	planAddCmd.Flags().Int("storage", 0, "disk in GB")
	planAddCmd.Flags().Int64("price", 0, "price on both processors")
	planAddCmd.Flags().Int64("price-intel", 0, "price on Intel hosts (overrides --price)")
	planAddCmd.Flags().Int64("price-amd", 0, "price on AMD hosts (overrides --price)")
	planAddCmd.Flags().Int("boosts", 0, "server boosts required")
	planAddCmd.Flags().Int("invites", 0, "invites required")
	planAddCmd.Flags().String("description", "", "free-form description")
	planCmd.AddCommand(
		&cobra.Command{Use: "list", Aliases: []string{"ls"}, Short: "List plans", Args: cobra.NoArgs, RunE: h.PlanList},
		planAddCmd,
		&cobra.Command{Use: "rm NAME", Short: "Remove a custom plan (admin)", Args: cobra.ExactArgs(1), RunE: h.PlanRM},
	)

	return []*cobra.Command{protectCmd, adminCmd, maintenanceCmd, planCmd}
}
