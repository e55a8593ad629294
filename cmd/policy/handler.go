package policy

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/vpsbot/cmd/core"
	"github.com/projecteru2/vpsbot/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) open(cmd *cobra.Command) (context.Context, string, *cmdcore.Services, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, "", nil, err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return nil, "", nil, err
	}
	return ctx, h.Actor(conf), svc, nil
}

func (h Handler) Protect(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	n, err := svc.Policy.Protect(ctx, actor, args[0])
	if err != nil {
		return fmt.Errorf("protect: %w", err)
	}
	log.WithFunc("cmd.protect").Infof(ctx, "protected %s (%d VPS)", args[0], n)
	return nil
}

func (h Handler) Unprotect(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	n, err := svc.Policy.Unprotect(ctx, actor, args[0])
	if err != nil {
		return fmt.Errorf("unprotect: %w", err)
	}
	log.WithFunc("cmd.unprotect").Infof(ctx, "unprotected %s (%d VPS)", args[0], n)
	return nil
}

func (h Handler) ProtectionEnable(cmd *cobra.Command, _ []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if err := svc.Policy.Enable(ctx, actor); err != nil {
		return fmt.Errorf("enable protection: %w", err)
	}
	log.WithFunc("cmd.protect").Info(ctx, "protection enabled")
	return nil
}

func (h Handler) ProtectionDisable(cmd *cobra.Command, _ []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if err := svc.Policy.Disable(ctx, actor); err != nil {
		return fmt.Errorf("disable protection: %w", err)
	}
	log.WithFunc("cmd.protect").Info(ctx, "protection disabled")
	return nil
}

func (h Handler) ProtectionInfo(cmd *cobra.Command, _ []string) error {
	ctx, _, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	info, err := svc.Policy.Info(ctx)
	if err != nil {
		return err
	}
	return cmdcore.PrintJSON(info)
}

func (h Handler) AdminAdd(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if err := svc.Admins.AddAdmin(ctx, actor, args[0]); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	log.WithFunc("cmd.admin").Infof(ctx, "%s is now an admin", args[0])
	return nil
}

func (h Handler) AdminRemove(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if err := svc.Admins.RemoveAdmin(ctx, actor, args[0]); err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	log.WithFunc("cmd.admin").Infof(ctx, "%s is no longer an admin", args[0])
	return nil
}

func (h Handler) AdminList(cmd *cobra.Command, _ []string) error {
	ctx, _, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	admins, err := svc.Admins.ListAdmins(ctx)
	if err != nil {
		return err
	}
	for _, a := range admins {
		if svc.Admins.IsMainAdmin(a) {
			fmt.Printf("%s (main)\n", a)
			continue
		}
		fmt.Println(a)
	}
	return nil
}

func (h Handler) Maintenance(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("%w: want on or off, got %q", types.ErrInvalidInput, args[0])
		}
		if err := svc.Admins.SetMaintenance(ctx, actor, on); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}
	on, err := svc.Admins.Maintenance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("maintenance: %v\n", on)
	return nil
}

func (h Handler) PlanList(cmd *cobra.Command, _ []string) error {
	ctx, _, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	plans, err := svc.Admins.ListPlans(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tRAM\tCPU\tSTORAGE\tINTEL\tAMD\tREQUIRES\tBUILTIN")
	for _, p := range plans {
		requires := "-"
		switch {
		case p.Boosts > 0:
			requires = fmt.Sprintf("%d boosts", p.Boosts)
		case p.Invites > 0:
			requires = fmt.Sprintf("%d invites", p.Invites)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%s\t%v\n",
			p.Name, p.Type, types.FormatGB(p.RAMGB), p.CPU, types.FormatGB(p.StorageGB),
			p.PriceIntel, p.PriceAMD, requires, p.Builtin)
	}
	w.Flush() //nolint:errcheck,gosec
	return nil
}

func (h Handler) PlanAdd(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	typ, _ := cmd.Flags().GetString("type")
	planType, err := types.ParsePlanType(typ)
	if err != nil {
		return err
	}
	p := types.Plan{Name: args[0], Type: planType}
	p.RAMGB, _ = cmd.Flags().GetInt("ram")
	p.CPU, _ = cmd.Flags().GetInt("cpu")
	p.StorageGB, _ = cmd.Flags().GetInt("storage")
	p.PriceIntel, _ = cmd.Flags().GetInt64("price-intel")
	p.PriceAMD, _ = cmd.Flags().GetInt64("price-amd")
	if price, _ := cmd.Flags().GetInt64("price"); price > 0 {
		p.PriceIntel = cmp.Or(p.PriceIntel, price)
		p.PriceAMD = cmp.Or(p.PriceAMD, price)
	}
	p.Boosts, _ = cmd.Flags().GetInt("boosts")
	p.Invites, _ = cmd.Flags().GetInt("invites")
	p.Description, _ = cmd.Flags().GetString("description")

	if err := svc.Admins.AddPlan(ctx, actor, p); err != nil {
		return fmt.Errorf("add plan: %w", err)
	}
	log.WithFunc("cmd.plan").Infof(ctx, "plan %s added", p.Name)
	return nil
}

func (h Handler) PlanRM(cmd *cobra.Command, args []string) error {
	ctx, actor, svc, err := h.open(cmd)
	if err != nil {
		return err
	}
	if err := svc.Admins.RemovePlan(ctx, actor, args[0]); err != nil {
		return fmt.Errorf("remove plan: %w", err)
	}
	log.WithFunc("cmd.plan").Infof(ctx, "plan %s removed", args[0])
	return nil
}
