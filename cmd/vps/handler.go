package vps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/vpsbot/cmd/core"
	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/monitor"
	"github.com/projecteru2/vpsbot/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

// session is what every subcommand starts from.
type session struct {
	ctx   context.Context
	actor string
	svc   *cmdcore.Services
}

func (h Handler) open(cmd *cobra.Command) (*session, error) {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return nil, err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return nil, err
	}
	return &session{ctx: ctx, actor: h.Actor(conf), svc: svc}, nil
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("os")
	plan, _ := cmd.Flags().GetString("plan")
	ram, _ := cmd.Flags().GetInt("ram")
	cpu, _ := cmd.Flags().GetInt("cpu")
	disk, _ := cmd.Flags().GetInt("disk")

	rec, err := s.svc.Manager.Create(s.ctx, lifecycle.CreateRequest{
		Actor: s.actor, Owner: args[0], OwnerName: name,
		RAMGB: ram, CPU: cpu, DiskGB: disk, OS: image, Plan: plan,
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	log.WithFunc("cmd.create").Infof(s.ctx, "VPS created: %s (owner: %s, ram: %s, cpu: %s)", rec.ContainerName, args[0], rec.RAM, rec.CPU)
	return nil
}

func (h Handler) Deploy(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("os")

	rec, err := s.svc.Manager.Deploy(s.ctx, s.actor, args[0], name, args[1], image)
	if err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	log.WithFunc("cmd.deploy").Infof(s.ctx, "VPS deployed: %s (owner: %s, plan: %s)", rec.ContainerName, args[0], rec.Plan)
	return nil
}

func (h Handler) Buy(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	image, _ := cmd.Flags().GetString("os")
	processor, _ := cmd.Flags().GetString("processor")

	rec, err := s.svc.Manager.Buy(s.ctx, lifecycle.BuyRequest{
		Owner: s.actor, OwnerName: name, Plan: args[0], Processor: processor, OS: image,
	})
	if err != nil {
		return fmt.Errorf("buy: %w", err)
	}
	bal, err := s.svc.Economy.Balance(s.ctx, s.actor)
	if err != nil {
		return err
	}
	log.WithFunc("cmd.buy").Infof(s.ctx, "VPS purchased: %s (plan: %s, cost: %d, balance: %d)", rec.ContainerName, rec.Plan, rec.Cost, bal)
	return nil
}

func (h Handler) Start(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, "start", "started", func(s *session) transition { return s.svc.Manager.Start }, args)
}

func (h Handler) Stop(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, "stop", "stopped", func(s *session) transition { return s.svc.Manager.Stop }, args)
}

func (h Handler) Suspend(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, "suspend", "suspended", func(s *session) transition { return s.svc.Manager.Suspend }, args)
}

func (h Handler) Unsuspend(cmd *cobra.Command, args []string) error {
	return h.batch(cmd, "unsuspend", "unsuspended", func(s *session) transition { return s.svc.Manager.Unsuspend }, args)
}

func (h Handler) Upgrade(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	ref, err := cmdcore.ParseRef(args[0])
	if err != nil {
		return err
	}
	ram, _ := cmd.Flags().GetInt("ram")
	cpu, _ := cmd.Flags().GetInt("cpu")

	rec, err := s.svc.Manager.Upgrade(s.ctx, s.actor, ref, ram, cpu)
	if err != nil {
		return fmt.Errorf("upgrade %s: %w", ref, err)
	}
	log.WithFunc("cmd.upgrade").Infof(s.ctx, "upgraded %s: ram %s, cpu %s", rec.ContainerName, rec.RAM, rec.CPU)
	return nil
}

func (h Handler) Reinstall(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd.reinstall")
	ref, err := cmdcore.ParseRef(args[0])
	if err != nil {
		return err
	}
	c, err := s.svc.Manager.RequestReinstall(s.ctx, s.actor, ref)
	if err != nil {
		return fmt.Errorf("reinstall %s: %w", ref, err)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		ok, err := cmdcore.Confirm(fmt.Sprintf("Reinstall %s? All data on it will be lost (expires %s)",
			c.Container, c.ExpiresAt.Local().Format(time.TimeOnly)))
		if err != nil || !ok {
			s.svc.Manager.CancelReinstall(c.Token)
			if err != nil {
				return err
			}
			logger.Infof(s.ctx, "reinstall of %s cancelled", c.Container)
			return nil
		}
	}

	rec, err := s.svc.Manager.ConfirmReinstall(s.ctx, s.actor, c.Token)
	if err != nil {
		return fmt.Errorf("reinstall %s: %w", c.Container, err)
	}
	logger.Infof(s.ctx, "reinstalled %s from %s", rec.ContainerName, rec.OS)
	return nil
}

func (h Handler) RM(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd.rm")
	var errs []error
	for _, arg := range args {
		ref, err := cmdcore.ParseRef(arg)
		if err == nil {
			err = s.svc.Manager.Delete(s.ctx, s.actor, ref)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", arg, err))
			continue
		}
		logger.Infof(s.ctx, "deleted: %s", arg)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}

func (h Handler) Share(cmd *cobra.Command, args []string) error {
	return h.sharing(cmd, args, "shared with", func(s *session) sharingFn { return s.svc.Manager.Share })
}

func (h Handler) Unshare(cmd *cobra.Command, args []string) error {
	return h.sharing(cmd, args, "no longer shared with", func(s *session) sharingFn { return s.svc.Manager.Unshare })
}

func (h Handler) List(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	shared, _ := cmd.Flags().GetBool("shared")

	var entries []lifecycle.Entry
	switch {
	case shared:
		entries, err = s.svc.Manager.ListShared(s.ctx, s.actor)
	case len(args) == 1:
		entries, err = s.svc.Manager.List(s.ctx, s.actor, args[0])
	default:
		entries, err = s.svc.Manager.List(s.ctx, s.actor, s.actor)
	}
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No VPS found.")
		return nil
	}
	cmdcore.PrintEntries(os.Stdout, entries)
	return nil
}

func (h Handler) Inspect(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	ref, err := cmdcore.ParseRef(args[0])
	if err != nil {
		return err
	}
	d, err := s.svc.Manager.Inspect(s.ctx, s.actor, ref)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	return cmdcore.PrintJSON(d)
}

func (h Handler) SSH(cmd *cobra.Command, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	ref, err := cmdcore.ParseRef(args[0])
	if err != nil {
		return err
	}
	t, err := s.svc.Manager.OpenTerminal(s.ctx, s.actor, ref)
	if err != nil {
		return fmt.Errorf("ssh %s: %w", ref, err)
	}
	fmt.Println(t.SSH)
	return nil
}

func (h Handler) StopAll(cmd *cobra.Command, _ []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	reason, _ := cmd.Flags().GetString("reason")
	res, err := s.svc.Manager.StopAll(s.ctx, s.actor, reason)
	logger := log.WithFunc("cmd.stopall")
	for _, name := range res.Stopped {
		logger.Infof(s.ctx, "stopped: %s", name)
	}
	for _, name := range res.Protected {
		logger.Infof(s.ctx, "protected, left running: %s", name)
	}
	if err != nil {
		return fmt.Errorf("stopall: %w", err)
	}
	return nil
}

func (h Handler) Stats(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	fleet, err := svc.Manager.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	out := struct {
		Fleet lifecycle.FleetStats `json:"fleet"`
		Host  *monitor.HostStats   `json:"host,omitempty"`
	}{Fleet: fleet}
	if host, err := monitor.NewHost(conf.RootDir).Stats(ctx); err != nil {
		log.WithFunc("cmd.stats").Warnf(ctx, "host stats: %v", err)
	} else {
		out.Host = &host
	}
	return cmdcore.PrintJSON(out)
}

type transition func(ctx context.Context, actor string, ref lifecycle.Ref) (types.VPS, error)

// batch applies one transition to each argument, best effort, reporting
// every success before returning the joined failures.
func (h Handler) batch(cmd *cobra.Command, name, pastTense string, pick func(*session) transition, args []string) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd." + name)
	fn := pick(s)
	var errs []error
	for _, arg := range args {
		ref, err := cmdcore.ParseRef(arg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rec, err := fn(s.ctx, s.actor, ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", arg, err))
			continue
		}
		logger.Infof(s.ctx, "%s: %s (%s)", pastTense, rec.ContainerName, rec.Status)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type sharingFn func(ctx context.Context, actor string, ref lifecycle.Ref, user string) (types.VPS, error)

func (h Handler) sharing(cmd *cobra.Command, args []string, verb string, pick func(*session) sharingFn) error {
	s, err := h.open(cmd)
	if err != nil {
		return err
	}
	ref, err := cmdcore.ParseRef(args[0])
	if err != nil {
		return err
	}
	rec, err := pick(s)(s.ctx, s.actor, ref, args[1])
	if err != nil {
		return err
	}
	log.WithFunc("cmd.share").Infof(s.ctx, "%s %s %s", rec.ContainerName, verb, args[1])
	return nil
}
