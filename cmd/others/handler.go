package others

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/vpsbot/api"
	cmdcore "github.com/projecteru2/vpsbot/cmd/core"
	"github.com/projecteru2/vpsbot/lock"
	"github.com/projecteru2/vpsbot/lock/flock"
	"github.com/projecteru2/vpsbot/monitor"
	"github.com/projecteru2/vpsbot/version"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Serve(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	logger := log.WithFunc("cmd.serve")
	host := monitor.NewHost(conf.RootDir)

	sched := monitor.New()
	if conf.AutoReconcile {
		monitor.Register(sched, monitor.ReconcileTask(svc.Manager, conf.ReconcileInterval(), flock.New(conf.ReconcileLockPath())))
	}
	if conf.CPUGuardEnabled {
		monitor.Register(sched, monitor.CPUGuardTask(svc.Manager, host, conf.CPUThreshold, conf.CPUCheckInterval()))
	}
	server := api.New(conf.ListenAddr, svc.Manager, host)

	logger.Infof(ctx, "serving (runtime %s, data %s)", svc.Runtime.Type(), conf.RootDir)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	return g.Wait()
}

// Reconcile runs one pass now, holding the same lock the serve loop takes.
func (h Handler) Reconcile(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	actor := h.Actor(conf)
	return lock.WithLock(ctx, flock.New(conf.ReconcileLockPath()), func() error {
		res, err := svc.Manager.ReconcileAs(ctx, actor)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		log.WithFunc("cmd.reconcile").Infof(ctx, "checked %d, updated %d, failed %d", res.Checked, res.Updated, res.Failed)
		return nil
	})
}

func (h Handler) Version(_ *cobra.Command, _ []string) error {
	fmt.Print(version.String())
	return nil
}
