package account

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/vpsbot/cmd/core"
	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/types"
)

type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Balance(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	actor := h.Actor(conf)
	user := actor
	if len(args) == 1 && args[0] != actor {
		if err := svc.Admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
			return err
		}
		user = args[0]
	}
	bal, err := svc.Economy.Balance(ctx, user)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	fmt.Printf("%s: %d credits\n", user, bal)
	return nil
}

func (h Handler) Grant(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	actor := h.Actor(conf)
	if err := svc.Admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	bal, err := svc.Economy.Grant(ctx, args[0], amount)
	if err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	log.WithFunc("cmd.grant").Infof(ctx, "granted %d credits to %s by %s, balance %d", amount, args[0], actor, bal)
	return nil
}

func (h Handler) Remove(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	svc, err := cmdcore.InitServices(conf)
	if err != nil {
		return err
	}
	actor := h.Actor(conf)
	if err := svc.Admins.Authorize(ctx, actor, admin.TierAdmin); err != nil {
		return err
	}
	logger := log.WithFunc("cmd.remove")
	if strings.EqualFold(args[1], "all") {
		removed, err := svc.Economy.DebitAll(ctx, args[0])
		if err != nil {
			return fmt.Errorf("remove: %w", err)
		}
		logger.Infof(ctx, "removed all %d credits from %s by %s", removed, args[0], actor)
		return nil
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	removed, bal, err := svc.Economy.Debit(ctx, args[0], amount)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	logger.Infof(ctx, "removed %d credits from %s by %s, balance %d", removed, args[0], actor, bal)
	return nil
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: amount %q must be a positive integer", types.ErrInvalidInput, s)
	}
	return n, nil
}
