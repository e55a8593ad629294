package core

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/projecteru2/vpsbot/admin"
	"github.com/projecteru2/vpsbot/config"
	"github.com/projecteru2/vpsbot/container/lxc"
	"github.com/projecteru2/vpsbot/economy"
	"github.com/projecteru2/vpsbot/gateway"
	"github.com/projecteru2/vpsbot/lifecycle"
	"github.com/projecteru2/vpsbot/protection"
	"github.com/projecteru2/vpsbot/repository"
	"github.com/projecteru2/vpsbot/types"
)

// BaseHandler provides shared config and caller identity for all command handlers.
type BaseHandler struct {
	ConfProvider  func() *config.Config
	ActorProvider func() string
}

// Init returns the command context and validated config in one call.
func (h BaseHandler) Init(cmd *cobra.Command) (context.Context, *config.Config, error) {
	conf, err := h.Conf()
	if err != nil {
		return nil, nil, err
	}
	return CommandContext(cmd), conf, nil
}

// Conf validates and returns the config. All handlers call this first.
func (h BaseHandler) Conf() (*config.Config, error) {
	if h.ConfProvider == nil {
		return nil, fmt.Errorf("config provider is nil")
	}
	conf := h.ConfProvider()
	if conf == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	return conf, nil
}

// Actor returns the identity commands act as (--as), defaulting to the
// main admin for an operator at the console.
func (h BaseHandler) Actor(conf *config.Config) string {
	if h.ActorProvider != nil {
		if a := strings.TrimSpace(h.ActorProvider()); a != "" {
			return a
		}
	}
	return conf.MainAdmin
}

// CommandContext returns command context, falling back to Background.
func CommandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// Services is the wired engine.
type Services struct {
	Repo    *repository.Repository
	Economy *economy.Guard
	Admins  *admin.Registry
	Policy  *protection.Policy
	Runtime *lxc.LXC
	Manager *lifecycle.Manager
}

// InitServices opens the data collections and wires the lifecycle manager
// onto the lxc runtime.
func InitServices(conf *config.Config) (*Services, error) {
	repo, err := repository.New(conf)
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	s := &Services{
		Repo:    repo,
		Economy: economy.New(repo),
		Admins:  admin.New(repo, conf.Maintenance),
		Runtime: lxc.New(conf, gateway.New()),
	}
	s.Policy = protection.New(repo, s.Admins)
	s.Manager = lifecycle.New(conf, repo, s.Runtime, s.Economy, s.Admins, s.Policy)
	return s, nil
}

// ParseRef accepts "OWNER#N" (1-based position in OWNER's list) or a
// container name.
func ParseRef(arg string) (lifecycle.Ref, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return lifecycle.Ref{}, fmt.Errorf("%w: empty VPS reference", types.ErrInvalidInput)
	}
	owner, n, ok := strings.Cut(arg, "#")
	if !ok {
		return lifecycle.Ref{Name: arg}, nil
	}
	idx, err := strconv.Atoi(n)
	if err != nil || owner == "" || idx < 1 {
		return lifecycle.Ref{}, fmt.Errorf("%w: VPS reference %q, want OWNER#N or a container name", types.ErrInvalidInput, arg)
	}
	return lifecycle.Ref{Owner: owner, Index: idx}, nil
}

// PrintJSON writes v as indented JSON to stdout.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintEntries renders records as a table.
func PrintEntries(w io.Writer, entries []lifecycle.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd
	_, _ = fmt.Fprintln(tw, "REF\tCONTAINER\tPLAN\tSTATUS\tCPU\tMEMORY\tSTORAGE\tCREATED")
	for _, e := range entries {
		v := e.VPS
		_, _ = fmt.Fprintf(tw, "%s#%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Owner, e.Index,
			v.ContainerName,
			v.Plan,
			v.Status,
			v.CPU,
			FormatMemory(v.RAM),
			v.Storage,
			FormatTime(v.CreatedAt),
		)
	}
	tw.Flush() //nolint:errcheck,gosec
}

// FormatMemory renders a stored size ("8GB") in binary units, or returns it
// unchanged when it cannot be parsed.
func FormatMemory(s string) string {
	mb, err := types.SizeMB(s)
	if err != nil {
		return s
	}
	return units.BytesSize(float64(mb << 20)) //nolint:mnd
}

func FormatTime(t types.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// Confirm asks a yes/no question on the terminal. It refuses when stdin is
// not a terminal so scripted runs never block.
func Confirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal, pass --yes to confirm")
	}
	return confirmFrom(os.Stdin, os.Stderr, prompt)
}

func confirmFrom(in io.Reader, out io.Writer, prompt string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
