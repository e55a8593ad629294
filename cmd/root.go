package cmd

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdaccount "github.com/projecteru2/vpsbot/cmd/account"
	cmdcore "github.com/projecteru2/vpsbot/cmd/core"
	cmdothers "github.com/projecteru2/vpsbot/cmd/others"
	cmdpolicy "github.com/projecteru2/vpsbot/cmd/policy"
	cmdvps "github.com/projecteru2/vpsbot/cmd/vps"
	"github.com/projecteru2/vpsbot/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vpsbot",
		Short:         "vpsbot - LXC VPS lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(commandContext(cmd))
		},
	}

	def := config.DefaultConfig()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", def.RootDir, "root data directory")
	cmd.PersistentFlags().String("lxc-binary", def.LXCBinary, "container management CLI")
	cmd.PersistentFlags().String("main-admin", "", "main administrator user id")
	cmd.PersistentFlags().String("as", "", "user id to act as (default: main admin)")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("lxc_binary", cmd.PersistentFlags().Lookup("lxc-binary"))
	_ = viper.BindPFlag("main_admin", cmd.PersistentFlags().Lookup("main-admin"))
	_ = viper.BindPFlag("as", cmd.PersistentFlags().Lookup("as"))

	viper.SetEnvPrefix("VPSBOT")
	viper.AutomaticEnv()

	base := cmdcore.BaseHandler{
		ConfProvider:  func() *config.Config { return conf },
		ActorProvider: func() string { return viper.GetString("as") },
	}

	cmd.AddCommand(cmdvps.Command(cmdvps.Handler{BaseHandler: base}))
	cmd.AddCommand(cmdaccount.Command(cmdaccount.Handler{BaseHandler: base}))
	for _, c := range cmdpolicy.Commands(cmdpolicy.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}
	for _, c := range cmdothers.Commands(cmdothers.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
