package cli

import (
	"transferbook/internal/config"
	"transferbook/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string
	offline bool

	env config.Env
	log *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "transferbook",
		Short:         "Airport transfer booking wizard",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			env, err = config.Load(envFile)
			if err != nil {
				return err
			}
			log, err = utils.NewLogger(env.LogLevel)
			if err != nil {
				return err
			}
			utils.SetLogger(log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to read (default .env)")
	root.PersistentFlags().BoolVar(&offline, "offline", false, "price and book locally instead of calling BACKEND_URL")

	root.AddCommand(serveCmd(), quoteCmd())
	return root.Execute()
}
