package main

import (
	"os"

	"github.com/aretw0/framesync/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Open a page interactively",
	Long: `Opens the host page at url (default http://localhost/) with the mini-app
embedded, and reads commands such as "click Go to foo", "back" or "hash #!/foo".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		url := "http://localhost/"
		if len(args) > 0 {
			url = args[0]
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		style, _ := cmd.Flags().GetString("style")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Execute(sigCtx, cli.RunOptions{
			URL:           url,
			Manifest:      cfg.App.Manifest,
			Debug:         cfg.Log.Debug,
			JSON:          jsonMode,
			SessionID:     sessionID,
			Fresh:         fresh,
			RedisURL:      cfg.Redis.URL,
			EncryptionKey: cfg.Redis.EncryptionKey,
			Style:         style,
			ReadyTimeout:  cfg.Host.ReadyTimeout,
			In:            os.Stdin,
			Out:           cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Print a JSON snapshot after every command")
	runCmd.Flags().StringP("session", "s", "", "Session ID; with redis.url set the history survives restarts")
	runCmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	runCmd.Flags().String("style", "", "Markdown style: auto, dark, light, ascii, notty")
	runCmd.Flags().String("redis", "", "Redis URL for session persistence")
	mustBind(settings, "redis.url", runCmd.Flags().Lookup("redis"))
}
