package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/aretw0/framesync/internal/cli"
	"github.com/aretw0/framesync/internal/presentation/graph"
	"github.com/aretw0/framesync/pkg/domain"
	"github.com/spf13/cobra"
)

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the mini-app's routes",
	Long:  `Loads the mini-app and lists its routes and links, or outputs a Mermaid diagram (graph TD) of the route graph.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := cli.LoadApp(cfg.App.Manifest)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(out, graph.GenerateMermaid(app.Views(), nil))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROUTE\tHASH\tTITLE\tLINKS")
		for _, v := range app.Views() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", v.Route, domain.FormatHash(v.Route), v.Title, len(v.Links))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().Bool("mermaid", false, "Output a Mermaid flowchart instead of a table")
}
