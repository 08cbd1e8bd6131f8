package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/ocrmux/ocrmux/pkg/router"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the scored ranking of the cloud vision models",
	RunE:  runModels,
}

var (
	modelsHandwriting bool
	modelsTables      bool
)

func init() {
	RootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsHandwriting, "handwriting", false, "Score for a document containing handwriting")
	modelsCmd.Flags().BoolVar(&modelsTables, "tables", false, "Score for a document containing tables")
}

func runModels(cmd *cobra.Command, args []string) error {
	config, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}

	selector := router.NewSelector(config.Router.Models, config.Router.Weights)
	ranked := selector.Rank(router.Requirements{
		Handwriting: modelsHandwriting,
		Tables:      modelsTables,
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tMODEL\tPROVIDER\tSCORE")
	for i, scored := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\n", i+1, scored.Model.Name, scored.Model.Provider, scored.Score)
	}
	return w.Flush()
}
