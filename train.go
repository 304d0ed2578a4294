package main

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sead/sqlassist/pkg/knowledgebase"
	"github.com/sead/sqlassist/pkg/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Clear the training store and repopulate it from SEAD",
	Long: `Train removes every stored training record, then adds the SEAD schema plan, the DDL
files, the documentation and the example question/SQL pairs, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src, err := knowledgebase.Sources(cfg.DDLDir)
		if err != nil {
			return err
		}
		a, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		spinner := startSpinner("Training")
		sum, err := training.New(a.Store, a.Assistant).Run(ctx, a.DB, src)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success("Training completed")

		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Removed", "Schema", "DDL", "Documentation", "Examples"},
			{itoa(sum.Removed), itoa(sum.Schema), itoa(sum.DDL), itoa(sum.Documentation), itoa(sum.Examples)},
		}).Render()
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record from the training store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		spinner := startSpinner("Clearing training data")
		n, err := training.New(a.Store, nil).Clear(ctx)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		spinner.Success("Removed " + itoa(n) + " records")
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the schema training plan without storing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := training.New(a.Store, nil).Plan(ctx, a.DB)
		if err != nil {
			return err
		}
		for _, item := range items {
			pterm.DefaultSection.Println(item.Group + " " + item.Name)
			pterm.DefaultBasicText.Println(item.Value)
		}
		pterm.Info.Printfln("%d plan items", len(items))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd, clearCmd, planCmd)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
