package main

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sead/sqlassist/pkg/assistant"
	"github.com/sead/sqlassist/pkg/web"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask questions about SEAD from the terminal",
	Long: `Ask turns each question into SQL, runs it and prints the result. Without an argument it
starts an interactive session; an empty line ends it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) > 0 {
			answer(cmd, a.Assistant, strings.Join(args, " "))
			return nil
		}

		pterm.DefaultBasicText.Println("Welcome to the" + pterm.LightMagenta(" SEAD ") + "SQL assistant! What would you like to know?")
		for ctx.Err() == nil {
			question, err := pterm.DefaultInteractiveTextInput.
				WithDefaultText(">").
				WithDelimiter(" ").
				Show()
			if err != nil {
				return err
			}
			question = strings.TrimSpace(question)
			if question == "" || question == "exit" {
				return nil
			}
			answer(cmd, a.Assistant, question)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web front-end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return web.New(a.Assistant, a.Store, a.History).ListenAndServe(ctx, cfg.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(askCmd, serveCmd)
}

func answer(cmd *cobra.Command, svc *assistant.Service, question string) {
	spinner := startSpinner("Thinking")
	ans, err := svc.Ask(cmd.Context(), question)
	switch {
	case errors.Is(err, assistant.ErrNotSQL):
		spinner.Warning("No query generated")
		pterm.DefaultBasicText.Println(pterm.LightMagenta("SEAD: ") + ans.SQL)
		return
	case err != nil:
		spinner.Fail(err.Error())
		if ans != nil {
			pterm.DefaultBasicText.Println(ans.SQL)
		}
		log.Debug().Err(err).Str("question", question).Msg("Question failed")
		return
	}
	spinner.Success("Query returned " + itoa(len(ans.Result.Rows)) + " rows")

	pterm.DefaultBox.WithTitle("SQL").Println(ans.SQL)
	if len(ans.Result.Columns) == 0 {
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(ans.Result.Strings()).Render(); err != nil {
		log.Err(err).Msg("Failed to render result")
	}
}
