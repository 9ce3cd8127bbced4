package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BTreeMap/FarmGenius/internal/genai"
	"github.com/BTreeMap/FarmGenius/internal/presentation"
	"github.com/BTreeMap/FarmGenius/internal/responder"
	"github.com/spf13/cobra"
)

const askTimeout = 30 * time.Second

func newAskCmd(config *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Print the assistant's reply to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := buildResponder(*config)
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			reply := resp.Respond(question)
			text := reply.Text
			if reply.Category == responder.FallbackCategory && config.OpenAIKey != "" {
				client, err := genai.NewClient(buildGenAIOptions(*config)...)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
				defer cancel()
				if answer, err := client.Answer(ctx, question); err == nil && answer != "" {
					text = answer
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] %s\n", reply.Category, text)
			for _, s := range reply.Suggestions {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&config.RulesFile, "rules-file", config.RulesFile, "YAML chat rules (overrides $FARMGENIUS_RULES_FILE)")
	cmd.Flags().StringVar(&config.OpenAIKey, "openai-api-key", config.OpenAIKey, "OpenAI API key for unmatched questions (overrides $OPENAI_API_KEY)")
	return cmd
}

func newLanguagesCmd() *cobra.Command {
	var codes []string
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages offered by the language picker",
		RunE: func(cmd *cobra.Command, args []string) error {
			langs, err := presentation.ParseCodes(codes)
			if err != nil {
				return err
			}
			reg := presentation.NewRegistry(langs...)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tLABEL\tDIRECTION")
			for _, l := range reg.Languages() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Code, l.Name, l.Label, l.Direction)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&codes, "languages", nil, "language codes to list, default first")
	return cmd
}
