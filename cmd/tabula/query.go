package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/tabula/internal/config"
	"github.com/harunnryd/tabula/internal/dispatch"
	tabulaErrors "github.com/harunnryd/tabula/internal/errors"
	"github.com/harunnryd/tabula/internal/logger"
	"github.com/harunnryd/tabula/internal/output"

	"github.com/oklog/ulid/v2"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <command line>",
	Short: "Run a slash command locally",
	Long: `Runs a slash command line such as '/abbrev "api gateway"' against the configured sheets
and prints the rendered answer. The token defaults to the command's own configured token.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		outputFlag, _ := cmd.Flags().GetString("output")
		format, err := output.ParseFormat(outputFlag)
		if err != nil {
			return err
		}
		formatter, err := output.NewFactory().Create(format)
		if err != nil {
			return err
		}

		command, text, err := splitCommandLine(strings.Join(args, " "))
		if err != nil {
			return err
		}

		ctx := logger.WithRequestID(commandContext(cmd), ulid.Make().String())
		snap, err := buildSnapshot(ctx, loaded)
		if err != nil {
			return err
		}

		token, _ := cmd.Flags().GetString("token")
		if !cmd.Flags().Changed("token") {
			token = configuredToken(snap.Definition, command)
		}

		resp, err := snap.Dispatcher.Handle(ctx, dispatch.Parameters{
			"command": command,
			"token":   token,
			"text":    text,
		})
		if err != nil {
			if tabulaErrors.IsUserFacing(err) {
				return fmt.Errorf("%s", tabulaErrors.UserMessage(err))
			}
			return err
		}

		webhook, err := webhookURL(cmd, loaded)
		if err != nil {
			return err
		}
		if webhook != "" {
			if err := postWebhook(ctx, webhook, resp); err != nil {
				return err
			}
			slog.Info("Answer posted to Slack webhook", "command", dispatch.NormalizeCommand(command))
		}

		msg := resp.Message()
		out, err := formatter.FormatAnswer(output.Answer{
			Command: dispatch.NormalizeCommand(command),
			Term:    dispatch.NormalizeValue(text),
			Title:   msg.Title(),
			Lines:   msg.Lines(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// configuredToken returns the token the definition expects for command, so a
// local run passes the authorization check by default.
func configuredToken(def *config.Definition, command string) string {
	if def == nil {
		return ""
	}
	return def.Commands[dispatch.NormalizeCommand(command)].SlackToken
}

// webhookURL is empty unless --webhook is set; --webhook-url overrides
// slack.webhook_url.
func webhookURL(cmd *cobra.Command, loaded *config.Config) (string, error) {
	if post, _ := cmd.Flags().GetBool("webhook"); !post {
		return "", nil
	}
	url, _ := cmd.Flags().GetString("webhook-url")
	if strings.TrimSpace(url) == "" && loaded != nil {
		url = loaded.Slack.WebhookURL
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "", tabulaErrors.Validation("--webhook needs --webhook-url or slack.webhook_url")
	}
	return url, nil
}

func postWebhook(ctx context.Context, url string, resp *dispatch.Response) error {
	msg := &slack.WebhookMessage{
		ResponseType: resp.ResponseType,
		Attachments:  resp.Message().SlackAttachments(),
	}
	if err := slack.PostWebhookContext(ctx, url, msg); err != nil {
		return tabulaErrors.Transient(fmt.Sprintf("post to slack webhook: %v", err))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().String("token", "", "token to present (default: the command's configured token)")
	queryCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	queryCmd.Flags().Bool("webhook", false, "also post the answer to a Slack incoming webhook")
	queryCmd.Flags().String("webhook-url", "", "incoming webhook URL (default: slack.webhook_url)")
}
