package cmd

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/notify"
	"github.com/manav03panchal/bikeguard/internal/validate"
)

// Webhook command flags.
var (
	webhookAddFlagType     string
	webhookAddFlagTemplate string
	webhookAddFlagChatID   string
	webhookRemoveFlagForce bool
	webhookTestFlagAll     bool
)

// webhookCmd manages the chat webhooks alerts are relayed to.
var webhookCmd = &cobra.Command{
	Use:     "webhook [command]",
	Aliases: []string{"w", "wh", "hook"},
	Short:   "Configure relay webhooks",
	Long: `Configure webhooks for Discord, Slack, Teams, Telegram, or custom endpoints.

Emergency alerts are always relayed to enabled webhooks. Other types can be
turned off with 'bikeguard config set notify.<type> disabled'.

Examples:
  bikeguard webhook add family https://discord.com/api/webhooks/...
  bikeguard webhook add team https://hooks.slack.com/services/...
  bikeguard webhook add phone https://api.telegram.org/bot<token> --chat-id 12345
  bikeguard webhook list
  bikeguard webhook test family
  bikeguard webhook disable team
  bikeguard webhook remove family`,
	RunE: runWebhookList,
}

var webhookAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Add a new webhook",
	Long: `Add a webhook that receives BikeGuard notifications.

The webhook type is auto-detected from the URL:
  - Discord:  discord.com/api/webhooks/...
  - Slack:    hooks.slack.com/services/...
  - Teams:    outlook.office.com/webhook/...
  - Telegram: api.telegram.org/bot<token> (requires --chat-id)
  - Generic:  Any other URL

Examples:
  bikeguard webhook add discord https://discord.com/api/webhooks/123/abc
  bikeguard webhook add my-webhook https://example.com/hook --type generic`,
	Args: cobra.ExactArgs(2),
	RunE: runWebhookAdd,
}

var webhookListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all webhooks",
	RunE:    runWebhookList,
}

var webhookTestCmd = &cobra.Command{
	Use:   "test [NAME]",
	Short: "Test a webhook by sending a test notification",
	Long: `Send a test notification to verify webhook configuration.

Examples:
  bikeguard webhook test family
  bikeguard webhook test --all`,
	RunE: runWebhookTest,
}

var webhookRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a webhook",
	Args:    cobra.ExactArgs(1),
	RunE:    runWebhookRemove,
}

var webhookEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Enable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setWebhookEnabled(args[0], true)
	},
}

var webhookDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Disable a webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setWebhookEnabled(args[0], false)
	},
}

func init() {
	webhookAddCmd.Flags().StringVarP(&webhookAddFlagType, "type", "t", "",
		"Webhook type: discord, slack, teams, telegram, generic (auto-detected from URL if not specified)")
	webhookAddCmd.Flags().StringVar(&webhookAddFlagTemplate, "template", "",
		"Custom payload template for generic webhooks")
	webhookAddCmd.Flags().StringVar(&webhookAddFlagChatID, "chat-id", "",
		"Telegram chat ID")

	webhookRemoveCmd.Flags().BoolVar(&webhookRemoveFlagForce, "force", false,
		"Skip confirmation")

	webhookTestCmd.Flags().BoolVarP(&webhookTestFlagAll, "all", "a", false,
		"Test all enabled webhooks")

	webhookTestCmd.ValidArgsFunction = completeWebhookArgs
	webhookRemoveCmd.ValidArgsFunction = completeWebhookArgs
	webhookEnableCmd.ValidArgsFunction = completeWebhookArgs
	webhookDisableCmd.ValidArgsFunction = completeWebhookArgs

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookTestCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	webhookCmd.AddCommand(webhookEnableCmd)
	webhookCmd.AddCommand(webhookDisableCmd)

	rootCmd.AddCommand(webhookCmd)
}

// completeWebhookArgs completes webhook names, with the type as description.
func completeWebhookArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := openRuntime(cmd); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer closeRuntime()

	webhooks, err := ctx.Webhooks.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, wh := range webhooks {
		if strings.HasPrefix(wh.Name, toComplete) {
			names = append(names, wh.Name+"\t"+wh.Type)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	name, rawURL := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if err := validate.WebhookName(name); err != nil {
		return err
	}
	if err := validate.URL(rawURL); err != nil {
		return err
	}

	kind := cmp.Or(webhookAddFlagType, model.DetectWebhookType(rawURL))
	if err := validate.WebhookType(kind); err != nil {
		return err
	}
	if kind == model.WebhookTypeTelegram && webhookAddFlagChatID == "" {
		return errors.NewUserErrorWithField("chat-id", "", "Telegram webhooks need a chat ID",
			"Pass --chat-id with the chat that should receive alerts")
	}

	if taken, err := ctx.Webhooks.Exists(name); err != nil {
		return err
	} else if taken {
		return errors.NewUserErrorWithField("name", name,
			fmt.Sprintf("webhook %q already exists", name),
			"Remove it first with 'bikeguard webhook remove "+name+"'")
	}

	wh := model.NewWebhook(name, kind, rawURL)
	wh.Template = webhookAddFlagTemplate
	wh.ChatID = webhookAddFlagChatID
	if err := ctx.Webhooks.Create(wh); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintWebhooks([]*model.Webhook{wh})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Added %s webhook %s (%s)", wh.Type, name, wh.MaskedURL()))
	ctx.Formatter.Printf("Send a test message with: bikeguard webhook test %s\n", name)
	return nil
}

func runWebhookList(cmd *cobra.Command, args []string) error {
	webhooks, err := ctx.Webhooks.List()
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintWebhooks(webhooks)
	}
	ctx.CLIFormatter().PrintWebhooks(webhooks)
	return nil
}

// webhookTestResult is the JSON shape of one test delivery.
type webhookTestResult struct {
	Webhook    string `json:"webhook"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// runWebhookTest sends a test notification to one webhook, or to every
// enabled one with --all. Test sends bypass the notify.test preference.
func runWebhookTest(cmd *cobra.Command, args []string) error {
	names, err := webhookTestTargets(args)
	if err != nil {
		return err
	}

	hc := ctx.Config.HTTP
	dispatcher := notify.NewDispatcher(ctx.Webhooks, ctx.NotifyConfig).
		WithClient(notify.NewHTTPClientWith(hc.Timeout, hc.RetryDelays))

	// Each target gets its own timeout plus the retry schedule.
	budget := hc.Timeout
	for _, d := range hc.RetryDelays {
		budget += d + hc.Timeout
	}
	c, cancel := context.WithTimeout(commandContext(cmd), budget*time.Duration(len(names)))
	defer cancel()

	results := make([]webhookTestResult, 0, len(names))
	failed := 0
	for _, name := range names {
		if !ctx.IsJSON() {
			ctx.CLIFormatter().Muted(fmt.Sprintf("Sending test notification to %s...", name))
		}
		r := dispatcher.TestWebhook(c, name)
		if !r.Success {
			failed++
		}
		results = append(results, webhookTestResult{
			Webhook:    r.WebhookName,
			Success:    r.Success,
			StatusCode: r.StatusCode,
			DurationMS: r.Duration.Milliseconds(),
			Error:      errorString(r.Error),
		})
		if !ctx.IsJSON() {
			printTestResult(r)
		}
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"results": results, "failed": failed})
	}
	if failed > 0 {
		ctx.CLIFormatter().Warning("Check the webhook URL, or whether the service is reachable.")
	}
	return nil
}

func webhookTestTargets(args []string) ([]string, error) {
	if !webhookTestFlagAll {
		if len(args) == 0 {
			return nil, errors.NewUserError("webhook name required", "Name a webhook or use --all")
		}
		return args[:1], nil
	}

	webhooks, err := ctx.Webhooks.ListEnabled()
	if err != nil {
		return nil, err
	}
	if len(webhooks) == 0 {
		return nil, errors.NewUserError("no enabled webhooks to test",
			"Add one with 'bikeguard webhook add <name> <url>'")
	}
	names := make([]string, len(webhooks))
	for i, wh := range webhooks {
		names[i] = wh.Name
	}
	return names, nil
}

func printTestResult(r notify.DispatchResult) {
	cli := ctx.CLIFormatter()
	if r.Success {
		cli.Success(fmt.Sprintf("%s: delivered in %dms", r.WebhookName, r.Duration.Milliseconds()))
		return
	}
	cli.Error(fmt.Sprintf("%s: %s", r.WebhookName, errorString(r.Error)))
}

func runWebhookRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	wh, err := ctx.Webhooks.Get(name)
	if err != nil {
		return err
	}

	if !webhookRemoveFlagForce && !ctx.IsJSON() {
		ctx.Formatter.Printf("Remove %s webhook %q? [y/N] ", wh.Type, name)
		if !confirm(cmd) {
			ctx.Formatter.Println("Cancelled.")
			return nil
		}
	}
	if err := ctx.Webhooks.Delete(name); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"status": "removed", "webhook": name})
	}
	ctx.CLIFormatter().Success("Removed webhook " + name)
	return nil
}

func setWebhookEnabled(name string, enabled bool) error {
	if err := ctx.Webhooks.SetEnabled(name, enabled); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{"status": enabledString(enabled), "webhook": name})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Webhook %s %s", name, enabledString(enabled)))
	return nil
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
