package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/errors"
)

// contactRemoveFlagForce skips the confirmation prompt.
var contactRemoveFlagForce bool

// contactCmd represents the contact command.
var contactCmd = &cobra.Command{
	Use:     "contact [command]",
	Aliases: []string{"contacts", "c"},
	Short:   "Manage emergency contacts",
	Long: `Manage the people who are messaged when an emergency alert is sent.

Examples:
  bikeguard contact add "Sam Rider" "+1 555 0100"
  bikeguard contact list
  bikeguard contact remove 1767225600000`,
	RunE: runContactList,
}

var contactAddCmd = &cobra.Command{
	Use:   "add NAME PHONE",
	Short: "Add an emergency contact",
	Long: `Add an emergency contact. Phone numbers may contain digits, spaces,
'+', '-', '.', '(' and ')', with at most 15 digits.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runContactAdd,
}

var contactListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List emergency contacts",
	RunE:    runContactList,
}

var contactRemoveCmd = &cobra.Command{
	Use:     "remove ID",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove an emergency contact",
	Args:    cobra.ExactArgs(1),
	RunE:    runContactRemove,
}

func init() {
	contactRemoveCmd.Flags().BoolVar(&contactRemoveFlagForce, "force", false,
		"Skip confirmation")
	contactRemoveCmd.ValidArgsFunction = completeContactArgs

	contactCmd.AddCommand(contactAddCmd)
	contactCmd.AddCommand(contactListCmd)
	contactCmd.AddCommand(contactRemoveCmd)

	rootCmd.AddCommand(contactCmd)
}

// runContactAdd handles the contact add command. Missing arguments are
// treated like empty form fields.
func runContactAdd(cmd *cobra.Command, args []string) error {
	var name, phone string
	if len(args) > 0 {
		name = args[0]
	}
	if len(args) > 1 {
		phone = args[1]
	}

	contact, err := ctx.Profiles.AddContact(strings.TrimSpace(name), strings.TrimSpace(phone))
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(contact)
	}
	ctx.CLIFormatter().PrintContactAdded(contact)
	return nil
}

// runContactList handles the contact list command.
func runContactList(cmd *cobra.Command, args []string) error {
	contacts, err := ctx.Profiles.Contacts()
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintContacts(contacts)
	}
	ctx.CLIFormatter().PrintContacts(contacts)
	return nil
}

// runContactRemove handles the contact remove command.
func runContactRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.NewUserErrorWithField("id", args[0], "Invalid contact ID",
			"Use 'bikeguard contact list' to see contact IDs").WithCause(errors.ErrContactNotFound)
	}

	profile, err := ctx.Profiles.Get()
	if err != nil {
		return err
	}
	contact, ok := profile.FindContact(id)
	if !ok {
		return errors.ErrContactNotFound
	}

	if !contactRemoveFlagForce && !ctx.IsJSON() {
		ctx.Formatter.Printf("Remove %s (%s)? [y/N] ", contact.Name, contact.Phone)
		if !confirm(cmd) {
			ctx.Formatter.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Profiles.DeleteContact(id); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.PrintJSON(map[string]any{
			"status":  "removed",
			"contact": contact,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Removed %s", contact.Name))
	return nil
}

// completeContactArgs completes contact IDs, showing names as descriptions.
func completeContactArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := openRuntime(cmd); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer closeRuntime()

	contacts, err := ctx.Profiles.Contacts()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var ids []string
	for _, c := range contacts {
		id := strconv.FormatInt(c.ID, 10)
		if strings.HasPrefix(id, toComplete) {
			ids = append(ids, id+"\t"+c.Name)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
