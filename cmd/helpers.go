package cmd

import (
	"bufio"
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// confirm reads a y/N answer from the command's input.
func confirm(cmd *cobra.Command) bool {
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// commandContext returns the context fang hands the command, or a background
// context when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
