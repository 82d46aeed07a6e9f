package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/bikeguard/internal/model"
	"github.com/manav03panchal/bikeguard/internal/parser"
)

// Incidents command flags.
var (
	incidentsFlagSince string
	incidentsFlagLimit int
	incidentsFlagKind  string
)

// incidentsCmd lists recorded impacts and their outcomes.
var incidentsCmd = &cobra.Command{
	Use:     "incidents",
	Aliases: []string{"incident", "history", "i"},
	Short:   "Show detected impacts and their outcomes",
	Long: `Show the incident history, newest first.

--since accepts natural dates such as "yesterday", "last week",
"3 days ago" or an RFC 3339 timestamp.

Examples:
  bikeguard incidents
  bikeguard incidents --since yesterday
  bikeguard incidents --since "last month" --kind impact`,
	Args: cobra.NoArgs,
	RunE: runIncidents,
}

func init() {
	incidentsCmd.Flags().StringVar(&incidentsFlagSince, "since", "",
		"Only show incidents detected after this time")
	incidentsCmd.Flags().IntVarP(&incidentsFlagLimit, "limit", "n", 0,
		"Show at most this many incidents")
	incidentsCmd.Flags().StringVar(&incidentsFlagKind, "kind", "",
		"Only show impact or test incidents")

	rootCmd.AddCommand(incidentsCmd)
}

func runIncidents(cmd *cobra.Command, args []string) error {
	var (
		incidents []*model.Incident
		err       error
	)
	if incidentsFlagSince != "" {
		since, perr := parser.ParseSince(incidentsFlagSince, time.Now())
		if perr != nil {
			return perr
		}
		ctx.Debugf("incidents since %s", since.Format(time.RFC3339))
		incidents, err = ctx.Incidents.ListSince(since)
	} else {
		incidents, err = ctx.Incidents.List()
	}
	if err != nil {
		return err
	}

	incidents = filterIncidents(incidents, model.IncidentKind(incidentsFlagKind), incidentsFlagLimit)

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintIncidents(incidents)
	}
	ctx.CLIFormatter().PrintIncidents(incidents)
	return nil
}

// filterIncidents keeps incidents of kind (all when empty), up to limit
// (unlimited when zero or less).
func filterIncidents(incidents []*model.Incident, kind model.IncidentKind, limit int) []*model.Incident {
	out := make([]*model.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if kind != "" && inc.Kind != kind {
			continue
		}
		out = append(out, inc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
