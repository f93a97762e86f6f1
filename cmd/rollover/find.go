package main

import (
	"github.com/arthur-debert/rollover/search"
	"github.com/arthur-debert/rollover/types"
	"github.com/spf13/cobra"
)

// findView is one search hit as reported by the find command
type findView struct {
	ID     string  `json:"id" yaml:"id"`
	Text   string  `json:"text" yaml:"text"`
	Status string  `json:"status,omitempty" yaml:"status,omitempty"`
	Match  string  `json:"match" yaml:"match"`
	Score  float64 `json:"score" yaml:"score"`
}

func (cli *CLI) newFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Search nodes by text",
		Long: `Search the tree for nodes whose text contains the query.

Results are ranked: exact matches first, then matches at the start of the
text, then anywhere else. Use the printed ids with exclude, include and show.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}

			opts := search.Options{Query: args[0], Highlight: true}
			opts.ExactMatch, _ = cmd.Flags().GetBool("exact")
			opts.CaseSensitive, _ = cmd.Flags().GetBool("case-sensitive")
			opts.MaxResults, _ = cmd.Flags().GetInt("limit")
			if excluded, _ := cmd.Flags().GetBool("excluded"); excluded {
				opts.Filter.Markers = []types.Marker{types.MarkerDoNotRollover}
			}
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				s := types.ParseTaskStatus(status)
				if s == types.NotATask {
					return NewValidationError("find nodes", "status", status,
						"Use 'unfinished' or 'finished'")
				}
				opts.Filter.Statuses = []types.TaskStatus{s}
			}

			results, err := search.NewEngine(h.tree).Search(cmd.Context(), opts)
			if err != nil {
				return WrapError("find nodes", err, CommonSuggestions.CheckTree)
			}
			cli.logger.Debug("search finished", "query", opts.Query, "results", len(results))

			views := make([]findView, len(results))
			for i, r := range results {
				views[i] = findView{
					ID:    string(r.Node.ID),
					Text:  r.Node.Text,
					Match: string(r.MatchType),
					Score: r.Score,
				}
				if r.Node.IsTask() {
					views[i].Status = r.Node.Status.String()
				}
			}

			return render(cmd, "find nodes", views, func(p *printer) {
				if len(results) == 0 {
					p.line("No nodes match %q.", opts.Query)
					return
				}
				for _, r := range results {
					p.field(string(r.Node.ID), r.Highlighted)
				}
				p.line("")
				p.line("%d found", len(results))
			})
		},
	}
	addFormatFlag(cmd, formatText)
	cmd.Flags().Bool("exact", false, "Match the whole node text")
	cmd.Flags().Bool("case-sensitive", false, "Match case")
	cmd.Flags().String("status", "", "Only checklist items with this status (unfinished|finished)")
	cmd.Flags().Bool("excluded", false, "Only nodes excluded from rollover")
	cmd.Flags().Int("limit", 0, "Maximum number of results (0 for all)")
	return cmd
}
