package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/rollover/config"
	"github.com/arthur-debert/rollover/formats"
	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/search"
	"github.com/arthur-debert/rollover/store"
	"github.com/arthur-debert/rollover/types"
	"github.com/spf13/cobra"
)

func (cli *CLI) newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Roll unfinished todos into today's document now",
		Long: `Run cleanup (portal mode only) and rollover immediately, ignoring the
automatic time-of-day gate, and record the run as the last automatic run.

With --dry-run only the discovery phase runs and the todos that would be
rolled over are listed, grouped by source day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}

			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				buckets, err := h.engine.Collect(cmd.Context())
				if err != nil {
					return WrapError("preview rollover", err, CommonSuggestions.CheckTree)
				}
				views := previewBuckets(buckets)
				return render(cmd, "preview rollover", views, func(p *printer) { printPreview(p, views) })
			}

			d, err := h.auto.Force(cmd.Context(), cli.now())
			if err != nil {
				return WrapError("run rollover", err, CommonSuggestions.CheckTree, CommonSuggestions.TryDryRun)
			}
			return render(cmd, "run rollover", d, func(p *printer) { printDecision(p, d) })
		},
	}
	cmd.Flags().Bool("dry-run", false, "List what would be rolled over without changing the tree")
	addFormatFlag(cmd, formatText)
	return cmd
}

func (cli *CLI) newAutoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Run rollover if the automatic run is due",
		Long: `Evaluate the automatic schedule once: rollover runs when the last recorded
run was on an earlier day and the configured auto-rollover time has passed.
The very first invocation only records a baseline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			d, err := h.auto.MaybeRun(cmd.Context(), cli.now())
			if err != nil {
				return WrapError("run automatic rollover", err, CommonSuggestions.CheckTree)
			}
			return render(cmd, "run automatic rollover", d, func(p *printer) { printDecision(p, d) })
		},
	}
	addFormatFlag(cmd, formatText)
	return cmd
}

func (cli *CLI) newBumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bump",
		Short: "Rewind the last automatic run by a day and re-evaluate the schedule",
		Long: `Move the recorded last automatic run back one day, then evaluate the
schedule as 'auto' does. Rollover runs again today if the configured
auto-rollover time has passed; otherwise the next due tick runs it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			now := cli.now()
			if err := h.auto.Bump(cmd.Context(), now); err != nil {
				return WrapError("bump automatic rollover", err, CommonSuggestions.CheckPerms)
			}
			d, err := h.auto.MaybeRun(cmd.Context(), now)
			if err != nil {
				return WrapError("bump automatic rollover", err, CommonSuggestions.CheckTree)
			}
			return render(cmd, "bump automatic rollover", d, func(p *printer) { printDecision(p, d) })
		},
	}
	addFormatFlag(cmd, formatText)
	return cmd
}

func (cli *CLI) newCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove rolled mirrors left outside today's document",
		Long: `Remove every node the engine created that no longer sits inside today's
daily document. Only runs in portal mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			res, err := h.engine.Cleanup(cmd.Context())
			if err != nil {
				return WrapError("clean up", err, CommonSuggestions.CheckTree)
			}
			return render(cmd, "clean up", res, func(p *printer) { printCleanup(p, res) })
		},
	}
	addFormatFlag(cmd, formatText)
	return cmd
}

func (cli *CLI) newExcludeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclude <node>",
		Short: "Exclude a node and its subtree from rollover",
		Long: `Tag a node with doNotRollover. Its todos, and those of every descendant,
stay where they are. The node may be given by id or by its exact text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			id, err := resolveRef(cmd.Context(), h.tree, "exclude node", args[0])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			if err := rollover.Exclude(cmd.Context(), h.tree, id, reason); err != nil {
				return WrapError("exclude node", err, CommonSuggestions.CheckRef)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Excluded %s from rollover\n", id)
			return err
		},
	}
	cmd.Flags().String("reason", "", "Why the node is excluded (stored on the marker)")
	return cmd
}

func (cli *CLI) newIncludeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "include <node>",
		Short: "Undo exclude for a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			id, err := resolveRef(cmd.Context(), h.tree, "include node", args[0])
			if err != nil {
				return err
			}
			if err := rollover.Include(cmd.Context(), h.tree, id); err != nil {
				return WrapError("include node", err, CommonSuggestions.CheckRef)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Included %s in rollover\n", id)
			return err
		},
	}
}

func (cli *CLI) newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [node]",
		Short: "Print a node and its subtree",
		Long: `Print the outline below a node. The node may be given by id, by exact
text, or as 'today' (the default).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}
			ref := "today"
			if len(args) == 1 {
				ref = args[0]
			}
			id, err := resolveRef(cmd.Context(), h.tree, "show node", ref)
			if err != nil {
				return err
			}
			outline, err := formats.BuildOutline(cmd.Context(), h.tree, id)
			if err != nil {
				return WrapError("show node", err, CommonSuggestions.CheckRef)
			}

			name, _ := cmd.Flags().GetString("format")
			if err := formats.RenderOutline(cmd.OutOrStdout(), outline, name); err != nil {
				if _, lookupErr := formats.Get(name); lookupErr != nil {
					return NewFormatError("show node", name, formats.List())
				}
				return WrapError("show node", err)
			}
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "plaintext", "Output format: "+strings.Join(formats.List(), "|"))
	return cmd
}

func (cli *CLI) newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <outline.yaml|->",
		Short: "Add nodes from a YAML outline",
		Long: `Add the nodes described by a YAML outline to the tree. Entries with a
'daily' key become daily documents ("today", "-3" or "2006-01-02").

Example outline:
  - daily: "-1"
    children:
      - text: Project
        children:
          - text: write report
            todo: unfinished
  - daily: today`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.openHost(cmd)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return NewStoreError("import outline", err, CommonSuggestions.CheckPerms)
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			outline, err := store.ParseOutline(in)
			if err != nil {
				return NewValidationError("import outline", "outline", args[0], err.Error())
			}

			var parent types.NodeID
			if under, _ := cmd.Flags().GetString("under"); under != "" {
				if parent, err = resolveRef(cmd.Context(), h.tree, "import outline", under); err != nil {
					return err
				}
			}
			ids, err := h.tree.Import(cmd.Context(), parent, outline)
			if err != nil {
				return WrapError("import outline", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d top-level nodes into %s\n", len(ids), h.treePath)
			return err
		},
	}
	cmd.Flags().String("under", "", "Import below this node instead of at the top level")
	return cmd
}

// configView is what 'rollover config' prints
type configView struct {
	ConfigFile string         `json:"config_file,omitempty" yaml:"config_file,omitempty"`
	Tree       string         `json:"tree" yaml:"tree"`
	State      string         `json:"state" yaml:"state"`
	LogLevel   string         `json:"log_level" yaml:"log_level"`
	Settings   types.Settings `json:"settings" yaml:"settings"`
}

func (cli *CLI) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := cli.source.Settings()
			if err != nil {
				return NewConfigError("show configuration", err)
			}
			view := configView{
				ConfigFile: cli.source.ConfigFileUsed(),
				Tree:       cli.source.String(config.KeyTree),
				State:      cli.source.String(config.KeyState),
				LogLevel:   cli.source.String(config.KeyLogLevel),
				Settings:   settings,
			}
			return render(cmd, "show configuration", view, func(p *printer) {
				file := view.ConfigFile
				if file == "" {
					file = "(none)"
				}
				p.field("config file", file)
				p.field("tree", view.Tree)
				p.field("state", view.State)
				p.field("log level", view.LogLevel)
				p.field(config.KeyAutoRollover, settings.AutoRolloverTime)
				p.field(config.KeyPortalMode, settings.PortalMode)
				p.field(config.KeyDateLimit, settings.DateLimit)
				p.field("retain", settings.RetainCompleted)
				p.field(config.KeyMoveOrder, settings.MoveOrder)
				p.field(config.KeyInterval, settings.Interval)
				p.field(config.KeyDebug, settings.Debug)
			})
		},
	}
	addFormatFlag(cmd, formatText)
	return cmd
}

// resolveRef finds a node by id, by exact text, or "today"
func resolveRef(ctx context.Context, tree *store.Tree, operation, ref string) (types.NodeID, error) {
	if ref == "today" {
		today, err := tree.Today(ctx)
		if err != nil {
			return "", WrapError(operation, err)
		}
		if today == nil {
			return "", &CLIError{
				Operation:   operation,
				Cause:       rollover.NoticeNoToday,
				Suggestions: []string{CommonSuggestions.CreateToday},
			}
		}
		return today.ID, nil
	}

	if _, err := tree.Resolve(ctx, types.NodeID(ref)); err == nil {
		return types.NodeID(ref), nil
	} else if !errors.Is(err, types.ErrNodeNotFound) {
		return "", WrapError(operation, err)
	}

	ids := tree.Find(ctx, ref)
	switch len(ids) {
	case 0:
		suggestions := []string{CommonSuggestions.CheckRef}
		if similar := similarNodes(ctx, tree, ref); similar != "" {
			suggestions = append([]string{"Did you mean: " + similar}, suggestions...)
		}
		return "", NewNotFoundError(operation, ref, suggestions...)
	case 1:
		return ids[0], nil
	default:
		matches := make([]string, len(ids))
		for i, id := range ids {
			matches[i] = string(id)
		}
		return "", &CLIError{
			Operation:   operation,
			Cause:       fmt.Sprintf("%d nodes are named %q", len(ids), ref),
			Suggestions: []string{fmt.Sprintf("Use one of the ids: %s", strings.Join(matches, ", "))},
		}
	}
}

// maxSuggestions bounds the "did you mean" list
const maxSuggestions = 3

// similarNodes lists nodes whose text contains ref, best first
func similarNodes(ctx context.Context, tree *store.Tree, ref string) string {
	results, err := search.NewEngine(tree).Search(ctx, search.Options{Query: ref, MaxResults: maxSuggestions})
	if err != nil || len(results) == 0 {
		return ""
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = fmt.Sprintf("%q (%s)", r.Node.Text, r.Node.ID)
	}
	return strings.Join(names, ", ")
}
