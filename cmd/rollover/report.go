package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/rollover/formats"
	"github.com/arthur-debert/rollover/rollover"
	"github.com/arthur-debert/rollover/schedule"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// formatText is the human summary; every other name comes from the formats registry
const formatText = "text"

// addFormatFlag adds the --format flag used by report commands
func addFormatFlag(cmd *cobra.Command, def string) {
	cmd.Flags().StringP("format", "f", def, "Output format: "+strings.Join(append([]string{formatText}, valueFormats()...), "|"))
}

// valueFormats lists registered formats that can write reports
func valueFormats() []string {
	var names []string
	for _, name := range formats.List() {
		if f, err := formats.Get(name); err == nil && f.Value != nil {
			names = append(names, name)
		}
	}
	return names
}

// render writes v in the format selected on cmd. text writes the human form.
func render(cmd *cobra.Command, operation string, v any, text func(p *printer)) error {
	name, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	if name == formatText {
		p := newPrinter(out)
		text(p)
		return p.err
	}

	f, err := formats.Get(name)
	if err != nil || f.Value == nil {
		return NewFormatError(operation, name, append([]string{formatText}, valueFormats()...))
	}
	return f.Value(out, v)
}

// printer writes aligned "label: value" lines. Styling only applies when
// the writer is a color terminal.
type printer struct {
	w     io.Writer
	label lipgloss.Style
	head  lipgloss.Style
	warn  lipgloss.Style
	err   error
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		label: r.NewStyle().Faint(true).Width(12),
		head:  r.NewStyle().Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) heading(text string) {
	p.line("%s", p.head.Render(text))
}

func (p *printer) field(label string, value any) {
	p.line("%s %v", p.label.Render(label+":"), value)
}

func (p *printer) warning(text string) {
	p.line("%s", p.warn.Render(text))
}

func printResult(p *printer, res *rollover.Result) {
	if res == nil {
		return
	}
	p.heading(fmt.Sprintf("Rollover (%s mode)", res.Mode))
	if res.Aborted != rollover.AbortNone {
		p.warning(fmt.Sprintf("aborted: %s", res.Aborted))
		return
	}
	p.field("buckets", fmt.Sprintf("%d (%d placed)", len(res.Buckets), res.Placed()))
	p.field("unfinished", res.Unfinished)
	p.field("completed", res.Completed)
	p.field("created", res.Created)
	p.field("relocated", res.Relocated)
	p.field("linked", res.Linked)
	if res.Anchored > 0 {
		p.field("anchored", res.Anchored)
	}
	for _, s := range res.Skipped {
		p.warning(fmt.Sprintf("skipped %s: %s", bucketLabel(s.Bucket), s.Reason))
	}
}

func printCleanup(p *printer, res *rollover.CleanupResult) {
	if res == nil {
		return
	}
	p.heading("Cleanup")
	if res.Aborted != rollover.AbortNone {
		p.warning(fmt.Sprintf("aborted: %s", res.Aborted))
		return
	}
	p.field("scanned", res.Scanned)
	p.field("removed", res.Removed)
}

func printDecision(p *printer, d *schedule.Decision) {
	p.heading("Automatic rollover")
	p.field("reason", d.Reason)
	p.field("now", d.Now.Format(time.RFC3339))
	if d.HasLastRun {
		p.field("last run", d.LastRun.Format(time.RFC3339))
	} else {
		p.field("last run", "never")
	}
	p.field("target", d.Target)
	p.field("ran", d.Ran)
	if d.Cleanup != nil {
		p.line("")
		printCleanup(p, d.Cleanup)
	}
	if d.Result != nil {
		p.line("")
		printResult(p, d.Result)
	}
}

// bucketView is the dry-run form of one bucket
type bucketView struct {
	Bucket string     `json:"bucket" yaml:"bucket"`
	Day    string     `json:"day,omitempty" yaml:"day,omitempty"`
	Todos  []todoView `json:"todos" yaml:"todos"`
}

type todoView struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Parent    string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Completed bool   `json:"completed,omitempty" yaml:"completed,omitempty"`
}

func previewBuckets(b *rollover.Buckets) []bucketView {
	views := make([]bucketView, 0, b.Len())
	for _, key := range b.Keys() {
		v := bucketView{Bucket: key, Day: bucketDay(key), Todos: []todoView{}}
		for _, m := range b.Get(key) {
			t := todoView{ID: string(m.Node.ID), Text: m.Node.Text, Completed: m.Completed}
			if m.Parent != nil {
				t.Parent = m.Parent.Text
			}
			v.Todos = append(v.Todos, t)
		}
		views = append(views, v)
	}
	return views
}

func printPreview(p *printer, views []bucketView) {
	if len(views) == 0 {
		p.line("Nothing to roll over.")
		return
	}
	for i, v := range views {
		if i > 0 {
			p.line("")
		}
		p.heading(bucketLabel(v.Bucket))
		for _, t := range v.Todos {
			box := "[ ]"
			if t.Completed {
				box = "[x]"
			}
			if t.Parent != "" {
				p.line("  %s %s  (under %s)", box, t.Text, t.Parent)
			} else {
				p.line("  %s %s", box, t.Text)
			}
		}
	}
}

// bucketDay turns a bucket key (seconds since the epoch) into a date
func bucketDay(key string) string {
	var secs int64
	if _, err := fmt.Sscanf(key, "%d", &secs); err != nil || key == rollover.OmniKey {
		return ""
	}
	return time.Unix(secs, 0).Format("2006-01-02")
}

func bucketLabel(key string) string {
	if day := bucketDay(key); day != "" {
		return day
	}
	return key
}
