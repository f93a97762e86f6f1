package rollover

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/rollover/testutil"
	"github.com/arthur-debert/rollover/types"
	"github.com/google/go-cmp/cmp"
)

func newEngine(tree types.Tree, rec *testutil.Recorder, configure func(*types.Settings), opts ...Option) *Engine {
	s := types.DefaultSettings()
	if configure != nil {
		configure(&s)
	}
	opts = append([]Option{WithTimeFunc(testutil.Clock())}, opts...)
	// a nil *Recorder must not reach New as a non-nil Notifier
	var n types.Notifier
	if rec != nil {
		n = rec
	}
	return New(tree, n, types.StaticSettings(s), opts...)
}

func portalMode(s *types.Settings) { s.PortalMode = true }

// bucketKey returns the key a daily document's matches are grouped under
func bucketKey(t *testing.T, w *testutil.World, id types.NodeID) string {
	t.Helper()
	_, key, ok := ContainerTimestamp(w.Node(id))
	if !ok {
		t.Fatalf("%s has no timestamp", id)
	}
	return key
}

type matchSummary struct {
	Node      types.NodeID
	Parent    types.NodeID
	Completed bool
}

func summarize(b *Buckets) map[string][]matchSummary {
	out := make(map[string][]matchSummary)
	for _, key := range b.Keys() {
		for _, m := range b.Get(key) {
			s := matchSummary{Node: m.Node.ID, Completed: m.Completed}
			if m.Parent != nil {
				s.Parent = m.Parent.ID
			}
			out[key] = append(out[key], s)
		}
	}
	return out
}

func TestCollectWeek(t *testing.T) {
	week := testutil.LoadWeek(t)
	e := newEngine(week.Tree, nil, nil)

	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	threeDays := bucketKey(t, week.World, week.ThreeDaysAgo)
	yesterday := bucketKey(t, week.World, week.Yesterday)

	wantKeys := []string{threeDays, yesterday, OmniKey}
	if diff := cmp.Diff(wantKeys, buckets.Keys()); diff != "" {
		t.Errorf("bucket keys mismatch (-want +got):\n%s", diff)
	}

	want := map[string][]matchSummary{
		threeDays: {
			{Node: week.BuyMilk, Parent: week.Errands},
			{Node: week.WaterPlants},
		},
		yesterday: {
			{Node: week.WriteReport, Parent: week.Work},
		},
		OmniKey: {
			{Node: week.TriageMail},
		},
	}
	if diff := cmp.Diff(want, summarize(buckets)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if buckets.Unfinished() != 4 {
		t.Errorf("expected 4 unfinished matches, got %d", buckets.Unfinished())
	}
}

func TestCollectDateLimit(t *testing.T) {
	tests := []struct {
		name      string
		dateLimit int
		wantKeys  int // day buckets, omni excluded
	}{
		{"today only", 0, 0},
		{"yesterday", 1, 1},
		{"three days", 3, 2},
		{"eight days", 8, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := testutil.LoadWeek(t)
			e := newEngine(week.Tree, nil, func(s *types.Settings) { s.DateLimit = tt.dateLimit })

			buckets, err := e.Collect(context.Background())
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			days := 0
			for _, key := range buckets.Keys() {
				if key != OmniKey {
					days++
				}
			}
			if days != tt.wantKeys {
				t.Errorf("expected %d day buckets, got %d (%v)", tt.wantKeys, days, buckets.Keys())
			}
		})
	}
}

func TestCollectRetainCompleted(t *testing.T) {
	week := testutil.LoadWeek(t)
	e := newEngine(week.Tree, nil, func(s *types.Settings) { s.RetainCompleted = true })

	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	threeDays := bucketKey(t, week.World, week.ThreeDaysAgo)
	want := []matchSummary{
		{Node: week.BuyMilk, Parent: week.Errands},
		{Node: week.PostLetter, Parent: week.Errands, Completed: true},
		{Node: week.WaterPlants},
	}
	if diff := cmp.Diff(want, summarize(buckets)[threeDays]); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if buckets.Unfinished() != 4 {
		t.Errorf("completed matches must not count as unfinished, got %d", buckets.Unfinished())
	}
}

func TestCollectCompletedIgnoredUnderOmniRoots(t *testing.T) {
	w := testutil.NewWorld(t)
	w.Day(0)
	inbox := w.Add("", "Inbox")
	w.Mark(inbox, types.MarkerOmniRollover)
	w.Done(inbox, "filed")

	e := newEngine(w.Tree, nil, func(s *types.Settings) { s.RetainCompleted = true })
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if buckets.Len() != 0 {
		t.Errorf("expected no buckets, got %v", summarize(buckets))
	}
}

func TestCollectExclusions(t *testing.T) {
	w := testutil.NewWorld(t)
	day := w.Day(1)
	w.Day(0)

	excludedTask := w.Todo(day, "excluded task")
	w.Mark(excludedTask, types.MarkerDoNotRollover)

	excludedParent := w.Add(day, "excluded parent")
	w.Mark(excludedParent, types.MarkerDoNotRollover)
	w.Todo(excludedParent, "under excluded parent")
	nested := w.Add(excludedParent, "nested")
	w.Todo(nested, "deep under excluded parent")

	kept := w.Todo(day, "kept")

	e := newEngine(w.Tree, nil, nil)
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := map[string][]matchSummary{
		bucketKey(t, w, day): {{Node: kept}},
	}
	if diff := cmp.Diff(want, summarize(buckets)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectNestedTasksEndDescent(t *testing.T) {
	w := testutil.NewWorld(t)
	day := w.Day(1)
	w.Day(0)
	project := w.Add(day, "Project")
	parentTask := w.Todo(project, "parent task")
	w.Todo(parentTask, "subtask")

	e := newEngine(w.Tree, nil, nil)
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := map[string][]matchSummary{
		bucketKey(t, w, day): {{Node: parentTask, Parent: project}},
	}
	if diff := cmp.Diff(want, summarize(buckets)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectRemembersNearestPlainAncestor(t *testing.T) {
	w := testutil.NewWorld(t)
	day := w.Day(2)
	w.Day(0)
	area := w.Add(day, "Area")
	project := w.Add(area, "Project")
	task := w.Todo(project, "task")
	direct := w.Todo(area, "direct")

	e := newEngine(w.Tree, nil, nil)
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := map[string][]matchSummary{
		bucketKey(t, w, day): {
			{Node: task, Parent: project},
			{Node: direct, Parent: area},
		},
	}
	if diff := cmp.Diff(want, summarize(buckets)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectClaimsEachTaskOnce(t *testing.T) {
	w := testutil.NewWorld(t)
	day := w.Day(1)
	w.Day(0)
	inbox := w.Add(day, "Inbox")
	w.Mark(inbox, types.MarkerOmniRollover)
	task := w.Todo(inbox, "triage")

	e := newEngine(w.Tree, nil, func(s *types.Settings) { s.PortalMode = true })
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := map[string][]matchSummary{
		bucketKey(t, w, day): {{Node: task, Parent: inbox}},
	}
	if diff := cmp.Diff(want, summarize(buckets)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectIgnoresDocumentsWithoutTimestamp(t *testing.T) {
	w := testutil.NewWorld(t)
	broken := w.Add("", "broken")
	w.Mark(broken, types.MarkerDailyDocument)
	w.Todo(broken, "lost")
	w.Day(0)

	e := newEngine(w.Tree, nil, nil)
	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if buckets.Len() != 0 {
		t.Errorf("expected no buckets, got %v", summarize(buckets))
	}
}

func TestCollectSkipsVanishedNodes(t *testing.T) {
	week := testutil.LoadWeek(t)
	tree := &testutil.FaultyTree{
		Tree:       week.Tree,
		ResolveErr: map[types.NodeID]error{week.BuyMilk: types.ErrNodeNotFound},
	}
	e := newEngine(tree, nil, nil)

	buckets, err := e.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if buckets.Unfinished() != 3 {
		t.Errorf("expected 3 unfinished matches, got %d", buckets.Unfinished())
	}
}

func TestCollectPropagatesTreeErrors(t *testing.T) {
	week := testutil.LoadWeek(t)
	boom := errors.New("disk on fire")
	tree := &testutil.FaultyTree{
		Tree:       week.Tree,
		ResolveErr: map[types.NodeID]error{week.BuyMilk: boom},
	}
	e := newEngine(tree, nil, nil)

	_, err := e.Collect(context.Background())
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if runErr.Phase != PhaseCollect {
		t.Errorf("expected phase %s, got %s", PhaseCollect, runErr.Phase)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestBuckets(t *testing.T) {
	b := NewBuckets()
	a := &types.Node{ID: "a"}
	c := &types.Node{ID: "c"}
	b.Add("2", Match{Node: a})
	b.Add("1", Match{Node: c, Completed: true})
	b.Add("2", Match{Node: c})

	if diff := cmp.Diff([]string{"2", "1"}, b.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if b.Unfinished() != 2 {
		t.Errorf("Unfinished() = %d, want 2", b.Unfinished())
	}

	unfinished, completed := partition(b.Get("1"))
	if len(unfinished) != 0 || len(completed) != 1 {
		t.Errorf("partition() = %d unfinished, %d completed", len(unfinished), len(completed))
	}

	rolled := make(rolledSet)
	if rolled.has(nil) {
		t.Error("nil parent must never count as rolled")
	}
	rolled.add(nil)
	rolled.add(a)
	if !rolled.has(a) || rolled.has(c) || len(rolled) != 1 {
		t.Errorf("unexpected rolled set %v", rolled)
	}
}
