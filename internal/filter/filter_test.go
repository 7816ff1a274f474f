package filter

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"epictree/internal/models"
	"epictree/internal/tree"
)

func person(id, name string) *models.Person {
	return &models.Person{AccountID: id, DisplayName: name}
}

func scenarioTree() models.TreeNode {
	s1 := models.TreeNode{Key: "S1", Name: "Unowned", Assignee: &models.Person{DisplayName: models.UnassignedName}}
	s2 := models.TreeNode{Key: "S2", Name: "Owned", Assignee: person("a1", "Ada")}
	i1 := models.TreeNode{Key: "I1", Name: "Issue 1", Assignee: person("a1", "Ada"), Children: []models.TreeNode{s1, s2}}
	s3 := models.TreeNode{Key: "S3", Name: "Owned too", Assignee: person("b2", "Bo")}
	i2 := models.TreeNode{Key: "I2", Name: "Issue 2", Assignee: person("b2", "Bo"), Children: []models.TreeNode{s3}}
	return models.TreeNode{Key: "E1", Name: "Epic", IsEpic: true, Assignee: person("a1", "Ada"), Children: []models.TreeNode{i1, i2}}
}

func TestApplyUnassignedKeepsAncestorChain(t *testing.T) {
	got := Apply(scenarioTree(), models.FilterState{Assignees: []string{"unassigned"}})

	if got.Key != "E1" || got.IsContextOnly {
		t.Fatalf("root must be kept untagged, got %#v", got)
	}
	if len(got.Children) != 1 || got.Children[0].Key != "I1" {
		t.Fatalf("expected only I1 to survive, got %#v", got.Children)
	}
	i1 := got.Children[0]
	if !i1.IsContextOnly {
		t.Fatal("I1 should be context-only")
	}
	if len(i1.Children) != 1 || i1.Children[0].Key != "S1" {
		t.Fatalf("expected only S1 under I1, got %#v", i1.Children)
	}
	if i1.Children[0].IsContextOnly {
		t.Fatal("S1 matched directly and must not be context-only")
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	root := scenarioTree()
	_ = Apply(root, models.FilterState{Assignees: []string{"b2"}})
	if !reflect.DeepEqual(root, scenarioTree()) {
		t.Fatal("input tree was modified")
	}
}

func TestApplyEmptyRootChildren(t *testing.T) {
	got := Apply(scenarioTree(), models.FilterState{Statuses: []string{"Nope"}})
	if got.Key != "E1" || got.Children == nil || len(got.Children) != 0 {
		t.Fatalf("expected bare root, got %#v", got)
	}
}

func TestMatches(t *testing.T) {
	node := models.TreeNode{
		Key:           "K1",
		Status:        &models.Status{Name: "In Progress"},
		Priority:      &models.Priority{ID: "2", Name: "High"},
		Assignee:      person("a1", "Ada"),
		Labels:        []string{"api", "urgent"},
		BlockedIssues: []models.LinkedIssue{{Key: "K9"}},
	}

	tests := []struct {
		name    string
		filters models.FilterState
		want    bool
	}{
		{name: "empty", filters: models.FilterState{}, want: true},
		{name: "assignee id", filters: models.FilterState{Assignees: []string{"a1"}}, want: true},
		{name: "other assignee", filters: models.FilterState{Assignees: []string{"b2"}}, want: false},
		{name: "unassigned or id", filters: models.FilterState{Assignees: []string{"unassigned", "a1"}}, want: true},
		{name: "unassigned only", filters: models.FilterState{Assignees: []string{"unassigned"}}, want: false},
		{name: "status", filters: models.FilterState{Statuses: []string{"Done", "In Progress"}}, want: true},
		{name: "status exact", filters: models.FilterState{Statuses: []string{"in progress"}}, want: false},
		{name: "priority by name", filters: models.FilterState{Priorities: []string{"High"}}, want: true},
		{name: "priority by id", filters: models.FilterState{Priorities: []string{"2"}}, want: true},
		{name: "priority miss", filters: models.FilterState{Priorities: []string{"Low"}}, want: false},
		{name: "any label", filters: models.FilterState{Labels: []string{"ops", "urgent"}}, want: true},
		{name: "label miss", filters: models.FilterState{Labels: []string{"ops"}}, want: false},
		{name: "blocking", filters: models.FilterState{BlockingStatus: []string{"blocking"}}, want: true},
		{name: "blocked", filters: models.FilterState{BlockingStatus: []string{"blocked"}}, want: false},
		{name: "and across dimensions", filters: models.FilterState{Assignees: []string{"a1"}, Labels: []string{"ops"}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(node, tc.filters); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

var (
	assigneePool = []string{"", "a1", "a2", "a3"}
	statusPool   = []string{"To Do", "In Progress", "Done"}
	labelPool    = []string{"api", "ui", "ops"}
)

func genNode(t *rapid.T, key string) models.TreeNode {
	n := models.TreeNode{
		Key:    key,
		Name:   key,
		Status: &models.Status{Name: rapid.SampledFrom(statusPool).Draw(t, key+"-status")},
		Labels: rapid.SliceOfNDistinct(rapid.SampledFrom(labelPool), 0, 2, rapid.ID[string]).Draw(t, key+"-labels"),
	}
	if id := rapid.SampledFrom(assigneePool).Draw(t, key+"-assignee"); id != "" {
		n.Assignee = person(id, "User "+id)
	}
	if rapid.Bool().Draw(t, key+"-blocked") {
		n.BlockingIssues = []models.LinkedIssue{{Key: "X-" + key}}
	}
	n.Children = []models.TreeNode{}
	return n
}

func genTree(t *rapid.T) models.TreeNode {
	root := genNode(t, "E")
	root.IsEpic = true
	issues := rapid.IntRange(0, 4).Draw(t, "issues")
	for i := 0; i < issues; i++ {
		issue := genNode(t, fmt.Sprintf("I%d", i))
		subs := rapid.IntRange(0, 3).Draw(t, issue.Key+"-subs")
		for j := 0; j < subs; j++ {
			issue.Children = append(issue.Children, genNode(t, fmt.Sprintf("S%d.%d", i, j)))
		}
		root.Children = append(root.Children, issue)
	}
	return root
}

func genFilters(t *rapid.T) models.FilterState {
	return models.FilterState{
		Assignees:      rapid.SliceOfN(rapid.SampledFrom([]string{"unassigned", "a1", "a2"}), 0, 2).Draw(t, "f-assignees"),
		Statuses:       rapid.SliceOfN(rapid.SampledFrom(statusPool), 0, 2).Draw(t, "f-statuses"),
		Labels:         rapid.SliceOfN(rapid.SampledFrom(labelPool), 0, 1).Draw(t, "f-labels"),
		BlockingStatus: rapid.SliceOfN(rapid.SampledFrom([]string{"blocked", "blocking"}), 0, 1).Draw(t, "f-blocking"),
	}
}

func TestApplyEmptyFilterIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := genTree(t)
		got := Apply(root, models.FilterState{
			Assignees:      []string{},
			Statuses:       []string{},
			Priorities:     []string{},
			Labels:         []string{},
			BlockingStatus: []string{},
		})
		if !reflect.DeepEqual(got, root) {
			t.Fatalf("empty filter changed the tree")
		}
	})
}

func TestApplyRetainsAncestorsOfMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		root := genTree(t)
		filters := genFilters(t)
		got := Apply(root, filters)

		if got.Key != root.Key {
			t.Fatalf("root dropped")
		}
		tree.Walk(root, func(node models.TreeNode, depth int) bool {
			if depth == 0 || !Matches(node, filters) {
				return true
			}
			path := tree.Path(root, node.Key)
			for i, key := range path {
				kept, ok := tree.Find(got, key)
				if !ok {
					t.Fatalf("ancestor %s of matching %s dropped", key, node.Key)
				}
				if i == 0 {
					continue
				}
				original, _ := tree.Find(root, key)
				if kept.IsContextOnly == Matches(original, filters) {
					t.Fatalf("%s context-only=%v but matches=%v", key, kept.IsContextOnly, !kept.IsContextOnly)
				}
			}
			return true
		})

		tree.Walk(got, func(node models.TreeNode, depth int) bool {
			if depth > 0 && !node.IsContextOnly && !Matches(node, filters) {
				t.Fatalf("%s kept without matching", node.Key)
			}
			if node.IsContextOnly && len(node.Children) == 0 {
				t.Fatalf("context-only %s has no surviving children", node.Key)
			}
			return true
		})
	})
}

func TestOptionsFor(t *testing.T) {
	root := scenarioTree()
	root.Children[1].Labels = []string{"ops"}
	root.Children[1].BlockingIssues = []models.LinkedIssue{{Key: "X"}}

	opts := OptionsFor(root)
	if len(opts.Assignees) != 3 || opts.Assignees[0].Value != models.UnassignedFilterValue {
		t.Fatalf("assignee options = %#v", opts.Assignees)
	}
	if len(opts.Labels) != 1 || opts.Labels[0].Value != "ops" {
		t.Fatalf("label options = %#v", opts.Labels)
	}
	if len(opts.BlockingStatus) != 1 || opts.BlockingStatus[0].Value != models.BlockingFilterBlocked {
		t.Fatalf("blocking options = %#v", opts.BlockingStatus)
	}
}
