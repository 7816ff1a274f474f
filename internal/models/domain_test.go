package models

import "testing"

func TestParseStatusCategory(t *testing.T) {
	got, err := ParseStatusCategory(" DONE ")
	if err != nil {
		t.Fatalf("parse category: %v", err)
	}
	if got != CategoryDone {
		t.Fatalf("expected %q, got %q", CategoryDone, got)
	}

	got, err = ParseStatusCategory("")
	if err != nil || got != CategoryUnknown {
		t.Fatalf("expected unknown for empty, got %q (err: %v)", got, err)
	}

	if _, err := ParseStatusCategory("invalid"); err == nil {
		t.Fatal("expected invalid category error")
	}
}

func TestParseBlockingFilter(t *testing.T) {
	got, err := ParseBlockingFilter(" Blocked ")
	if err != nil {
		t.Fatalf("parse blocking: %v", err)
	}
	if got != BlockingFilterBlocked {
		t.Fatalf("expected %q, got %q", BlockingFilterBlocked, got)
	}
	if _, err := ParseBlockingFilter("sideways"); err == nil {
		t.Fatal("expected invalid blocking filter error")
	}
}

func TestTreeNodeDefaults(t *testing.T) {
	n := TreeNode{}
	if n.StatusName() != UnknownName {
		t.Fatalf("expected %q, got %q", UnknownName, n.StatusName())
	}
	if n.AssigneeName() != UnassignedName {
		t.Fatalf("expected %q, got %q", UnassignedName, n.AssigneeName())
	}
	if n.HasAssignee() {
		t.Fatal("expected no assignee")
	}

	n.Assignee = &Person{DisplayName: UnassignedName}
	if n.HasAssignee() {
		t.Fatal("placeholder assignee without account id must count as unassigned")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := TreeNode{
		Key:    "E1",
		Labels: []string{"a"},
		Status: &Status{Name: "To Do"},
		Children: []TreeNode{
			{Key: "I1", Labels: []string{"b"}},
		},
	}
	cp := orig.Clone()
	cp.Labels[0] = "changed"
	cp.Status.Name = "Done"
	cp.Children[0].Labels[0] = "changed"

	if orig.Labels[0] != "a" || orig.Status.Name != "To Do" || orig.Children[0].Labels[0] != "b" {
		t.Fatalf("clone shares state with original: %+v", orig)
	}
}

func TestFilterStateIsEmpty(t *testing.T) {
	if !(FilterState{}).IsEmpty() {
		t.Fatal("zero filter should be empty")
	}
	f := FilterState{Labels: []string{" ", ""}}.Normalized()
	if !f.IsEmpty() {
		t.Fatalf("blank values should normalize away, got %+v", f)
	}
	if (FilterState{Statuses: []string{"Done"}}).IsEmpty() {
		t.Fatal("status filter should not be empty")
	}
}
