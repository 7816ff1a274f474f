package tree

import (
	"reflect"
	"testing"

	"epictree/internal/models"
)

func sampleTree() models.TreeNode {
	subtask := models.TreeNode{
		Key:            "S1",
		Name:           "Sub",
		IssueType:      "Sub-task",
		Status:         &models.Status{Name: "To Do", CategoryKey: "new"},
		Priority:       &models.Priority{ID: "3", Name: "Medium"},
		Assignee:       &models.Person{DisplayName: models.UnassignedName},
		BlockingIssues: []models.LinkedIssue{{Key: "X1"}},
	}
	first := models.TreeNode{
		Key:         "I1",
		Name:        "One",
		StoryPoints: 5,
		IssueType:   "Story",
		Status:      &models.Status{Name: "Done", CategoryKey: "done"},
		Priority:    &models.Priority{ID: "2", Name: "High"},
		Assignee:    &models.Person{AccountID: "a1", DisplayName: "Ada"},
		Labels:      []string{"api", "backend"},
		Children:    []models.TreeNode{subtask},
	}
	second := models.TreeNode{
		Key:           "I2",
		Name:          "Two",
		StoryPoints:   3,
		IssueType:     "Story",
		Status:        &models.Status{Name: "In Progress", CategoryKey: "indeterminate"},
		Assignee:      &models.Person{AccountID: "b2", DisplayName: "Bo"},
		Labels:        []string{"backend"},
		BlockedIssues: []models.LinkedIssue{{Key: "X9"}},
	}
	return models.TreeNode{
		Key:      "E1",
		Name:     "Epic",
		IsEpic:   true,
		Children: []models.TreeNode{first, second},
	}
}

func TestWalkOrderAndSkip(t *testing.T) {
	var visited []string
	Walk(sampleTree(), func(node models.TreeNode, depth int) bool {
		visited = append(visited, node.Key)
		return node.Key != "I1"
	})
	want := []string{"E1", "I1", "I2"}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
}

func TestFindAndPath(t *testing.T) {
	root := sampleTree()
	node, ok := Find(root, "S1")
	if !ok || node.Name != "Sub" {
		t.Fatalf("Find(S1) = %#v, %v", node, ok)
	}
	if _, ok := Find(root, "nope"); ok {
		t.Fatal("expected missing key")
	}
	if got := Path(root, "S1"); !reflect.DeepEqual(got, []string{"E1", "I1", "S1"}) {
		t.Fatalf("Path = %v", got)
	}
	if Path(root, "nope") != nil {
		t.Fatal("expected nil path")
	}
}

func TestCollectors(t *testing.T) {
	root := sampleTree()
	if got := CollectLabels(root); !reflect.DeepEqual(got, []string{"api", "backend"}) {
		t.Fatalf("labels = %v", got)
	}
	if got := CollectStatuses(root); !reflect.DeepEqual(got, []string{"Done", "In Progress", "To Do"}) {
		t.Fatalf("statuses = %v", got)
	}
	people := CollectAssignees(root)
	if len(people) != 2 || people[0].DisplayName != "Ada" || people[1].DisplayName != "Bo" {
		t.Fatalf("assignees = %#v", people)
	}
	prios := CollectPriorities(root)
	if len(prios) != 2 || prios[0].Name != "High" {
		t.Fatalf("priorities = %#v", prios)
	}
}

func TestSummarize(t *testing.T) {
	b := Summarize(sampleTree())
	if b.EpicKey != "E1" || b.Issues != 2 || b.Subtasks != 1 {
		t.Fatalf("unexpected counts %#v", b)
	}
	if b.StoryPoints.Total != 8 || b.StoryPoints.Done != 5 || b.StoryPoints.Remaining != 3 {
		t.Fatalf("unexpected points %#v", b.StoryPoints)
	}
	if b.CompletionPercent != 62.5 {
		t.Fatalf("completion = %v", b.CompletionPercent)
	}
	if b.ByCategory["done"] != 1 || b.ByStatus["To Do"] != 1 || b.ByIssueType["Story"] != 2 {
		t.Fatalf("unexpected breakdown maps %#v", b)
	}
	if b.Blocked != 1 || b.Blocking != 1 {
		t.Fatalf("blocked=%d blocking=%d", b.Blocked, b.Blocking)
	}
	if !reflect.DeepEqual(b.Unestimated, []string{"S1"}) {
		t.Fatalf("unestimated = %v", b.Unestimated)
	}
	if len(b.Assignees) != 3 || b.Assignees[0].DisplayName != "Ada" || b.Assignees[2].DisplayName != models.UnassignedName {
		t.Fatalf("assignees = %#v", b.Assignees)
	}
}

func TestSummarizeEmptyTree(t *testing.T) {
	b := Summarize(models.TreeNode{Name: "Epic Tree", IsEpic: true})
	if b.Issues != 0 || b.CompletionPercent != 0 || b.Assignees == nil || b.Unestimated == nil {
		t.Fatalf("unexpected empty breakdown %#v", b)
	}
}
