package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"epictree/internal/api"
	"epictree/internal/format"
	"epictree/internal/models"
	"epictree/internal/store"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeTreeView(view api.TreeResponse) error {
	lines := treeLines(view.Tree, view.EditErrors)
	for _, w := range view.Warnings {
		lines = append(lines, "warning: "+w)
	}
	if len(view.Pending) > 0 {
		lines = append(lines, fmt.Sprintf("pending edits: %d", len(view.Pending)))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

// treeLines draws the tree with box-drawing guides, one node per line.
func treeLines(root models.TreeNode, editErrors map[string]map[string]string) []string {
	lines := []string{formatNodeLine(root)}
	var walk func(children []models.TreeNode, prefix string)
	walk = func(children []models.TreeNode, prefix string) {
		for i, child := range children {
			branch, next := "├── ", "│   "
			if i == len(children)-1 {
				branch, next = "└── ", "    "
			}
			lines = append(lines, prefix+branch+formatNodeLine(child))
			for _, field := range sortedFields(editErrors[child.Key]) {
				lines = append(lines, prefix+next+"  ! "+field+": "+editErrors[child.Key][field])
			}
			walk(child.Children, prefix+next)
		}
	}
	walk(root.Children, "")
	return lines
}

func formatNodeLine(node models.TreeNode) string {
	var b strings.Builder
	if node.Key != "" {
		b.WriteString(node.Key)
		b.WriteString(" ")
	}
	b.WriteString(node.Name)
	b.WriteString(" [" + node.StatusName() + "]")
	if node.StoryPoints != 0 {
		fmt.Fprintf(&b, " (%gsp)", node.StoryPoints)
	}
	if node.HasAssignee() {
		b.WriteString(" @" + node.Assignee.DisplayName)
	}
	if node.IsBlocked() {
		b.WriteString(" blocked")
	}
	if node.IsBlocking() {
		b.WriteString(" blocking")
	}
	if node.IsContextOnly {
		b.WriteString(" (context)")
	}
	return b.String()
}

func writeSummary(summary api.SummaryResponse) error {
	lines := []string{
		fmt.Sprintf("epic: %s %s", summary.EpicKey, summary.EpicName),
		fmt.Sprintf("issues: %d", summary.Issues),
		fmt.Sprintf("subtasks: %d", summary.Subtasks),
		fmt.Sprintf("story_points: %g done / %g total", summary.StoryPoints.Done, summary.StoryPoints.Total),
		fmt.Sprintf("completion: %.1f%%", summary.CompletionPercent),
		fmt.Sprintf("blocked: %d", summary.Blocked),
		fmt.Sprintf("blocking: %d", summary.Blocking),
	}
	if len(summary.ByStatus) > 0 {
		lines = append(lines, "by_status:")
		statuses := make([]string, 0, len(summary.ByStatus))
		for status := range summary.ByStatus {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			lines = append(lines, fmt.Sprintf("  %s: %d", status, summary.ByStatus[status]))
		}
	}
	if len(summary.Assignees) > 0 {
		lines = append(lines, "assignees:")
		for _, a := range summary.Assignees {
			lines = append(lines, fmt.Sprintf("  %s: %d items, %g sp", a.DisplayName, a.Items, a.StoryPoints))
		}
	}
	if len(summary.Unestimated) > 0 {
		lines = append(lines, "unestimated: "+strings.Join(summary.Unestimated, ", "))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeEdits(edits []store.Edit) error {
	for _, e := range edits {
		outcome := "ok"
		if !e.Success {
			outcome = "failed: " + e.Error
		}
		if err := writePlain("%s %s %s=%s %s\n", formatTime(e.CreatedAt), e.IssueKey, e.Field, string(e.Value), outcome); err != nil {
			return err
		}
	}
	return nil
}

func sortedFields(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
