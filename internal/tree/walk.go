package tree

import (
	"sort"

	"epictree/internal/models"
)

// Walk visits root and its descendants depth first in child order. When fn
// returns false the node's children are skipped.
func Walk(root models.TreeNode, fn func(node models.TreeNode, depth int) bool) {
	walk(root, 0, fn)
}

func walk(node models.TreeNode, depth int, fn func(models.TreeNode, int) bool) {
	if !fn(node, depth) {
		return
	}
	for _, child := range node.Children {
		walk(child, depth+1, fn)
	}
}

// Find returns the first node with the given key.
func Find(root models.TreeNode, key string) (models.TreeNode, bool) {
	if key == "" {
		return models.TreeNode{}, false
	}
	if root.Key == key {
		return root, true
	}
	for _, child := range root.Children {
		if found, ok := Find(child, key); ok {
			return found, true
		}
	}
	return models.TreeNode{}, false
}

// Path returns the keys from the root down to the node with the given key,
// or nil when the key is absent.
func Path(root models.TreeNode, key string) []string {
	if root.Key == key && key != "" {
		return []string{root.Key}
	}
	for _, child := range root.Children {
		if rest := Path(child, key); rest != nil {
			return append([]string{root.Key}, rest...)
		}
	}
	return nil
}

// CollectLabels returns the distinct labels in the tree, sorted.
func CollectLabels(root models.TreeNode) []string {
	set := make(map[string]struct{})
	Walk(root, func(node models.TreeNode, _ int) bool {
		for _, label := range node.Labels {
			set[label] = struct{}{}
		}
		return true
	})
	return sortedKeys(set)
}

// CollectStatuses returns the distinct status names in the tree, sorted.
func CollectStatuses(root models.TreeNode) []string {
	set := make(map[string]struct{})
	Walk(root, func(node models.TreeNode, _ int) bool {
		if node.Status != nil && node.Status.Name != "" {
			set[node.Status.Name] = struct{}{}
		}
		return true
	})
	return sortedKeys(set)
}

// CollectPriorities returns the distinct priorities in the tree, sorted by
// name.
func CollectPriorities(root models.TreeNode) []models.Priority {
	byName := make(map[string]models.Priority)
	Walk(root, func(node models.TreeNode, _ int) bool {
		if node.Priority != nil && node.Priority.Name != "" {
			if _, ok := byName[node.Priority.Name]; !ok {
				byName[node.Priority.Name] = *node.Priority
			}
		}
		return true
	})
	out := make([]models.Priority, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CollectAssignees returns the distinct assigned people, sorted by display
// name. Placeholder assignees without an account are excluded.
func CollectAssignees(root models.TreeNode) []models.Person {
	byID := make(map[string]models.Person)
	Walk(root, func(node models.TreeNode, _ int) bool {
		if node.HasAssignee() {
			if _, ok := byID[node.Assignee.AccountID]; !ok {
				byID[node.Assignee.AccountID] = *node.Assignee
			}
		}
		return true
	})
	out := make([]models.Person, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
