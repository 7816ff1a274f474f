package overlay

import (
	"epictree/internal/fields"
	"epictree/internal/models"
)

// Apply returns a copy of root with every live entry's value replacing the
// matching node field. root is not modified.
func (o *Overlay) Apply(root models.TreeNode) models.TreeNode {
	out := root
	if root.Key != "" {
		out = o.applyNode(root)
	}
	if root.Children != nil {
		out.Children = make([]models.TreeNode, len(root.Children))
		for i, child := range root.Children {
			out.Children[i] = o.Apply(child)
		}
	}
	return out
}

func (o *Overlay) applyNode(n models.TreeNode) models.TreeNode {
	if e, ok := o.Entry(n.Key, fields.Summary); ok {
		if s, ok := e.Value.(string); ok {
			n.Summary = s
			n.Name = s
		}
	}
	if e, ok := o.Entry(n.Key, fields.StoryPoints); ok {
		switch v := e.Value.(type) {
		case float64:
			n.StoryPoints = v
		case nil:
			n.StoryPoints = 0
		}
	}
	if e, ok := o.Entry(n.Key, fields.Assignee); ok {
		n.Assignee = assigneeFrom(e)
	}
	if e, ok := o.Entry(n.Key, fields.Priority); ok {
		n.Priority = priorityFrom(e)
	}
	if e, ok := o.Entry(n.Key, fields.Labels); ok {
		if labels, ok := e.Value.([]string); ok {
			n.Labels = copyValue(labels).([]string)
		}
	}
	return n
}

func assigneeFrom(e Entry) *models.Person {
	id, _ := e.Value.(string)
	if id == "" {
		return nil
	}
	name := e.DisplayName
	if name == "" {
		name = id
	}
	return &models.Person{AccountID: id, DisplayName: name, AvatarURL: e.IconURL}
}

func priorityFrom(e Entry) *models.Priority {
	id, _ := e.Value.(string)
	if id == "" {
		return &models.Priority{Name: models.UnknownName}
	}
	name := e.DisplayName
	if name == "" {
		name = id
	}
	return &models.Priority{ID: id, Name: name, IconURL: e.IconURL}
}
