package layout

import "epictree/internal/models"

// Style is the visual binding of a node.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
	Dashed      bool    `json:"dashed,omitempty"`
	TextColor   string  `json:"textColor"`
}

// Palette.
const (
	colorEpic       = "#6554C0"
	colorDone       = "#36B37E"
	colorInProgress = "#0065FF"
	colorToDo       = "#DFE1E6"
	colorUnknown    = "#C1C7D0"
	colorBlocked    = "#DE350B"
	colorBlocking   = "#FF991F"
	colorBorder     = "#505F79"
	colorTextDark   = "#172B4D"
	colorTextLight  = "#FFFFFF"
)

// StyleFor derives a node's visuals from its status category and blocking
// state. Context-only nodes are faded and dashed.
func StyleFor(n models.TreeNode) Style {
	s := Style{
		Fill:        categoryFill(n.Category()),
		Stroke:      colorBorder,
		StrokeWidth: 1,
		Opacity:     1,
		TextColor:   colorTextDark,
	}
	if n.IsEpic {
		s.Fill = colorEpic
	}
	if s.Fill != colorToDo && s.Fill != colorUnknown {
		s.TextColor = colorTextLight
	}

	switch {
	case n.IsBlocked():
		s.Stroke = colorBlocked
		s.StrokeWidth = 3
	case n.IsBlocking():
		s.Stroke = colorBlocking
		s.StrokeWidth = 2
	}

	if n.IsContextOnly {
		s.Opacity = 0.4
		s.Dashed = true
	}
	return s
}

func categoryFill(c models.StatusCategory) string {
	switch c {
	case models.CategoryDone:
		return colorDone
	case models.CategoryInProgress:
		return colorInProgress
	case models.CategoryToDo:
		return colorToDo
	default:
		return colorUnknown
	}
}
