package server

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"epictree/internal/fields"
	"epictree/internal/layout"
	"epictree/internal/models"
)

var (
	issueKeyRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*-[0-9]+$`)
	epicIDRegex   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_]*-[0-9]+|[0-9]+)$`)
)

var filterParams = []string{"assignee", "status", "priority", "label", "blocking"}

func validateIssueKey(key string) bool {
	return len(key) <= 64 && issueKeyRegex.MatchString(key)
}

func validateEpicID(id string) bool {
	return len(id) <= 64 && epicIDRegex.MatchString(id)
}

// pathEpicID returns the {id} path value. "-" selects the configured default
// epic.
func (s *Server) pathEpicID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "-" && s.defaultEpic != "" {
		id = s.defaultEpic
	}
	if !validateEpicID(id) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid epic id %q", id), ErrCodeInvalidKey))
		return "", false
	}
	return strings.ToUpper(id), true
}

func (s *Server) pathIssueKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.PathValue("key"))
	if !validateIssueKey(key) {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid issue key %q", key), ErrCodeInvalidKey))
		return "", false
	}
	return strings.ToUpper(key), true
}

func normalizeField(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", badRequestCode(fmt.Errorf("field is required"), ErrCodeMissingRequired)
	}
	if !fields.IsEditable(name) {
		return "", badRequestCode(fmt.Errorf("field %q is not editable (use one of %s)", name, strings.Join(fields.Editable, ", ")), ErrCodeInvalidField)
	}
	return name, nil
}

// filtersFromQuery parses the filter params. ok is false when the request
// names none of them, which leaves the session filters unchanged.
func filtersFromQuery(r *http.Request) (models.FilterState, bool, error) {
	query := r.URL.Query()
	present := false
	for _, key := range filterParams {
		if query.Has(key) {
			present = true
			break
		}
	}
	if !present {
		return models.FilterState{}, false, nil
	}

	f := models.FilterState{
		Assignees:      splitCSV(query.Get("assignee")),
		Statuses:       splitCSV(query.Get("status")),
		Priorities:     splitCSV(query.Get("priority")),
		Labels:         splitCSV(query.Get("label")),
		BlockingStatus: splitCSV(query.Get("blocking")),
	}
	for i, v := range f.BlockingStatus {
		v = strings.ToLower(v)
		f.BlockingStatus[i] = v
		if v != models.BlockingFilterBlocking && v != models.BlockingFilterBlocked {
			return models.FilterState{}, false, badRequestCode(fmt.Errorf("invalid blocking filter %q (use blocking or blocked)", v), ErrCodeInvalidFilter)
		}
	}
	return f, true, nil
}

func layoutOptionsFromQuery(r *http.Request) (layout.Options, error) {
	query := r.URL.Query()
	var opts layout.Options
	var err error

	if opts.Mode, err = layout.ParseMode(query.Get("mode")); err != nil {
		return opts, badRequestCode(err, ErrCodeInvalidLayout)
	}
	if opts.Orientation, err = layout.ParseOrientation(query.Get("orientation")); err != nil {
		return opts, badRequestCode(err, ErrCodeInvalidLayout)
	}
	if opts.Link, err = layout.ParseLinkStyle(query.Get("link")); err != nil {
		return opts, badRequestCode(err, ErrCodeInvalidLayout)
	}
	if opts.StepPercent, err = queryFloat(r, "step_percent"); err != nil {
		return opts, err
	}
	if opts.Width, err = queryFloat(r, "width"); err != nil {
		return opts, err
	}
	if opts.Height, err = queryFloat(r, "height"); err != nil {
		return opts, err
	}
	return opts, nil
}

func viewportFromQuery(r *http.Request) (layout.Viewport, error) {
	var view layout.Viewport
	var err error
	if view.ScrollX, err = queryFloat(r, "scroll_x"); err != nil {
		return view, err
	}
	if view.ScrollY, err = queryFloat(r, "scroll_y"); err != nil {
		return view, err
	}
	if view.Width, err = queryFloat(r, "view_width"); err != nil {
		return view, err
	}
	if view.Height, err = queryFloat(r, "view_height"); err != nil {
		return view, err
	}
	return view, nil
}
