package domain

// ColumnKind tells the table how to format a column.
type ColumnKind string

const (
	KindText   ColumnKind = "text"
	KindDate   ColumnKind = "date"
	KindCount  ColumnKind = "count"
	KindBool   ColumnKind = "bool"
	KindList   ColumnKind = "list"
	KindSecret ColumnKind = "secret"
	KindLink   ColumnKind = "link"
)

// Column describes one field of a resource.
type Column struct {
	Header   string     `yaml:"header"`
	Path     string     `yaml:"path"`
	Width    int        `yaml:"width"`
	Kind     ColumnKind `yaml:"kind"`
	Editable bool       `yaml:"editable"`
	Required bool       `yaml:"required"`
	Sortable bool       `yaml:"sortable"`
}

// Resource describes one paginated collection served by the API.
type Resource struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	Group string `yaml:"group"`

	// Path is the collection path below the API prefix, e.g. "deeper/asn".
	Path string `yaml:"path"`

	// ItemPath is appended to Path for update/delete. Placeholders in
	// braces are filled from the record ("{type}/{id}"). Defaults to "{id}".
	ItemPath string `yaml:"item_path"`

	// CopyField is the field the copy action puts on the clipboard.
	CopyField string `yaml:"copy_field"`

	Columns    []Column `yaml:"columns"`
	Categories []string `yaml:"categories"`
	ReadOnly   bool     `yaml:"read_only"`
}

// EditableColumns returns the columns shown in create/edit forms.
func (r Resource) EditableColumns() []Column {
	var out []Column
	for _, c := range r.Columns {
		if c.Editable {
			out = append(out, c)
		}
	}
	return out
}

// HasCategories reports whether the resource supports category filtering.
func (r Resource) HasCategories() bool {
	return len(r.Categories) > 0
}

// RunPreset is a canned recon invocation offered in the run view.
type RunPreset struct {
	Key         string `yaml:"key"`
	Title       string `yaml:"title"`
	Mode        string `yaml:"mode"`
	TargetLabel string `yaml:"target_label"`
	Placeholder string `yaml:"placeholder"`
	NeedsTarget bool   `yaml:"needs_target"`

	// LastRun marks modes that accept the -lr flag.
	LastRun bool `yaml:"last_run"`
}
