package schema

import (
	"fmt"
	"strings"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/normalize"
)

// Type is the role a column plays in a dashboard
type Type string

const (
	// Text columns are used as filter and group dimensions
	Text Type = "text"
	// Year columns hold cohort or outflow years
	Year Type = "year"
	// Measure columns are averaged; unparseable cells become null
	Measure Type = "measure"
	// Count columns are summed; unparseable cells become zero
	Count Type = "count"
)

// Field describes one expected column
type Field struct {
	Name        string `json:"name"`
	Type        Type   `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Schema is the column contract of one dashboard
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// MissingColumnsError lists every required column the record set lacks
type MissingColumnsError struct {
	Schema  string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns for %s: %s", e.Schema, strings.Join(e.Missing, ", "))
}

// Required returns the names of the required fields in declaration order
func (s Schema) Required() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Field looks up a field by column name
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks that every required column is present
func (s Schema) Validate(frame *dataset.Frame) error {
	var missing []string
	for _, name := range s.Required() {
		if !frame.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Schema: s.Name, Missing: missing}
	}
	return nil
}

// Rules derives the normalization rules from the field types
func (s Schema) Rules() []normalize.Rule {
	var rules []normalize.Rule
	for _, f := range s.Fields {
		switch f.Type {
		case Measure:
			rules = append(rules, normalize.Rule{Column: f.Name, Policy: normalize.PolicyNull})
		case Count:
			rules = append(rules, normalize.Rule{Column: f.Name, Policy: normalize.PolicyZero})
		}
	}
	return rules
}

// Column is a resolved handle to a schema field in a specific frame
type Column struct {
	Field
	index   int
	present bool
}

// Present reports whether the frame carries the column
func (c Column) Present() bool { return c.present }

// Index returns the frame position of the column
func (c Column) Index() int { return c.index }

// Get returns the cell at row i of v, or null when the column is absent
func (c Column) Get(v dataset.View, i int) dataset.Value {
	if !c.present {
		return dataset.Null()
	}
	return v.At(i, c.index)
}

// Bound is a schema resolved against one frame
type Bound struct {
	Schema  Schema
	columns map[string]Column
}

// Bind validates the frame and resolves every field to a column handle
func (s Schema) Bind(frame *dataset.Frame) (*Bound, error) {
	if err := s.Validate(frame); err != nil {
		return nil, err
	}
	b := &Bound{Schema: s, columns: make(map[string]Column, len(s.Fields))}
	for _, f := range s.Fields {
		idx, ok := frame.Index(f.Name)
		b.columns[f.Name] = Column{Field: f, index: idx, present: ok}
	}
	return b, nil
}

// Column returns the handle for a declared field. Undeclared names panic,
// since they indicate a programming error in a dashboard definition.
func (b *Bound) Column(name string) Column {
	c, ok := b.columns[name]
	if !ok {
		panic(fmt.Sprintf("schema %s has no field %q", b.Schema.Name, name))
	}
	return c
}

// Has reports whether the named field is present in the bound frame
func (b *Bound) Has(name string) bool {
	if b == nil {
		return false
	}
	c, ok := b.columns[name]
	return ok && c.present
}
