package models

import (
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
)

// CustomField is a user-defined schema column attached to a list.
// Options is only meaningful for select fields.
type CustomField struct {
	Name    string    `json:"name" bson:"name"`
	Type    FieldType `json:"type" bson:"type"`
	Options []string  `json:"options,omitempty" bson:"options,omitempty"`
}

// Place is one scraped map location plus user-entered custom values.
// Rating is nil when the source page exposed no rating.
type Place struct {
	ID           string            `json:"id" bson:"id"`
	Name         string            `json:"name" bson:"name"`
	Platform     platform.Tag      `json:"platform" bson:"platform"`
	Category     string            `json:"category" bson:"category"`
	Rating       *float64          `json:"rating" bson:"rating"`
	URL          string            `json:"url" bson:"url"`
	CustomValues map[string]string `json:"customValues" bson:"customValues"`
}

// List is a named collection of places sharing one custom-field schema.
// Its id lives outside the record, as the key of the owning mapping.
type List struct {
	Name         string        `json:"name" bson:"name"`
	CustomFields []CustomField `json:"customFields" bson:"customFields"`
	Places       []*Place      `json:"places" bson:"places"`
}

func (f CustomField) Clone() CustomField {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	return out
}

func (p *Place) Clone() *Place {
	out := *p
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	if p.CustomValues != nil {
		out.CustomValues = make(map[string]string, len(p.CustomValues))
		for k, v := range p.CustomValues {
			out.CustomValues[k] = v
		}
	}
	return &out
}

func (l *List) Clone() *List {
	out := &List{Name: l.Name}
	if l.CustomFields != nil {
		out.CustomFields = make([]CustomField, len(l.CustomFields))
		for i, f := range l.CustomFields {
			out.CustomFields[i] = f.Clone()
		}
	}
	if l.Places != nil {
		out.Places = make([]*Place, len(l.Places))
		for i, p := range l.Places {
			out.Places[i] = p.Clone()
		}
	}
	return out
}

// FindPlace returns the place with the given id, or nil.
func (l *List) FindPlace(id string) *Place {
	for _, p := range l.Places {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// HasField reports whether a field with the exact name exists,
// skipping the field at excludeIndex (pass -1 to check all).
func (l *List) HasField(name string, excludeIndex int) bool {
	for i, f := range l.CustomFields {
		if i != excludeIndex && f.Name == name {
			return true
		}
	}
	return false
}
