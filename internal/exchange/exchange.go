package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nap4595/CustomPlaceDB/pkg/models"
)

// FormatVersion is stamped on every export.
const FormatVersion = "1.2.0"

// Envelope is the portable backup format.
type Envelope struct {
	ExportDate time.Time     `json:"exportDate"`
	Version    string        `json:"version"`
	Lists      *models.Lists `json:"lists"`
}

// ExportJSON wraps the mapping in a dated envelope.
func ExportJSON(lists *models.Lists) ([]byte, error) {
	if lists == nil {
		lists = models.NewLists()
	}
	env := Envelope{
		ExportDate: time.Now().UTC(),
		Version:    FormatVersion,
		Lists:      lists,
	}
	return json.MarshalIndent(env, "", "  ")
}

// ImportJSON parses and validates a backup. Both the envelope form and
// a bare lists mapping are accepted, so older backups keep working.
func ImportJSON(data []byte) (*models.Lists, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Lists != nil {
		if err := validate(env.Lists); err != nil {
			return nil, err
		}
		return env.Lists, nil
	}

	lists := models.NewLists()
	if err := json.Unmarshal(data, lists); err != nil {
		return nil, fmt.Errorf("import: unrecognized format: %w", err)
	}
	if err := validate(lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func validate(lists *models.Lists) error {
	var err error
	lists.Range(func(id string, l *models.List) bool {
		if l == nil || l.Name == "" {
			err = fmt.Errorf("import: list %q has no name", id)
			return false
		}
		for _, f := range l.CustomFields {
			if f.Type == models.FieldSelect && len(f.Options) == 0 {
				err = fmt.Errorf("import: list %q field %q is a select without options", id, f.Name)
				return false
			}
		}
		for _, p := range l.Places {
			if p == nil || p.ID == "" {
				err = fmt.Errorf("import: list %q contains a place without an id", id)
				return false
			}
		}
		return true
	})
	return err
}

// Merge appends the incoming lists to the existing mapping under fresh
// ids. Name collisions get a numeric suffix, smallest free one first.
func Merge(existing, incoming *models.Lists) *models.Lists {
	out := existing.Clone()
	incoming.Range(func(id string, l *models.List) bool {
		merged := l.Clone()
		merged.Name = dedupeName(out, merged.Name)
		out.Set(uuid.NewString(), merged)
		return true
	})
	return out
}

func dedupeName(lists *models.Lists, name string) string {
	if !lists.HasName(name, "") {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !lists.HasName(candidate, "") {
			return candidate
		}
	}
}
