package core

import (
	"encoding/json"
	"strings"
)

// Performer identifies who made an audited change. The backend sends either a
// populated user object or just the user id.
type Performer struct {
	ID   string
	Name string
	// Embedded is true when the backend populated the user object.
	Embedded bool
}

type performerJSON struct {
	UnderscoreID string `json:"_id"`
	Name         string `json:"name"`
	ID           string `json:"id,omitempty"`
}

func (p *Performer) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "" || s == "null":
		*p = Performer{}
		return nil
	case s[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Performer{ID: id}
		return nil
	case s[0] == '{':
		var obj performerJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		id := obj.UnderscoreID
		if id == "" {
			id = obj.ID
		}
		*p = Performer{ID: id, Name: obj.Name, Embedded: true}
		return nil
	default:
		// Numbers and other scalars: keep the literal as the id.
		*p = Performer{ID: s}
		return nil
	}
}

func (p Performer) MarshalJSON() ([]byte, error) {
	if !p.Embedded {
		if p.ID == "" {
			return []byte("null"), nil
		}
		return json.Marshal(p.ID)
	}
	return json.Marshal(performerJSON{UnderscoreID: p.ID, Name: p.Name, ID: p.ID})
}

// DisplayName is the name shown in tables, "Unknown" when not populated.
func (p Performer) DisplayName() string {
	if p.Name == "" {
		return "Unknown"
	}
	return p.Name
}
