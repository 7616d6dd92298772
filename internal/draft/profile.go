package draft

import "strings"

// Profile describes the sender. Every field is optional free text.
type Profile struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Company      string `json:"company,omitempty" yaml:"company,omitempty"`
	Experience   string `json:"experience,omitempty" yaml:"experience,omitempty"`
	Location     string `json:"location,omitempty" yaml:"location,omitempty"`
	Phone        string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`
	Website      string `json:"website,omitempty" yaml:"website,omitempty"`
	LinkedIn     string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	GitHub       string `json:"github,omitempty" yaml:"github,omitempty"`
	Skills       string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Summary      string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Achievements string `json:"achievements,omitempty" yaml:"achievements,omitempty"`
}

// Field is one labelled profile value.
type Field struct {
	Label string
	Value string
}

// Fields returns all profile fields in display order.
func (p Profile) Fields() []Field {
	return []Field{
		{"Name", p.Name},
		{"Title", p.Title},
		{"Company", p.Company},
		{"Experience", p.Experience},
		{"Location", p.Location},
		{"Phone", p.Phone},
		{"Email", p.Email},
		{"Website", p.Website},
		{"LinkedIn", p.LinkedIn},
		{"GitHub", p.GitHub},
		{"Skills", p.Skills},
		{"Summary", p.Summary},
		{"Achievements", p.Achievements},
	}
}

// Lines renders the non-empty fields as "Label: value".
func (p Profile) Lines() []string {
	var lines []string
	for _, f := range p.Fields() {
		if v := strings.TrimSpace(f.Value); v != "" {
			lines = append(lines, f.Label+": "+v)
		}
	}
	return lines
}

// IsEmpty reports whether no field has a value.
func (p Profile) IsEmpty() bool {
	return len(p.Lines()) == 0
}
