package catalog

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlProfile is the shape used for import/export, friendlier to hand-edit than the JSON store.
type yamlProfile struct {
	Name      string `yaml:"name"`
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary,omitempty"`
}

func (s *Store) ExportYAML(w io.Writer) error {
	out := make([]yamlProfile, 0, len(s.names))
	for _, p := range s.Profiles() {
		out = append(out, yamlProfile{Name: p.Name, Primary: p.Addresses[0], Secondary: p.Addresses[1]})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

// ImportYAML validates every entry before anything changes, then merges them into the catalog
// (or replaces it) and persists once. Returns the number of profiles read.
func (s *Store) ImportYAML(r io.Reader, replace bool) (int, error) {
	var in []yamlProfile
	if err := yaml.NewDecoder(r).Decode(&in); err != nil && err != io.EOF {
		return 0, &ValidationError{Field: "import", Reason: fmt.Sprintf("parse yaml: %v", err)}
	}
	valid := make([]Profile, 0, len(in))
	for _, yp := range in {
		p, err := Validate(yp.Name, yp.Primary, yp.Secondary)
		if err != nil {
			return 0, fmt.Errorf("profile %q: %w", yp.Name, err)
		}
		valid = append(valid, p)
	}

	prevNames := append([]string(nil), s.names...)
	prevProfiles := make(map[string]Pair, len(s.profiles))
	for k, v := range s.profiles {
		prevProfiles[k] = v
	}
	if replace {
		s.names = nil
		s.profiles = make(map[string]Pair, len(valid))
	}
	for _, p := range valid {
		if _, ok := s.profiles[p.Name]; !ok {
			s.names = append(s.names, p.Name)
		}
		s.profiles[p.Name] = p.Addresses
	}
	if err := s.Save(); err != nil {
		s.names, s.profiles = prevNames, prevProfiles
		return 0, err
	}
	s.log.WithField("count", len(valid)).Info("profiles imported")
	return len(valid), nil
}
