package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/sirupsen/logrus"
)

const DefaultPath = "dns_list.json"

// Pair is {primary, secondary}. Secondary may be empty.
type Pair [2]string

// Addresses returns the non-empty members of the pair in order.
func (p Pair) Addresses() []string {
	out := make([]string, 0, 2)
	for _, a := range p {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (p Pair) String() string {
	return p[0] + ", " + p[1]
}

type Profile struct {
	Name      string
	Addresses Pair
}

var (
	errNotObject    = errors.New("top-level value is not an object")
	errTrailingData = errors.New("extra data after the catalog object")
)

// Store keeps the profile catalog and its JSON file in step. Every mutating call writes the whole
// file before returning. No locking is done here, callers that share a Store serialise access.
type Store struct {
	path     string
	log      logrus.FieldLogger
	names    []string // insertion order
	profiles map[string]Pair
}

// Open creates a store for path and loads it. A missing or broken file leaves the store holding
// the defaults.
func Open(path string, log logrus.FieldLogger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{path: path, log: log.WithField("path", path)}
	s.Load()
	return s
}

func (s *Store) Path() string { return s.path }

// Load rereads the catalog file. Anything that is not an object of name -> [1..2 strings]
// is thrown away and replaced with the defaults, which are written back at once. Corrupt
// content is discarded, never repaired.
func (s *Store) Load() []Profile {
	names, profiles, err := readCatalog(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info("no catalog yet, seeding defaults")
		} else {
			s.log.WithError(err).Warn("catalog unreadable, resetting to defaults")
		}
		s.reset(Defaults())
		if err := s.Save(); err != nil {
			s.log.WithError(err).Warn("could not write default catalog")
		}
		return s.Profiles()
	}
	s.names, s.profiles = names, profiles
	return s.Profiles()
}

func (s *Store) reset(defaults []Profile) {
	s.names = make([]string, 0, len(defaults))
	s.profiles = make(map[string]Pair, len(defaults))
	for _, p := range defaults {
		s.names = append(s.names, p.Name)
		s.profiles[p.Name] = p.Addresses
	}
}

func readCatalog(path string) ([]string, map[string]Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, nil, err
	}
	keys, err := objectKeys(data)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(keys))
	profiles := make(map[string]Pair, len(keys))
	for _, name := range keys {
		if _, seen := profiles[name]; seen {
			continue // duplicate key, the decoder kept the last value
		}
		addrs, err := obj.GetStringArray(name)
		if err != nil {
			return nil, nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if len(addrs) < 1 || len(addrs) > 2 {
			return nil, nil, fmt.Errorf("profile %q: want 1 or 2 addresses, got %d", name, len(addrs))
		}
		var pair Pair
		copy(pair[:], addrs)
		names = append(names, name)
		profiles[name] = pair
	}
	return names, profiles, nil
}

// objectKeys returns the top-level keys of a JSON object in file order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	// Anything after the closing brace makes the file unparseable.
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return keys, nil
}

// Save writes the whole catalog, keys in catalog order.
func (s *Store) Save() error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, name := range s.names {
		pair := s.profiles[name]
		k, _ := json.Marshal(name)
		v, _ := json.Marshal([]string{pair[0], pair[1]})
		buf.WriteString("    ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(s.names)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	if err := writeFile(s.path, buf.Bytes()); err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// writeFile replaces path through a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".dns_list-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) Len() int { return len(s.names) }

func (s *Store) Get(name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	pair, ok := s.profiles[name]
	if !ok {
		return Profile{}, false
	}
	return Profile{Name: name, Addresses: pair}, true
}

// Profiles returns a copy of the catalog in display order.
func (s *Store) Profiles() []Profile {
	out := make([]Profile, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, Profile{Name: name, Addresses: s.profiles[name]})
	}
	return out
}

// Validate checks a candidate profile without touching the catalog.
func Validate(name, primary, secondary string) (Profile, error) {
	name = strings.TrimSpace(name)
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)
	if name == "" {
		return Profile{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if primary == "" {
		return Profile{}, &ValidationError{Field: "primary", Reason: "must not be empty"}
	}
	if !ValidIPv4(primary) {
		return Profile{}, &ValidationError{Field: "primary", Value: primary, Reason: "not a dotted-quad IPv4 address"}
	}
	if secondary != "" && !ValidIPv4(secondary) {
		return Profile{}, &ValidationError{Field: "secondary", Value: secondary, Reason: "not a dotted-quad IPv4 address"}
	}
	return Profile{Name: name, Addresses: Pair{primary, secondary}}, nil
}

// Add inserts or replaces a profile and persists the catalog. A replaced profile keeps its
// position.
func (s *Store) Add(name, primary, secondary string) error {
	p, err := Validate(name, primary, secondary)
	if err != nil {
		return err
	}
	old, existed := s.profiles[p.Name]
	if !existed {
		s.names = append(s.names, p.Name)
	}
	s.profiles[p.Name] = p.Addresses
	if err := s.Save(); err != nil {
		if existed {
			s.profiles[p.Name] = old
		} else {
			delete(s.profiles, p.Name)
			s.names = s.names[:len(s.names)-1]
		}
		return err
	}
	s.log.WithField("profile", p.Name).Debug("profile saved")
	return nil
}

// Remove deletes a profile and persists the catalog. Asking the user first is up to the caller.
func (s *Store) Remove(name string) (bool, error) {
	name = strings.TrimSpace(name)
	pair, ok := s.profiles[name]
	if !ok {
		return false, nil
	}
	idx := indexOf(s.names, name)
	prev := append([]string(nil), s.names...)
	s.names = append(s.names[:idx], s.names[idx+1:]...)
	delete(s.profiles, name)
	if err := s.Save(); err != nil {
		s.names = prev
		s.profiles[name] = pair
		return false, err
	}
	s.log.WithField("profile", name).Debug("profile removed")
	return true, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
