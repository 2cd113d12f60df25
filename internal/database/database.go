// Package database holds the in-memory collection of site records and its
// plaintext serialization, which is what the vault package encrypts.
package database

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/laurinneff/passwd.mgr/internal/models"
)

// FormatVersion identifies the plaintext layout produced by Serialize.
const FormatVersion = 1

// ErrEmptyName is returned by AddSite for an empty site name.
var ErrEmptyName error = &models.RecordError{Index: -1, Reason: "site name must not be empty"}

// Database maps site names to records. Names are case-sensitive and keep
// the order they were first added in.
type Database struct {
	sites map[string]models.Site
	order []string
}

// New returns an empty database.
func New() *Database {
	return &Database{
		sites: make(map[string]models.Site),
	}
}

// AddSite inserts or replaces the record stored under name. Replacing keeps
// the name's original position. Callers that must not overwrite check
// HasSite first. The name and every field must be valid UTF-8 so that the
// record survives serialization unchanged.
func (d *Database) AddSite(name string, site models.Site) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := checkUTF8(name, site); err != nil {
		return err
	}
	if _, ok := d.sites[name]; !ok {
		d.order = append(d.order, name)
	}
	d.sites[name] = site
	return nil
}

func checkUTF8(name string, site models.Site) error {
	fields := []struct {
		key   string
		value string
	}{
		{"name", name},
		{"username", site.Username()},
		{"email", site.Email()},
		{"password", site.Password()},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return &models.RecordError{Index: -1, Reason: f.key + " is not valid UTF-8"}
		}
	}
	return nil
}

// HasSite reports whether a record exists under name.
func (d *Database) HasSite(name string) bool {
	_, ok := d.sites[name]
	return ok
}

// GetSite returns the record stored under name.
func (d *Database) GetSite(name string) (models.Site, error) {
	site, ok := d.sites[name]
	if !ok {
		return models.Site{}, &models.SiteError{Name: name, Err: models.ErrNotFound}
	}
	return site, nil
}

// RemoveSite deletes the record stored under name.
func (d *Database) RemoveSite(name string) error {
	if _, ok := d.sites[name]; !ok {
		return &models.SiteError{Name: name, Err: models.ErrNotFound}
	}
	delete(d.sites, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListSites returns the site names in insertion order.
func (d *Database) ListSites() []string {
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

// Len returns the number of stored sites.
func (d *Database) Len() int {
	return len(d.order)
}

// Equal reports whether both databases hold the same names with equal
// records. Order is ignored.
func (d *Database) Equal(other *Database) bool {
	if other == nil || len(d.sites) != len(other.sites) {
		return false
	}
	for name, site := range d.sites {
		o, ok := other.sites[name]
		if !ok || !site.Equal(o) {
			return false
		}
	}
	return true
}

type document struct {
	Version int     `json:"version"`
	Sites   []entry `json:"sites"`
}

type entry struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Serialize returns the canonical plaintext form:
//
//	{"version":1,"sites":[{"name":"...","username":"...","email":"...","password":"..."}]}
//
// Entries appear in insertion order.
func (d *Database) Serialize() ([]byte, error) {
	doc := document{
		Version: FormatVersion,
		Sites:   make([]entry, 0, len(d.order)),
	}
	for _, name := range d.order {
		site := d.sites[name]
		doc.Sites = append(doc.Sites, entry{
			Name:     name,
			Username: site.Username(),
			Email:    site.Email(),
			Password: site.Password(),
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal database: %w", err)
	}
	return data, nil
}

// Deserialize parses the output of Serialize. Every node's type is checked;
// anything unexpected fails with an error wrapping models.ErrMalformedRecord.
func Deserialize(data []byte) (*Database, error) {
	js, err := simplejson.NewJson(data)
	if err != nil {
		return nil, &models.RecordError{Index: -1, Reason: "invalid JSON"}
	}
	if _, err := js.Map(); err != nil {
		return nil, &models.RecordError{Index: -1, Reason: "document is not an object"}
	}

	versionNode, ok := js.CheckGet("version")
	if !ok {
		return nil, &models.RecordError{Index: -1, Reason: "missing version"}
	}
	if version, err := versionNode.Int(); err != nil || version != FormatVersion {
		return nil, &models.RecordError{Index: -1, Reason: "unsupported version"}
	}

	sitesNode, ok := js.CheckGet("sites")
	if !ok {
		return nil, &models.RecordError{Index: -1, Reason: "missing sites"}
	}
	entries, err := sitesNode.Array()
	if err != nil {
		return nil, &models.RecordError{Index: -1, Reason: "sites is not an array"}
	}

	db := New()
	for i := range entries {
		node := sitesNode.GetIndex(i)
		if _, err := node.Map(); err != nil {
			return nil, &models.RecordError{Index: i, Reason: "entry is not an object"}
		}

		name, err := stringField(node, i, "name", true)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, &models.RecordError{Index: i, Reason: "empty name"}
		}
		if db.HasSite(name) {
			return nil, &models.RecordError{Index: i, Reason: "duplicate name"}
		}

		var fields [3]string
		for j, key := range []string{"username", "email", "password"} {
			if fields[j], err = stringField(node, i, key, false); err != nil {
				return nil, err
			}
		}

		if err := db.AddSite(name, models.NewSite(fields[0], fields[1], fields[2])); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func stringField(node *simplejson.Json, index int, key string, required bool) (string, error) {
	v, ok := node.CheckGet(key)
	if !ok {
		if required {
			return "", &models.RecordError{Index: index, Reason: fmt.Sprintf("missing field %q", key)}
		}
		return "", nil
	}
	s, err := v.String()
	if err != nil {
		return "", &models.RecordError{Index: index, Reason: fmt.Sprintf("field %q is not a string", key)}
	}
	return s, nil
}
