package catalog

import _ "embed"

//go:embed default_catalog.json
var defaultCatalogJSON []byte

// LoadDefault builds a Store from the dictionary bundled with this module,
// mirroring garmin_lookup.py loading its JSON dictionary once at process
// start. Callers that have a richer, operator-maintained catalog file
// should use New().LoadJSON(data) directly instead.
func LoadDefault() (*Store, error) {
	s := New()
	if err := s.LoadJSON(defaultCatalogJSON); err != nil {
		return nil, err
	}
	return s, nil
}
