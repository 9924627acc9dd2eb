package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StaticRow is one pre-seeded row for a static reference table, read
// from a schema file's optional seed_rows block.
type StaticRow map[string]any

type rawSeedFile struct {
	SeedRows map[string][]StaticRow `yaml:"seed_rows"`
}

// StaticRows reads the optional seed_rows block of a schema file and
// returns the rows declared for tableKey. It supplements
// bootstrap_schema: small reference tables (systems, plcs, equipment
// catalogs) declared alongside the table DDL can be pre-populated
// without a separate loading path. Returns an empty slice, not an
// error, when the block or the table key is absent.
func StaticRows(path, tableKey string) ([]StaticRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read seed rows from %s: %w", path, err)
	}
	var raw rawSeedFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: malformed seed_rows in %s: %w", path, err)
	}
	return raw.SeedRows[tableKey], nil
}
