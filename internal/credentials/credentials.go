// Package credentials loads the declarative credentials file: one set
// of OPC UA endpoint credentials per PLC key, plus the shared SQL
// connection credentials.
package credentials

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OPCUACredentials is one PLC's endpoint and optional auth.
type OPCUACredentials struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLCredentials is the shared database connection's credentials.
type SQLCredentials struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ServerName   string `yaml:"servername"`
	DatabaseName string `yaml:"databasename"`
}

// File is the fully parsed credentials tree.
type File struct {
	OPCUA map[string]OPCUACredentials `yaml:"opcua"`
	SQL   SQLCredentials              `yaml:"sql"`
}

// Load reads and validates path. On any missing required field it
// returns an error enumerating every absent field in one message,
// rather than failing on the first one found.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
	}

	if missing := f.validate(); len(missing) > 0 {
		return nil, fmt.Errorf("credentials: missing required fields: %s", strings.Join(missing, ", "))
	}
	return &f, nil
}

func (f *File) validate() []string {
	var missing []string

	if len(f.OPCUA) == 0 {
		missing = append(missing, "opcua")
	}
	for key, c := range f.OPCUA {
		if c.Endpoint == "" {
			missing = append(missing, fmt.Sprintf("opcua.%s.endpoint", key))
		}
	}

	if f.SQL.Host == "" {
		missing = append(missing, "sql.host")
	}
	if f.SQL.Port == 0 {
		missing = append(missing, "sql.port")
	}
	if f.SQL.Username == "" {
		missing = append(missing, "sql.username")
	}
	if f.SQL.Password == "" {
		missing = append(missing, "sql.password")
	}
	if f.SQL.ServerName == "" {
		missing = append(missing, "sql.servername")
	}
	if f.SQL.DatabaseName == "" {
		missing = append(missing, "sql.databasename")
	}

	return missing
}
