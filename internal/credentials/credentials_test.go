package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/credentials"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeFile(t, `
opcua:
  plc1:
    endpoint: "opc.tcp://10.0.0.1:4840"
    username: "svc"
    password: "secret"
sql:
  host: "db.internal"
  port: 5432
  username: "bridge"
  password: "secret"
  servername: "primary"
  databasename: "telemetry"
`)

	f, err := credentials.Load(path)
	require.NoError(t, err)
	require.Contains(t, f.OPCUA, "plc1")
	assert.Equal(t, "opc.tcp://10.0.0.1:4840", f.OPCUA["plc1"].Endpoint)
	assert.Equal(t, "telemetry", f.SQL.DatabaseName)
}

func TestLoad_MissingFieldsEnumeratedTogether(t *testing.T) {
	path := writeFile(t, `
opcua:
  plc1:
    username: "svc"
sql:
  host: "db.internal"
`)

	_, err := credentials.Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "opcua.plc1.endpoint")
	assert.Contains(t, msg, "sql.port")
	assert.Contains(t, msg, "sql.username")
	assert.Contains(t, msg, "sql.password")
	assert.Contains(t, msg, "sql.servername")
	assert.Contains(t, msg, "sql.databasename")
}

func TestLoad_MissingOPCUASection(t *testing.T) {
	path := writeFile(t, `
sql:
  host: "db.internal"
  port: 5432
  username: "bridge"
  servername: "primary"
  databasename: "telemetry"
`)

	_, err := credentials.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opcua")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := credentials.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "not: [valid")
	_, err := credentials.Load(path)
	assert.Error(t, err)
}
