// Package registry loads the per-PLC node-mapping file into a poll set
// and an alarm set, and detects file modification for hot reload.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felipevillazon/xelips/internal/nodeid"
)

// ReadingsTable is the fixed destination table name for polled readings.
const ReadingsTable = "object_readings"

// Field identifies which alarm-related column a routed node id feeds.
type Field int

const (
	FieldSeverity Field = iota
	FieldAck
	FieldErrorCode
	FieldValue
	FieldSystemState
)

func (f Field) String() string {
	switch f {
	case FieldSeverity:
		return "severity"
	case FieldAck:
		return "ack"
	case FieldErrorCode:
		return "error_code"
	case FieldValue:
		return "value"
	case FieldSystemState:
		return "system_state"
	default:
		return "unknown"
	}
}

// PollEntry is the poll-set value for one node id.
type PollEntry struct {
	ObjectID  int32
	TableName string
}

// AlarmMapping is one monitored object's alarm node wiring.
type AlarmMapping struct {
	ObjectID    int32
	SystemID    int32
	Severity    nodeid.NodeID
	Ack         nodeid.NodeID
	ErrorCode   *nodeid.NodeID
	Value       *nodeid.NodeID
	SystemState *nodeid.NodeID
}

// Snapshot is an immutable, fully-loaded registry: the poll map and the
// alarm mappings list. It supersedes any prior snapshot wholesale.
type Snapshot struct {
	Poll   map[string]PollEntry
	Alarms []AlarmMapping
}

// Loader reads the declarative node-registry file and tracks
// modification times per path for hot-reload detection.
type Loader struct {
	mu       sync.Mutex
	modTimes map[string]time.Time
	logger   *slog.Logger
}

// NewLoader constructs a Loader. logger may be nil, in which case a
// default text logger writing to stdout is used.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return &Loader{modTimes: make(map[string]time.Time), logger: logger}
}

// Load parses path unconditionally, without consulting or updating the
// modification-time cache. Used for first-boot loads.
func (l *Loader) Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	return parse(data, l.logger)
}

// CheckAndReload returns (snapshot, true) iff path's modification time
// has strictly advanced since the previous call for this path and the
// new content parsed. The first observation of a path seeds the stored
// mtime and reports false. A stat failure or parse failure also reports
// false and leaves the stored mtime untouched (the caller keeps its
// previously active snapshot).
func (l *Loader) CheckAndReload(path string) (*Snapshot, bool) {
	info, err := os.Stat(path)
	if err != nil {
		l.logger.Error("registry: stat failed", "path", path, "error", err)
		return nil, false
	}

	l.mu.Lock()
	stored, seen := l.modTimes[path]
	l.mu.Unlock()

	if !seen {
		l.mu.Lock()
		l.modTimes[path] = info.ModTime()
		l.mu.Unlock()
		return nil, false
	}

	if !info.ModTime().After(stored) {
		return nil, false
	}

	snap, err := l.Load(path)
	if err != nil {
		l.logger.Error("registry: reload failed, keeping prior snapshot", "path", path, "error", err)
		return nil, false
	}

	l.mu.Lock()
	l.modTimes[path] = info.ModTime()
	l.mu.Unlock()

	return snap, true
}

type rawFile struct {
	Objects map[string]rawEntry `yaml:"objects"`
	Sensors map[string]rawEntry `yaml:"sensors"`
}

type rawEntry struct {
	Columns rawColumns `yaml:"columns"`
	Alarm   *rawAlarm  `yaml:"alarm"`
}

type rawColumns struct {
	ObjectID     *int32 `yaml:"object_id"`
	SystemID     *int32 `yaml:"system_id"`
	ObjectNodeID string `yaml:"object_node_id"`
}

type rawAlarm struct {
	Columns rawAlarmColumns `yaml:"columns"`
}

type rawAlarmColumns struct {
	SeverityNodeID     string `yaml:"severity_node_id"`
	AckNodeID          string `yaml:"ack_node_id"`
	AcknowledgedNodeID string `yaml:"acknowledged_node_id"`
	ErrorCodeNodeID    string `yaml:"error_code_node_id"`
	ValueNodeID        string `yaml:"value_node_id"`
	SystemStateNodeID  string `yaml:"system_state_node_id"`
}

func parse(data []byte, logger *slog.Logger) (*Snapshot, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: malformed document: %w", err)
	}

	entries := raw.Objects
	if len(raw.Sensors) > 0 {
		if entries == nil {
			entries = raw.Sensors
		} else {
			for k, v := range raw.Sensors {
				entries[k] = v
			}
		}
	}

	if len(entries) == 0 {
		logger.Error("registry: malformed root, expected 'objects' or 'sensors'")
		return &Snapshot{Poll: map[string]PollEntry{}}, nil
	}

	snap := &Snapshot{Poll: make(map[string]PollEntry, len(entries))}

	for key, entry := range entries {
		if entry.Columns.ObjectID == nil {
			logger.Error("registry: skipping entry, missing object_id", "entry", key)
			continue
		}
		if entry.Columns.ObjectNodeID == "" {
			logger.Error("registry: skipping entry, missing object_node_id", "entry", key)
			continue
		}
		id, err := nodeid.Parse(entry.Columns.ObjectNodeID)
		if err != nil {
			logger.Error("registry: skipping entry, unparsable object_node_id", "entry", key, "error", err)
			continue
		}

		text := id.String()
		if _, dup := snap.Poll[text]; dup {
			logger.Error("registry: duplicate node id, replacing earlier entry", "node_id", text, "entry", key)
		}
		snap.Poll[text] = PollEntry{
			ObjectID:  *entry.Columns.ObjectID,
			TableName: ReadingsTable,
		}

		if entry.Alarm == nil {
			continue
		}
		if entry.Columns.SystemID == nil {
			logger.Error("registry: skipping alarm mapping, missing system_id", "entry", key)
			continue
		}
		mapping, err := parseAlarm(*entry.Columns.ObjectID, *entry.Columns.SystemID, entry.Alarm.Columns)
		if err != nil {
			logger.Error("registry: skipping alarm mapping", "entry", key, "error", err)
			continue
		}
		snap.Alarms = append(snap.Alarms, mapping)
	}

	return snap, nil
}

func parseAlarm(objectID, systemID int32, cols rawAlarmColumns) (AlarmMapping, error) {
	ack := cols.AckNodeID
	if ack == "" {
		ack = cols.AcknowledgedNodeID
	}
	if cols.SeverityNodeID == "" || ack == "" {
		return AlarmMapping{}, fmt.Errorf("alarm mapping requires severity_node_id and ack_node_id")
	}

	sev, err := nodeid.Parse(cols.SeverityNodeID)
	if err != nil {
		return AlarmMapping{}, fmt.Errorf("severity_node_id: %w", err)
	}
	ackID, err := nodeid.Parse(ack)
	if err != nil {
		return AlarmMapping{}, fmt.Errorf("ack_node_id: %w", err)
	}

	m := AlarmMapping{ObjectID: objectID, SystemID: systemID, Severity: sev, Ack: ackID}

	if cols.ErrorCodeNodeID != "" {
		id, err := nodeid.Parse(cols.ErrorCodeNodeID)
		if err != nil {
			return AlarmMapping{}, fmt.Errorf("error_code_node_id: %w", err)
		}
		m.ErrorCode = &id
	}
	if cols.ValueNodeID != "" {
		id, err := nodeid.Parse(cols.ValueNodeID)
		if err != nil {
			return AlarmMapping{}, fmt.Errorf("value_node_id: %w", err)
		}
		m.Value = &id
	}
	if cols.SystemStateNodeID != "" {
		id, err := nodeid.Parse(cols.SystemStateNodeID)
		if err != nil {
			return AlarmMapping{}, fmt.Errorf("system_state_node_id: %w", err)
		}
		m.SystemState = &id
	}

	return m, nil
}
