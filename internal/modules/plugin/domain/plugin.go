package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

type Capability string

const (
	CapabilityCommand Capability = "command"
	CapabilityAnalyze Capability = "analyze"
)

var (
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrPluginDisabled    = errors.New("plugin is disabled")
	ErrChecksumMismatch  = errors.New("plugin checksum mismatch")
	ErrCapabilityMissing = errors.New("plugin capability missing")
	ErrCommandNotFound   = errors.New("plugin command not found")
	ErrPluginTimeout     = errors.New("plugin timeout")
)

const DefaultCommandTimeout = 5 * time.Second

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Manifest is one entry of plugins/plugins.json.
type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Binary       string       `json:"binary"`
	SHA256       string       `json:"sha256"`
	Enabled      bool         `json:"enabled"`
	Capabilities []Capability `json:"capabilities"`
}

func (m Manifest) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("plugin name is required")
	case m.Version == "":
		return fmt.Errorf("plugin %s: version is required", m.Name)
	case m.Binary == "":
		return fmt.Errorf("plugin %s: binary path is required", m.Name)
	case !sha256Pattern.MatchString(m.SHA256):
		return fmt.Errorf("plugin %s: sha256 must be lowercase 64-char hex", m.Name)
	case len(m.Capabilities) == 0:
		return fmt.Errorf("plugin %s: capabilities are required", m.Name)
	}
	seen := make(map[Capability]bool, len(m.Capabilities))
	for _, capability := range m.Capabilities {
		if err := capability.Validate(); err != nil {
			return err
		}
		if seen[capability] {
			return fmt.Errorf("plugin %s: duplicate capability %s", m.Name, capability)
		}
		seen[capability] = true
	}
	return nil
}

func (c Capability) Validate() error {
	switch c {
	case CapabilityCommand, CapabilityAnalyze:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

func (m Manifest) HasCapability(capability Capability) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// CommandKind mirrors Capability: a command of kind analyze needs the
// analyze capability on its manifest.
type CommandKind string

const (
	CommandKindCommand CommandKind = "command"
	CommandKindAnalyze CommandKind = "analyze"
)

func (k CommandKind) Validate() error {
	switch k {
	case CommandKindCommand, CommandKindAnalyze:
		return nil
	default:
		return fmt.Errorf("unknown command kind: %s", k)
	}
}

func (k CommandKind) Capability() Capability {
	return Capability(k)
}

type CommandDescriptor struct {
	ID              string
	Title           string
	Description     string
	Kind            CommandKind
	InputSchemaJSON string
	TimeoutMS       int
}

func (d CommandDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("command id is required")
	}
	return d.Kind.Validate()
}

func (d CommandDescriptor) Timeout() time.Duration {
	if d.TimeoutMS <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

type Metadata struct {
	Name         string
	Version      string
	Capabilities []Capability
}

// TaskRef is the read-only view of a task handed to plugins.
type TaskRef struct {
	ID          string
	Title       string
	Description string
	DueAt       time.Time
	Completed   bool
}

// ExecuteContext tells a plugin where it runs and which day or task the user
// had selected.
type ExecuteContext struct {
	DataDir string
	TaskID  string
	Day     string
	Tasks   []TaskRef
	Cwd     string
	Env     map[string]string
}

func (c ExecuteContext) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.Cwd == "" {
		return fmt.Errorf("cwd is required")
	}
	if c.Day != "" {
		if _, err := time.Parse(time.DateOnly, c.Day); err != nil {
			return fmt.Errorf("day must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

type ExecuteRequest struct {
	CommandID string
	InputJSON string
	Context   ExecuteContext
	Timeout   time.Duration
}

func (r ExecuteRequest) Validate() error {
	if r.CommandID == "" {
		return fmt.Errorf("command id is required")
	}
	return r.Context.Validate()
}

type ExecuteResult struct {
	Stdout     string
	Stderr     string
	OutputJSON string
	ExitCode   int
}
