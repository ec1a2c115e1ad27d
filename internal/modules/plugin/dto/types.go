package dto

import "time"

type PluginInfo struct {
	Name         string
	Version      string
	Enabled      bool
	Binary       string
	Capabilities []string
}

type DoctorResult struct {
	Name            string
	ChecksumValid   bool
	BinaryReachable bool
	LifecycleOK     bool
	Error           string
}

type CommandInfo struct {
	ID              string
	Title           string
	Description     string
	Kind            string
	InputSchemaJSON string
	TimeoutMS       int
}

type TaskRef struct {
	ID          string
	Title       string
	Description string
	DueAt       time.Time
	Completed   bool
}

// RunInput targets one plugin command. Day is YYYY-MM-DD; Tasks are the
// tasks of that day as the caller saw them.
type RunInput struct {
	PluginName string
	CommandID  string
	InputJSON  string
	TaskID     string
	Day        string
	Tasks      []TaskRef
	DataDir    string
	Cwd        string
	Env        map[string]string
}

type RunOutput struct {
	PluginName string
	CommandID  string
	Kind       string
	Stdout     string
	Stderr     string
	OutputJSON string
	ExitCode   int
}
