package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"daytask/internal/modules/plugin/domain"
	"daytask/internal/modules/plugin/dto"
	pluginout "daytask/internal/modules/plugin/port/out"
)

type PluginService struct {
	store pluginout.ManifestStore
	host  pluginout.Host
}

func NewPluginService(store pluginout.ManifestStore, host pluginout.Host) *PluginService {
	return &PluginService{store: store, host: host}
}

func (s *PluginService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Capabilities: caps})
	}
	return out, nil
}

// Doctor checks every manifest independently; one broken plugin does not
// hide the others.
func (s *PluginService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		results = append(results, s.diagnose(ctx, m))
	}
	return results, nil
}

func (s *PluginService) diagnose(ctx context.Context, m domain.Manifest) dto.DoctorResult {
	result := dto.DoctorResult{Name: m.Name}
	if err := m.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}
	if _, err := os.Stat(m.Binary); err != nil {
		result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		return result
	}
	result.BinaryReachable = true
	if err := verifyChecksum(m.Binary, m.SHA256); err != nil {
		result.Error = err.Error()
		return result
	}
	result.ChecksumValid = true
	if !m.Enabled || s.host == nil {
		return result
	}
	meta, err := s.host.GetMetadata(ctx, m)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if meta.Name != m.Name || meta.Version != m.Version {
		result.Error = fmt.Sprintf("plugin reports %s@%s, manifest says %s@%s", meta.Name, meta.Version, m.Name, m.Version)
		return result
	}
	result.LifecycleOK = true
	return result
}

func (s *PluginService) ListCommands(ctx context.Context, pluginName string) ([]dto.CommandInfo, error) {
	manifest, err := s.runnable(ctx, pluginName)
	if err != nil {
		return nil, err
	}
	commands, err := s.host.ListCommands(ctx, manifest)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CommandInfo, 0, len(commands))
	for _, command := range commands {
		if err := command.Validate(); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", pluginName, err)
		}
		out = append(out, dto.CommandInfo{
			ID:              command.ID,
			Title:           command.Title,
			Description:     command.Description,
			Kind:            string(command.Kind),
			InputSchemaJSON: command.InputSchemaJSON,
			TimeoutMS:       command.TimeoutMS,
		})
	}
	return out, nil
}

// Run executes a command. The command's kind decides which capability the
// manifest must grant, and its timeout bounds the call.
func (s *PluginService) Run(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	manifest, err := s.runnable(ctx, input.PluginName)
	if err != nil {
		return dto.RunOutput{}, err
	}
	if input.InputJSON != "" && !json.Valid([]byte(input.InputJSON)) {
		return dto.RunOutput{}, fmt.Errorf("input-json must be valid JSON")
	}
	req := domain.ExecuteRequest{
		CommandID: input.CommandID,
		InputJSON: input.InputJSON,
		Context: domain.ExecuteContext{
			DataDir: input.DataDir,
			TaskID:  input.TaskID,
			Day:     input.Day,
			Tasks:   toTaskRefs(input.Tasks),
			Cwd:     input.Cwd,
			Env:     input.Env,
		},
	}
	if err := req.Validate(); err != nil {
		return dto.RunOutput{}, err
	}
	commands, err := s.host.ListCommands(ctx, manifest)
	if err != nil {
		return dto.RunOutput{}, err
	}
	command, err := findCommand(commands, input.CommandID)
	if err != nil {
		return dto.RunOutput{}, err
	}
	if !manifest.HasCapability(command.Kind.Capability()) {
		return dto.RunOutput{}, fmt.Errorf("%w: %s needs %s", domain.ErrCapabilityMissing, command.ID, command.Kind)
	}
	req.Timeout = command.Timeout()

	result, err := s.host.Execute(ctx, manifest, req)
	if err != nil {
		return dto.RunOutput{}, err
	}
	return dto.RunOutput{
		PluginName: manifest.Name,
		CommandID:  command.ID,
		Kind:       string(command.Kind),
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		OutputJSON: result.OutputJSON,
		ExitCode:   result.ExitCode,
	}, nil
}

func (s *PluginService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if seen[manifest.Name] {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seen[manifest.Name] = true
	}
	return manifests, nil
}

func (s *PluginService) runnable(ctx context.Context, pluginName string) (domain.Manifest, error) {
	if s.host == nil {
		return domain.Manifest{}, fmt.Errorf("plugin host is not configured")
	}
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	var manifest *domain.Manifest
	for i := range manifests {
		if manifests[i].Name == pluginName {
			manifest = &manifests[i]
			break
		}
	}
	if manifest == nil {
		return domain.Manifest{}, fmt.Errorf("%w: %q", domain.ErrPluginNotFound, pluginName)
	}
	if !manifest.Enabled {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, pluginName)
	}
	if err := verifyChecksum(manifest.Binary, manifest.SHA256); err != nil {
		return domain.Manifest{}, err
	}
	if err := s.host.CheckLifecycle(ctx, *manifest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, pluginName)
		}
		return domain.Manifest{}, err
	}
	return *manifest, nil
}

func findCommand(commands []domain.CommandDescriptor, commandID string) (domain.CommandDescriptor, error) {
	for _, command := range commands {
		if err := command.Validate(); err != nil {
			return domain.CommandDescriptor{}, err
		}
		if command.ID == commandID {
			return command, nil
		}
	}
	return domain.CommandDescriptor{}, fmt.Errorf("%w: %s", domain.ErrCommandNotFound, commandID)
}

func toTaskRefs(tasks []dto.TaskRef) []domain.TaskRef {
	out := make([]domain.TaskRef, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, domain.TaskRef{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			DueAt:       task.DueAt,
			Completed:   task.Completed,
		})
	}
	return out
}

func verifyChecksum(path, expected string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read plugin binary: %w", err)
	}
	defer f.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return fmt.Errorf("hash plugin binary: %w", err)
	}
	if hex.EncodeToString(hash.Sum(nil)) != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}
