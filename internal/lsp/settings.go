package lsp

import (
	"encoding/json"
	"slices"
	"sort"

	"lintpad/internal/config"
)

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	s.applySettings(params.Settings)
	return nil
}

// applySettings forwards every field whose value differs from the effective
// session value to the config handlers, in group/field order.
func (s *Server) applySettings(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logf("ignoring malformed settings: %v", err)
		return
	}
	s.mu.Lock()
	store := s.store
	handlers := slices.Clone(s.configHandlers)
	s.mu.Unlock()
	if store == nil {
		return
	}
	current := store.State().Config

	groups := make([]string, 0, len(settings.Lintpad.Config))
	for g := range settings.Lintpad.Config {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, group := range groups {
		fields := settings.Lintpad.Config[group]
		names := make([]string, 0, len(fields))
		for f := range fields {
			names = append(names, f)
		}
		sort.Strings(names)
		for _, field := range names {
			value := fields[field]
			if value == config.Value(s.opts.Catalog, current, group, field) {
				continue
			}
			for _, fn := range handlers {
				fn(group, field, value)
			}
		}
	}
}
