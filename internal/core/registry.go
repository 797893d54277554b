package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

// Register adds a format definition to the registry.
// Panics if a format with the same key is already registered or if the
// parser does not match the target.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", def.Info.Key))
	}

	var ok bool
	switch def.Info.Target {
	case TargetVote:
		ok = def.ParseVote != nil
	case TargetElection:
		ok = def.ParseElection != nil
	case TargetParties:
		ok = def.ParseParties != nil
	}
	if !ok {
		panic(fmt.Sprintf("format %s has no parser for target %q", def.Info.Key, def.Info.Target))
	}

	seen := make(map[string]bool, len(def.Info.Files))
	for _, f := range def.Info.Files {
		if seen[f.Role] {
			panic(fmt.Sprintf("format %s declares file role %s twice", def.Info.Key, f.Role))
		}
		seen[f.Role] = true
	}

	registry[def.Info.Key] = def
}

// Get returns a format definition by key.
// Returns false if not found.
func Get(key string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered format definitions.
// Sorted by target then by key for consistent ordering.
func All() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Target != result[j].Info.Target {
			return result[i].Info.Target < result[j].Info.Target
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByTarget returns all format definitions for a target, sorted by key.
func ByTarget(target Target) []FormatDefinition {
	var result []FormatDefinition
	for _, def := range All() {
		if def.Info.Target == target {
			result = append(result, def)
		}
	}
	return result
}

// FormatCount returns the number of registered formats.
func FormatCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
