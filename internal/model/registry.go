package model

import "ctrlplane/internal/ids"

// WasmDependency names another registry entry's fullname+version this
// module declares a dependency on (§3 RegistryEntry invariants).
type WasmDependency struct {
	Fullname string
	Version  string
}

// WasmModule is the sole RegistryEntry value kind currently defined.
type WasmModule struct {
	ArtifactID   string
	Version      string
	Dependencies []WasmDependency
}

// RegistryEntryMetadata is a single (key, value) annotation.
type RegistryEntryMetadata struct {
	Key   string
	Value string
}

// RegistryEntry is the package/version catalog entity (§3). Namespace and
// name together with version must be globally unique; a given
// (namespace, name) pair is restricted to one value kind across all its
// versions.
type RegistryEntry struct {
	ID          ids.ID
	Namespace   string
	Name        string
	Description string
	Tags        []string
	Categories  []string
	Metadata    []RegistryEntryMetadata
	Value       WasmModule
	CreatedAt   int64 // unix nanos
	UpdatedAt   int64
}

// Fullname is "@" ++ namespace ++ "/" ++ name, the search key for registry
// lookups (§GLOSSARY).
func (e *RegistryEntry) Fullname() string {
	return "@" + e.Namespace + "/" + e.Name
}
