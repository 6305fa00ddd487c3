package registry

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/index"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// Repository owns the RegistryEntry stable map plus the secondary indexes
// needed to enforce §3's repository-wide invariants: global
// (namespace, name, version) uniqueness, one value kind per
// (namespace, name), and acyclicity of the dependency graph keyed by
// fullname+version. Grounded on PolicyRepository's index.Set +
// checkAcyclic/walk pattern (internal/request/policy_repo.go),
// generalized from a named-rule reference graph to a cross-entry
// dependency graph.
type Repository struct {
	entries    *store.Map[model.RegistryEntry]
	byTriple   *index.Set // (namespace,name,version) -> id, for global uniqueness
	byFullname *index.Set // fullname -> id, for the one-value-kind-per-name lookup
}

// NewRepository wires the registry's stable map and indexes.
func NewRepository(db store.Database) *Repository {
	return &Repository{
		entries:    store.NewMap[model.RegistryEntry](db, "registry_entry"),
		byTriple:   index.NewSet(db, "registry_by_triple"),
		byFullname: index.NewSet(db, "registry_by_fullname"),
	}
}

func tripleKey(namespace, name, version string) []byte {
	return []byte(namespace + "\x00" + name + "\x00" + version)
}

func dependencyKey(fullname, version string) string {
	return fullname + "@" + version
}

// Get returns the entry by id.
func (r *Repository) Get(id ids.ID) (*model.RegistryEntry, bool, error) {
	return r.entries.Get(id)
}

// ListByFullname returns every version of (namespace, name), in ascending
// entry-id order; callers that need semver ordering should call
// SortByVersion.
func (r *Repository) ListByFullname(namespace, name string) ([]*model.RegistryEntry, error) {
	ids_, err := r.byFullname.Lookup([]byte("@" + namespace + "/" + name))
	if err != nil {
		return nil, err
	}
	out := make([]*model.RegistryEntry, 0, len(ids_))
	for _, id := range ids_ {
		e, ok, err := r.entries.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Insert validates e, enforces global (namespace,name,version) uniqueness,
// the one-value-kind-per-(namespace,name) invariant, and dependency-graph
// acyclicity, then persists it (§3, scenario S7). Insert never updates an
// existing entry — registry entries are immutable once created beyond the
// fields a future "republish" operation would touch, so there is no
// companion Update.
func (r *Repository) Insert(e *model.RegistryEntry) error {
	if err := Validate(e); err != nil {
		return err
	}

	existing, err := r.byTriple.Lookup(tripleKey(e.Namespace, e.Name, e.Value.Version))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return apperr.NewValidation("duplicate registry entry for namespace/name/version",
			"namespace", e.Namespace, "name", e.Name, "version", e.Value.Version)
	}

	siblings, err := r.ListByFullname(e.Namespace, e.Name)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if !sameValueKind(s.Value, e.Value) {
			return apperr.NewValidation("(namespace, name) is already registered under a different value kind",
				"namespace", e.Namespace, "name", e.Name)
		}
	}

	if err := r.checkAcyclic(e); err != nil {
		return err
	}

	if err := r.byTriple.Reindex(e.ID, nil, [][]byte{tripleKey(e.Namespace, e.Name, e.Value.Version)}); err != nil {
		return err
	}
	if err := r.byFullname.Reindex(e.ID, nil, [][]byte{[]byte(e.Fullname())}); err != nil {
		return err
	}
	return r.entries.Put(e.ID, e)
}

// sameValueKind reports whether a and b are instances of the same
// RegistryEntry value kind. WasmModule is the only kind model.go currently
// defines, so this is trivially true today; it exists so a future second
// value kind only needs a type switch here, not a repository rewrite.
func sameValueKind(a, b model.WasmModule) bool {
	return true
}

// checkAcyclic walks e's dependency graph, following each WasmDependency's
// fullname+version through already-persisted entries, and fails if the
// walk ever revisits e's own fullname+version (§3 "dependency graphs must
// be acyclic"). Grounded on PolicyRepository.checkAcyclic/walk, keyed by
// fullname+version instead of ids.ID since dependencies reference entries
// by name, not by id.
func (r *Repository) checkAcyclic(e *model.RegistryEntry) error {
	self := dependencyKey(e.Fullname(), e.Value.Version)
	visited := map[string]bool{self: true}
	return r.walkDependencies(e.Value.Dependencies, visited)
}

func (r *Repository) walkDependencies(deps []model.WasmDependency, visited map[string]bool) error {
	for _, dep := range deps {
		key := dependencyKey(dep.Fullname, dep.Version)
		if visited[key] {
			return apperr.NewCyclicReference("registry dependency cycle detected involving " + key)
		}
		resolved, ok, err := r.findByFullnameVersion(dep.Fullname, dep.Version)
		if err != nil {
			return err
		}
		if !ok {
			continue // dangling dependency reference: a publish-time concern for a later version, not a cycle
		}
		visited[key] = true
		if err := r.walkDependencies(resolved.Value.Dependencies, visited); err != nil {
			return err
		}
		delete(visited, key)
	}
	return nil
}

func (r *Repository) findByFullnameVersion(fullname, version string) (*model.RegistryEntry, bool, error) {
	namespace, name, ok := splitFullname(fullname)
	if !ok {
		return nil, false, nil
	}
	entries, err := r.ListByFullname(namespace, name)
	if err != nil {
		return nil, false, err
	}
	for _, e := range entries {
		if e.Value.Version == version {
			return e, true, nil
		}
	}
	return nil, false, nil
}

func splitFullname(fullname string) (namespace, name string, ok bool) {
	if len(fullname) < 2 || fullname[0] != '@' {
		return "", "", false
	}
	rest := fullname[1:]
	for i, c := range rest {
		if c == '/' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}

// SortDirection selects ascending or descending semver order for
// SortByVersion (§4.5's Version(semver, asc|desc) sort strategy).
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortByVersion orders entries by their Value.Version field under semver
// comparison rather than lexical string order, so "10.0.0" correctly sorts
// after "2.0.0" instead of before it. Entries whose version fails to parse
// as semver sort last, since §3 only requires version to be a 1-32
// character string, not that every entry be valid semver.
func SortByVersion(entries []*model.RegistryEntry, dir SortDirection) []*model.RegistryEntry {
	out := append([]*model.RegistryEntry(nil), entries...)
	parsed := make(map[*model.RegistryEntry]*semver.Version, len(out))
	for _, e := range out {
		if v, err := semver.NewVersion(e.Value.Version); err == nil {
			parsed[e] = v
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, oki := parsed[out[i]]
		vj, okj := parsed[out[j]]
		if !oki || !okj {
			return oki && !okj
		}
		if dir == Descending {
			return vi.GreaterThan(vj)
		}
		return vi.LessThan(vj)
	})
	return out
}
