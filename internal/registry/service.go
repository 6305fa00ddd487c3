package registry

import (
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
	"ctrlplane/internal/store"
)

// Clock matches request.Clock's and dr.Clock's shape so tests can control
// "now" without sleeping.
type Clock func() time.Time

// Service is the thin operation surface over Repository: it owns id and
// timestamp assignment so callers (the HTTP layer, a publish CLI) never
// construct a RegistryEntry's identity fields themselves.
type Service struct {
	repo *Repository
	now  Clock
}

// NewService wires a registry Service against db. now defaults to
// time.Now when nil.
func NewService(db store.Database, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: NewRepository(db), now: now}
}

// Publish inserts a new RegistryEntry, assigning its id and both
// timestamps from the current clock (§3 scenario S7's "publish" path).
func (s *Service) Publish(namespace, name, description string, tags, categories []string, metadata []model.RegistryEntryMetadata, value model.WasmModule) (*model.RegistryEntry, error) {
	now := s.now().UnixNano()
	entry := &model.RegistryEntry{
		ID:          ids.New(),
		Namespace:   namespace,
		Name:        name,
		Description: description,
		Tags:        tags,
		Categories:  categories,
		Metadata:    metadata,
		Value:       value,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns a single entry by id.
func (s *Service) Get(id ids.ID) (*model.RegistryEntry, bool, error) {
	return s.repo.Get(id)
}

// ListVersions returns every published version of (namespace, name)
// ordered by semver (§4.5's Version(semver) sort strategy).
func (s *Service) ListVersions(namespace, name string, dir SortDirection) ([]*model.RegistryEntry, error) {
	entries, err := s.repo.ListByFullname(namespace, name)
	if err != nil {
		return nil, err
	}
	return SortByVersion(entries, dir), nil
}
