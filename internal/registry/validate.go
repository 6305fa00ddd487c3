// Package registry implements the RegistryEntry repository: validation,
// uniqueness, dependency-graph acyclicity, and the Version(semver) sort
// strategy. Modeled on native/governance's validation helpers
// (gov/validate.go's field-bound checks), generalized from governance
// config deltas to catalog-entry fields.
package registry

import (
	"fmt"
	"regexp"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/model"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

const (
	maxTags         = 10
	maxCategories   = 10
	maxMetadata     = 10
	maxDependencies = 25
)

// Validate checks e against every field-level invariant in §3 short of the
// repository-wide ones (global uniqueness, acyclicity, value-kind
// consistency), which require looking at other entries and are enforced
// in repository.go.
func Validate(e *model.RegistryEntry) error {
	if err := validateSlug("namespace", e.Namespace, 2, 32); err != nil {
		return err
	}
	if err := validateSlug("name", e.Name, 2, 48); err != nil {
		return err
	}
	if n := len(e.Description); n < 24 || n > 512 {
		return apperr.NewValidation("description must be 24-512 characters")
	}
	if len(e.Tags) > maxTags {
		return apperr.NewValidation("at most 10 tags allowed")
	}
	if err := validateUniqueStrings("tags", e.Tags, 2, 32); err != nil {
		return err
	}
	if len(e.Categories) > maxCategories {
		return apperr.NewValidation("at most 10 categories allowed")
	}
	if err := validateUniqueStrings("categories", e.Categories, 2, 32); err != nil {
		return err
	}
	if len(e.Metadata) > maxMetadata {
		return apperr.NewValidation("at most 10 metadata entries allowed")
	}
	for _, m := range e.Metadata {
		if len(m.Key) < 1 || len(m.Key) > 32 {
			return apperr.NewValidation("metadata key must be 1-32 characters")
		}
		if len(m.Value) < 1 || len(m.Value) > 512 {
			return apperr.NewValidation("metadata value must be 1-512 characters")
		}
	}
	if len(e.Value.Version) < 1 || len(e.Value.Version) > 32 {
		return apperr.NewValidation("value.version must be 1-32 characters")
	}
	if len(e.Value.Dependencies) > maxDependencies {
		return apperr.NewValidation("at most 25 dependencies allowed")
	}
	if e.UpdatedAt < e.CreatedAt {
		return apperr.NewValidation("updated_at must be >= created_at")
	}
	return nil
}

func validateSlug(field, value string, min, max int) error {
	if len(value) < min || len(value) > max {
		return apperr.NewValidation(fmt.Sprintf("%s must be %d-%d characters", field, min, max))
	}
	if !slugPattern.MatchString(value) {
		return apperr.NewValidation(field + " must be lowercase alphanumeric/hyphen, not starting or ending with a hyphen")
	}
	return nil
}

func validateUniqueStrings(field string, values []string, min, max int) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if len(v) < min || len(v) > max {
			return apperr.NewValidation(fmt.Sprintf("each %s entry must be %d-%d characters", field, min, max))
		}
		if seen[v] {
			return apperr.NewValidation(field + " entries must be unique within an entry")
		}
		seen[v] = true
	}
	return nil
}
