package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidOrderBy is returned when order_by is not an allowed sort field.
	ErrInvalidOrderBy = errors.New("order_by is not a sortable field")

	// ErrInvalidOrderDirection is returned when order_direction is neither ASC nor DESC.
	ErrInvalidOrderDirection = errors.New("order_direction must be ASC or DESC")
)

const (
	// DefaultPerPage is the page size applied when per_page is absent or zero.
	DefaultPerPage = 10

	// DefaultOrderBy is the sort field applied when order_by is absent.
	DefaultOrderBy = "created_at"
)

// sortColumns is the allow-list of order_by values mapped to their qualified
// columns in the scripts/current-version join.
var sortColumns = map[string]string{
	"id":          "scripts.id",
	"title":       "script_versions.title",
	"language":    "script_versions.language",
	"description": "script_versions.description",
	"created_at":  "scripts.created_at",
	"updated_at":  "scripts.updated_at",
}

// Store defines the interface for script registry operations.
type Store interface {
	// Create registers a new script together with its first version.
	Create(ctx context.Context, version *ScriptVersion) (*Script, error)

	// Get retrieves the summary of a script by its ID, keyed scripts included.
	Get(ctx context.Context, id uuid.UUID) (*Summary, error)

	// List retrieves a page of listable scripts with their current versions.
	List(ctx context.Context, params ListParams) (*ListResult, error)

	// Update appends a new version built from the current one and the setters.
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) (*ScriptVersion, error)

	// Delete removes a script and its entire version history.
	Delete(ctx context.Context, id uuid.UUID) error

	// History retrieves all versions of a script, newest first.
	History(ctx context.Context, id uuid.UUID) ([]*ScriptVersion, error)
}

// UpdateSetter is a function that updates a field on the pending version.
type UpdateSetter func(*ScriptVersion) error

// ListParams carries the pagination, sorting and filtering inputs for List.
type ListParams struct {
	Page           int
	PerPage        int
	OrderBy        string
	OrderDirection string
	Filter         string
}

// Normalize applies defaults and validates the sort inputs, returning the
// parameters List actually applies.
func (p ListParams) Normalize() (ListParams, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.OrderBy == "" {
		p.OrderBy = DefaultOrderBy
	}
	if _, ok := sortColumns[p.OrderBy]; !ok {
		return p, ErrInvalidOrderBy
	}
	switch strings.ToUpper(p.OrderDirection) {
	case "", "ASC":
		p.OrderDirection = "ASC"
	case "DESC":
		p.OrderDirection = "DESC"
	default:
		return p, ErrInvalidOrderDirection
	}
	return p, nil
}

// orderClause renders the normalized sort with a stable id tie-break. Only
// meaningful after Normalize has validated the fields.
func (p ListParams) orderClause() string {
	return fmt.Sprintf("%s %s, scripts.id ASC", sortColumns[p.OrderBy], p.OrderDirection)
}

// offset returns the row offset for the normalized page.
func (p ListParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

// ListResult is one page of scripts plus the totals and the normalized
// parameters that produced it.
type ListResult struct {
	Scripts []Summary
	Total   int64
	Params  ListParams
}

// LastPage returns the highest page number for the applied page size, never
// below one.
func (r *ListResult) LastPage() int {
	if r.Params.PerPage < 1 {
		return 1
	}
	last := int((r.Total + int64(r.Params.PerPage) - 1) / int64(r.Params.PerPage))
	if last < 1 {
		last = 1
	}
	return last
}
