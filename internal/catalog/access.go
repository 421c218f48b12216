package catalog

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Permission is an access type checked against a table.
type Permission string

// Permissions checked by ValidateReadAccess.
const (
	PermissionRead     Permission = "READ"
	PermissionDownload Permission = "DOWNLOAD"
)

// AccessChecker decides whether the caller holds a permission on a table.
// It returns a non-nil error to deny.
type AccessChecker interface {
	CheckAccess(ctx context.Context, id core.IdAndVersion, perm Permission) error
}

// AccessCheckerFunc adapts a function to AccessChecker.
type AccessCheckerFunc func(ctx context.Context, id core.IdAndVersion, perm Permission) error

// CheckAccess implements AccessChecker.
func (f AccessCheckerFunc) CheckAccess(ctx context.Context, id core.IdAndVersion, perm Permission) error {
	return f(ctx, id, perm)
}

// ValidateReadAccess checks READ on every table of the tree, and DOWNLOAD on
// plain tables. Each id is checked once. The first denial is returned.
func ValidateReadAccess(ctx context.Context, checker AccessChecker, desc core.IndexDescription) error {
	seen := make(map[core.IdAndVersion]bool)
	stack := []core.IndexDescription{desc}

	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := d.IdAndVersion()
		if seen[id] {
			continue
		}
		seen[id] = true

		if err := checker.CheckAccess(ctx, id, PermissionRead); err != nil {
			return err
		}

		switch d := d.(type) {
		case *core.TableIndexDescription:
			if err := checker.CheckAccess(ctx, id, PermissionDownload); err != nil {
				return err
			}
		case *core.ViewIndexDescription:
			// READ is enough for views
		case *core.MaterializedViewIndexDescription:
			deps := d.Dependencies()
			for i := len(deps) - 1; i >= 0; i-- {
				stack = append(stack, deps[i])
			}
		default:
			return core.Errorf(core.KindUnexpectedTableType, "unexpected index description %T", d)
		}
	}

	return nil
}

// AllowAll is an AccessChecker that grants everything.
var AllowAll = AccessCheckerFunc(func(context.Context, core.IdAndVersion, Permission) error { return nil })

// Grants is an AccessChecker backed by an explicit permission set.
type Grants map[core.IdAndVersion][]Permission

// CheckAccess implements AccessChecker.
func (g Grants) CheckAccess(_ context.Context, id core.IdAndVersion, perm Permission) error {
	for _, granted := range g[id] {
		if granted == perm {
			return nil
		}
	}
	return &DenyError{ID: id, Permission: perm}
}

// DenyError is returned when a permission is missing.
type DenyError struct {
	ID         core.IdAndVersion
	Permission Permission
}

func (e *DenyError) Error() string {
	return fmt.Sprintf("You lack %s access to the requested entity: %s", e.Permission, e.ID)
}
