package refcache

import (
	"context"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

// Provider serves campus scoped reference data.
type Provider interface {
	Branches(ctx context.Context, campus string) ([]employee.Branch, error)
	Roles(ctx context.Context, campus string) ([]employee.Role, error)
}

func branchesKey(campus string) string {
	return "branches:" + campus
}

func rolesKey(campus string) string {
	return "roles:" + campus
}
