package modules

import (
	"github.com/campus-hr/hrdesk/modules/hrm"
	"github.com/campus-hr/hrdesk/pkg/application"
)

// BuiltInModules returns the modules every server registers. opts may be nil.
func BuiltInModules(opts *hrm.ModuleOptions) []application.Module {
	return []application.Module{
		hrm.NewModule(opts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
