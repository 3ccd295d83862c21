package hrm

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/modules/hrm/handlers"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/hrapi"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/refcache"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/spreadsheet"
	"github.com/campus-hr/hrdesk/modules/hrm/presentation/controllers"
	"github.com/campus-hr/hrdesk/modules/hrm/services"
	"github.com/campus-hr/hrdesk/pkg/application"
	"github.com/campus-hr/hrdesk/pkg/configuration"
)

const sweepInterval = time.Minute

var (
	_ services.ReferenceDataInvalidator = (*refcache.Memory)(nil)
	_ services.ReferenceDataInvalidator = (*refcache.Redis)(nil)
)

type ModuleOptions struct {
	// Config defaults to configuration.Use().
	Config *configuration.Configuration
	// Context bounds background work such as the session janitor.
	Context context.Context
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	cfg := m.options.Config
	if cfg == nil {
		cfg = configuration.Use()
	}
	ctx := m.options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := app.Logger()

	client, err := hrapi.NewClient(
		cfg.HRAPI.BaseURL,
		hrapi.NewSession(cfg.HRAPI.Token),
		hrapi.WithTimeout(cfg.HRAPI.Timeout),
		hrapi.WithRequestIDHeader(cfg.RequestIDHeader),
	)
	if err != nil {
		return errors.Wrap(err, "hrm: hr api client")
	}
	refs, err := referenceProvider(cfg, client, logger)
	if err != nil {
		return err
	}

	store := services.NewSessionStore(cfg.Import.SessionTTL)
	go store.Run(ctx, sweepInterval)

	app.RegisterServices(
		client,
		store,
		services.NewBulkImportService(spreadsheet.NewDecoder(), refs, client, store, app.EventPublisher(), logger),
	)
	app.RegisterControllers(
		controllers.NewBulkImportController(app, controllers.BulkImportControllerOptions{
			OperatorCampus: cfg.Import.OperatorCampus,
			MaxUploadSize:  cfg.MaxUploadSize,
		}),
		controllers.NewLeaveController(),
		controllers.NewNavController(app),
	)
	app.RegisterNavItems(NavItems...)
	handlers.RegisterImportEventHandlers(app)
	return nil
}

func referenceProvider(cfg *configuration.Configuration, next refcache.Provider, logger *logrus.Logger) (services.ReferenceDataProvider, error) {
	switch cfg.Import.ReferenceCache {
	case "redis":
		client, err := refcache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "hrm: reference cache")
		}
		return refcache.NewRedis(next, client, cfg.Import.ReferenceCacheTTL, logger), nil
	default:
		return refcache.NewMemory(next, cfg.Import.ReferenceCacheTTL), nil
	}
}

func (m *Module) Name() string {
	return "hrm"
}
