package app

import (
	"github.com/adflow/erp-calendar/internal/config"
	"github.com/adflow/erp-calendar/internal/event_bus"
	"github.com/adflow/erp-calendar/internal/utils"
	"github.com/adflow/erp-calendar/pkg/calendar"
	"github.com/adflow/erp-calendar/pkg/calendar_sync"
	"github.com/adflow/erp-calendar/pkg/google"
	"github.com/adflow/erp-calendar/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	GoogleAuth   *google.GoogleAuth
	GoogleClient google.ClientFactory

	CalendarRepository *calendar.RepositoryImpl
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler

	ChannelRepository *calendar_sync.ChannelRepositoryImpl
	SyncEngine        *calendar_sync.Engine
	SyncControl       *calendar_sync.ControlService
	SyncHandler       *calendar_sync.Handler

	// StopListeners unsubscribes the event bus listeners registered at startup.
	StopListeners func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.GoogleAuth = google.NewGoogleAuth(deps.UserService, cfg, deps.Clock)
	deps.GoogleClient = google.NewClientFactory(cfg.Google.RequestTimeout)

	deps.CalendarRepository = calendar.NewRepository(db)
	deps.CalendarService = calendar.NewService(deps.CalendarRepository)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	deps.ChannelRepository = calendar_sync.NewChannelRepository(db)
	deps.SyncEngine = calendar_sync.NewEngine(deps.GoogleAuth, deps.GoogleClient, deps.CalendarRepository, deps.Clock)
	deps.SyncControl = calendar_sync.NewControlService(
		deps.UserService,
		deps.GoogleAuth,
		deps.GoogleClient,
		deps.CalendarRepository,
		deps.ChannelRepository,
		deps.EventBus,
		cfg.Google.WebhookUrl,
	)
	deps.SyncHandler = calendar_sync.NewHandler(deps.SyncEngine, deps.SyncControl)

	deps.StopListeners = deps.SyncEngine.ListenForChanges(deps.EventBus)

	return deps
}
