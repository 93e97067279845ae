package app

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/records_service/internal/app/services/records"
	"github.com/R3E-Network/records_service/internal/app/storage"
	"github.com/R3E-Network/records_service/internal/app/storage/memory"
	"github.com/R3E-Network/records_service/internal/app/system"
	"github.com/R3E-Network/records_service/pkg/logger"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// Stores encapsulates persistence dependencies. A nil store defaults to a
// fresh in-memory implementation.
type Stores struct {
	Records storage.RecordStore
}

// Options tunes the application.
type Options struct {
	// HashCost is the bcrypt cost for stored passwords. Zero keeps the default.
	HashCost int
	// SampleSchedule is the cron schedule of the record count sampler.
	SampleSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager   *system.Manager
	log       *logger.Logger
	startedAt time.Time

	Records *records.Service
	Sampler *records.Sampler
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger, opts ...Options) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}

	if stores.Records == nil {
		stores.Records = memory.New()
	}

	var svcOpts []records.Option
	if opt.HashCost != 0 {
		svcOpts = append(svcOpts, records.WithHashCost(opt.HashCost))
	}
	recordService := records.New(stores.Records, log.Named("records"), svcOpts...)
	sampler := records.NewSampler(recordService, opt.SampleSchedule, log.Named("records-sampler"))

	manager := system.NewManager()
	// The records service has no lifecycle of its own; it is listed so /info
	// reports every component.
	for _, svc := range []system.Service{system.NoopService{ServiceName: "records"}, sampler} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s service: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		startedAt: time.Now(),
		Records:   recordService,
		Sampler:   sampler,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	a.startedAt = time.Now()
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Uptime reports how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startedAt)
}

// Services lists registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Names()
}
