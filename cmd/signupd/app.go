package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"signupd/internal/adapters/discord"
	"signupd/internal/application"
	"signupd/internal/config"
	"signupd/internal/infrastructure/database"
	"signupd/internal/infrastructure/i18n"
	"signupd/internal/infrastructure/memory"
	"signupd/internal/infrastructure/notify"
	"signupd/internal/ports/input"
	"signupd/internal/ports/output"
	"signupd/pkg/tz"
)

// app wires ports: output adapters -> application services. The use cases are
// what a request layer (HTTP, gRPC, chat bot) mounts; serve itself only drives
// the sweeper.
type app struct {
	store      output.Store
	dispatcher *application.Dispatcher
	signups    input.SignupUseCase
	events     input.EventUseCase
	inbox      input.NotificationUseCase
	sweeper    *application.Sweeper
	closers    []func()
}

func newApp(ctx context.Context, cfg *config.Config, kind string, async bool, log logrus.FieldLogger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	switch kind {
	case "memory":
		a.store = memory.NewStore()
		log.Warn("using the in-memory store, data is lost on exit")
	default:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{MaxConns: cfg.DBMaxConns}, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.store = database.NewStore(pool)
	}

	loc, err := tz.Load(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	renderer := notify.NewRenderer(i18n.NewTranslator(cfg.DefaultLocale, log), loc)
	sinks, err := a.sinks(ctx, cfg, renderer, log)
	if err != nil {
		return nil, err
	}
	a.dispatcher = application.NewDispatcher(log, async, sinks...)

	deps := application.Deps{
		Store:    a.store,
		Notifier: a.dispatcher,
		Policy: application.Policy{
			OfferWindow:      cfg.OfferWindow,
			ResignupDebounce: cfg.ResignupDebounce,
			MaxAttempts:      cfg.TxMaxAttempts,
			RetryBaseDelay:   cfg.TxRetryBaseDelay,
		},
		Logger: log,
	}
	promoter := application.NewPromoter(log)
	a.signups = application.NewSignupService(deps, promoter)
	a.events = application.NewEventService(deps, promoter)
	a.inbox = application.NewNotificationService(deps)
	a.sweeper = application.NewSweeper(deps, promoter, cfg.SweepConcurrency, cfg.SweepBatchSize)
	ok = true
	return a, nil
}

// sinks builds the inbox sink plus every optional sink that is configured.
func (a *app) sinks(ctx context.Context, cfg *config.Config, renderer *notify.Renderer, log logrus.FieldLogger) ([]output.Sink, error) {
	sinks := []output.Sink{notify.NewInboxSink(a.store.Repos().Notifications, renderer)}

	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		sinks = append(sinks, notify.NewRedisSink(client, cfg.RedisPrefix))
	}
	if cfg.AMQPURL != "" {
		email, err := notify.DialEmailSink(cfg.AMQPURL, cfg.AMQPEmailQueue, renderer)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = email.Close() })
		sinks = append(sinks, email)
	}
	if cfg.DiscordToken != "" {
		session, err := discord.OpenSession(cfg.DiscordToken, log)
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		a.closers = append(a.closers, func() { _ = session.Close() })
		sinks = append(sinks, discord.NewDMSink(session, renderer))
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	log.WithField("sinks", names).Info("notification sinks ready")
	return sinks, nil
}

// close drains pending deliveries, then releases connections in reverse order.
func (a *app) close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
