package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/input"
	"signupd/internal/ports/output"
)

var (
	_ output.Notifier           = (*Dispatcher)(nil)
	_ input.NotificationUseCase = (*NotificationService)(nil)
)

const DefaultDispatchTimeout = 10 * time.Second

// Dispatcher fans every committed message out to the configured sinks. Sink
// failures are logged and counted, never returned: the transition that
// produced the message has already committed.
type Dispatcher struct {
	sinks   []output.Sink
	async   bool
	timeout time.Duration
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

func NewDispatcher(log logrus.FieldLogger, async bool, sinks ...output.Sink) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{sinks: sinks, async: async, timeout: DefaultDispatchTimeout, log: log}
}

// Publish delivers msgs to every sink. In async mode it returns at once and
// delivery continues on a tracked goroutine detached from ctx's cancellation.
func (d *Dispatcher) Publish(ctx context.Context, msgs ...entities.Message) {
	if len(msgs) == 0 || len(d.sinks) == 0 {
		return
	}
	if !d.async {
		d.deliver(ctx, msgs)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.deliver(ctx, msgs)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, msgs []entities.Message) {
	for _, msg := range msgs {
		for _, sink := range d.sinks {
			if err := sink.Send(ctx, msg); err != nil {
				notificationFailures.WithLabelValues(sink.Name()).Inc()
				d.log.WithFields(logrus.Fields{
					"sink":           sink.Name(),
					"message_id":     msg.ID,
					"type":           msg.Type,
					"participant_id": msg.ParticipantID,
					"instance_id":    msg.InstanceID,
				}).WithError(err).Warn("notification delivery failed")
			}
		}
	}
}

// Close waits for in-flight async deliveries.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

// NotificationService is the participant inbox.
type NotificationService struct {
	Deps
}

func NewNotificationService(deps Deps) *NotificationService {
	return &NotificationService{Deps: deps.withDefaults()}
}

func (s *NotificationService) ListNotifications(ctx context.Context, actor entities.Actor, unreadOnly bool) ([]entities.Notification, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	return s.Store.Repos().Notifications.FindByParticipant(ctx, actor.ParticipantID, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor entities.Actor, notificationID uint) error {
	if err := validateActor(actor); err != nil {
		return err
	}
	return s.Store.Repos().Notifications.MarkRead(ctx, notificationID, actor.ParticipantID, s.Clock())
}
