package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

// outbox collects the messages of one transaction attempt. They are only
// handed to the notifier once the transaction has committed.
type outbox struct {
	now  time.Time
	msgs []entities.Message
}

func (o *outbox) instance(typ entities.MessageType, instanceID uint, signup *entities.Signup) {
	m := entities.Message{
		Type:       typ,
		Audience:   entities.AudienceInstance,
		InstanceID: instanceID,
	}
	if signup != nil {
		m.SignupID = signup.ID
		m.ParticipantID = signup.ParticipantID
		m.Data = map[string]any{
			"status": string(signup.Status),
			"role":   string(signup.Role),
		}
	}
	o.add(m)
}

func (o *outbox) participant(typ entities.MessageType, participantID, locale string, instance *entities.Instance, signupID uint, data map[string]any) {
	m := entities.Message{
		Type:          typ,
		Audience:      entities.AudienceParticipant,
		ParticipantID: participantID,
		SignupID:      signupID,
		Locale:        locale,
		Data:          data,
	}
	if instance != nil {
		m.InstanceID = instance.ID
		m.EventID = instance.EventID
		if m.Data == nil {
			m.Data = map[string]any{}
		}
		if !instance.StartDate.IsZero() {
			m.Data["start"] = instance.StartDate
		}
	}
	o.add(m)
}

// offers queues one offer notification per promoted signup.
func (o *outbox) offers(instance *entities.Instance, promoted []entities.Signup, window time.Duration) {
	for i := range promoted {
		p := promoted[i]
		o.participant(entities.MsgOfferIssued, p.ParticipantID, "", instance, p.ID, map[string]any{
			"role":     string(p.Role),
			"deadline": p.WaitlistNotifiedAt.Add(window),
		})
		o.instance(entities.MsgSignupUpdated, instance.ID, &p)
	}
}

func (o *outbox) add(m entities.Message) {
	m.ID = uuid.NewString()
	m.CreatedAt = o.now
	o.msgs = append(o.msgs, m)
}

type txFunc func(ctx context.Context, r output.Repos, out *outbox) error

// runTx runs fn in a transaction, retrying transient failures, and publishes
// the queued messages after the commit.
func (d Deps) runTx(ctx context.Context, op string, fn txFunc) error {
	var out *outbox
	err := d.Policy.retry(ctx, d.Logger, op, func() error {
		out = &outbox{now: d.Clock()}
		return d.Store.WithinTx(ctx, func(ctx context.Context, r output.Repos) error {
			return fn(ctx, r, out)
		})
	})
	if err != nil {
		return err
	}
	if len(out.msgs) > 0 {
		d.Notifier.Publish(ctx, out.msgs...)
	}
	return nil
}

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, ...entities.Message) {}
