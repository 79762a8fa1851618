// Package notify holds the delivery sinks the dispatcher fans committed
// messages out to.
package notify

import (
	"fmt"
	"strings"
	"time"

	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
	"signupd/pkg/tz"
)

// Renderer turns a message into localized participant-facing text.
type Renderer struct {
	t   output.T
	loc *time.Location
}

func NewRenderer(t output.T, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{t: t, loc: loc}
}

// Locale returns the locale msg is rendered in.
func (r *Renderer) Locale(msg entities.Message) string {
	if msg.Locale != "" {
		return msg.Locale
	}
	return r.t.DefaultLocale()
}

// Render returns the title and body of msg.
func (r *Renderer) Render(msg entities.Message) (title, body string) {
	locale := r.Locale(msg)
	data := r.templateData(msg)
	prefix := fmt.Sprintf("notification.%s.", msg.Type)
	return r.t.T(locale, prefix+"title", data), r.t.T(locale, prefix+"body", data)
}

func (r *Renderer) templateData(msg entities.Message) map[string]any {
	data := map[string]any{
		"InstanceID": msg.InstanceID,
		"EventID":    msg.EventID,
		"SignupID":   msg.SignupID,
	}
	for k, v := range msg.Data {
		key := templateKey(k)
		switch v := v.(type) {
		case time.Time:
			data[key] = tz.Format(v, r.loc)
		default:
			data[key] = v
		}
	}
	return data
}

// templateKey maps message data keys ("start") to template fields ("Start").
func templateKey(k string) string {
	if k == "" {
		return k
	}
	return strings.ToUpper(k[:1]) + k[1:]
}
