package webhook

import (
	"slices"

	"github.com/sydlexius/liner/internal/config"
	"github.com/sydlexius/liner/internal/event"
)

// Webhook represents a configured webhook endpoint.
type Webhook struct {
	Name   string
	URL    string
	Type   string
	Events []string
}

// Webhook types.
const (
	TypeGeneric = "generic"
	TypeDiscord = "discord"
	TypeSlack   = "slack"
	TypeGotify  = "gotify"
)

// FromConfig converts the notify section of the application config.
func FromConfig(c config.NotifyConfig) []Webhook {
	hooks := make([]Webhook, 0, len(c.Webhooks))
	for _, w := range c.Webhooks {
		hooks = append(hooks, Webhook{
			Name:   w.Name,
			URL:    w.URL,
			Type:   w.Type,
			Events: w.Events,
		})
	}
	return hooks
}

// Matches reports whether the webhook subscribes to t.
func (w *Webhook) Matches(t event.Type) bool {
	if len(w.Events) == 0 {
		return t == event.EnrichCompleted
	}
	return slices.Contains(w.Events, string(t))
}
