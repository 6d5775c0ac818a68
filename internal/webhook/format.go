package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/sydlexius/liner/internal/event"
)

// formatPayload returns the request body and content-type for a webhook delivery.
func formatPayload(w *Webhook, e event.Event) ([]byte, string) {
	switch w.Type {
	case TypeDiscord:
		return formatDiscord(e)
	case TypeSlack:
		return formatSlack(e)
	case TypeGotify:
		return formatGotify(e)
	default:
		return formatGeneric(e)
	}
}

func formatGeneric(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"event":     string(e.Type),
		"timestamp": e.Timestamp,
		"data":      e.Data,
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatDiscord(e event.Event) ([]byte, string) {
	color := 3447003 // blue
	if interrupted, _ := e.Data["interrupted"].(bool); interrupted {
		color = 15105570 // orange
	}
	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("Liner: %s", e.Type),
				"description": formatDescription(e),
				"color":       color,
				"timestamp":   e.Timestamp.Format("2006-01-02T15:04:05Z"),
			},
		},
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatSlack(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"text": fmt.Sprintf("*Liner: %s*\n%s", e.Type, formatDescription(e)),
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatGotify(e event.Event) ([]byte, string) {
	payload := map[string]any{
		"title":   fmt.Sprintf("Liner: %s", e.Type),
		"message": formatDescription(e),
	}
	body, _ := json.Marshal(payload)
	return body, "application/json"
}

func formatDescription(e event.Event) string {
	if e.Data == nil {
		return string(e.Type)
	}
	switch e.Type {
	case event.EnrichStarted:
		return fmt.Sprintf("%v batch started (%v artists, trigger %v)",
			e.Data["field"], e.Data["total"], e.Data["trigger"])
	case event.EnrichCompleted:
		msg := fmt.Sprintf("%v batch finished: %v/%v succeeded, %v failed, %v enriched",
			e.Data["field"], e.Data["succeeded"], e.Data["total"], e.Data["failed"], e.Data["enriched"])
		if interrupted, _ := e.Data["interrupted"].(bool); interrupted {
			msg += " (interrupted)"
		}
		return msg
	case event.ArtistEnriched:
		return fmt.Sprintf("%v: %v updated", e.Data["name"], e.Data["field"])
	}
	b, _ := json.Marshal(e.Data)
	return string(b)
}
