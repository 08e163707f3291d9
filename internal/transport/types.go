package transport

// Owncast webhook payloads. Only chat messages are interesting to the bot;
// every other event type is filtered at ingest.

const EventTypeChat = "CHAT"

// WebhookEvent is the envelope Owncast POSTs to registered webhooks.
type WebhookEvent struct {
	Type      string        `json:"type"`
	EventData ChatEventData `json:"eventData"`
}

type ChatEventData struct {
	User    ChatUser `json:"user"`
	RawBody string   `json:"rawBody"`
}

type ChatUser struct {
	DisplayName string `json:"displayName"`
	IsBot       bool   `json:"isBot"`
}
