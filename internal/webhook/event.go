package webhook

import "time"

// Event categories.
const (
	CategoryConnectivityTest = "connectivity_test"
	CategoryMessageSend      = "group_channel:message_send"
	CategoryMessageRead      = "group_channel:message_read"
)

// Event is the JSON body of every webhook request.
type Event struct {
	Category string `json:"category"`
	Payload  any    `json:"payload"`
}

// ConnectivityPayload accompanies the advisory test sent during connect.
type ConnectivityPayload struct {
	ApplicationID string `json:"application_id"`
	Region        string `json:"region"`
	Message       string `json:"message"`
	SentAt        int64  `json:"sent_at"`
}

// NewConnectivityTest builds the event sent to confirm a webhook URL.
func NewConnectivityTest(appID, region string, now time.Time) Event {
	return Event{
		Category: CategoryConnectivityTest,
		Payload: ConnectivityPayload{
			ApplicationID: appID,
			Region:        region,
			Message:       "Webhook connectivity test",
			SentAt:        now.UnixMilli(),
		},
	}
}

// MessagePayload is the provider's message event shape.
type MessagePayload struct {
	ChannelURL                string         `json:"channel_url"`
	ChannelType               string         `json:"channel_type"`
	Message                   *MessageInfo   `json:"message,omitempty"`
	Sender                    *SenderInfo    `json:"sender,omitempty"`
	TotalUnreadMessageCount   *int           `json:"total_unread_message_count,omitempty"`
	ChannelUnreadMessageCount *int           `json:"channel_unread_message_count,omitempty"`
}

type MessageInfo struct {
	MessageID int64  `json:"message_id"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"created_at"`
}

type SenderInfo struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}
