package dto

// WebexWebhookRequest is the payload Webex posts when a message event fires.
// The body only carries the message id; the text itself is fetched back from
// the Webex API.
type WebexWebhookRequest struct {
	Id       string                `json:"id"`
	Name     string                `json:"name"`
	Resource string                `json:"resource" validate:"required"`
	Event    string                `json:"event"`
	Data     WebexWebhookEventData `json:"data" validate:"required"`
}

type WebexWebhookEventData struct {
	Id          string `json:"id" validate:"required"`
	RoomId      string `json:"roomId" validate:"required"`
	PersonId    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
	Created     string `json:"created"`
}

type WebexWebhookResponse struct {
	Message string `json:"message"`
}
