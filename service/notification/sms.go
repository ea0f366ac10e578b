package notification

import (
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Texter sends a single SMS.
type Texter interface {
	Send(to, content string) error
}

type twilioTexter struct {
	client *twilio.RestClient
}

// NewTwilioTexter builds a Texter over Twilio. Account SID and auth token are
// read from TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN by the client itself.
func NewTwilioTexter() Texter {
	return &twilioTexter{client: twilio.NewRestClient()}
}

func (t *twilioTexter) Send(to, content string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(os.Getenv("TWILIO_PHONE_NUMBER"))
	params.SetBody(content)

	_, err := t.client.Api.CreateMessage(params)
	return err
}
