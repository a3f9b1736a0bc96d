package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMSSender delivers phone verification codes. Without a configured
// from-number it only logs the message, which keeps local development from
// needing Twilio credentials.
type TwilioSMSSender struct {
	client     *twilio.RestClient
	fromNumber string
	log        *logrus.Logger
}

func NewTwilioSMSSender(accountSID, authToken, fromNumber string, log *logrus.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMSSender{
		client:     client,
		fromNumber: fromNumber,
		log:        log,
	}
}

func (s *TwilioSMSSender) SendVerificationCode(ctx context.Context, phone string, code string) error {
	body := fmt.Sprintf("Your travelo verification code is %s", code)

	if s.fromNumber == "" {
		s.log.WithField("to", phone).Info("sms sender not configured, code not delivered")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
