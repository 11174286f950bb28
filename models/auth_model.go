package models

import "time"

// Token is a bearer JWT handed to clients, either a session token or a
// short-lived phone-verification token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Verification mirrors the state of a Twilio Verify verification. Status is
// one of pending, approved, canceled, max_attempts_reached, deleted, failed or
// expired. The phone-verification token is attached once the check is approved.
type Verification struct {
	To                     string    `json:"to"`
	Channel                string    `json:"channel"`
	Status                 string    `json:"status"`
	DateCreated            time.Time `json:"date_created"`
	DateUpdated            time.Time `json:"date_updated"`
	PhoneVerificationToken *Token    `json:"phone_verification_token,omitempty"`
}
