package utils

import "errors"

var (
	ErrorMailerNotConfigured = errors.New("mailer is not configured")
	ErrorInvalidRecipient    = errors.New("a valid test_recipient is required for a real send")
)
