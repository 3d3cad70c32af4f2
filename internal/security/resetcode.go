package security

import "crypto/rand"

const resetCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const ResetCodeLength = 6

// NewResetCode returns a random fixed-length alphanumeric code for the
// password reset flow.
func NewResetCode() (string, error) {
	buf := make([]byte, ResetCodeLength)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		buf[i] = resetCodeAlphabet[int(b)%len(resetCodeAlphabet)]
	}

	return string(buf), nil
}
