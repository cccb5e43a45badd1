package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/panorago/panorago/internal/pkg/env"
)

// SendMail delivers a single HTML mail through the configured SMTP relay.
// Callers fire it from a goroutine; failures are logged and returned, never
// fatal.
func SendMail(to, subject, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "no-reply@localhost")

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n\r\n"

	addr := host + ":" + port
	if err := smtp.SendMail(addr, auth, sender, []string{to}, []byte(headers+body)); err != nil {
		log.Errorf("smtp: send to %s via %s failed: %v", to, addr, err)
		return err
	}
	return nil
}
