package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendFeedbackAlert(adminEmail, sentiment, message, pageURL string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

// SendFeedbackAlert notifies the admin inbox about a new piece of user
// feedback. Failures are returned for the caller to log; feedback is never
// lost over a mail error.
func (s *emailService) SendFeedbackAlert(adminEmail, sentiment, message, pageURL string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", adminEmail)
	m.SetHeader("Subject", fmt.Sprintf("New %s feedback received", sentiment))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>New user feedback</h2>
			<p><strong>Sentiment:</strong> %s</p>
			<p><strong>Page:</strong> %s</p>
			<blockquote style="border-left: 3px solid #ccc; margin: 10px 0; padding-left: 10px;">%s</blockquote>
		</div>
	`, html.EscapeString(sentiment), html.EscapeString(pageURL), html.EscapeString(message))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send feedback alert: %w", err)
	}
	return nil
}
