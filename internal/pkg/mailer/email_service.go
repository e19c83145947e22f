package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendUrgentNotification(toEmail, title, message string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendUrgentNotification mirrors an urgent in-app notification to email so it
// reaches users who are not looking at the dashboard.
func (s *emailService) SendUrgentNotification(toEmail, title, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Urgent] %s", title))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2 style="color: #D32F2F;">%s</h2>
			<p>%s</p>
			<p>Open the CampusConnect dashboard for details and follow-up actions.</p>
			<p style="color: #888; font-size: 12px;">You received this because the notification was marked urgent.</p>
		</div>
	`, title, message)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send urgent notification to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Urgent notification sent to %s\n", toEmail)
	return nil
}
