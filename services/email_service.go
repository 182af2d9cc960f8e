package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/nhsfuk/dharmic-games/config"
	"github.com/nhsfuk/dharmic-games/models"
)

// Mailer sends the notices the admin workflow produces. A nil Mailer disables them.
type Mailer interface {
	SendAdminDecision(req models.AdminRequest) error
}

type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

var adminDecisionTemplate = template.Must(template.New("admin_decision").Parse(`<p>Hello {{.Name}},</p>
{{if .Approved}}<p>Your request for {{.Role}} access to the NHSF (UK) Dharmic Games admin panel has been approved. You can now sign in with the email and password you registered with.</p>
{{else}}<p>Your request for admin access to the NHSF (UK) Dharmic Games admin panel was not approved.</p>
{{end}}{{if .Note}}<p>Note from the reviewer: {{.Note}}</p>
{{end}}<p>NHSF (UK) Dharmic Games</p>
`))

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsconfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	defer client.Quit()

	if s.cfg.SMTPUsername != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("smtp RCPT TO: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close DATA: %w", err)
	}
	return nil
}

func (s *EmailService) SendAdminDecision(req models.AdminRequest) error {
	body, err := RenderAdminDecision(req)
	if err != nil {
		return err
	}
	subject := "Your Dharmic Games admin request"
	return s.SendEmail([]string{req.Email}, subject, body)
}

// RenderAdminDecision builds the HTML body of an approval or rejection notice.
func RenderAdminDecision(req models.AdminRequest) (string, error) {
	data := struct {
		Name     string
		Role     string
		Approved bool
		Note     string
	}{
		Name:     req.Name,
		Role:     string(req.RequestedRole),
		Approved: req.Status == models.AdminRequestApproved,
		Note:     req.ReviewNote,
	}
	var body bytes.Buffer
	if err := adminDecisionTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render admin decision email: %w", err)
	}
	return body.String(), nil
}
