// Package email sends "voting is open" notifications over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	mail "github.com/xhit/go-simple-mail/v2"

	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

// Service sends notification emails. Disabled unless configured.
type Service struct {
	config    *config.EmailConfig
	serverURL string
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig, serverURL string) *Service {
	return &Service{
		config:    cfg,
		serverURL: serverURL,
	}
}

// Enabled reports whether the service will actually send mail.
func (s *Service) Enabled() bool {
	return s.config != nil && s.config.Enabled
}

// SendSessionOpened notifies the given users that a voting session opened.
// Users without an email on record are skipped.
func (s *Service) SendSessionOpened(sess *store.Session, users []*store.User) error {
	if !s.Enabled() {
		log.Debug("email notifications are disabled, skipping")
		return nil
	}

	client, err := s.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close() //nolint:errcheck

	subject := fmt.Sprintf("[Votify] Voting is open: %s", sess.Title)

	for _, user := range users {
		if user.Email == "" {
			continue
		}

		body, err := s.sessionOpenedBody(sess, user)
		if err != nil {
			return fmt.Errorf("failed to generate email body: %w", err)
		}

		msg := mail.NewMSG().
			SetFrom(fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)).
			AddTo(user.Email).
			SetSubject(subject)
		msg.SetBody(mail.TextHTML, body)

		if err := msg.Send(client); err != nil {
			log.Error("failed to send notification email", "to", user.Email, "error", err)
			continue
		}
		log.Debug("sent session opened notification", "to", user.Email, "sessionId", sess.ID)
	}

	return nil
}

func (s *Service) connect() (*mail.SMTPClient, error) {
	server := mail.NewSMTPClient()
	server.Host = s.config.SMTPHost
	server.Port = s.config.SMTPPort
	server.Username = s.config.Username
	server.Password = s.config.Password
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	if s.config.UseTLS {
		server.Encryption = mail.EncryptionSTARTTLS
	} else {
		server.Encryption = mail.EncryptionNone
	}
	if s.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return server.Connect()
}

var sessionOpenedTmpl = template.Must(template.New("sessionOpened").Parse(`
<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; margin: 20px;">
  <h2>Voting is open</h2>
  <p>Hi {{.FirstName}},</p>
  <p>The voting session <strong>{{.Title}}</strong> is now open.</p>
  <p>{{.Description}}</p>
  <p>Voting closes at {{.EndTime}}.</p>
  <p><a href="{{.Link}}">Cast your vote</a></p>
</body>
</html>
`))

func (s *Service) sessionOpenedBody(sess *store.Session, user *store.User) (string, error) {
	var buf bytes.Buffer
	err := sessionOpenedTmpl.Execute(&buf, map[string]string{
		"FirstName":   user.FirstName,
		"Title":       sess.Title,
		"Description": sess.Description,
		"EndTime":     sess.EndTime.Format("Jan 2, 2006 15:04 MST"),
		"Link":        fmt.Sprintf("%s/vote/%s", s.serverURL, sess.ID),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
