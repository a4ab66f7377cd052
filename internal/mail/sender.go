package mail

import (
	"fmt"
	"os"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/muj89/usdt-p2p-moniter/internal/logging"
)

// Sender delivers the history file as an email attachment over SMTP.
// Superseded by the Drive publisher; kept for deployments that still
// want the mail path.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSender builds an SMTP sender with gmail-style defaults.
func NewSender(cfg Config) (*Sender, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("mail: username and password are required")
	}
	host := cfg.Host
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Sender{
		host:     host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
	}, nil
}

// SendAttachment mails the file at path to recipient with a
// timestamped subject. Empty or missing files are refused.
func (s *Sender) SendAttachment(recipient, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("refusing to mail empty file %s", path)
	}

	now := time.Now()
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", fmt.Sprintf("Price History Data - %s", now.Format("20060102_150405")))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Please find attached the latest price history data as of %s.",
		now.Format("2006-01-02 15:04:05")))
	msg.Attach(path)

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	logging.Infof("[mail] history file sent to %s", recipient)
	return nil
}
