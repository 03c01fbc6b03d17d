// Package notify delivers share invitations by email over SMTP.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"taskboard/api/internal/config"
)

const boundary = "taskboard-alt"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends share invitations. An unconfigured Mailer accepts every
// invite and sends nothing.
type Mailer struct {
	cfg    config.SMTPConfig
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{
		cfg:    cfg,
		server: cfg.Host + ":" + cfg.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (m *Mailer) IsConfigured() bool {
	return m.cfg.Host != "" && m.cfg.Port != "" && m.cfg.From != ""
}

type ShareInvite struct {
	To          string
	InviteeName string
	OwnerName   string
	ProjectName string
	Permission  string
}

// ShareInvite tells the invitee a project was shared with them.
func (m *Mailer) ShareInvite(ctx context.Context, invite ShareInvite) error {
	if !m.IsConfigured() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	html, err := renderInvite(invite)
	if err != nil {
		return fmt.Errorf("render share invite: %w", err)
	}
	subject := fmt.Sprintf("%s shared \"%s\" with you", invite.OwnerName, invite.ProjectName)
	text := fmt.Sprintf("%s shared the project \"%s\" with you (%s access).", invite.OwnerName, invite.ProjectName, invite.Permission)
	return m.send(m.server, m.auth, m.cfg.From, []string{invite.To}, m.compose(invite.To, subject, text, html))
}

func (m *Mailer) compose(to, subject, text, html string) []byte {
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", text)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", strings.TrimSpace(html))
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)
	return msg.Bytes()
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.ProjectName}} was shared with you</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #3B82F6; padding-bottom: 10px; margin-bottom: 20px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header"><h1>Taskboard</h1></div>
    <p>Hi {{if .InviteeName}}{{.InviteeName}}{{else}}there{{end}},</p>
    <p><strong>{{.OwnerName}}</strong> shared the project <strong>{{.ProjectName}}</strong> with you.</p>
    <p>You have <strong>{{.Permission}}</strong> access. It now appears under "Shared with me".</p>
    <div class="footer"><p>You received this because someone shared a project with this address.</p></div>
</body>
</html>`))

func renderInvite(invite ShareInvite) (string, error) {
	var buf bytes.Buffer
	if err := inviteTemplate.Execute(&buf, invite); err != nil {
		return "", err
	}
	return buf.String(), nil
}
