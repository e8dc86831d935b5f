package app

import "github.com/FernandoVinha/TheManager/pkg/mail"

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// Mailer builds the invite mailer. A disabled SMTP section still yields a
// mailer; its sends report mail.ErrSMTPDisabled and callers fall back to
// returning the link.
func (c EmailConfig) Mailer() (mail.Mailer, error) {
	return mail.NewSMTPMailer(c.SMTPSettings())
}
