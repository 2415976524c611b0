package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
	"github.com/altmarkt/altmarkt-backend/internal/platform/sendgrid"
	"github.com/altmarkt/altmarkt-backend/internal/types"
)

type MailService interface {
	SendActivationEmail(ctx context.Context, user *types.User, code string) error
	SendPasswordResetEmail(ctx context.Context, user *types.User, token string) error
}

type mailService struct {
	log        *logger.Logger
	client     sendgrid.Client
	from       sendgrid.EmailAddress
	appBaseURL string
}

func NewMailService(log *logger.Logger, client sendgrid.Client) MailService {
	return &mailService{
		log:    log.With("service", "MailService"),
		client: client,
		from: sendgrid.EmailAddress{
			Email: strings.TrimSpace(os.Getenv("MAIL_FROM_EMAIL")),
			Name:  strings.TrimSpace(os.Getenv("MAIL_FROM_NAME")),
		},
		appBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("APP_BASE_URL")), "/"),
	}
}

var activationTmpl = template.Must(template.New("activation").Parse(`
<p>Здравствуйте, {{.Name}}!</p>
<p>Ваш код подтверждения: <b>{{.Code}}</b></p>
<p>Код действует в течение часа. Если вы не регистрировались, просто проигнорируйте это письмо.</p>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<p>Здравствуйте, {{.Name}}!</p>
<p>Чтобы сбросить пароль, перейдите по ссылке:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>Ссылка действует в течение часа.</p>
`))

func (ms *mailService) SendActivationEmail(ctx context.Context, user *types.User, code string) error {
	var body bytes.Buffer
	if err := activationTmpl.Execute(&body, map[string]string{"Name": user.Name, "Code": code}); err != nil {
		return fmt.Errorf("render activation email: %w", err)
	}
	return ms.send(ctx, user, "Подтверждение регистрации", body.String())
}

func (ms *mailService) SendPasswordResetEmail(ctx context.Context, user *types.User, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", ms.appBaseURL, token)
	var body bytes.Buffer
	if err := resetTmpl.Execute(&body, map[string]string{"Name": user.Name, "Link": link}); err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	return ms.send(ctx, user, "Сброс пароля", body.String())
}

func (ms *mailService) send(ctx context.Context, user *types.User, subject, html string) error {
	res, err := ms.client.Send(ctx, sendgrid.SendEmailRequest{
		From:    ms.from,
		To:      []sendgrid.EmailAddress{{Email: user.Email, Name: user.Name}},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		ms.log.Error("Failed to send email", "subject", subject, "email", user.Email, "error", err)
		return err
	}
	ms.log.Info("Email sent", "subject", subject, "status", res.StatusCode)
	return nil
}
