package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"promptsculptor/internal/config"
	"promptsculptor/internal/logger"
	"time"

	"go.uber.org/zap"
)

type EmailService struct {
	auth smtp.Auth
	from string
	host string
	port string
}

func NewEmailService(cfg *config.Config) *EmailService {
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	return &EmailService{
		auth: auth,
		from: cfg.SMTPUser,
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
	}
}

func (s *EmailService) Send(to []string, subject, body string) error {
	msg := []byte("Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, s.auth, s.from, to, msg)
}

func (s *EmailService) SendHTML(to []string, subject, body string) error {
	msg := []byte("Subject: " + subject + "\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n\r\n" +
		body)

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, s.auth, s.from, to, msg)
}

// SendPasswordReset ставит письмо со ссылкой сброса в очередь.
// Не блокируется на SMTP: время ответа ручки не зависит от почты.
// В письме единственное место, где живёт сырой токен.
func (s *EmailService) SendPasswordReset(ctx context.Context, to, resetLink string, ttl time.Duration) error {
	body := fmt.Sprintf(
		"Вы запросили сброс пароля в PromptSculptor.\r\n\r\n"+
			"Перейдите по ссылке, чтобы задать новый пароль:\r\n%s\r\n\r\n"+
			"Ссылка действует %d минут. Если вы не запрашивали сброс — просто проигнорируйте это письмо.",
		resetLink, int(ttl.Minutes()),
	)

	job := EmailJob{
		To:      []string{to},
		Subject: "Сброс пароля PromptSculptor",
		Body:    body,
	}

	select {
	case EmailQueue <- job:
		return nil
	default:
		return errors.New("email queue is full")
	}
}

// SendWelcome ставит приветственное письмо в очередь. Ошибка переполнения
// очереди не должна ломать регистрацию, поэтому только логируется.
func (s *EmailService) SendWelcome(to, username string) {
	body := fmt.Sprintf(
		"Здравствуйте, %s!\r\n\r\n"+
			"Ваш аккаунт в PromptSculptor создан. Теперь вы можете сохранять и публиковать шаблоны промптов.",
		username,
	)

	job := EmailJob{
		To:      []string{to},
		Subject: "Добро пожаловать в PromptSculptor",
		Body:    body,
	}

	select {
	case EmailQueue <- job:
	default:
		logger.Log.Warn("Очередь писем переполнена, приветственное письмо не отправлено", zap.String("email", to))
	}
}

type EmailJob struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

var EmailQueue = make(chan EmailJob, 100) // глобальная очередь на 100 писем

func StartEmailWorker(emailService *EmailService) {
	for job := range EmailQueue {
		var err error
		if job.IsHTML {
			err = emailService.SendHTML(job.To, job.Subject, job.Body)
		} else {
			err = emailService.Send(job.To, job.Subject, job.Body)
		}
		if err != nil {
			logger.Log.Error("Не удалось отправить письмо", zap.Error(err))
		}
	}
}
