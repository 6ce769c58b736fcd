package identity

import (
	"crypto/tls"
	"fmt"
	"time"

	"photoshared-backend/internal/util"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// Mailer 发送邮件
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer 通过 SMTP 发送 HTML 邮件
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	util.Logger.Info("开始发送邮件",
		zap.String("to", to),
		zap.String("subject", subject))

	msg := mail.NewMessage()
	msg.SetHeader("From", m.username)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := mail.NewDialer(m.host, m.port, m.username, m.password)
	d.Timeout = 20 * time.Second
	d.SSL = m.port == 465
	d.TLSConfig = &tls.Config{ServerName: m.host}

	if err := d.DialAndSend(msg); err != nil {
		util.Logger.Error("发送邮件失败", zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	util.Logger.Info("邮件发送成功", zap.String("to", to))
	return nil
}

// LogMailer 未配置 SMTP 时只把邮件写入日志
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	util.Logger.Warn("未配置SMTP，邮件仅记录日志",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

func passwordResetBody(link string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; line-height: 1.6; color: #333;">
	<h2>PhotoShared</h2>
	<p>我们收到了您的密码重置请求。如果这不是您本人操作，请忽略此邮件。</p>
	<p><a href="%s">重置密码</a></p>
	<p>或者将以下链接复制到浏览器地址栏：</p>
	<p>%s</p>
	<p>此链接将在1小时后过期。</p>
</body>
</html>`, link, link)
}
