// Package notify delivers best-effort notifications to users. Failures are
// logged and swallowed by callers; no notification outcome may affect the
// operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/taskhub/taskhub-api/internal/config"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// Notifier sends user-facing notifications.
type Notifier interface {
	// TaskAssigned notifies the assignee that a task was assigned to them.
	TaskAssigned(ctx context.Context, assignee *domain.User, task *domain.Task) error

	// PasswordReset delivers a password reset token to the user.
	PasswordReset(ctx context.Context, user *domain.User, token string) error
}

// SMTPNotifier sends plain-text assignment emails over SMTP.
type SMTPNotifier struct {
	cfg    config.NotificationConfig
	logger *slog.Logger

	// sendMail is swappable for tests; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a Notifier that delivers via the configured SMTP host.
func NewSMTPNotifier(cfg config.NotificationConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "smtp_notifier")),
		sendMail: smtp.SendMail,
	}
}

var _ Notifier = (*SMTPNotifier)(nil)

// TaskAssigned implements Notifier.TaskAssigned
func (n *SMTPNotifier) TaskAssigned(ctx context.Context, assignee *domain.User, task *domain.Task) error {
	if assignee.Email == "" {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", assignee.Email)
	fmt.Fprintf(&msg, "Subject: New task assigned: %s\r\n", task.Title)
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "Hi %s,\r\n\r\n", assignee.FirstName)
	fmt.Fprintf(&msg, "A new task has been assigned to you: %s\r\n\r\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&msg, "%s\r\n\r\n", task.Description)
	}
	fmt.Fprintf(&msg, "Deadline: %s\r\n", task.Deadline.Format("Mon, 02 Jan 2006 15:04 MST"))

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var a smtp.Auth
	if n.cfg.Username != "" {
		a = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.sendMail(addr, a, n.cfg.From, []string{assignee.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send assignment email: %w", err)
	}

	n.logger.Debug("assignment notification sent",
		slog.String("task_id", task.ID.String()),
		slog.String("assignee_id", assignee.ID.String()))
	return nil
}

// PasswordReset implements Notifier.PasswordReset
func (n *SMTPNotifier) PasswordReset(ctx context.Context, user *domain.User, token string) error {
	if user.Email == "" {
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", user.Email)
	msg.WriteString("Subject: Password reset request\r\n")
	msg.WriteString("\r\n")
	fmt.Fprintf(&msg, "Hi %s,\r\n\r\n", user.FirstName)
	msg.WriteString("A password reset was requested for your account. Use the token below to set a new password:\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", token)
	msg.WriteString("If you did not request this, you can ignore this message.\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var a smtp.Auth
	if n.cfg.Username != "" {
		a = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.sendMail(addr, a, n.cfg.From, []string{user.Email}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	n.logger.Debug("password reset notification sent",
		slog.String("user_id", user.ID.String()))
	return nil
}

// LogNotifier is the fallback Notifier used when SMTP is unconfigured.
// It records the would-be notification and succeeds.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

var _ Notifier = (*LogNotifier)(nil)

// TaskAssigned implements Notifier.TaskAssigned
func (n *LogNotifier) TaskAssigned(_ context.Context, assignee *domain.User, task *domain.Task) error {
	n.logger.Info("task assignment notification (smtp unconfigured)",
		slog.String("task_id", task.ID.String()),
		slog.String("assignee_email", assignee.Email),
		slog.String("title", task.Title))
	return nil
}

// PasswordReset implements Notifier.PasswordReset. The token itself is not
// logged.
func (n *LogNotifier) PasswordReset(_ context.Context, user *domain.User, _ string) error {
	n.logger.Info("password reset notification (smtp unconfigured)",
		slog.String("user_id", user.ID.String()))
	return nil
}
