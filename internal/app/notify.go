package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// ReminderResult counts the outcome of a reminder pass.
type ReminderResult struct {
	Due       int
	Sent      int
	Failed    int
	NoContact int
}

type mailText struct {
	reminderSubject string
	reminderBody    string
	uploadedSubject string
	uploadedBody    string
}

var mailTexts = map[domain.Locale]mailText{
	domain.LocaleGerman: {
		reminderSubject: "Ihr Berichtsversand bei %[2]s",
		reminderBody:    "Hallo %[1]s,\n\nHeute werden Ihre Monatsberichte per PDF verschickt. Bei Fragen melden Sie sich gerne.\n\nViele Grüße,\nIhr %[2]s Team",
		uploadedSubject: "Ihre Monatsberichte %[3]s sind bereit",
		uploadedBody:    "Hallo %[1]s,\n\n%[4]d Monatsberichte für %[3]s wurden erstellt und stehen zum Abruf bereit.\n\nViele Grüße,\nIhr %[2]s Team",
	},
	domain.LocaleEnglish: {
		reminderSubject: "Your report dispatch at %[2]s",
		reminderBody:    "Hello %[1]s,\n\nYour monthly reports are sent as PDF today. Feel free to reach out with any questions.\n\nBest regards,\nYour %[2]s team",
		uploadedSubject: "Your monthly reports for %[3]s are ready",
		uploadedBody:    "Hello %[1]s,\n\n%[4]d monthly reports for %[3]s have been created and are ready for download.\n\nBest regards,\nYour %[2]s team",
	},
}

func (s *ReportService) texts() mailText {
	if t, ok := mailTexts[s.settings.Locale]; ok {
		return t
	}
	return mailTexts[domain.LocaleGerman]
}

// SendReminders mails every active tenant due on today that has a contact
// address. A zero today means the current day. Delivery failures are logged
// and counted; they do not abort the pass.
func (s *ReportService) SendReminders(ctx context.Context, today time.Time) (ReminderResult, error) {
	var result ReminderResult
	if s.mailer == nil {
		return result, &domain.ConfigurationError{Field: "smtp.host", Reason: "required for reminders"}
	}

	today = s.localize(today)
	tenants, err := s.registry.List(ctx, domain.ListFilter{})
	if err != nil {
		return result, fmt.Errorf("listing tenants: %w", err)
	}

	due := domain.SelectDue(tenants, today, domain.SelectOptions{RequireActive: true})
	result.Due = len(due)
	text := s.texts()

	for _, tenant := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if tenant.ContactEmail == "" {
			result.NoContact++
			s.logger.InfoContext(ctx, "no contact address, reminder skipped", "tenant", tenant.Slug)
			continue
		}

		msg := domain.Message{
			To:      tenant.ContactEmail,
			From:    s.settings.MailFrom,
			Subject: fmt.Sprintf(text.reminderSubject, tenant.Name, s.settings.SenderName),
			Body:    fmt.Sprintf(text.reminderBody, tenant.Name, s.settings.SenderName),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "reminder not delivered", "tenant", tenant.Slug, "error", err)
			continue
		}
		result.Sent++
		s.logger.InfoContext(ctx, "reminder sent", "tenant", tenant.Slug, "to", tenant.ContactEmail)
	}

	return result, nil
}

// notifyUploaded tells a tenant how many statements its cycle produced. Best effort.
func (s *ReportService) notifyUploaded(ctx context.Context, tenant domain.Tenant, period time.Time, results []domain.WorkerOutcome) {
	if s.mailer == nil || tenant.ContactEmail == "" {
		return
	}

	uploaded := 0
	for _, r := range results {
		if r.Uploaded() {
			uploaded++
		}
	}
	if uploaded == 0 {
		return
	}

	label := fmt.Sprintf("%s %d", s.settings.Locale.MonthName(period.Month()), period.Year())
	text := s.texts()
	msg := domain.Message{
		To:      tenant.ContactEmail,
		From:    s.settings.MailFrom,
		Subject: fmt.Sprintf(text.uploadedSubject, tenant.Name, s.settings.SenderName, label),
		Body:    fmt.Sprintf(text.uploadedBody, tenant.Name, s.settings.SenderName, label, uploaded),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "upload notification not delivered", "tenant", tenant.Slug, "error", err)
	}
}
