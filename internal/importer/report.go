package importer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialsite/trial-importer/internal/config"
	"github.com/trialsite/trial-importer/internal/models"
)

// Reporter sends the import completion summary by SMTP. Mail failure is
// logged and never fails the run.
type Reporter struct {
	cfg    config.MailConfig
	logger *logrus.Logger
}

// NewReporter creates a report emitter.
func NewReporter(cfg config.MailConfig, logger *logrus.Logger) *Reporter {
	return &Reporter{cfg: cfg, logger: logger}
}

// Send dispatches the summary to the configured recipients.
func (r *Reporter) Send(report *models.ImportReport) error {
	if !r.cfg.Enabled() {
		r.logger.Debug("Report mail not configured, skipping")
		return nil
	}

	subject := fmt.Sprintf("Trial import completed: %d new, %d updated, %d archived",
		report.New, report.Updated, report.Archived)
	body := buildReportBody(report)

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", r.cfg.FromName, r.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(r.cfg.Recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	if err := r.send([]byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	r.logger.WithField("recipients", len(r.cfg.Recipients)).Info("Import report sent")
	return nil
}

func buildReportBody(report *models.ImportReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Import run finished at %s (duration %s)\n\n",
		report.FinishedAt.Format("2006-01-02 15:04:05"),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "Studies found: %d\n", report.TotalFound)
	fmt.Fprintf(&b, "New:          %d\n", report.New)
	fmt.Fprintf(&b, "Updated:      %d\n", report.Updated)
	fmt.Fprintf(&b, "Archived:     %d\n", report.Archived)
	fmt.Fprintf(&b, "Skipped:      %d\n", report.Skipped)
	fmt.Fprintf(&b, "Not imported: %d\n", report.NotImported)
	fmt.Fprintf(&b, "Failed:       %d\n", report.Failed)
	fmt.Fprintf(&b, "Geocoded:     %d (failures: %d)\n", report.LocationsGeocoded, report.GeocodeFailures)

	if len(report.StagedChanges) > 0 {
		fmt.Fprintf(&b, "\nStaged field changes (%d):\n", len(report.StagedChanges))
		for _, c := range report.StagedChanges {
			applied := "audit only"
			if c.Applied {
				applied = "applied"
			}
			fmt.Fprintf(&b, "  %s.%s: %q -> %q (%s)\n", c.ExternalID, c.Field, c.OldValue, c.NewValue, applied)
		}
	}

	return b.String()
}

func (r *Reporter) send(msg []byte) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port)

	var auth smtp.Auth
	if r.cfg.Username != "" {
		auth = smtp.PlainAuth("", r.cfg.Username, r.cfg.Password, r.cfg.Host)
	}

	if !r.cfg.UseTLS {
		return smtp.SendMail(addr, auth, r.cfg.From, r.cfg.Recipients, msg)
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: r.cfg.Host}); err != nil {
		return err
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(r.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range r.cfg.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
