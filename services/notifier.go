package services

import (
	"context"
	"fmt"
	"strings"

	"accommodation-backend/models"
	"accommodation-backend/utils"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// LogNotifier only logs. Used when no mail provider is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyAllocationChanged(_ context.Context, a models.Allocation) error {
	utils.Logger.WithFields(logrus.Fields{
		"allocation_id":  a.ID,
		"participant_id": a.ParticipantID,
		"event_id":       a.EventID,
		"status":         a.Status,
		"room_type":      a.RoomType,
	}).Info("allocation changed")
	return nil
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailNotifier mails the occupant through SendGrid.
type EmailNotifier struct {
	client      mailSender
	fromEmail   string
	fromName    string
	frontendURL string
	sandbox     bool
}

type EmailNotifierConfig struct {
	APIKey      string
	FromEmail   string
	FromName    string
	FrontendURL string
	Sandbox     bool
}

func NewEmailNotifier(cfg EmailNotifierConfig) *EmailNotifier {
	var client mailSender
	if strings.TrimSpace(cfg.APIKey) != "" {
		client = sendgrid.NewSendClient(cfg.APIKey)
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Event Accommodation"
	}
	return &EmailNotifier{
		client:      client,
		fromEmail:   cfg.FromEmail,
		fromName:    fromName,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		sandbox:     cfg.Sandbox,
	}
}

func (n *EmailNotifier) NotifyAllocationChanged(ctx context.Context, a models.Allocation) error {
	if strings.TrimSpace(a.OccupantEmail) == "" {
		return nil
	}

	link := ""
	if n.frontendURL != "" {
		link = fmt.Sprintf("%s/events/%d/accommodation", n.frontendURL, a.EventID)
	}
	subject, plain, html := utils.BuildAllocationEmail(utils.AllocationEmail{
		RecipientName: a.OccupantName,
		EventID:       a.EventID,
		Accommodation: string(a.AccommodationType),
		RoomType:      string(a.RoomType),
		Status:        string(a.Status),
		CheckIn:       utils.FormatDate(a.CheckInDate),
		CheckOut:      utils.FormatDate(a.CheckOutDate),
		Roommate:      roommateFromNotes(a.Notes),
		PortalLink:    link,
	})

	if n.client == nil {
		utils.Logger.WithFields(logrus.Fields{
			"to":      a.OccupantEmail,
			"subject": subject,
		}).Info("[MOCK EMAIL] SENDGRID_API_KEY not set, email not sent")
		return nil
	}

	from := mail.NewEmail(n.fromName, n.fromEmail)
	to := mail.NewEmail(a.OccupantName, a.OccupantEmail)
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	if n.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send failed: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// roommateFromNotes returns the most recent roommate recorded on the
// allocation, or "" once the pairing was dissolved.
func roommateFromNotes(notes string) string {
	name := ""
	for _, part := range strings.Split(notes, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "roommate: "):
			name = strings.TrimPrefix(part, "roommate: ")
		case strings.HasPrefix(part, "roommate left"):
			name = ""
		}
	}
	return name
}
