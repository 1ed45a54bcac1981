package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"medimind/internal/schedule"
)

const defaultResendURL = "https://api.resend.com/emails"

// periodStyle carries the accent color used in the HTML body per period.
var periodStyle = map[schedule.Period]string{
	schedule.Morning:   "#E8590C",
	schedule.Afternoon: "#D97706",
	schedule.Evening:   "#C2410C",
	schedule.Night:     "#9A3412",
}

// ResendNotifier sends reminder emails through the Resend HTTP API.
//
// Note on deliverability: the shared "onboarding@resend.dev" sender only
// reaches the Resend account owner's inbox. A verified custom domain is
// required to send to real users.
type ResendNotifier struct {
	apiKey  string
	from    string
	replyTo string
	apiURL  string
	client  *http.Client
	log     zerolog.Logger
}

type ResendOption func(*ResendNotifier)

// WithAPIURL overrides the Resend endpoint; tests point it at a local server.
func WithAPIURL(url string) ResendOption {
	return func(n *ResendNotifier) { n.apiURL = url }
}

func WithHTTPClient(c *http.Client) ResendOption {
	return func(n *ResendNotifier) { n.client = c }
}

func NewResendNotifier(apiKey, from, replyTo string, log zerolog.Logger, opts ...ResendOption) *ResendNotifier {
	n := &ResendNotifier{
		apiKey:  apiKey,
		from:    from,
		replyTo: replyTo,
		apiURL:  defaultResendURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type resendPayload struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	HTML    string            `json:"html,omitempty"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (n *ResendNotifier) SendReminder(ctx context.Context, r Reminder) error {
	if n.apiKey == "" {
		return fmt.Errorf("resend: API key not configured")
	}
	if strings.Contains(n.from, "onboarding@resend.dev") {
		n.log.Warn().Msg("using shared onboarding@resend.dev sender; mail only reaches the account owner")
	}

	subject := fmt.Sprintf("MediMind — %s Reminder: %s", titleCase(string(r.Period)), r.MedicineName)
	payload := resendPayload{
		From:    n.from,
		To:      []string{r.To},
		Subject: subject,
		Text:    textBody(r),
		HTML:    htmlBody(r),
		ReplyTo: n.replyTo,
		Headers: map[string]string{
			"X-Entity-Ref-ID": fmt.Sprintf("medimind-%s-%s", r.To, subject),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("resend: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: send to %s: %w", r.To, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		n.log.Info().
			Str("to", r.To).
			Str("medicine", r.MedicineName).
			Str("period", string(r.Period)).
			Str("message_id", out.ID).
			Msg("reminder email sent")
		return nil
	case http.StatusForbidden:
		// Usually an unverified domain, or sending to a non-owner with
		// the shared domain.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend: 403 forbidden (domain not verified?): %s", detail)
	case http.StatusUnprocessableEntity:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend: 422 validation error: %s", detail)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend: API error %d: %s", resp.StatusCode, detail)
	}
}

func textBody(r Reminder) string {
	period := titleCase(string(r.Period))
	return strings.TrimSpace(fmt.Sprintf(`MediMind — Medication Reminder

%s Reminder

Medicine: %s
Dosage: %s
Schedule: %s

Take your medication as prescribed.

MediMind
AI-Powered Prescription Management
This is an automated reminder.`, period, r.MedicineName, r.Dosage, period))
}

func htmlBody(r Reminder) string {
	accent, ok := periodStyle[r.Period]
	if !ok {
		accent = periodStyle[schedule.Morning]
	}
	period := titleCase(string(r.Period))
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="margin:0;padding:0;background-color:#f7f5f2;font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f7f5f2;">
<tr><td align="center" style="padding:40px 16px;">
<table role="presentation" width="520" cellpadding="0" cellspacing="0" style="max-width:520px;width:100%%;background-color:#ffffff;border-radius:12px;overflow:hidden;">
<tr><td style="height:4px;background-color:%[1]s;font-size:0;">&nbsp;</td></tr>
<tr><td style="padding:28px 36px 0 36px;">
<span style="font-size:18px;font-weight:700;color:#1a1a1a;">MediMind</span>
<span style="float:right;background-color:#FFF7ED;color:%[1]s;font-size:11px;font-weight:600;padding:4px 10px;border-radius:20px;text-transform:uppercase;">%[2]s</span>
</td></tr>
<tr><td style="padding:24px 36px 0 36px;">
<h1 style="margin:0;font-size:22px;font-weight:700;color:#1a1a1a;">Medication Reminder</h1>
<p style="margin:6px 0 0 0;font-size:14px;color:#78716C;">Your scheduled %[3]s dose is due.</p>
</td></tr>
<tr><td style="padding:20px 36px 0 36px;">
<table role="presentation" width="100%%" cellpadding="0" cellspacing="0" style="background-color:#FAFAF9;border:1px solid #F0EBE6;border-radius:10px;">
<tr><td style="padding:16px 20px 12px 20px;">
<p style="margin:0;font-size:11px;font-weight:600;color:#A8A29E;text-transform:uppercase;">Medicine</p>
<p style="margin:4px 0 0 0;font-size:17px;font-weight:700;color:%[1]s;">%[4]s</p>
</td></tr>
<tr><td style="padding:0 20px 16px 20px;">
<p style="margin:0;font-size:11px;font-weight:600;color:#A8A29E;text-transform:uppercase;">Dosage</p>
<p style="margin:4px 0 0 0;font-size:15px;font-weight:600;color:#1C1917;">%[5]s</p>
</td></tr>
</table>
</td></tr>
<tr><td style="padding:20px 36px 28px 36px;">
<p style="margin:0;font-size:13px;color:#78716C;">Take your medication as prescribed by your doctor.</p>
<p style="margin:16px 0 0 0;font-size:10px;color:#D6D3D1;">MediMind &middot; Automated reminder</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`, accent, period, string(r.Period), r.MedicineName, r.Dosage)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
