package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

type AlertSender struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

func NewAlertSender(host string, port int, user, password, to string) *AlertSender {
	return &AlertSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		To:       to,
	}
}

var failedTmpl = template.Must(template.New("lead_failed").Parse(`
<h2>Lead needs manual intervention</h2>
<p>A lead reached <b>FAILED</b> and will not be retried automatically.</p>
<ul>
  <li><b>Company:</b> {{.Company}}</li>
  <li><b>Domain:</b> {{.Domain}}</li>
  <li><b>Signal:</b> {{.Signal}}</li>
  <li><b>Identity:</b> {{.Identity}}</li>
  <li><b>Reason:</b> {{.Reason}}</li>
</ul>
<p>Check the Slack card for details.</p>
`))

type failedData struct {
	Company  string
	Domain   string
	Signal   string
	Identity string
	Reason   string
}

// SendLeadFailed mails ops when a lead lands in FAILED. Configured empty
// means alerts are just skipped since dev setups run no SMTP.
func (s *AlertSender) SendLeadFailed(lead *entity.Lead, reason string) error {
	if s.Host == "" || s.To == "" {
		return nil
	}

	var body bytes.Buffer
	err := failedTmpl.Execute(&body, failedData{
		Company:  lead.Signal.Company,
		Domain:   lead.Signal.Domain,
		Signal:   lead.Signal.Type,
		Identity: lead.Identity,
		Reason:   reason,
	})
	if err != nil {
		return fmt.Errorf("alert template failed: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.User)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("🛑 Lead failed: %s (%s)", lead.Signal.Company, lead.Signal.Type))
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("alert smtp send failed: %w", err)
	}

	return nil
}
