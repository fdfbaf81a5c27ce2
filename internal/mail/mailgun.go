package mail

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// Mailgun posts messages to the Mailgun REST API. Transcript delivery is
// fire-and-forget from the caller's point of view; errors surface only in
// logs via the task queue.
type Mailgun struct {
	domain string
	sender string
	auth   string
	client *fasthttp.Client
	log    *slog.Logger
}

func NewMailgun(domain, apiKey, sender string, log *slog.Logger) *Mailgun {
	return &Mailgun{
		domain: domain,
		sender: sender,
		auth:   "Basic " + base64.StdEncoding.EncodeToString([]byte("api:"+apiKey)),
		client: &fasthttp.Client{},
		log:    log,
	}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, body string) error {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("from", m.sender)
	args.Set("to", to)
	args.Set("subject", subject)
	args.Set("html", body)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI("https://api.mailgun.net/v3/" + m.domain + "/messages")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.Header.Set("Authorization", m.auth)
	req.SetBody(args.QueryString())

	if err := m.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return errors.Wrap(err, "mailgun: send")
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return errors.Errorf("mailgun: unexpected status %d", resp.StatusCode())
	}
	m.log.Info("email sent", "to", to, "subject", subject)
	return nil
}
