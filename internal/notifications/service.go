package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/dekorekillian57-star/spendo/pkg/db/models"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
	"github.com/dekorekillian57-star/spendo/pkg/mailer"
	"github.com/dekorekillian57-star/spendo/pkg/types"
)

// OrderConfirmation describes one paid checkout.
type OrderConfirmation struct {
	Reference string
	Email     string
	Currency  string
	Orders    []models.Order
}

// Service renders and sends storefront emails.
type Service interface {
	OrderConfirmed(ctx context.Context, c OrderConfirmation) error
	PasswordReset(ctx context.Context, email, token string, validFor time.Duration) error
}

// ServiceParams wires the notification sender.
type ServiceParams struct {
	Sender          mailer.Sender
	OperationsEmail string
	PublicBaseURL   string
	Logger          *logger.Logger
}

type service struct {
	sender          mailer.Sender
	operationsEmail string
	baseURL         string
	logger          *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	return &service{
		sender:          params.Sender,
		operationsEmail: strings.TrimSpace(params.OperationsEmail),
		baseURL:         strings.TrimRight(params.PublicBaseURL, "/"),
		logger:          params.Logger,
	}, nil
}

type orderLine struct {
	Code       string
	Package    string
	Quantity   int
	Recipients string
	Total      string
	Status     string
}

type orderView struct {
	Reference string
	Email     string
	Currency  string
	Total     string
	TrackURL  string
	Lines     []orderLine
}

// OrderConfirmed mails the customer and, when configured, operations. Both are
// attempted; the combined error is returned for logging.
func (s *service) OrderConfirmed(ctx context.Context, c OrderConfirmation) error {
	if len(c.Orders) == 0 {
		return nil
	}
	view := s.orderView(c)
	code := c.Orders[0].OrderCode

	var errs error
	customerHTML, err := render(customerOrderHTML, view)
	if err == nil {
		err = s.sender.Send(ctx, mailer.Message{
			To:      []string{c.Email},
			Subject: "Payment Successful - Order #" + code,
			Text:    orderText(view),
			HTML:    customerHTML,
		})
	}
	errs = multierr.Append(errs, wrap("customer confirmation", err))

	if s.operationsEmail != "" {
		opsHTML, err := render(operationsOrderHTML, view)
		if err == nil {
			err = s.sender.Send(ctx, mailer.Message{
				To:      []string{s.operationsEmail},
				Subject: "New Order Received - #" + code,
				Text:    orderText(view),
				HTML:    opsHTML,
			})
		}
		errs = multierr.Append(errs, wrap("operations notice", err))
	}
	return errs
}

func (s *service) PasswordReset(ctx context.Context, email, token string, validFor time.Duration) error {
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	html, err := render(passwordResetHTML, map[string]string{"URL": link, "ValidFor": validFor.String()})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, mailer.Message{
		To:      []string{email},
		Subject: "Password Reset Request",
		Text:    "Reset your password: " + link + "\nThe link expires in " + validFor.String() + ".",
		HTML:    html,
	})
}

func (s *service) orderView(c OrderConfirmation) orderView {
	total := decimal.Zero
	lines := make([]orderLine, 0, len(c.Orders))
	for _, o := range c.Orders {
		total = total.Add(o.TotalPrice)
		lines = append(lines, orderLine{
			Code:       o.OrderCode,
			Package:    o.PackageName,
			Quantity:   o.Quantity,
			Recipients: describeRecipients(o.Recipients),
			Total:      o.TotalPrice.StringFixed(2),
			Status:     o.Status.String(),
		})
	}
	return orderView{
		Reference: c.Reference,
		Email:     c.Email,
		Currency:  c.Currency,
		Total:     total.StringFixed(2),
		TrackURL:  s.baseURL + "/track?transaction_ref=" + url.QueryEscape(c.Reference),
		Lines:     lines,
	}
}

func describeRecipients(recipients types.Recipients) string {
	parts := make([]string, 0, len(recipients))
	for _, rec := range recipients {
		switch v := rec.(type) {
		case *types.PhoneRecipient:
			parts = append(parts, v.Phone)
		case *types.CableRecipient:
			parts = append(parts, "card "+v.SmartCard)
		case *types.ResultCheckerRecipient:
			parts = append(parts, "WhatsApp "+v.WhatsApp)
		case *types.AfaRecipient:
			parts = append(parts, v.Name+" ("+v.MTNNumber+")")
		}
	}
	return strings.Join(parts, ", ")
}

func orderText(v orderView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment reference: %s\n", v.Reference)
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "%s  %d x %s  %s %s  [%s]\n", l.Code, l.Quantity, l.Package, v.Currency, l.Total, l.Status)
	}
	fmt.Fprintf(&b, "Total: %s %s\nTrack: %s\n", v.Currency, v.Total, v.TrackURL)
	return b.String()
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
