package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wneessen/go-mail"
	"github.com/yeqown/go-qrcode"
	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/config"
	"github.com/eventpass/eventpass-api/internal/domain"
)

const (
	defaultEventTitle = "Sự kiện"
	qrAttachmentName  = "ticket-qr.png"

	typeImagePNG mail.ContentType = "image/png"
)

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

func NewSMTPClient(conf *config.SMTPConfig) (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(conf.Port)}
	if conf.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(conf.Username),
			mail.WithPassword(conf.Password),
		)
	}

	c, err := mail.NewClient(conf.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail.NewClient -> %w", err)
	}

	return c, nil
}

// TicketMailer sends the e-ticket of a booking with its QR code attached.
type TicketMailer struct {
	sender   Sender
	from     string
	fromName string
}

func NewTicketMailer(sender Sender, from, fromName string) *TicketMailer {
	return &TicketMailer{
		sender:   sender,
		from:     from,
		fromName: fromName,
	}
}

func (m *TicketMailer) SendTicket(ctx context.Context, booking domain.Booking) error {
	if booking.User == nil || booking.User.Email == "" {
		return fmt.Errorf("booking %s has no recipient", booking.ID)
	}

	qrPNG, err := EncodeQRCode(booking)
	if err != nil {
		return err
	}

	msg, err := m.BuildMessage(booking, qrPNG)
	if err != nil {
		return err
	}

	if err = m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("m.sender.DialAndSendWithContext -> %w", err)
	}

	return nil
}

// BuildMessage assembles the ticket e-mail. The QR attachment is skipped
// when qrPNG is empty.
func (m *TicketMailer) BuildMessage(booking domain.Booking, qrPNG []byte) (*mail.Msg, error) {
	body, err := RenderTicket(booking)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err = msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("msg.FromFormat -> %w", err)
	}
	if err = msg.To(booking.User.Email); err != nil {
		return nil, fmt.Errorf("msg.To -> %w", err)
	}
	msg.Subject(fmt.Sprintf("[EventPass] Vé điện tử: %s", eventTitle(booking)))
	msg.SetBodyString(mail.TypeTextHTML, body)
	if len(qrPNG) > 0 {
		if err = msg.AttachReader(qrAttachmentName, bytes.NewReader(qrPNG), mail.WithFileContentType(typeImagePNG)); err != nil {
			return nil, fmt.Errorf("msg.AttachReader -> %w", err)
		}
	}

	return msg, nil
}

// EncodeQRCode renders the check-in QR code of a booking as PNG. The image
// stays in memory, so overlapping sends of one booking share nothing.
func EncodeQRCode(booking domain.Booking) ([]byte, error) {
	qrc, err := qrcode.New(booking.ID.String(), qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT))
	if err != nil {
		return nil, fmt.Errorf("qrcode.New -> %w", err)
	}

	var buf bytes.Buffer
	if err = qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("qrc.SaveTo -> %w", err)
	}

	return buf.Bytes(), nil
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #4F46E5; padding: 20px; text-align: center; color: white;">
    <h1 style="margin: 0;">VÉ SỰ KIỆN CỦA BẠN</h1>
  </div>
  <div style="padding: 20px;">
    <p>Xin chào <strong>{{.Email}}</strong>,</p>
    <p>Cảm ơn bạn đã đặt vé tại EventPass. Dưới đây là thông tin vé của bạn:</p>
    <div style="background-color: #f9fafb; padding: 15px; border-radius: 8px; margin: 20px 0;">
      <h2 style="color: #111827; margin-top: 0;">{{.EventTitle}}</h2>
      <p style="margin: 5px 0;"><strong>Mã đơn:</strong> #{{.Code}}</p>
      <p style="margin: 5px 0;"><strong>Số lượng:</strong> {{.Quantity}}</p>
      <p style="margin: 5px 0;"><strong>Tổng tiền:</strong> {{.Total}} đ</p>
      <p style="margin: 5px 0;"><strong>Trạng thái:</strong> <span style="color: green; font-weight: bold;">{{.Status}}</span></p>
    </div>
    <p style="text-align: center;">Mã QR check-in được đính kèm trong email này.</p>
    <p style="color: #6b7280; font-size: 12px; text-align: center;">Đây là email tự động, vui lòng không trả lời.</p>
  </div>
</div>`))

type ticketView struct {
	Email      string
	EventTitle string
	Code       string
	Quantity   int
	Total      string
	Status     string
}

func RenderTicket(booking domain.Booking) (string, error) {
	view := ticketView{
		EventTitle: eventTitle(booking),
		Code:       booking.ShortCode(),
		Total:      formatAmount(booking.TotalAmount),
		Status:     statusLabel(booking.Status),
	}
	if booking.User != nil {
		view.Email = booking.User.Email
	}
	for _, item := range booking.Items {
		view.Quantity += item.Quantity
	}

	var buf bytes.Buffer
	if err := ticketTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("ticketTemplate.Execute -> %w", err)
	}

	return buf.String(), nil
}

func eventTitle(b domain.Booking) string {
	if t := b.EventTitle(); t != "" {
		return t
	}

	return defaultEventTitle
}

func statusLabel(s domain.BookingStatus) string {
	if s == domain.BookingStatusPaid {
		return "ĐÃ THANH TOÁN"
	}

	return "CHỜ THANH TOÁN"
}

// formatAmount renders whole currency units with dot thousands separators,
// e.g. 1500000 -> 1.500.000.
func formatAmount(d decimal.Decimal) string {
	digits := d.Round(0).Abs().String()

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return b.String()
}

// LogSender logs messages instead of delivering them. It stands in for SMTP
// when no host is configured.
type LogSender struct{}

func (LogSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	for _, msg := range messages {
		rcpts, _ := msg.GetRecipients()
		zap.L().Info("smtp disabled, ticket e-mail not delivered",
			zap.Strings("to", rcpts),
			zap.Strings("subject", msg.GetGenHeader(mail.HeaderSubject)),
		)
	}

	return nil
}
