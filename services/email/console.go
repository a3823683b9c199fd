package emailsvc

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/alama/core"
)

type ConsoleService struct {
	mu         sync.Mutex
	out        io.Writer
	from       mail.Address
	subjPrefix string
	sent       []core.EmailMessage
}

var _ core.EmailService = (*ConsoleService)(nil)

// NewConsoleService writes messages to out instead of sending them. A nil out only records them.
func NewConsoleService(out io.Writer, conf *core.Config) *ConsoleService {
	return &ConsoleService{
		out:        out,
		from:       mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmail},
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		if svc.out != nil {
			if _, err := io.WriteString(svc.out, svc.render(*msg)); err != nil {
				return err
			}
		}
		svc.sent = append(svc.sent, *msg)
	}
	return nil
}

// SentMessages returns a copy of everything sent so far.
func (svc *ConsoleService) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]core.EmailMessage, len(svc.sent))
	copy(out, svc.sent)
	return out
}

func (svc *ConsoleService) render(msg core.EmailMessage) string {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", svc.from.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", svc.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}
	_, _ = fmt.Fprint(body, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	_, _ = fmt.Fprintf(body, "%s\r\n", msg.Body)
	return body.String()
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
