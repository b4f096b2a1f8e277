// internal/scrape/email/email.go
package email_scrape

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// RawMessage is one fetched message: envelope fields plus the full RFC822
// bytes, fetched with BODY.PEEK[] so the server does not set \Seen.
type RawMessage struct {
	UID     uint32
	From    string
	Subject string
	Date    time.Time
	Raw     []byte
}

// Session is an authenticated, read-only view of one mailbox.
type Session interface {
	SearchSince(ctx context.Context, since time.Time) ([]uint32, error)
	Fetch(ctx context.Context, uids []uint32) ([]RawMessage, error)
	Close() error
}

// Dialer opens a Session. Implementations return errors wrapping
// ErrAuthFailed or ErrConnection.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Session, error)
}

// IMAPDialer connects over implicit TLS, logs in and selects the mailbox
// read-only.
type IMAPDialer struct {
	Host           string
	Port           int
	Mailbox        string
	ConnectTimeout time.Duration
	// SessionTimeout bounds search and fetch after login.
	SessionTimeout time.Duration
	TLSConfig      *tls.Config
}

func (d IMAPDialer) Dial(ctx context.Context, creds Credentials) (Session, error) {
	if d.Host == "" {
		return nil, fmt.Errorf("%w: imap host is required", ErrConnection)
	}
	port := d.Port
	if port == 0 {
		port = 993
	}
	connectTimeout := d.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	sessionTimeout := d.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = 2 * time.Minute
	}
	mailbox := d.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	tlsCfg := d.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: d.Host}
	}

	addr := net.JoinHostPort(d.Host, strconv.Itoa(port))
	nd := &net.Dialer{Timeout: connectTimeout}
	conn, err := tls.DialWithDialer(nd, "tcp", addr, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, addr, err)
	}

	// connect + auth share one deadline
	_ = conn.SetDeadline(time.Now().Add(connectTimeout))

	c := imapclient.New(conn, nil)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-stop:
		}
	}()
	fail := func(err error) (Session, error) {
		close(stop)
		_ = c.Close()
		return nil, err
	}

	if err := c.Login(creds.Username, creds.Password).Wait(); err != nil {
		if isAuthError(err) {
			return fail(fmt.Errorf("%w: %v", ErrAuthFailed, err))
		}
		return fail(fmt.Errorf("%w: login: %v", ErrConnection, err))
	}

	_ = conn.SetDeadline(time.Now().Add(sessionTimeout))

	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return fail(fmt.Errorf("%w: select %s: %v", ErrConnection, mailbox, err))
	}
	return &imapSession{c: c, stop: stop}, nil
}

// isAuthError reports whether a LOGIN failure means the credentials were
// rejected. A NO that talks about IMAP itself ("not enabled for IMAP use")
// is a mailbox setting problem, not a bad password.
func isAuthError(err error) bool {
	var ie *imap.Error
	if errors.As(err, &ie) {
		switch ie.Code {
		case imap.ResponseCodeAuthenticationFailed, imap.ResponseCodeAuthorizationFailed:
			return true
		}
		if strings.Contains(strings.ToLower(ie.Text), "imap") {
			return false
		}
		return ie.Type == imap.StatusResponseTypeNo
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "authenticationfailed") || strings.Contains(s, "invalid credentials")
}

type imapSession struct {
	c    *imapclient.Client
	stop chan struct{}
}

func (s *imapSession) SearchSince(ctx context.Context, since time.Time) ([]uint32, error) {
	data, err := s.c.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}
	uids := data.AllUIDs()
	out := make([]uint32, len(uids))
	for i, u := range uids {
		out[i] = uint32(u)
	}
	return out, nil
}

func (s *imapSession) Fetch(ctx context.Context, uids []uint32) ([]RawMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	set := make([]imap.UID, len(uids))
	for i, u := range uids {
		set[i] = imap.UID(u)
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := s.c.Fetch(imap.UIDSetNum(set...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]RawMessage, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		rm := RawMessage{UID: uint32(buf.UID)}
		if buf.Envelope != nil {
			rm.Subject = buf.Envelope.Subject
			rm.Date = buf.Envelope.Date
			rm.From = envelopeAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			rm.Raw = append([]byte(nil), b...)
		}
		out = append(out, rm)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// Close logs out then closes the connection.
func (s *imapSession) Close() error {
	close(s.stop)
	if err := s.c.Logout().Wait(); err != nil {
		log.Printf("[email] imap logout: %v", err)
	}
	return s.c.Close()
}

func envelopeAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
