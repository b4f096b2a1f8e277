package email_scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jobsentry-engine/internal/domain"
	"jobsentry-engine/internal/metrics"
)

var (
	ErrInvalidAppPassword = errors.New("app password must be exactly 16 characters (without spaces)")
	ErrAuthFailed         = errors.New("mailbox authentication failed")
	ErrConnection         = errors.New("mailbox connection failed")
)

const appPasswordLen = 16

type Credentials struct {
	Username string
	Password string
}

// Normalized strips whitespace from the password and checks its shape.
// Nothing touches the network when this fails.
func (c Credentials) Normalized() (Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	c.Password = strings.Join(strings.Fields(c.Password), "")
	if len([]rune(c.Password)) != appPasswordLen {
		return c, ErrInvalidAppPassword
	}
	if c.Username == "" {
		return c, errors.New("mailbox username is required")
	}
	return c, nil
}

type State int

const (
	StateConnecting State = iota
	StateSearching
	StateFetching
	StateParsing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSearching:
		return "searching"
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Scanner reads a mailbox and returns the job-application messages in it.
type Scanner struct {
	dialer      Dialer
	heur        *Heuristics
	concurrency int
	now         func() time.Time
}

func NewScanner(d Dialer, h *Heuristics, parseConcurrency int) *Scanner {
	if parseConcurrency < 1 {
		parseConcurrency = 1
	}
	return &Scanner{dialer: d, heur: h, concurrency: parseConcurrency, now: time.Now}
}

type scanRun struct {
	user  string
	state State
}

func (r *scanRun) to(s State, format string, args ...any) {
	r.state = s
	log.Printf("[email] user=%s state=%s "+format, append([]any{r.user, s}, args...)...)
}

// Scan searches messages received in the last daysBack days, newest first,
// capped at limit. Results keep that order. A malformed message is skipped;
// any connection-level failure fails the whole scan.
func (s *Scanner) Scan(ctx context.Context, creds Credentials, daysBack, limit int) ([]domain.EmailApplication, error) {
	creds, err := creds.Normalized()
	if err != nil {
		return nil, err
	}
	if daysBack <= 0 {
		daysBack = 30
	}
	if limit <= 0 {
		limit = 50
	}

	run := &scanRun{user: creds.Username}
	run.to(StateConnecting, "days_back=%d limit=%d", daysBack, limit)

	sess, err := s.dialer.Dial(ctx, creds)
	if err != nil {
		run.to(StateFailed, "err=%v", err)
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	run.to(StateSearching, "")
	since := s.now().AddDate(0, 0, -daysBack)
	uids, err := sess.SearchSince(ctx, since)
	if err != nil {
		run.to(StateFailed, "err=%v", err)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	uids = newestFirst(uids, limit)

	run.to(StateFetching, "candidates=%d", len(uids))
	msgs, err := sess.Fetch(ctx, uids)
	if err != nil {
		run.to(StateFailed, "err=%v", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	msgs = inRequestOrder(msgs, uids)

	run.to(StateParsing, "messages=%d", len(msgs))
	results := make([]*domain.EmailApplication, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range msgs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = s.classify(msgs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		run.to(StateFailed, "err=%v", err)
		return nil, err
	}

	out := make([]domain.EmailApplication, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	run.to(StateDone, "applications=%d", len(out))
	return out, nil
}

// classify returns nil for messages that are skipped. It never fails the
// scan: parse errors and panics are logged and the message dropped.
func (s *Scanner) classify(m RawMessage) (app *domain.EmailApplication) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[email] uid=%d panic while parsing: %v", m.UID, rec)
			metrics.ScannedMessages.WithLabelValues("parse_error").Inc()
			app = nil
		}
	}()

	pm, err := parseMessage(m)
	if err != nil {
		log.Printf("[email] uid=%d parse error: %v", m.UID, err)
		metrics.ScannedMessages.WithLabelValues("parse_error").Inc()
		return nil
	}

	if !s.heur.Include(pm.From, pm.Subject, pm.Text) {
		metrics.ScannedMessages.WithLabelValues("not_job").Inc()
		return nil
	}

	d := s.heur.ExtractJobDetails(pm.Subject, pm.Text, pm.HTML)
	if len(d.URLs) == 0 {
		metrics.ScannedMessages.WithLabelValues("no_url").Inc()
		return nil
	}

	received := pm.Date
	if received.IsZero() {
		received = s.now()
	}
	metrics.ScannedMessages.WithLabelValues("application").Inc()
	return &domain.EmailApplication{
		Subject:      pm.Subject,
		EmailFrom:    pm.From,
		ReceivedDate: received,
		URLs:         d.URLs,
		Title:        d.Title,
		Company:      d.Company,
		Status:       d.Status,
	}
}

// newestFirst assumes ascending UIDs from the server.
func newestFirst(uids []uint32, limit int) []uint32 {
	out := make([]uint32, len(uids))
	for i, u := range uids {
		out[len(uids)-1-i] = u
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func inRequestOrder(msgs []RawMessage, uids []uint32) []RawMessage {
	pos := make(map[uint32]int, len(uids))
	for i, u := range uids {
		pos[u] = i
	}
	out := make([]RawMessage, 0, len(msgs))
	slots := make([]*RawMessage, len(uids))
	var extra []RawMessage
	for i := range msgs {
		if p, ok := pos[msgs[i].UID]; ok && slots[p] == nil {
			slots[p] = &msgs[i]
		} else {
			extra = append(extra, msgs[i])
		}
	}
	for _, m := range slots {
		if m != nil {
			out = append(out, *m)
		}
	}
	return append(out, extra...)
}
