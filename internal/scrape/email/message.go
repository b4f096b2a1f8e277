package email_scrape

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartBytes = 4 << 20

var reTags = regexp.MustCompile(`(?is)<[^>]+>`)

// parsedMessage is the decoded subset of a message the heuristics need.
type parsedMessage struct {
	Subject string
	From    string
	Date    time.Time
	Text    string // text/plain, or text derived from HTML
	HTML    string
}

// parseMessage decodes raw RFC822 bytes. Envelope values from the server are
// used when the headers lack them.
func parseMessage(m RawMessage) (parsedMessage, error) {
	out := parsedMessage{Subject: m.Subject, From: m.From, Date: m.Date}
	if len(m.Raw) == 0 {
		return out, errors.New("empty message body")
	}

	mr, err := mail.CreateReader(bytes.NewReader(m.Raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return out, err
	}

	if s, err := mr.Header.Subject(); err == nil && s != "" {
		out.Subject = s
	}
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		out.From = joinAddrs(addrs)
	} else if out.From == "" {
		out.From = mr.Header.Get("From")
	}
	if d, err := mr.Header.Date(); err == nil && !d.IsZero() {
		out.Date = d
	}

	var plain, htmlPart string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if plain == "" && htmlPart == "" {
				return out, err
			}
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, rerr := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))
		if rerr != nil {
			continue
		}
		switch strings.ToLower(ct) {
		case "text/plain":
			if len(b) > len(plain) {
				plain = string(b)
			}
		case "text/html":
			if len(b) > len(htmlPart) {
				htmlPart = string(b)
			}
		}
	}

	out.HTML = htmlPart
	out.Text = plain
	if out.Text == "" && htmlPart != "" {
		out.Text = htmlToText(htmlPart)
	}
	return out, nil
}

func joinAddrs(addrs []*mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		if a.Name != "" {
			parts = append(parts, a.Name+" <"+a.Address+">")
		} else {
			parts = append(parts, a.Address)
		}
	}
	return strings.Join(parts, ", ")
}

// htmlToText keeps line structure so label patterns still see line ends.
func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(reTags.ReplaceAllString(s, " "))
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br, p, div, tr, li, h1, h2, h3, h4, table").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
