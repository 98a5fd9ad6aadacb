// Baculum Report - Bacula Backup Job Reporting and Notification
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/baculum-report

package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/google/uuid"
)

// message is the input of buildMessage.
type message struct {
	From     string
	To       []string
	Subject  string
	HTML     string
	ReportID string
	Date     time.Time
}

// buildMessage renders an RFC 5322 text/html message and returns it with
// its Message-ID.
func buildMessage(m message) ([]byte, string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(m.From))

	var buf bytes.Buffer
	writeHeader(&buf, "From", m.From)
	writeHeader(&buf, "To", strings.Join(m.To, ", "))
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	writeHeader(&buf, "Date", m.Date.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", messageID)
	if m.ReportID != "" {
		writeHeader(&buf, "X-Report-ID", m.ReportID)
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "text/html; charset=UTF-8")
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(m.HTML)); err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}

	return buf.Bytes(), messageID, nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	// Header values must not carry their own line breaks.
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	fmt.Fprintf(buf, "%s: %s\r\n", name, value)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return strings.Trim(addr[i+1:], "<> ")
	}
	return "localhost"
}
