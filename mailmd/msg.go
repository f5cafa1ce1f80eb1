package mailmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/richardlehane/mscfb"
)

// ErrNotMessage is returned when a compound file carries no MAPI message
// properties.
var ErrNotMessage = errors.New("mailmd: compound file is not an Outlook message")

const (
	substgPrefix     = "__substg1.0_"
	propertiesStream = "__properties_version1.0"

	// Top-level message property streams start with a 32-byte header.
	propHeaderLen = 32
	propEntryLen  = 16
)

// MAPI property types.
const (
	ptString8 uint16 = 0x001E
	ptUnicode uint16 = 0x001F
	ptSysTime uint16 = 0x0040
	ptBinary  uint16 = 0x0102
)

// MAPI property ids.
const (
	pidSubject          uint16 = 0x0037
	pidClientSubmitTime uint16 = 0x0039
	pidTransportHeaders uint16 = 0x007D
	pidSenderName       uint16 = 0x0C1A
	pidSenderEmail      uint16 = 0x0C1F
	pidDisplayBCC       uint16 = 0x0E02
	pidDisplayCC        uint16 = 0x0E03
	pidDisplayTo        uint16 = 0x0E04
	pidDeliveryTime     uint16 = 0x0E06
	pidBody             uint16 = 0x1000
	pidBodyHTML         uint16 = 0x1013
	pidSenderSMTP       uint16 = 0x5D01
)

// filetimeEpochDelta is the number of 100ns ticks between 1601-01-01 and
// the Unix epoch.
const filetimeEpochDelta = 116444736000000000

type msgProp struct {
	typ  uint16
	data []byte
}

// msgMessage holds the top-level property streams of an Outlook message.
type msgMessage struct {
	props map[uint16]msgProp
	fixed []byte // __properties_version1.0
}

// MSG renders an Outlook .msg file as Markdown.
func MSG(data []byte) (string, error) {
	m, err := readMSG(data)
	if err != nil {
		return "", err
	}
	body, err := m.body()
	if err != nil {
		return "", err
	}
	return Format(m.headers(), body), nil
}

func readMSG(data []byte) (*msgMessage, error) {
	r, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mailmd: open compound file: %w", err)
	}
	m := &msgMessage{props: make(map[uint16]msgProp)}
	for entry, nerr := r.Next(); nerr == nil; entry, nerr = r.Next() {
		// Recipient and attachment storages hold their own property streams.
		if len(entry.Path) != 0 {
			continue
		}
		switch {
		case entry.Name == propertiesStream:
			buf, err := io.ReadAll(entry)
			if err != nil {
				return nil, fmt.Errorf("mailmd: read %s: %w", entry.Name, err)
			}
			m.fixed = buf
		case strings.HasPrefix(entry.Name, substgPrefix):
			tag, typ, ok := parseSubstgName(entry.Name)
			if !ok {
				continue
			}
			buf, err := io.ReadAll(entry)
			if err != nil {
				return nil, fmt.Errorf("mailmd: read %s: %w", entry.Name, err)
			}
			m.props[tag] = msgProp{typ: typ, data: buf}
		}
	}
	if len(m.props) == 0 && m.fixed == nil {
		return nil, ErrNotMessage
	}
	return m, nil
}

// parseSubstgName splits "__substg1.0_0037001F" into tag 0x0037 and type 0x001F.
func parseSubstgName(name string) (tag, typ uint16, ok bool) {
	hex := strings.TrimPrefix(name, substgPrefix)
	if len(hex) != 8 {
		return 0, 0, false
	}
	t, err := strconv.ParseUint(hex[:4], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.ParseUint(hex[4:], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(t), uint16(y), true
}

// str returns a string property, or "" when absent or not textual.
func (m *msgMessage) str(tag uint16) string {
	p, ok := m.props[tag]
	if !ok {
		return ""
	}
	switch p.typ {
	case ptUnicode:
		return decodeUTF16LE(p.data)
	case ptString8, ptBinary:
		return decode8Bit(p.data)
	}
	return ""
}

func (m *msgMessage) headers() Headers {
	h := Headers{
		Subject: m.str(pidSubject),
		To:      m.str(pidDisplayTo),
		CC:      m.str(pidDisplayCC),
		BCC:     m.str(pidDisplayBCC),
	}

	name := m.str(pidSenderName)
	addr := m.str(pidSenderSMTP)
	if addr == "" {
		addr = m.str(pidSenderEmail)
	}
	switch {
	case name != "" && addr != "" && name != addr:
		h.From = name + " <" + addr + ">"
	case addr != "":
		h.From = addr
	default:
		h.From = name
	}

	// Transport headers are what the recipient actually received; prefer them.
	if raw := m.str(pidTransportHeaders); raw != "" {
		th := parseTransportHeaders(raw)
		for _, f := range []struct {
			dst *string
			key string
		}{
			{&h.From, "From"},
			{&h.To, "To"},
			{&h.CC, "Cc"},
			{&h.Date, "Date"},
		} {
			if v := th[f.key]; v != "" {
				*f.dst = v
			}
		}
		if h.Subject == "" {
			h.Subject = th["Subject"]
		}
	}

	if h.Date == "" {
		if t, ok := m.sysTime(pidClientSubmitTime); ok {
			h.Date = t.Format(time.RFC1123Z)
		} else if t, ok := m.sysTime(pidDeliveryTime); ok {
			h.Date = t.Format(time.RFC1123Z)
		}
	}
	return h
}

func (m *msgMessage) body() (string, error) {
	if text := m.str(pidBody); strings.TrimSpace(text) != "" {
		return text, nil
	}
	if html := m.str(pidBodyHTML); strings.TrimSpace(html) != "" {
		return HTMLToMarkdown(html)
	}
	return "", nil
}

// sysTime looks up a PT_SYSTIME value in the fixed-size property stream.
func (m *msgMessage) sysTime(tag uint16) (time.Time, bool) {
	if len(m.fixed) < propHeaderLen {
		return time.Time{}, false
	}
	want := uint32(tag)<<16 | uint32(ptSysTime)
	for off := propHeaderLen; off+propEntryLen <= len(m.fixed); off += propEntryLen {
		entry := m.fixed[off : off+propEntryLen]
		if binary.LittleEndian.Uint32(entry[0:4]) != want {
			continue
		}
		ft := int64(binary.LittleEndian.Uint64(entry[8:16]))
		if ft <= filetimeEpochDelta {
			return time.Time{}, false
		}
		return time.Unix(0, (ft-filetimeEpochDelta)*100).UTC(), true
	}
	return time.Time{}, false
}

// parseTransportHeaders reads the RFC 5322 header block stored in the
// message and returns decoded values for the headers we render.
func parseTransportHeaders(raw string) map[string]string {
	raw = strings.TrimLeft(raw, "\r\n")
	msg, err := mail.ReadMessage(strings.NewReader(raw + "\r\n\r\n"))
	if err != nil {
		return nil
	}
	dec := new(mime.WordDecoder)
	out := make(map[string]string, 5)
	for _, key := range []string{"From", "To", "Cc", "Date", "Subject"} {
		v := msg.Header.Get(key)
		if v == "" {
			continue
		}
		if d, err := dec.DecodeHeader(v); err == nil {
			v = d
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func decodeUTF16LE(b []byte) string {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return strings.TrimRight(string(utf16.Decode(u)), "\x00")
}

// decode8Bit treats valid UTF-8 as such and anything else as Latin-1.
func decode8Bit(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	if utf8.Valid(b) {
		return string(b)
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
