// Package hl7v2 reads pipe-delimited HL7 v2 messages far enough to identify
// the message and project its PID segment onto a FHIR Patient.
package hl7v2

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Message represents a parsed HL7v2 message.
type Message struct {
	Type         string    // MSH-9 (e.g. "ADT^A01")
	ControlID    string    // MSH-10
	Version      string    // MSH-12
	Timestamp    time.Time // MSH-7
	SendingApp   string    // MSH-3
	SendingFac   string    // MSH-4
	ReceivingApp string    // MSH-5
	ReceivingFac string    // MSH-6
	Segments     []Segment
}

// Segment is one line of the message. Fields are stored 1-based in the
// HL7 sense: Fields[0] is field 1 (for MSH, the field separator itself).
type Segment struct {
	Name   string
	Fields []Field
}

// Field keeps the raw value plus its repetitions split into components.
type Field struct {
	Value   string
	Repeats [][]string
}

// Components returns the components of the first repetition.
func (f Field) Components() []string {
	if len(f.Repeats) == 0 {
		return nil
	}
	return f.Repeats[0]
}

type encoding struct {
	field, component, repetition byte
}

var defaultEncoding = encoding{field: '|', component: '^', repetition: '~'}

// Looks reports whether raw plausibly holds an HL7 v2 message.
func Looks(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("MSH"))
}

// Parse parses a message with \r, \n or \r\n segment terminators. The
// separators are taken from MSH-1 and MSH-2.
func Parse(raw []byte) (*Message, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("hl7v2: message is empty")
	}
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	var lines []string
	for _, line := range strings.Split(text, "\r") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if !strings.HasPrefix(lines[0], "MSH") || len(lines[0]) < 8 {
		return nil, fmt.Errorf("hl7v2: first segment must be a MSH header")
	}

	enc := readEncoding(lines[0])
	msg := &Message{}
	for _, line := range lines {
		msg.Segments = append(msg.Segments, enc.segment(line))
	}

	msh := &msg.Segments[0]
	msg.SendingApp = msh.Get(3)
	msg.SendingFac = msh.Get(4)
	msg.ReceivingApp = msh.Get(5)
	msg.ReceivingFac = msh.Get(6)
	if ts, err := parseTimestamp(msh.Get(7)); err == nil {
		msg.Timestamp = ts
	}
	msg.Type = msh.Get(9)
	msg.ControlID = msh.Get(10)
	msg.Version = msh.Get(12)

	return msg, nil
}

func readEncoding(header string) encoding {
	enc := defaultEncoding
	enc.field = header[3]
	chars := header[4:]
	if i := strings.IndexByte(chars, enc.field); i >= 0 {
		chars = chars[:i]
	}
	if len(chars) > 0 {
		enc.component = chars[0]
	}
	if len(chars) > 1 {
		enc.repetition = chars[1]
	}
	return enc
}

func (e encoding) segment(line string) Segment {
	parts := strings.Split(line, string(e.field))
	seg := Segment{Name: parts[0]}

	if seg.Name == "MSH" {
		// MSH-1 is the separator and MSH-2 the encoding characters; neither
		// is split further.
		seg.Fields = append(seg.Fields, Field{Value: string(e.field), Repeats: [][]string{{string(e.field)}}})
		if len(parts) > 1 {
			seg.Fields = append(seg.Fields, Field{Value: parts[1], Repeats: [][]string{{parts[1]}}})
		}
		for _, p := range parts[min(2, len(parts)):] {
			seg.Fields = append(seg.Fields, e.split(p))
		}
		return seg
	}

	for _, p := range parts[1:] {
		seg.Fields = append(seg.Fields, e.split(p))
	}
	return seg
}

func (e encoding) split(raw string) Field {
	f := Field{Value: raw}
	for _, rep := range strings.Split(raw, string(e.repetition)) {
		f.Repeats = append(f.Repeats, strings.Split(rep, string(e.component)))
	}
	return f
}

// parseTimestamp accepts YYYYMMDD[HHmm[ss]] with optional trailing
// fraction or zone, which are ignored.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp %q", s)
	}
}

// Segment returns the first segment with the given name, or nil.
func (m *Message) Segment(name string) *Segment {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

// SegmentsNamed returns every segment with the given name.
func (m *Message) SegmentsNamed(name string) []Segment {
	var out []Segment
	for _, seg := range m.Segments {
		if seg.Name == name {
			out = append(out, seg)
		}
	}
	return out
}

// Get returns the raw value of field n (1-based), or "".
func (s *Segment) Get(n int) string {
	if s == nil || n < 1 || n > len(s.Fields) {
		return ""
	}
	return s.Fields[n-1].Value
}

// Component returns component c of field n (both 1-based), or "".
func (s *Segment) Component(n, c int) string {
	if s == nil || n < 1 || n > len(s.Fields) {
		return ""
	}
	comps := s.Fields[n-1].Components()
	if c < 1 || c > len(comps) {
		return ""
	}
	return comps[c-1]
}

// PatientID returns PID-3.1.
func (m *Message) PatientID() string {
	return m.Segment("PID").Component(3, 1)
}

// PatientName returns PID-5 family, given and middle name.
func (m *Message) PatientName() (family, given, middle string) {
	pid := m.Segment("PID")
	return pid.Component(5, 1), pid.Component(5, 2), pid.Component(5, 3)
}

// DateOfBirth returns PID-7 as written (YYYYMMDD...).
func (m *Message) DateOfBirth() string {
	return m.Segment("PID").Get(7)
}

// Gender returns PID-8 (administrative sex).
func (m *Message) Gender() string {
	return m.Segment("PID").Get(8)
}
