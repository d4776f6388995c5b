package ledgercore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/colinmarsh/ledgercore/date"
)

// jsonObjectWriter builds a JSON object with a specific field order. Its
// zero value is ready to use. Only the Embed/Append/Optional subset the
// stable-key persisted forms need is implemented.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Embed merges a raw JSON object's fields into the object being built.
func (w *jsonObjectWriter) Embed(rawJSON []byte) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	trimmed := bytes.TrimSpace(rawJSON)
	if len(trimmed) > 2 && trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if len(trimmed) > 0 {
		w.Write(trimmed)
		w.WriteString(",")
	}
	return w
}

// EmbedFrom marshals v and embeds its fields into the object being built.
func (w *jsonObjectWriter) EmbedFrom(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	rawJSON, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal for embedding: %w", err)
		return w
	}
	return w.Embed(rawJSON)
}

// Append adds a key-value pair, marshaling value with json.Marshal.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	valBytes, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
		return w
	}
	w.WriteString(fmt.Sprintf("%q:", key))
	w.Write(valBytes)
	w.WriteString(",")
	return w
}

// Optional appends key/value only if value is not its type's zero value.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON finalizes the object, satisfying json.Marshaler.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')
	return final, nil
}

// transactionDoc is the stable-key persisted shape of a Transaction;
// Split.Amount/InvestmentFields.* Amounts use Amount's own "base/p"
// MarshalJSON.
type transactionDoc struct {
	ID          TransactionID     `json:"id"`
	Date        date.Date         `json:"date"`
	No          string            `json:"no,omitempty"`
	Memo        string            `json:"memo,omitempty"`
	Note        string            `json:"note,omitempty"`
	Flagged     bool              `json:"flagged,omitempty"`
	Cleared     ClearedStatus     `json:"cleared"`
	Attachments []string          `json:"attachments,omitempty"`
	PayeeID     int64             `json:"payeeId,omitempty"`
	Splits      []Split           `json:"splits"`
	Investment  *InvestmentFields `json:"investment,omitempty"`
}

// MarshalJSON writes tx in stable key order via jsonObjectWriter, one
// object per JSON line.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	w := &jsonObjectWriter{}
	w.Append("id", t.ID).
		Append("date", t.Date).
		Optional("no", t.No).
		Optional("memo", t.Memo).
		Optional("note", t.Note).
		Optional("flagged", t.Flagged).
		Append("cleared", t.Cleared).
		Optional("attachments", t.Attachments).
		Optional("payeeId", t.PayeeID).
		Append("splits", t.Splits).
		Optional("investment", t.Investment)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the persisted form written by MarshalJSON.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var doc transactionDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return &IoError{Op: "unmarshal transaction", Err: err}
	}
	t.ID = doc.ID
	t.Date = doc.Date
	t.No = doc.No
	t.Memo = doc.Memo
	t.Note = doc.Note
	t.Flagged = doc.Flagged
	t.Cleared = doc.Cleared
	t.Attachments = doc.Attachments
	t.PayeeID = doc.PayeeID
	t.Splits = doc.Splits
	t.Investment = doc.Investment
	return nil
}

// recurrenceDoc is the stable-key persisted shape of a Recurrence:
// weekdays as letter codes, day-of-month/day-of-year markers as negative
// ints, frequency as its stable numeric code.
type recurrenceDoc struct {
	BeginDate    date.Date `json:"beginDate"`
	Frequency    int       `json:"frequency"`
	Every        int       `json:"every"`
	Weekdays     string    `json:"weekdays,omitempty"`
	DaysOfMonth  string    `json:"daysOfMonth,omitempty"`
	DaysOfYear   string    `json:"daysOfYear,omitempty"`
	Stops        bool      `json:"stops,omitempty"`
	LastDate     date.Date `json:"lastDate,omitempty"`
	NumRemaining int       `json:"numRemaining,omitempty"`
}

func encodeDaysOfMonth(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeDaysOfMonth(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, newValidationError("recurrence", "invalid daysOfMonth entry %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func encodeDaysOfYear(days []MonthDay) string {
	parts := make([]string, len(days))
	for i, md := range days {
		parts[i] = fmt.Sprintf("%d:%d", int(md.Month), md.Day)
	}
	return strings.Join(parts, ",")
}

func decodeDaysOfYear(s string) ([]MonthDay, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]MonthDay, len(parts))
	for i, p := range parts {
		sub := strings.SplitN(p, ":", 2)
		if len(sub) != 2 {
			return nil, newValidationError("recurrence", "invalid daysOfYear entry %q", p)
		}
		m, err1 := strconv.Atoi(sub[0])
		d, err2 := strconv.Atoi(sub[1])
		if err1 != nil || err2 != nil {
			return nil, newValidationError("recurrence", "invalid daysOfYear entry %q", p)
		}
		out[i] = MonthDay{Month: time.Month(m), Day: d}
	}
	return out, nil
}

// MarshalJSON writes r in its persisted form.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	doc := recurrenceDoc{
		BeginDate:    r.BeginDate,
		Frequency:    FrequencyCode(r.Frequency),
		Every:        r.Every,
		Weekdays:     WeekdaysToCodes(r.Weekdays),
		DaysOfMonth:  encodeDaysOfMonth(r.DaysOfMonth),
		DaysOfYear:   encodeDaysOfYear(r.DaysOfYear),
		Stops:        r.Stops,
		LastDate:     r.LastDate,
		NumRemaining: r.NumRemaining,
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the persisted form written by MarshalJSON.
func (r *Recurrence) UnmarshalJSON(b []byte) error {
	var doc recurrenceDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return &IoError{Op: "unmarshal recurrence", Err: err}
	}
	freq, err := CodeFrequency(doc.Frequency)
	if err != nil {
		return err
	}
	weekdays, err := CodesToWeekdays(doc.Weekdays)
	if err != nil {
		return err
	}
	daysOfMonth, err := decodeDaysOfMonth(doc.DaysOfMonth)
	if err != nil {
		return err
	}
	daysOfYear, err := decodeDaysOfYear(doc.DaysOfYear)
	if err != nil {
		return err
	}
	r.BeginDate = doc.BeginDate
	r.Frequency = freq
	r.Every = doc.Every
	r.Weekdays = weekdays
	r.DaysOfMonth = daysOfMonth
	r.DaysOfYear = daysOfYear
	r.Stops = doc.Stops
	r.LastDate = doc.LastDate
	r.NumRemaining = doc.NumRemaining
	return nil
}
