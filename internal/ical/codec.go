// Package ical converts events to and from iCalendar data.
//
// Every field is carried verbatim in X-EVENTCAL-* properties so a decode of
// an encoded calendar returns the original events. Values containing a CR are
// base64 encoded, since iCalendar TEXT cannot escape it. Standard properties
// (SUMMARY, DESCRIPTION, DTSTART, DTEND, RRULE, ATTENDEE) are added for other
// calendar clients when the values allow it.
package ical

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"eventcal/internal/models"

	goical "github.com/emersion/go-ical"
)

const (
	ProductID = "-//eventcal//EN"

	propID          = "X-EVENTCAL-ID"
	propTitle       = "X-EVENTCAL-TITLE"
	propDescription = "X-EVENTCAL-DESCRIPTION"
	propStart       = "X-EVENTCAL-START"
	propEnd         = "X-EVENTCAL-END"
	propRecurrence  = "X-EVENTCAL-RECURRENCE"
	propEmail       = "X-EVENTCAL-EMAIL"

	paramEncoding  = "ENCODING"
	encodingBase64 = "BASE64"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NewCalendar returns an empty VCALENDAR with version and product set.
func NewCalendar() *goical.Calendar {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, ProductID)
	return cal
}

// ToComponent converts an event into a VEVENT.
func ToComponent(event models.Event, stamp time.Time) *goical.Component {
	ve := goical.NewComponent(goical.CompEvent)
	ve.Props.SetText(goical.PropUID, singleLine(event.ID))
	ve.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetText(goical.PropSummary, textSafe(event.Title))
	ve.Props.SetText(goical.PropDescription, textSafe(event.Description))

	setVerbatim(ve, propID, event.ID)
	setVerbatim(ve, propTitle, event.Title)
	setVerbatim(ve, propDescription, event.Description)
	setVerbatim(ve, propStart, event.StartTime)
	setVerbatim(ve, propEnd, event.EndTime)
	if t, ok := parseTime(event.StartTime); ok {
		ve.Props.SetDateTime(goical.PropDateTimeStart, t.UTC())
	}
	if t, ok := parseTime(event.EndTime); ok {
		ve.Props.SetDateTime(goical.PropDateTimeEnd, t.UTC())
	}

	if event.Recurrence != nil {
		setVerbatim(ve, propRecurrence, *event.Recurrence)
		if rule, ok := recurrenceRule(*event.Recurrence); ok {
			// RRULE values are not TEXT; they must not be escaped.
			p := goical.NewProp(goical.PropRecurrenceRule)
			p.Value = rule
			ve.Props.Set(p)
		}
	}
	if event.Email != nil {
		setVerbatim(ve, propEmail, *event.Email)
		if *event.Email != "" && !strings.ContainsAny(*event.Email, "\r\n") {
			p := goical.NewProp(goical.PropAttendee)
			p.Value = "mailto:" + *event.Email
			ve.Props.Add(p)
		}
	}
	return ve
}

// FromComponent converts a VEVENT back into an event. Components written by
// other clients fall back to the standard properties.
func FromComponent(comp *goical.Component) (models.Event, error) {
	if comp.Name != goical.CompEvent {
		return models.Event{}, fmt.Errorf("unexpected component %s", comp.Name)
	}

	var e models.Event
	var err error
	if e.ID, err = preferVerbatim(comp, propID, goical.PropUID); err != nil {
		return models.Event{}, err
	}
	if e.Title, err = preferVerbatim(comp, propTitle, goical.PropSummary); err != nil {
		return models.Event{}, err
	}
	if e.Description, err = preferVerbatim(comp, propDescription, goical.PropDescription); err != nil {
		return models.Event{}, err
	}
	if e.StartTime, err = timeText(comp, propStart, goical.PropDateTimeStart); err != nil {
		return models.Event{}, err
	}
	if e.EndTime, err = timeText(comp, propEnd, goical.PropDateTimeEnd); err != nil {
		return models.Event{}, err
	}

	if comp.Props.Get(propRecurrence) != nil {
		v, err := verbatim(comp, propRecurrence)
		if err != nil {
			return models.Event{}, err
		}
		e.Recurrence = &v
	} else if p := comp.Props.Get(goical.PropRecurrenceRule); p != nil {
		v := p.Value
		e.Recurrence = &v
	}

	if comp.Props.Get(propEmail) != nil {
		v, err := verbatim(comp, propEmail)
		if err != nil {
			return models.Event{}, err
		}
		e.Email = &v
	}
	return e, nil
}

// Encode writes events as one VCALENDAR.
func Encode(w io.Writer, events []models.Event) error {
	cal := NewCalendar()
	now := time.Now()
	for _, e := range events {
		cal.Children = append(cal.Children, ToComponent(e, now))
	}
	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// Decode reads the VEVENTs of one VCALENDAR. Empty input yields no events.
func Decode(r io.Reader) ([]models.Event, error) {
	cal, err := goical.NewDecoder(r).Decode()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Event{}, nil
		}
		return nil, fmt.Errorf("failed to decode iCal data: %w", err)
	}
	return FromCalendar(cal)
}

// FromCalendar extracts the events of a parsed calendar in document order.
func FromCalendar(cal *goical.Calendar) ([]models.Event, error) {
	events := []models.Event{}
	for _, child := range cal.Children {
		if child.Name != goical.CompEvent {
			continue
		}
		e, err := FromComponent(child)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func text(comp *goical.Component, name string) (string, error) {
	p := comp.Props.Get(name)
	if p == nil {
		return "", nil
	}
	v, err := p.Text()
	if err != nil {
		return "", fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

// setVerbatim stores value so that verbatim returns it unchanged.
func setVerbatim(comp *goical.Component, name, value string) {
	if !strings.Contains(value, "\r") {
		comp.Props.SetText(name, value)
		return
	}
	p := goical.NewProp(name)
	p.SetValueType(goical.ValueBinary)
	p.Params.Set(paramEncoding, encodingBase64)
	p.Value = base64.StdEncoding.EncodeToString([]byte(value))
	comp.Props.Set(p)
}

func verbatim(comp *goical.Component, name string) (string, error) {
	p := comp.Props.Get(name)
	if p == nil {
		return "", nil
	}
	if strings.EqualFold(p.Params.Get(paramEncoding), encodingBase64) {
		b, err := base64.StdEncoding.DecodeString(p.Value)
		if err != nil {
			return "", fmt.Errorf("property %s: %w", name, err)
		}
		return string(b), nil
	}
	return text(comp, name)
}

func preferVerbatim(comp *goical.Component, own, standard string) (string, error) {
	if comp.Props.Get(own) != nil {
		return verbatim(comp, own)
	}
	return text(comp, standard)
}

// textSafe folds CRs into LFs, which TEXT values can escape.
func textSafe(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(textSafe(s)), " ")
}

// recurrenceRule picks the RRULE value out of a rule that may span several
// lines, such as "RRULE:FREQ=WEEKLY\nEXDATE:20240109T100000Z".
func recurrenceRule(rec string) (string, bool) {
	for _, line := range strings.Split(rec, "\n") {
		rule := strings.TrimPrefix(strings.TrimSpace(line), "RRULE:")
		if strings.HasPrefix(rule, "FREQ=") && !strings.ContainsAny(rule, "\r\n") {
			return rule, true
		}
	}
	return "", false
}

func timeText(comp *goical.Component, own, standard string) (string, error) {
	if comp.Props.Get(own) != nil {
		return verbatim(comp, own)
	}
	p := comp.Props.Get(standard)
	if p == nil {
		return "", nil
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return "", fmt.Errorf("property %s: %w", standard, err)
	}
	return t.Format(time.RFC3339), nil
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
