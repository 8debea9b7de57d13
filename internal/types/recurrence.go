package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Frequency names the recurrence kind of a schedule.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// Recurrence is the rule deciding which calendar days a schedule is due on.
// It is one of Daily, Weekly or Custom.
type Recurrence interface {
	Frequency() Frequency
	isRecurrence()
}

// Daily recurs every calendar day.
type Daily struct{}

// Weekly recurs on a set of weekdays.
type Weekly struct {
	Weekdays []time.Weekday
}

// Custom is due on exactly one calendar date.
type Custom struct {
	Date Date
}

func (Daily) Frequency() Frequency  { return FrequencyDaily }
func (Weekly) Frequency() Frequency { return FrequencyWeekly }
func (Custom) Frequency() Frequency { return FrequencyCustom }

func (Daily) isRecurrence()  {}
func (Weekly) isRecurrence() {}
func (Custom) isRecurrence() {}

// Includes reports whether wd is one of the recurrence weekdays.
func (w Weekly) Includes(wd time.Weekday) bool {
	for _, d := range w.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// recurrenceJSON is the wire form of a Recurrence.
type recurrenceJSON struct {
	Frequency Frequency `json:"frequency"`
	Weekdays  []int     `json:"weekdays,omitempty"`
	Date      *Date     `json:"date,omitempty"`
}

// ErrInvalidRecurrence is returned when a recurrence payload cannot be decoded.
var ErrInvalidRecurrence = errors.New("invalid recurrence")

// MarshalRecurrence encodes r in its tagged JSON form.
func MarshalRecurrence(r Recurrence) ([]byte, error) {
	var out recurrenceJSON
	switch v := r.(type) {
	case Daily:
		out.Frequency = FrequencyDaily
	case Weekly:
		out.Frequency = FrequencyWeekly
		out.Weekdays = make([]int, len(v.Weekdays))
		for i, wd := range v.Weekdays {
			out.Weekdays[i] = int(wd)
		}
	case Custom:
		out.Frequency = FrequencyCustom
		d := v.Date
		out.Date = &d
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidRecurrence, r)
	}
	return json.Marshal(out)
}

// UnmarshalRecurrence decodes the tagged JSON form produced by MarshalRecurrence.
func UnmarshalRecurrence(data []byte) (Recurrence, error) {
	var in recurrenceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	switch in.Frequency {
	case FrequencyDaily:
		return Daily{}, nil
	case FrequencyWeekly:
		if len(in.Weekdays) == 0 {
			return nil, fmt.Errorf("%w: weekly recurrence without weekdays", ErrInvalidRecurrence)
		}
		w := Weekly{Weekdays: make([]time.Weekday, 0, len(in.Weekdays))}
		for _, d := range in.Weekdays {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidRecurrence, d)
			}
			if !w.Includes(time.Weekday(d)) {
				w.Weekdays = append(w.Weekdays, time.Weekday(d))
			}
		}
		return w, nil
	case FrequencyCustom:
		if in.Date == nil || in.Date.IsZero() {
			return nil, fmt.Errorf("%w: custom recurrence without date", ErrInvalidRecurrence)
		}
		return Custom{Date: *in.Date}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRecurrence, in.Frequency)
	}
}
