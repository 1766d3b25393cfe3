// Package markethours knows the NSE trading calendar. The live runner
// uses it to schedule the daily end-of-day evaluation and to skip
// weekends and exchange holidays.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Market hours in IST
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30

	// Daily bars settle some time after close; evaluate at 4:00 PM.
	EvalDelayMinutes = 30
)

// IsMarketOpen returns true if t falls within NSE trading hours
// (9:15 AM – 3:30 PM IST, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	ist := t.In(IST)
	if !IsTradingDay(ist) {
		return false
	}
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsWeekday returns true if t is Mon–Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	return IsWeekday(ist) && !IsHoliday(ist)
}

// TodayClose returns today's market close time (3:30 PM IST).
func TodayClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// NextEvalTime returns the next end-of-day evaluation time: close plus
// the settle delay on the next trading day (today, if that moment is
// still in the future).
func NextEvalTime(t time.Time) time.Time {
	ist := t.In(IST)

	todayEval := TodayClose(ist).Add(EvalDelayMinutes * time.Minute)
	if ist.Before(todayEval) && IsTradingDay(ist) {
		return todayEval
	}

	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // holidays and weekends never span this long
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), CloseHour, CloseMinute, 0, 0, IST).
				Add(EvalDelayMinutes * time.Minute)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(ist.Year(), ist.Month(), ist.Day()+1, CloseHour, CloseMinute, 0, 0, IST)
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		d := TodayClose(t).Sub(t.In(IST))
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(d))
	}
	next := NextEvalTime(t)
	return fmt.Sprintf("Market Closed — next evaluation %s %s",
		next.Weekday().String()[:3], next.Format("2006-01-02 15:04"))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
