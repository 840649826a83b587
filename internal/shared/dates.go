package shared

import "time"

// DateKeyLayout is the layout of calendar day keys exchanged with the study API.
const DateKeyLayout = "2006-01-02"

// LocalDateKey returns the device-local calendar day of t as YYYY-MM-DD.
func LocalDateKey(t time.Time) string {
	return t.Local().Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight in the local zone.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.Local)
}

// WeekStartKey returns the key of the Monday starting the week that contains the given day.
func WeekStartKey(dateKey string) (string, error) {
	day, err := ParseDateKey(dateKey)
	if err != nil {
		return "", err
	}

	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset).Format(DateKeyLayout), nil
}
