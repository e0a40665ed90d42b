package utils

import "time"

// ParseDate interpreta yyyy-mm-dd no fuso informado; string vazia retorna nil
func ParseDate(dateStr string, loc *time.Location) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	date, err := time.ParseInLocation(time.DateOnly, dateStr, loc)
	if err != nil {
		return nil, err
	}

	return &date, nil
}
