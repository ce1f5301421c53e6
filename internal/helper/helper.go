package helper

import (
	"fmt"
	"strings"
	"time"

	"signal_bot/internal/models"
)

// ParseTimeframe приводит любые варианты записи к models.Timeframe.
// "1min", "1m", "m1", "candle1m" -> M1; "60m", "1h" -> H1.
func ParseTimeframe(raw string) (models.Timeframe, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "m1", "1m", "1min":
		return models.TimeframeM1, nil
	case "m5", "5m", "5min":
		return models.TimeframeM5, nil
	case "m15", "15m", "15min":
		return models.TimeframeM15, nil
	case "m30", "30m", "30min":
		return models.TimeframeM30, nil
	case "h1", "60m", "1h", "60min":
		return models.TimeframeH1, nil
	case "h4", "4h", "240m":
		return models.TimeframeH4, nil
	}
	return "", fmt.Errorf("unsupported timeframe: %q", raw)
}

// SlotStart — начало свечи, в которую попадает t (по Unix).
func SlotStart(t time.Time, tf time.Duration) time.Time {
	if tf <= 0 {
		return t
	}
	ns := t.UnixNano()
	ns -= ns % int64(tf)
	return time.Unix(0, ns).In(t.Location())
}

// NextBoundary — начало следующей свечи строго после t.
func NextBoundary(t time.Time, tf time.Duration) time.Time {
	if tf <= 0 {
		return t
	}
	return SlotStart(t, tf).Add(tf)
}

// DisplayZone возвращает зону для сообщений; при ошибке — фиксированный UTC+offset.
func DisplayZone(name string, offset time.Duration) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", int(offset.Hours())), int(offset.Seconds()))
}
