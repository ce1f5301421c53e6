package service

import "time"

// Elapsed — сколько прошло с начала текущей свечи (по Unix-времени).
func Elapsed(now time.Time, tf time.Duration) time.Duration {
	if tf <= 0 {
		return 0
	}
	return time.Duration(now.UnixNano() % int64(tf))
}

// DelayBefore — задержка до момента за lead до границы свечи.
// Неположительный результат переносится на следующую свечу.
func DelayBefore(elapsed, tf, lead time.Duration) time.Duration {
	if tf <= 0 {
		return 0
	}
	d := (tf - lead) - elapsed
	for d <= 0 {
		d += tf
	}
	return d
}

type Leads struct {
	PreAlert     time.Duration
	Confirmation time.Duration
	Result       time.Duration
}

// Timeline — абсолютные моменты стадий одного сигнала.
type Timeline struct {
	Anchor       time.Time `json:"anchor"`
	PreAlert     time.Time `json:"pre_alert"`
	Confirmation time.Time `json:"confirmation"`
	Entry        time.Time `json:"entry"`
	Result       time.Time `json:"result"`
}

// Plan привязывает все стадии к одной границе: той, перед которой успевает пред-алерт.
// Поэтому порядок pre_alert < confirmation <= entry < result выполняется всегда.
func Plan(now time.Time, tf time.Duration, l Leads) Timeline {
	pre := DelayBefore(Elapsed(now, tf), tf, l.PreAlert)
	anchor := now.Add(pre + l.PreAlert)
	return Timeline{
		Anchor:       anchor,
		PreAlert:     now.Add(pre),
		Confirmation: anchor.Add(-l.Confirmation),
		Entry:        anchor,
		Result:       anchor.Add(l.Result),
	}
}

// At возвращает момент стадии по её индексу в models.Stages.
func (t Timeline) At(i int) time.Time {
	switch i {
	case 0:
		return t.PreAlert
	case 1:
		return t.Confirmation
	case 2:
		return t.Entry
	default:
		return t.Result
	}
}
