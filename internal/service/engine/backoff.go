package engine

import "time"

// Backoff 폴링 간격을 결정합니다. failures는 연속 실패 횟수이며 성공하면 0입니다.
type Backoff interface {
	Next(failures int) time.Duration
}

// FixedBackoff 실패 여부와 관계없이 같은 간격으로 폴링합니다.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Next(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff 연속 실패할 때마다 간격을 Factor배씩 늘리며 Max를 넘지 않습니다.
// 성공하면 Base로 돌아갑니다.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExponentialBackoff) Next(failures int) time.Duration {
	factor := b.Factor
	if factor < 1 {
		factor = 2
	}

	d := float64(b.Base)
	for range failures {
		d *= factor
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}

	return time.Duration(d)
}
