package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// progress logs transfer progress at most once per second. A nil
// *progress does nothing.
type progress struct {
	logger      *slog.Logger
	direction   string
	id          string
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func newProgress(on bool, logger *slog.Logger, direction, id string, total int64) *progress {
	if !on {
		return nil
	}

	return &progress{
		logger:    logger,
		direction: direction,
		id:        id,
		total:     total,
		startTime: time.Now(),
	}
}

func (p *progress) add(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.transferred += int64(n)

	if time.Since(p.lastLog) >= time.Second {
		p.lastLog = time.Now()
		p.log(p.direction + "ing")
	}

	if p.total >= 0 && p.transferred == p.total {
		p.log(p.direction + " complete")
	}
}

func (p *progress) log(msg string) {
	elapsed := time.Since(p.startTime)

	pct := "unknown"
	if p.total > 0 {
		pct = fmt.Sprintf("%.1f%%", float64(p.transferred)/float64(p.total)*100)
	}

	var mbps float64
	if s := elapsed.Seconds(); s > 0 {
		mbps = float64(p.transferred) / s / (1024 * 1024)
	}

	p.logger.Info(msg,
		"transfer_id", p.id,
		"progress", pct,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", p.transferred,
		"total", p.total,
		"mbps", fmt.Sprintf("%.2f", mbps),
	)
}
