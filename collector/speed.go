package collector

import (
	"time"

	"github.com/dustin/go-humanize"
)

// TransferSpeed is an average rate in bytes per second.
type TransferSpeed float64

// BytesPerSec truncates the rate to whole bytes.
func (s TransferSpeed) BytesPerSec() uint64 {
	if s <= 0 {
		return 0
	}
	return uint64(s)
}

func (s TransferSpeed) String() string {
	return humanize.Bytes(s.BytesPerSec()) + "/s"
}

// ByteCounter tracks how many bytes a transfer moved and the average rate
// since the counter was created or last restarted.
type ByteCounter struct {
	transferred uint64
	started     time.Time
	rate        TransferSpeed
	now         func() time.Time
}

// NewByteCounter starts a counter at the current time.
func NewByteCounter() *ByteCounter {
	return &ByteCounter{
		started: time.Now(),
		now:     time.Now,
	}
}

// Add records n more bytes and returns the updated average rate.
func (b *ByteCounter) Add(n int) TransferSpeed {
	if n > 0 {
		b.transferred += uint64(n)
	}

	elapsed := b.now().Sub(b.started).Seconds()
	if elapsed > 0 {
		b.rate = TransferSpeed(float64(b.transferred) / elapsed)
	} else {
		b.rate = 0
	}

	return b.rate
}

// Restart moves the start of the rate clock to now. Bytes already
// recorded are kept.
func (b *ByteCounter) Restart() {
	b.started = b.now()
}

// Transferred reports the total bytes recorded.
func (b *ByteCounter) Transferred() uint64 { return b.transferred }

// Rate reports the average rate as of the last Add.
func (b *ByteCounter) Rate() TransferSpeed { return b.rate }
