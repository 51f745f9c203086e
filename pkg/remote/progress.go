package remote

import (
	"fmt"
	"time"
)

// TransferProgress is published after every chunk of a transfer.
type TransferProgress struct {
	// Transferred is the size of the chunk that was just moved.
	Transferred int

	// TotalTransferred is the number of bytes moved so far.
	TotalTransferred int64

	Item      TransferDescriptor
	StartedOn time.Time

	// SampledOn is when the chunk finished.
	SampledOn time.Time
}

// Progress returns the completed percentage of the transfer.
func (p TransferProgress) Progress() int {
	if p.Item.Item.Size <= 0 {
		return 100
	}
	return int(100 * p.TotalTransferred / p.Item.Item.Size)
}

// Rate returns the average transfer rate in bytes per second.
func (p TransferProgress) Rate() int64 {
	elapsed := p.SampledOn.Sub(p.StartedOn).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	return int64(float64(p.TotalTransferred) / elapsed)
}

// RateString returns the transfer rate in a human readable form, e.g.
// "1.5 MB/s".
func (p TransferProgress) RateString() string {
	return FormatSize(p.Rate()) + "/s"
}

var sizeUnits = []string{"B", "kB", "MB", "GB", "TB"}

// FormatSize renders a byte count using 1024 based units.
func FormatSize(size int64) string {
	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", size, sizeUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
