package progress

import (
	"fmt"
	"sync"
	"time"
)

// Status represents the current upload status
type Status struct {
	TotalFiles     int64
	ProcessedFiles int64
	SuccessFiles   int64
	FailedFiles    int64
	TotalBytes     int64
	ProcessedBytes int64
	StartTime      time.Time
	LastUpdateTime time.Time
	CurrentSpeed   float64 // bytes/second over the last few seconds
	AverageSpeed   float64 // bytes/second since start
	ETA            time.Duration
}

// Tracker tracks upload progress
type Tracker struct {
	mu           sync.RWMutex
	status       Status
	speedSamples []speedSample
	maxSamples   int
}

type speedSample struct {
	timestamp time.Time
	bytes     int64
}

// NewTracker creates a new progress tracker
func NewTracker() *Tracker {
	return &Tracker{
		status: Status{
			StartTime:      time.Now(),
			LastUpdateTime: time.Now(),
		},
		speedSamples: make([]speedSample, 0, 60),
		maxSamples:   60,
	}
}

// SetTotal sets the total number of files and bytes
func (t *Tracker) SetTotal(files, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.TotalFiles = files
	t.status.TotalBytes = bytes
}

// AddSuccess counts an uploaded file
func (t *Tracker) AddSuccess(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.SuccessFiles++
	t.status.ProcessedFiles++
	t.status.ProcessedBytes += bytes
	t.updateSpeed(bytes)
}

// AddFailed counts a file whose upload failed
func (t *Tracker) AddFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.FailedFiles++
	t.status.ProcessedFiles++
}

// updateSpeed must be called with the lock held
func (t *Tracker) updateSpeed(bytes int64) {
	now := time.Now()

	t.speedSamples = append(t.speedSamples, speedSample{
		timestamp: now,
		bytes:     bytes,
	})
	if len(t.speedSamples) > t.maxSamples {
		t.speedSamples = t.speedSamples[1:]
	}

	t.calculateCurrentSpeed(now)
	t.calculateAverageSpeed(now)
	t.calculateETA()

	t.status.LastUpdateTime = now
}

// calculateCurrentSpeed uses the samples of the last 5 seconds
func (t *Tracker) calculateCurrentSpeed(now time.Time) {
	if len(t.speedSamples) < 2 {
		t.status.CurrentSpeed = 0
		return
	}

	cutoff := now.Add(-5 * time.Second)
	var recentBytes int64
	var firstSample *speedSample

	for i := len(t.speedSamples) - 1; i >= 0; i-- {
		sample := &t.speedSamples[i]
		if sample.timestamp.Before(cutoff) {
			break
		}
		recentBytes += sample.bytes
		firstSample = sample
	}

	if firstSample != nil {
		if recentDuration := now.Sub(firstSample.timestamp); recentDuration > 0 {
			t.status.CurrentSpeed = float64(recentBytes) / recentDuration.Seconds()
		}
	}
}

func (t *Tracker) calculateAverageSpeed(now time.Time) {
	elapsed := now.Sub(t.status.StartTime)
	if elapsed > 0 {
		t.status.AverageSpeed = float64(t.status.ProcessedBytes) / elapsed.Seconds()
	}
}

func (t *Tracker) calculateETA() {
	if t.status.TotalBytes == 0 || t.status.AverageSpeed == 0 {
		t.status.ETA = 0
		return
	}

	remainingBytes := t.status.TotalBytes - t.status.ProcessedBytes
	if remainingBytes <= 0 {
		t.status.ETA = 0
		return
	}

	etaSeconds := float64(remainingBytes) / t.status.AverageSpeed
	t.status.ETA = time.Duration(etaSeconds) * time.Second
}

// GetStatus returns the current status (thread-safe)
func (t *Tracker) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}

// FormatSpeed formats speed in human readable format
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond < 1024 {
		return fmt.Sprintf("%.1f B/s", bytesPerSecond)
	} else if bytesPerSecond < 1024*1024 {
		return fmt.Sprintf("%.1f KB/s", bytesPerSecond/1024)
	} else if bytesPerSecond < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB/s", bytesPerSecond/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB/s", bytesPerSecond/(1024*1024*1024))
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	} else if bytes < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
}

// FormatDuration formats duration in human readable format
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
