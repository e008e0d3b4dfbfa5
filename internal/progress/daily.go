package progress

import (
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// DailyTime 当天累计阅读时长，日期变化后自动清零
type DailyTime struct {
	mu      sync.Mutex
	date    string
	seconds int
	now     func() time.Time
}

func NewDailyTime() *DailyTime {
	return &DailyTime{now: time.Now}
}

func (d *DailyTime) Add(seconds int) {
	if seconds <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolloverLocked()
	d.seconds += seconds
}

// Seconds 返回今天的累计秒数和日期
func (d *DailyTime) Seconds() (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolloverLocked()
	return d.seconds, d.date
}

func (d *DailyTime) rolloverLocked() {
	today := d.now().Format(dateLayout)
	if d.date != today {
		d.date = today
		d.seconds = 0
	}
}
