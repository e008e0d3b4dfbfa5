package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyTimeResetsOnNewDay(t *testing.T) {
	now := time.Date(2026, 5, 4, 23, 59, 0, 0, time.Local)
	d := NewDailyTime()
	d.now = func() time.Time { return now }

	d.Add(30)
	d.Add(0)
	d.Add(-5)
	secs, date := d.Seconds()
	assert.Equal(t, 30, secs)
	assert.Equal(t, "2026-05-04", date)

	now = now.Add(2 * time.Minute)
	secs, date = d.Seconds()
	assert.Equal(t, 0, secs)
	assert.Equal(t, "2026-05-05", date)

	d.Add(12)
	secs, _ = d.Seconds()
	assert.Equal(t, 12, secs)
}
