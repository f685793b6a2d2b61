package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestProgress(buf *bytes.Buffer) *SimpleProgress {
	p := NewProgressReporter(buf, "records").(*SimpleProgress)
	start := time.Unix(0, 0)
	calls := 0
	p.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}
	return p
}

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf)

	p.Start(100)
	p.Add(50)
	if !strings.Contains(buf.String(), "50.0% (50/100)") {
		t.Errorf("output missing half-way marker: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "records/s") {
		t.Errorf("output missing unit: %q", buf.String())
	}

	p.Add(500)
	if !strings.Contains(buf.String(), "(100/100)") {
		t.Errorf("Add past total not clamped: %q", buf.String())
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf)

	p.Start(0)
	p.Add(1)
	if buf.Len() != 0 {
		t.Errorf("zero total rendered %q", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf bytes.Buffer
	p := newTestProgress(&buf)

	p.Start(10)
	p.Error(errors.New("decode failed"))
	if !strings.Contains(buf.String(), "Error: decode failed") {
		t.Errorf("output missing error: %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "")
	p.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Add(1)
			}
		}()
	}
	wg.Wait()
	p.Finish()

	if !strings.Contains(buf.String(), "(1000/1000)") {
		t.Error("final progress not rendered")
	}
	if !strings.Contains(buf.String(), "items/s") {
		t.Error("default unit not used")
	}
}
