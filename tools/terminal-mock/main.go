// Command terminal-mock imitates the biometric terminal bridge for local runs.
// It serves a rolling set of punches for the employees given on -emp and
// rejects /logs while the device is not paused.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

type rawLog struct {
	DeviceUserID string `json:"deviceUserId"`
	RecordTime   string `json:"recordTime"`
	IP           string `json:"ip"`
}

type device struct {
	mu     sync.Mutex
	paused bool
	logs   []rawLog
	emps   []string
	fail   float64
}

// punchNow records a tap for a random employee at the current wall time.
func (d *device) punchNow() {
	d.mu.Lock()
	defer d.mu.Unlock()
	emp := d.emps[rand.Intn(len(d.emps))]
	d.logs = append(d.logs, rawLog{
		DeviceUserID: emp,
		RecordTime:   time.Now().Format("2006-01-02 15:04:05"),
		IP:           "192.168.1.201",
	})
}

func (d *device) flaky(w http.ResponseWriter) bool {
	if d.fail > 0 && rand.Float64() < d.fail {
		http.Error(w, "device busy", http.StatusServiceUnavailable)
		return true
	}
	return false
}

func (d *device) pauseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if d.flaky(w) {
		return
	}
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
	log.Println("Device paused")
	w.WriteHeader(http.StatusNoContent)
}

func (d *device) resumeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()
	log.Println("Device resumed")
	w.WriteHeader(http.StatusNoContent)
}

func (d *device) logsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if d.flaky(w) {
		return
	}

	d.mu.Lock()
	if !d.paused {
		d.mu.Unlock()
		http.Error(w, "device must be paused", http.StatusConflict)
		return
	}
	logs := make([]rawLog, len(d.logs))
	copy(logs, d.logs)
	d.mu.Unlock()

	log.Printf("Serving %d logs", len(logs))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(logs)
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	emps := flag.String("emp", "E001,E002,E003", "comma separated device user ids")
	every := flag.Duration("punch-every", 30*time.Second, "interval between generated punches")
	fail := flag.Float64("fail-rate", 0, "probability of a 503 on pause and logs")
	flag.Parse()

	d := &device{emps: strings.Split(*emps, ","), fail: *fail}

	go func() {
		for range time.Tick(*every) {
			d.punchNow()
		}
	}()

	http.HandleFunc("/pause", d.pauseHandler)
	http.HandleFunc("/resume", d.resumeHandler)
	http.HandleFunc("/logs", d.logsHandler)

	log.Printf("Terminal mock starting on %s...", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}
