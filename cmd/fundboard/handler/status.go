package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// hostStatus is the host part of the status response.
type hostStatus struct {
	Load1      float64 `json:"load1"`
	Load5      float64 `json:"load5"`
	Load15     float64 `json:"load15"`
	Procs      int     `json:"procs_running"`
	MemUsed    string  `json:"mem_used"`
	MemTotal   string  `json:"mem_total"`
	MemPercent float64 `json:"mem_percent"`
	SwapUsed   string  `json:"swap_used"`
	SwapTotal  string  `json:"swap_total"`
}

type statusResponse struct {
	OK         bool       `json:"ok"`
	Uptime     string     `json:"uptime"`
	Since      string     `json:"since"`
	Goroutines int        `json:"goroutines"`
	Host       hostStatus `json:"host"`
	// Errors lists the host stats that could not be read.
	Errors []string `json:"errors,omitempty"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	resp := statusResponse{
		OK:         true,
		Uptime:     now.Sub(h.started).Round(time.Second).String(),
		Since:      humanize.RelTime(h.started, now, "ago", "from now"),
		Goroutines: runtime.NumGoroutine(),
	}

	resp.Host, resp.Errors = readHostStatus()

	writeJSON(w, http.StatusOK, resp)
}

// readHostStatus reads what it can of the host's load and memory. Stats that
// fail are left zero and their errors returned.
func readHostStatus() (hostStatus, []string) {
	var s hostStatus
	var errs []string

	fail := func(err error) { errs = append(errs, err.Error()) }

	if avg, err := loadAvg(); err != nil {
		fail(err)
	} else {
		s.Load1, s.Load5, s.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	if misc, err := loadMisc(); err != nil {
		fail(err)
	} else {
		s.Procs = misc.ProcsRunning
	}

	if vm, err := virtualMemory(); err != nil {
		fail(err)
	} else {
		s.MemUsed = humanize.IBytes(vm.Used)
		s.MemTotal = humanize.IBytes(vm.Total)
		s.MemPercent = vm.UsedPercent
	}

	if swap, err := swapMemory(); err != nil {
		fail(err)
	} else {
		s.SwapUsed = humanize.IBytes(swap.Used)
		s.SwapTotal = humanize.IBytes(swap.Total)
	}

	return s, errs
}

// The functions below only dereference gopsutil's return values.

func virtualMemory() (mem.VirtualMemoryStat, error) {
	m, err := mem.VirtualMemory()
	if err != nil {
		return mem.VirtualMemoryStat{}, errors.Wrap(err, "memory")
	}
	return *m, nil
}

func swapMemory() (mem.SwapMemoryStat, error) {
	m, err := mem.SwapMemory()
	if err != nil {
		return mem.SwapMemoryStat{}, errors.Wrap(err, "swap")
	}
	return *m, nil
}

func loadAvg() (load.AvgStat, error) {
	l, err := load.Avg()
	if err != nil {
		return load.AvgStat{}, errors.Wrap(err, "load average")
	}
	return *l, nil
}

func loadMisc() (load.MiscStat, error) {
	l, err := load.Misc()
	if err != nil {
		return load.MiscStat{}, errors.Wrap(err, "processes")
	}
	return *l, nil
}
