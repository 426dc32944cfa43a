package telemetry

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SystemSampler reads real utilization figures from the Linux proc and sysfs
// interfaces. Every read degrades to a zero reading on error, so a missing
// file (non-Linux hosts, containers with masked /proc) yields flat metrics
// rather than failures.
type SystemSampler struct {
	mu sync.Mutex

	lastCPUTotal uint64
	lastCPUIdle  uint64

	lastRxBytes uint64
	lastRxTime  time.Time

	lastTxBytes uint64
	lastTxTime  time.Time
}

// NewSystemSampler primes the CPU and network counters so the first real
// sample reports a rate instead of a lifetime total.
func NewSystemSampler() *SystemSampler {
	s := &SystemSampler{}
	s.lastCPUTotal, s.lastCPUIdle = readCPUCounters()
	now := time.Now()
	s.lastRxBytes, s.lastTxBytes = readNetworkCounters()
	s.lastRxTime, s.lastTxTime = now, now
	return s
}

// CPUPercent returns total CPU busy time since the previous call, in percent.
func (s *SystemSampler) CPUPercent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, idle := readCPUCounters()
	dTotal := total - s.lastCPUTotal
	dIdle := idle - s.lastCPUIdle
	s.lastCPUTotal, s.lastCPUIdle = total, idle

	if dTotal == 0 {
		return 0
	}
	busy := float64(dTotal-dIdle) / float64(dTotal) * 100
	return clampPercent(busy)
}

// MemoryPercent returns used physical memory based on MemTotal/MemAvailable.
func (s *SystemSampler) MemoryPercent() float64 {
	var total, available uint64

	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMeminfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = parseMeminfoKB(line)
		}
		if total > 0 && available > 0 {
			break
		}
	}

	if total == 0 {
		return 0
	}
	return clampPercent((1 - float64(available)/float64(total)) * 100)
}

// NetworkInMBps returns the aggregate inbound rate across non-loopback
// interfaces since the previous call.
func (s *SystemSampler) NetworkInMBps() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	rx, _ := readNetworkCounters()
	rate := byteRate(rx, s.lastRxBytes, s.lastRxTime)
	s.lastRxBytes, s.lastRxTime = rx, time.Now()
	return rate
}

// NetworkOutMBps returns the aggregate outbound rate across non-loopback
// interfaces since the previous call.
func (s *SystemSampler) NetworkOutMBps() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, tx := readNetworkCounters()
	rate := byteRate(tx, s.lastTxBytes, s.lastTxTime)
	s.lastTxBytes, s.lastTxTime = tx, time.Now()
	return rate
}

func byteRate(current, last uint64, lastAt time.Time) float64 {
	elapsed := time.Since(lastAt).Seconds()
	if elapsed <= 0 || last == 0 || current < last {
		return 0
	}
	return float64(current-last) / elapsed / 1024 / 1024
}

// readCPUCounters parses the aggregate "cpu" line of /proc/stat and returns
// (total, idle) jiffy counters. Idle includes iowait.
func readCPUCounters() (total, idle uint64) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, 0
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0
	}

	for i, field := range fields[1:] {
		v, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		total += v
		// Field 4 is idle, field 5 is iowait.
		if i == 3 || i == 4 {
			idle += v
		}
	}
	return total, idle
}

// readNetworkCounters sums rx_bytes and tx_bytes over every interface under
// /sys/class/net except loopback.
func readNetworkCounters() (rx, tx uint64) {
	ifaces, err := os.ReadDir("/sys/class/net")
	if err != nil {
		return 0, 0
	}

	for _, iface := range ifaces {
		name := iface.Name()
		if name == "lo" {
			continue
		}
		rx += readCounterFile(filepath.Join("/sys/class/net", name, "statistics", "rx_bytes"))
		tx += readCounterFile(filepath.Join("/sys/class/net", name, "statistics", "tx_bytes"))
	}
	return rx, tx
}

func readCounterFile(path string) uint64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMeminfoKB(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
