package measurement

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

// Sampler periodically measures the invocation's process and collects IO
// counter deltas for the whole host. One sampler serves one invocation; its
// goroutine ends at Stop and never outlives the invocation.
type Sampler struct {
	interval time.Duration
	proc     *process.Process

	startedAt time.Time
	netStart  *NetworkIOCounters
	diskStart *DiskIOCounters

	results Results

	stopCh chan struct{}
	done   chan struct{}
}

func NewSampler(interval time.Duration) (*Sampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("measurement: sampling interval must be positive")
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("measurement: resolving own process: %w", err)
	}
	return &Sampler{
		interval: interval,
		proc:     proc,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start records the baselines and begins sampling.
func (s *Sampler) Start() {
	s.startedAt = time.Now()
	intervalMS := float64(s.interval) / float64(time.Millisecond)
	s.results.CPU.IntervalMS = intervalMS
	s.results.Memory.IntervalMS = intervalMS

	// CPUPercent measures since the previous call, prime it
	_, _ = s.proc.CPUPercent()

	if mem, err := s.proc.MemoryInfo(); err == nil {
		s.results.Memory.RSSBaseline = float64(mem.RSS)
		s.results.Memory.VMSBaseline = float64(mem.VMS)
	}
	s.netStart = readNetCounters()
	s.diskStart = readDiskCounters()

	go s.run()
}

// Stop ends sampling and returns what was measured. Safe to call once.
func (s *Sampler) Stop() *Results {
	close(s.stopCh)
	<-s.done

	if netEnd := readNetCounters(); netEnd != nil && s.netStart != nil {
		s.results.Network = NetworkIOCounters{
			BytesSent:       netEnd.BytesSent - s.netStart.BytesSent,
			BytesReceived:   netEnd.BytesReceived - s.netStart.BytesReceived,
			PacketsSent:     netEnd.PacketsSent - s.netStart.PacketsSent,
			PacketsReceived: netEnd.PacketsReceived - s.netStart.PacketsReceived,
			ErrorIn:         netEnd.ErrorIn - s.netStart.ErrorIn,
			ErrorOut:        netEnd.ErrorOut - s.netStart.ErrorOut,
			DropIn:          netEnd.DropIn - s.netStart.DropIn,
			DropOut:         netEnd.DropOut - s.netStart.DropOut,
		}
	}
	if diskEnd := readDiskCounters(); diskEnd != nil && s.diskStart != nil {
		s.results.Disk = DiskIOCounters{
			ReadCount:  diskEnd.ReadCount - s.diskStart.ReadCount,
			WriteCount: diskEnd.WriteCount - s.diskStart.WriteCount,
			ReadBytes:  diskEnd.ReadBytes - s.diskStart.ReadBytes,
			WriteBytes: diskEnd.WriteBytes - s.diskStart.WriteBytes,
		}
	}
	return &s.results
}

func (s *Sampler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.sample()
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	elapsed := float64(time.Since(s.startedAt)) / float64(time.Millisecond)

	if pct, err := s.proc.CPUPercent(); err == nil {
		s.results.CPU.Percentage = append(s.results.CPU.Percentage, Point{elapsed, pct})
	} else {
		logrus.WithError(err).Debug("profiler couldn't sample CPU usage")
	}

	if mem, err := s.proc.MemoryInfo(); err == nil {
		s.results.Memory.RSS = append(s.results.Memory.RSS, Point{elapsed, float64(mem.RSS)})
		s.results.Memory.VMS = append(s.results.Memory.VMS, Point{elapsed, float64(mem.VMS)})
	} else {
		logrus.WithError(err).Debug("profiler couldn't sample memory usage")
	}
}

func readNetCounters() *NetworkIOCounters {
	stats, err := net.IOCounters(false)
	if err != nil || len(stats) == 0 {
		return nil
	}
	total := stats[0]
	return &NetworkIOCounters{
		BytesSent:       total.BytesSent,
		BytesReceived:   total.BytesRecv,
		PacketsSent:     total.PacketsSent,
		PacketsReceived: total.PacketsRecv,
		ErrorIn:         total.Errin,
		ErrorOut:        total.Errout,
		DropIn:          total.Dropin,
		DropOut:         total.Dropout,
	}
}

func readDiskCounters() *DiskIOCounters {
	stats, err := disk.IOCounters()
	if err != nil {
		return nil
	}
	var total DiskIOCounters
	for _, stat := range stats {
		total.ReadCount += stat.ReadCount
		total.WriteCount += stat.WriteCount
		total.ReadBytes += stat.ReadBytes
		total.WriteBytes += stat.WriteBytes
	}
	return &total
}
