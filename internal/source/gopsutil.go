package source

import (
	"strings"
	"time"

	"codeberg.org/mutker/sysmond/internal/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// gopsutil reports CPU times in seconds; the kernel counts in ticks.
// USER_HZ is 100 on every platform we run on.
const ticksPerSecond = 100

// Sensor keys that identify the CPU package temperature, in preference order.
var cpuSensorKeys = []string{"coretemp_package", "coretemp", "k10temp", "cpu_thermal", "soc_thermal"}

type systemReader struct{}

// NewSystemReader returns a Reader backed by the running host's kernel counters
func NewSystemReader() Reader {
	return &systemReader{}
}

func (r *systemReader) CPUCounters() (CounterSnapshot, []CounterSnapshot, error) {
	errFactory := errors.New()

	aggregate, err := cpu.Times(false)
	if err != nil {
		return CounterSnapshot{}, nil, errFactory.Wrap(ErrCPUCountersFailed, err)
	}
	if len(aggregate) == 0 {
		return CounterSnapshot{}, nil, errFactory.New(ErrCPUCountersFailed)
	}

	perCore, err := cpu.Times(true)
	if err != nil {
		return CounterSnapshot{}, nil, errFactory.Wrap(ErrCPUCountersFailed, err)
	}

	now := time.Now()
	cores := make([]CounterSnapshot, len(perCore))
	for i := range perCore {
		cores[i] = toCounterSnapshot(&perCore[i], now)
	}

	return toCounterSnapshot(&aggregate[0], now), cores, nil
}

func (r *systemReader) MemoryCounters() (MemoryCounters, error) {
	errFactory := errors.New()

	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryCounters{}, errFactory.Wrap(ErrMemoryCountersFailed, err)
	}

	swap, err := mem.SwapMemory()
	if err != nil {
		return MemoryCounters{}, errFactory.Wrap(ErrMemoryCountersFailed, err)
	}

	return MemoryCounters{
		Total:     vm.Total,
		Free:      vm.Free,
		Available: vm.Available,
		Buffers:   vm.Buffers,
		Cached:    vm.Cached,
		SwapTotal: swap.Total,
		SwapFree:  swap.Free,
	}, nil
}

func (r *systemReader) Temperature() (float64, error) {
	errFactory := errors.New()

	sensors, err := host.SensorsTemperatures()
	if err != nil && len(sensors) == 0 {
		return 0, errFactory.Wrap(ErrTemperatureFailed, err)
	}
	if len(sensors) == 0 {
		return 0, errFactory.New(ErrNoSensorData)
	}

	return selectCPUSensor(sensors).Temperature, nil
}

// selectCPUSensor returns the sensor most likely to be the CPU package
// temperature, falling back to the first sensor when no known key matches.
func selectCPUSensor(sensors []host.TemperatureStat) *host.TemperatureStat {
	for _, key := range cpuSensorKeys {
		for i := range sensors {
			if strings.Contains(sensors[i].SensorKey, key) {
				return &sensors[i]
			}
		}
	}

	return &sensors[0]
}

func (r *systemReader) Frequency() (float64, error) {
	errFactory := errors.New()

	info, err := cpu.Info()
	if err != nil {
		return 0, errFactory.Wrap(ErrFrequencyFailed, err)
	}
	if len(info) == 0 {
		return 0, errFactory.New(ErrFrequencyFailed)
	}

	return info[0].Mhz, nil
}

func (r *systemReader) CoreCount() (int, error) {
	errFactory := errors.New()

	count, err := cpu.Counts(true)
	if err != nil {
		return 0, errFactory.Wrap(ErrCoreCountFailed, err)
	}
	if count <= 0 {
		return 0, errFactory.New(ErrCoreCountFailed)
	}

	return count, nil
}

func (r *systemReader) Model() (string, error) {
	errFactory := errors.New()

	info, err := cpu.Info()
	if err != nil {
		return "", errFactory.Wrap(ErrCPUCountersFailed, err)
	}
	if len(info) == 0 {
		return "", nil
	}

	return info[0].ModelName, nil
}

func toCounterSnapshot(ts *cpu.TimesStat, now time.Time) CounterSnapshot {
	return CounterSnapshot{
		User:      uint64(ts.User * ticksPerSecond),
		Nice:      uint64(ts.Nice * ticksPerSecond),
		System:    uint64(ts.System * ticksPerSecond),
		Idle:      uint64(ts.Idle * ticksPerSecond),
		IOWait:    uint64(ts.Iowait * ticksPerSecond),
		IRQ:       uint64(ts.Irq * ticksPerSecond),
		SoftIRQ:   uint64(ts.Softirq * ticksPerSecond),
		Steal:     uint64(ts.Steal * ticksPerSecond),
		Timestamp: now,
	}
}
