package affinity

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/shirou/gopsutil/v4/cpu"
)

// DefaultSysfsCPUPath is the default sysfs directory listing host CPUs.
const DefaultSysfsCPUPath = "/sys/devices/system/cpu"

// OnlineCPUs returns the IDs of the online CPUs of the local host. It reads
// the sysfs "online" file, then "present", and falls back to the logical
// CPU count when neither is readable.
func OnlineCPUs(basePath string) ([]int, error) {
	for _, name := range []string{"online", "present"} {
		data, err := os.ReadFile(filepath.Join(basePath, name))
		if err != nil {
			continue
		}

		cpus, err := ParseCPUList(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %s CPUs: %w", name, err)
		}

		return cpus, nil
	}

	count, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("counting logical CPUs: %w", err)
	}

	cpus := make([]int, count)
	for i := range cpus {
		cpus[i] = i
	}

	return cpus, nil
}

// Offline returns the entries of cpus that are not in online, in order and
// without duplicates.
func Offline(cpus, online []int) []int {
	var missing []int

	for _, c := range cpus {
		if slices.Contains(online, c) || slices.Contains(missing, c) {
			continue
		}

		missing = append(missing, c)
	}

	return missing
}
