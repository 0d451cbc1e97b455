package affinity

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCPUList parses CPU range strings like "0-7" or "0,2,4-6" into an
// ordered list of CPU IDs. Duplicates are kept so that round-robin weights
// written by the user survive.
func ParseCPUList(rangeStr string) ([]int, error) {
	rangeStr = strings.TrimSpace(rangeStr)
	if rangeStr == "" {
		return nil, nil
	}

	var cpus []int

	for _, part := range strings.Split(rangeStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty CPU entry in %q", rangeStr)
		}

		if !strings.Contains(part, "-") {
			cpuID, err := parseCPUID(part)
			if err != nil {
				return nil, err
			}

			cpus = append(cpus, cpuID)

			continue
		}

		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid CPU range: %s", part)
		}

		start, err := parseCPUID(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("parsing CPU range start: %w", err)
		}

		end, err := parseCPUID(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("parsing CPU range end: %w", err)
		}

		if end < start {
			return nil, fmt.Errorf("invalid CPU range: %s", part)
		}

		for i := start; i <= end; i++ {
			cpus = append(cpus, i)
		}
	}

	return cpus, nil
}

func parseCPUID(s string) (int, error) {
	cpuID, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing CPU ID: %w", err)
	}

	if cpuID < 0 {
		return 0, fmt.Errorf("negative CPU ID %d", cpuID)
	}

	return cpuID, nil
}

// FormatCPUList renders CPU IDs as a comma separated list, or "-" when
// there is no affinity.
func FormatCPUList(cpus []int) string {
	if len(cpus) == 0 {
		return "-"
	}

	parts := make([]string, len(cpus))
	for i, c := range cpus {
		parts[i] = strconv.Itoa(c)
	}

	return strings.Join(parts, ",")
}
