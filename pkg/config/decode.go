package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/docker/go-units"
	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/mitchellh/mapstructure"
)

// CPUList is a list of CPU IDs. It decodes from a YAML list or from a
// range string such as "0-3,6".
type CPUList []int

// String renders the list as a comma separated string.
func (c CPUList) String() string {
	return affinity.FormatCPUList(c)
}

// ByteSize is a size in bytes. It decodes from an integer or a human
// readable size such as "1KiB" or "64k".
type ByteSize int

// String renders the size in human readable binary units.
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

var (
	cpuListType  = reflect.TypeOf(CPUList(nil))
	byteSizeType = reflect.TypeOf(ByteSize(0))
)

// decode maps viper settings onto out.
func decode(input map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			cpuListHook,
			mapstructure.StringToSliceHookFunc(","),
			byteSizeHook,
		),
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	return dec.Decode(input)
}

func cpuListHook(from, to reflect.Type, data any) (any, error) {
	if to != cpuListType || from.Kind() != reflect.String {
		return data, nil
	}

	cpus, err := affinity.ParseCPUList(reflect.ValueOf(data).String())
	if err != nil {
		return nil, fmt.Errorf("parsing perf_tool_cpu: %w", err)
	}

	return CPUList(cpus), nil
}

func byteSizeHook(from, to reflect.Type, data any) (any, error) {
	if to != byteSizeType || from.Kind() != reflect.String {
		return data, nil
	}

	size, err := units.RAMInBytes(strings.TrimSpace(reflect.ValueOf(data).String()))
	if err != nil {
		return nil, fmt.Errorf("parsing message size: %w", err)
	}

	return ByteSize(size), nil
}
