package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/ethpandaops/netperfoor/pkg/flows"
	"github.com/ethpandaops/netperfoor/pkg/results"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment variables overriding config keys.
	EnvPrefix = "NETPERFOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultPerfDuration is the default measurement duration in seconds.
	DefaultPerfDuration = 60

	// DefaultPerfIterations is the default number of repetitions per measurement.
	DefaultPerfIterations = 5

	// DefaultPerfParallelStreams is the default stream count per flow.
	DefaultPerfParallelStreams = 1

	// DefaultPerfParallelProcesses is the default number of tool processes per measurement.
	DefaultPerfParallelProcesses = 1

	// DefaultNetPerfTool is the default measurement tool.
	DefaultNetPerfTool = flows.ToolIperf

	// DefaultReportThreshold is the default result level shown in reports.
	DefaultReportThreshold = "important"

	// DefaultReportFormat is the default report output format.
	DefaultReportFormat = results.FormatTable
)

var (
	// DefaultPerfTests are the flow types measured when none are configured.
	DefaultPerfTests = []string{"tcp_stream", "udp_stream", "sctp_stream"}

	// DefaultPerfMsgSizes are the message sizes measured when none are configured.
	DefaultPerfMsgSizes = []ByteSize{123}

	// DefaultIPVersions are the address families measured when none are configured.
	DefaultIPVersions = []string{flows.IPv4, flows.IPv6}
)

// envKeys are the config keys that can be overridden from the environment,
// e.g. NETPERFOOR_PARAMS_PERF_DURATION for params.perf_duration.
var envKeys = []string{
	"global.log_level",
	"params.perf_tests",
	"params.perf_tool_cpu",
	"params.perf_tool_cpu_policy",
	"params.perf_duration",
	"params.perf_iterations",
	"params.perf_parallel_streams",
	"params.perf_parallel_processes",
	"params.perf_msg_sizes",
	"params.perf_reverse",
	"params.net_perf_tool",
	"params.ip_versions",
	"report.threshold",
	"report.format",
}

var validate = validator.New()

// Config is the root configuration for netperfoor.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Params   ParamsConfig   `yaml:"params" mapstructure:"params"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Topology TopologyConfig `yaml:"topology" mapstructure:"topology"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// ParamsConfig contains the flow generation parameters.
type ParamsConfig struct {
	PerfTests []string `yaml:"perf_tests" mapstructure:"perf_tests" validate:"min=1,dive,required"`
	// PerfToolCPU is empty when no CPUs are configured.
	PerfToolCPU CPUList `yaml:"perf_tool_cpu,omitempty" mapstructure:"perf_tool_cpu" validate:"dive,gte=0"`
	// PerfToolCPUPolicy is empty when no policy is configured.
	PerfToolCPUPolicy     string     `yaml:"perf_tool_cpu_policy,omitempty" mapstructure:"perf_tool_cpu_policy"`
	PerfDuration          int        `yaml:"perf_duration" mapstructure:"perf_duration" validate:"gt=0"`
	PerfIterations        int        `yaml:"perf_iterations" mapstructure:"perf_iterations" validate:"gt=0"`
	PerfParallelStreams   int        `yaml:"perf_parallel_streams" mapstructure:"perf_parallel_streams" validate:"gt=0"`
	PerfParallelProcesses int        `yaml:"perf_parallel_processes" mapstructure:"perf_parallel_processes" validate:"gt=0"`
	PerfMsgSizes          []ByteSize `yaml:"perf_msg_sizes" mapstructure:"perf_msg_sizes" validate:"min=1,dive,gt=0"`
	PerfReverse           bool       `yaml:"perf_reverse" mapstructure:"perf_reverse"`
	NetPerfTool           string     `yaml:"net_perf_tool" mapstructure:"net_perf_tool"`
	IPVersions            []string   `yaml:"ip_versions" mapstructure:"ip_versions" validate:"min=1"`
}

// ReportConfig controls how results are reported.
type ReportConfig struct {
	Threshold string `yaml:"threshold" mapstructure:"threshold"`
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=table markdown json"`
}

// TopologyConfig lists the endpoint pairs to generate flows between.
type TopologyConfig struct {
	Pairs []PairConfig `yaml:"pairs" mapstructure:"pairs" validate:"dive"`
}

// PairConfig is a client and a server endpoint.
type PairConfig struct {
	Client EndpointConfig `yaml:"client" mapstructure:"client"`
	Server EndpointConfig `yaml:"server" mapstructure:"server"`
}

// EndpointConfig describes a network interface and its addresses.
type EndpointConfig struct {
	Host      string   `yaml:"host" mapstructure:"host" validate:"required"`
	Netns     string   `yaml:"netns,omitempty" mapstructure:"netns"`
	Device    string   `yaml:"device" mapstructure:"device" validate:"required"`
	Addresses []string `yaml:"addresses" mapstructure:"addresses" validate:"dive,cidr|ip"`
}

// Load reads and parses a configuration file from the given path.
// Environment variables take precedence over file values and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	p := &c.Params

	if len(p.PerfTests) == 0 {
		p.PerfTests = append([]string(nil), DefaultPerfTests...)
	}

	if p.PerfDuration == 0 {
		p.PerfDuration = DefaultPerfDuration
	}

	if p.PerfIterations == 0 {
		p.PerfIterations = DefaultPerfIterations
	}

	if p.PerfParallelStreams == 0 {
		p.PerfParallelStreams = DefaultPerfParallelStreams
	}

	if p.PerfParallelProcesses == 0 {
		p.PerfParallelProcesses = DefaultPerfParallelProcesses
	}

	if len(p.PerfMsgSizes) == 0 {
		p.PerfMsgSizes = append([]ByteSize(nil), DefaultPerfMsgSizes...)
	}

	if p.NetPerfTool == "" {
		p.NetPerfTool = DefaultNetPerfTool
	}

	if len(p.IPVersions) == 0 {
		p.IPVersions = append([]string(nil), DefaultIPVersions...)
	}

	if c.Report.Threshold == "" {
		c.Report.Threshold = DefaultReportThreshold
	}

	if c.Report.Format == "" {
		c.Report.Format = DefaultReportFormat
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Global.LogLevel); err != nil {
		return fmt.Errorf("global.log_level: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The policy is never consulted without CPUs.
	if len(c.Params.PerfToolCPU) > 0 {
		if err := affinity.ValidatePolicy(c.Params.PerfToolCPUPolicy); err != nil {
			return fmt.Errorf("params.perf_tool_cpu_policy: %w", err)
		}
	}

	if err := flows.ValidateTool(c.Params.NetPerfTool); err != nil {
		return fmt.Errorf("params.net_perf_tool: %w", err)
	}

	for _, ipv := range c.Params.IPVersions {
		if err := flows.ValidateIPVersion(ipv); err != nil {
			return fmt.Errorf("params.ip_versions: %w", err)
		}
	}

	if _, err := results.ParseLevel(c.Report.Threshold); err != nil {
		return fmt.Errorf("report.threshold: %w", err)
	}

	if _, err := c.Topology.EndpointPairs(); err != nil {
		return fmt.Errorf("topology: %w", err)
	}

	return nil
}

// FlowParams converts the generation parameters for the flow generator.
func (p *ParamsConfig) FlowParams() flows.Params {
	sizes := make([]int, len(p.PerfMsgSizes))
	for i, s := range p.PerfMsgSizes {
		sizes[i] = int(s)
	}

	return flows.Params{
		Tests:             append([]string(nil), p.PerfTests...),
		IPVersions:        append([]string(nil), p.IPVersions...),
		MsgSizes:          sizes,
		Duration:          p.PerfDuration,
		ParallelStreams:   p.PerfParallelStreams,
		ParallelProcesses: p.PerfParallelProcesses,
		Pinning: affinity.Pinning{
			CPUs:   append([]int(nil), p.PerfToolCPU...),
			Policy: p.PerfToolCPUPolicy,
		},
		Reverse: p.PerfReverse,
	}
}

// ThresholdLevel returns the configured report threshold.
func (r *ReportConfig) ThresholdLevel() (results.Level, error) {
	return results.ParseLevel(r.Threshold)
}

// EndpointPairs builds the static endpoint pairs of the topology.
func (t *TopologyConfig) EndpointPairs() (flows.StaticPairs, error) {
	pairs := make(flows.StaticPairs, 0, len(t.Pairs))

	for i, pc := range t.Pairs {
		client, err := pc.Client.Endpoint()
		if err != nil {
			return nil, fmt.Errorf("pair %d client: %w", i, err)
		}

		server, err := pc.Server.Endpoint()
		if err != nil {
			return nil, fmt.Errorf("pair %d server: %w", i, err)
		}

		pairs = append(pairs, flows.EndpointPair{Client: client, Server: server})
	}

	return pairs, nil
}

// Endpoint parses the endpoint addresses. Bare addresses get a host prefix.
func (e *EndpointConfig) Endpoint() (*flows.StaticEndpoint, error) {
	ep := &flows.StaticEndpoint{
		Host:   e.Host,
		Netns:  e.Netns,
		Device: e.Device,
		Addrs:  make([]netip.Prefix, 0, len(e.Addresses)),
	}

	for _, a := range e.Addresses {
		if !strings.Contains(a, "/") {
			addr, err := netip.ParseAddr(a)
			if err != nil {
				return nil, fmt.Errorf("parsing address %q: %w", a, err)
			}

			ep.Addrs = append(ep.Addrs, netip.PrefixFrom(addr, addr.BitLen()))

			continue
		}

		prefix, err := netip.ParsePrefix(a)
		if err != nil {
			return nil, fmt.Errorf("parsing address %q: %w", a, err)
		}

		ep.Addrs = append(ep.Addrs, prefix)
	}

	return ep, nil
}
