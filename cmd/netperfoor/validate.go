package main

import (
	"fmt"

	"github.com/ethpandaops/netperfoor/pkg/affinity"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sysfsCPUPath string

var validateCmd = &cobra.Command{
	Use:   "validate [config...]",
	Short: "Validate config files",
	Long: `Load and validate each config and check that the configured perf tool
CPUs are online on this host.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&sysfsCPUPath, "sysfs-cpu-path", affinity.DefaultSysfsCPUPath,
		"sysfs directory listing host CPUs")
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := configPaths(args)
	if err != nil {
		return err
	}

	cfgs, err := loadConfigs(paths)
	if err != nil {
		return err
	}

	if err := applyConfigLogLevel(cmd, cfgs[0].Global.LogLevel); err != nil {
		return err
	}

	online, err := affinity.OnlineCPUs(sysfsCPUPath)
	if err != nil {
		return fmt.Errorf("reading host CPUs: %w", err)
	}

	for i, cfg := range cfgs {
		cfgLog := log.WithField("config", paths[i])

		if offline := affinity.Offline(cfg.Params.PerfToolCPU, online); len(offline) > 0 {
			cfgLog.WithFields(logrus.Fields{
				"offline": affinity.FormatCPUList(offline),
				"online":  affinity.FormatCPUList(online),
			}).Warn("Configured perf_tool_cpu entries are not online on this host")
		}

		pairs, err := cfg.Topology.EndpointPairs()
		if err != nil {
			return fmt.Errorf("building endpoint pairs for %s: %w", paths[i], err)
		}

		cfgLog.WithFields(logrus.Fields{
			"pairs":       len(pairs),
			"perf_tool":   cfg.Params.NetPerfTool,
			"perf_tests":  len(cfg.Params.PerfTests),
			"ip_versions": len(cfg.Params.IPVersions),
		}).Info("Config is valid")
	}

	return nil
}
