package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/docloom-insights/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set docloom-insights configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := yaml.Marshal(currentConfig())
		if err != nil {
			return ewrap.Wrap(err, "marshal yaml")
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setConfigValue(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*cfg = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi()
	case "read_timeout_sec":
		c.ReadTimeoutSec, err = atoi()
	case "write_timeout_sec":
		c.WriteTimeoutSec, err = atoi()
	case "shutdown_timeout_sec":
		c.ShutdownTimeoutSec, err = atoi()
	case "cors_allow_origins":
		c.CORSAllowOrigins = nil
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSAllowOrigins = append(c.CORSAllowOrigins, o)
			}
		}
	case "z_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return errorf("invalid float for z_threshold: %v", val)
		}
		c.ZThreshold = f
	case "delimiter":
		c.Delimiter = val
	case "decimal_separator":
		c.DecimalSeparator = val
	case "thousands_separator":
		c.ThousandsSeparator = val
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	case "service_name":
		c.ServiceName = val
	default:
		return errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
