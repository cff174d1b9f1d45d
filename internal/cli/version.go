package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	// Version is the semantic version (set at build time via ldflags)
	Version = "dev"
	// Commit is the git commit hash (set at build time via ldflags)
	Commit = "unknown"
)

// VersionInfo contains version information
type VersionInfo struct {
	Version    string `json:"version" yaml:"version"`
	Commit     string `json:"commit" yaml:"commit"`
	GoVersion  string `json:"goVersion" yaml:"goVersion"`
	Platform   string `json:"platform" yaml:"platform"`
	GOMAXPROCS int    `json:"gomaxprocs" yaml:"gomaxprocs"`
}

func versionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		Commit:     Commit,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
}

// newVersionCmd creates the version command
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout(), a.v.GetString("output"))
		},
	}
}

func runVersion(w io.Writer, format string) error {
	info := versionInfo()

	switch format {
	case "json":
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal version info to YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		_, err := fmt.Fprintf(w, "taskbench\n  Version:    %s\n  Commit:     %s\n  Go Version: %s\n  Platform:   %s\n  GOMAXPROCS: %d\n",
			info.Version, info.Commit, info.GoVersion, info.Platform, info.GOMAXPROCS)
		return err
	}
}
