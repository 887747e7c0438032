package main

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/urfave/cli/v3"
)

type buildInfo struct {
	Version   string
	GoVersion string
	Commit    string
	BuildTime string
	Modified  bool
}

func readBuildInfo() buildInfo {
	bi := buildInfo{
		Version:   "unknown",
		GoVersion: "unknown",
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}

	bi.Version = info.Main.Version
	bi.GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			bi.Commit = setting.Value
		case "vcs.time":
			bi.BuildTime = setting.Value
		case "vcs.modified":
			bi.Modified = setting.Value == "true"
		}
	}
	return bi
}

func (bi buildInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "autozip %s (%s)", bi.Version, bi.GoVersion)
	if bi.Commit != "unknown" {
		commit := bi.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Fprintf(&sb, " commit %s", commit)
		if bi.Modified {
			sb.WriteString("-dirty")
		}
	}
	if bi.BuildTime != "unknown" {
		fmt.Fprintf(&sb, " built %s", bi.BuildTime)
	}
	return sb.String()
}

func printVersion(w io.Writer, bi buildInfo) error {
	_, err := fmt.Fprintln(w, bi.String())
	return err
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(ctx context.Context, command *cli.Command) error {
		return printVersion(command.Root().Writer, readBuildInfo())
	},
}
