package version

import (
	"fmt"
	"runtime"
)

// AppVersion 构建信息
type AppVersion struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// 通过 -ldflags "-X github.com/djskncxm/DuckRequest/internal/version.Version=..." 注入
var (
	Version   = "0.0.0"
	Metadata  = "unreleased"
	GitCommit = ""
	BuildDate = ""
)

func buildVersion() string {
	if Metadata == "" {
		return Version
	}
	return Version + "-" + Metadata
}

func GetVersion() *AppVersion {
	return &AppVersion{
		Version:   buildVersion(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (v *AppVersion) String() string {
	return fmt.Sprintf("duckreq %s (commit %s, built %s, %s)", v.Version, v.GitCommit, v.BuildDate, v.GoVersion)
}
