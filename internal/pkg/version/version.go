// Package version 빌드 시점에 주입된 버전 정보와 실행 환경 정보를 제공합니다.
//
// 버전 관련 변수는 -ldflags로 주입합니다.
//
//	go build -ldflags "-X github.com/darkkaiser/domain-sync/internal/pkg/version.appVersion=v1.0.0"
//
// 주입되지 않은 값은 실행 파일에 기록된 VCS 메타데이터(debug.ReadBuildInfo)로 보완합니다.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

const unknown = "unknown"

// -ldflags로 주입되는 값. 직접 읽지 말고 Get()을 사용한다.
var (
	appVersion    = ""
	gitCommitHash = ""
	gitTreeState  = ""
	buildDate     = ""
	buildNumber   = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info 애플리케이션의 빌드 정보
type Info struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildDate   string `json:"build_date"`
	BuildNumber string `json:"build_number"`
	GoVersion   string `json:"go_version"`
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	DirtyBuild  bool   `json:"dirty_build"`
}

var current = sync.OnceValue(func() Info {
	return resolve(Info{
		Version:     strings.TrimSpace(appVersion),
		Commit:      strings.TrimSpace(gitCommitHash),
		BuildDate:   strings.TrimSpace(buildDate),
		BuildNumber: strings.TrimSpace(buildNumber),
		DirtyBuild:  strings.EqualFold(strings.TrimSpace(gitTreeState), "dirty"),
	})
})

// Get 현재 실행 파일의 빌드 정보를 반환합니다. 처음 호출될 때 한 번만 계산됩니다.
func Get() Info {
	return current()
}

// resolve 비어 있는 필드를 런타임 정보와 VCS 메타데이터로 채웁니다.
// ldflags로 주입된 값이 항상 우선합니다.
func resolve(bi Info) Info {
	if bi.GoVersion == "" {
		bi.GoVersion = runtime.Version()
	}
	if bi.OS == "" {
		bi.OS = runtime.GOOS
	}
	if bi.Arch == "" {
		bi.Arch = runtime.GOARCH
	}

	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if bi.Commit == "" {
					bi.Commit = s.Value
				}
			case "vcs.time":
				if bi.BuildDate == "" {
					bi.BuildDate = s.Value
				}
			case "vcs.modified":
				bi.DirtyBuild = bi.DirtyBuild || s.Value == "true"
			}
		}

		if bi.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			bi.Version = info.Main.Version
		}
	}

	if bi.Version == "" {
		bi.Version = unknown
	}
	if bi.Commit == "" {
		bi.Commit = unknown
	}

	return bi
}

// Fields 구조적 로깅에 사용할 필드 맵을 반환합니다.
func (i Info) Fields() map[string]any {
	return map[string]any{
		"version":      i.Version,
		"commit":       i.Commit,
		"build_date":   i.BuildDate,
		"build_number": i.BuildNumber,
		"go_version":   i.GoVersion,
		"dirty_build":  i.DirtyBuild,
	}
}

// String "v1.0.0+dirty (f25b8bf, build 100, go1.24.0 linux/amd64)" 형태의 요약 문자열
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = unknown
	}
	if i.DirtyBuild {
		v += "+dirty"
	}

	var details []string
	if i.Commit != "" && i.Commit != unknown {
		details = append(details, i.Commit[:min(7, len(i.Commit))])
	}
	if i.BuildNumber != "" {
		details = append(details, "build "+i.BuildNumber)
	}
	if i.GoVersion != "" {
		platform := i.GoVersion
		if i.OS != "" && i.Arch != "" {
			platform = fmt.Sprintf("%s %s/%s", i.GoVersion, i.OS, i.Arch)
		}
		details = append(details, platform)
	}

	if len(details) == 0 {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, strings.Join(details, ", "))
}
