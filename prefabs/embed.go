package prefabs

import (
	"embed"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed scenes/*.yaml
var ScenesFS embed.FS

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

// DiskRoot is checked before the embedded files so scenes and scripts can be
// edited without rebuilding.
var DiskRoot = "prefabs"

// Load reads a scene file. name may be given with or without the
// "prefabs/scenes/" prefix and the ".yaml" extension.
func Load(name string) ([]byte, error) {
	clean := cleanScenePath(name)
	if data, err := os.ReadFile(diskPath(clean)); err == nil {
		return data, nil
	}
	return ScenesFS.ReadFile(clean)
}

// LoadScript reads a tengo script, preferring the disk copy.
func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if data, err := os.ReadFile(diskPath(clean)); err == nil {
		return data, nil
	}
	return ScriptsFS.ReadFile(clean)
}

func cleanScenePath(p string) string {
	return cleanPath(p, "scenes", ".yaml")
}

func cleanScriptPath(p string) string {
	return cleanPath(p, "scripts", ".tengo")
}

func cleanPath(p, dir, ext string) string {
	if p == "" {
		return ""
	}
	s := filepath.ToSlash(p)
	s = strings.TrimPrefix(s, "prefabs/")
	s = strings.TrimPrefix(s, dir+"/")
	if e := path.Ext(s); e != ext && e != ".yml" {
		s += ext
	}
	return path.Join(dir, s)
}

func diskPath(clean string) string {
	return filepath.Join(DiskRoot, filepath.FromSlash(clean))
}
