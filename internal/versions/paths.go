package versions

import (
	"fmt"
	"path/filepath"
	"strings"
)

// --- Directory layout ---
//
//	{outputRoot}/{genType}_{appId}/         base (version 0)
//	{outputRoot}/{genType}_{appId}/v{n}/    version n

// DeployKey is the directory name and URL key of an application.
func DeployKey(genType GenType, appID int64) string {
	return fmt.Sprintf("%s_%d", genType, appID)
}

// BaseDir returns the unversioned directory of an app under root.
func BaseDir(root string, genType GenType, appID int64) string {
	return filepath.Join(root, DeployKey(genType, appID))
}

// VersionDir returns the directory of one version. Version 0 or below
// maps to the base directory.
func VersionDir(root string, genType GenType, appID int64, version int) string {
	base := BaseDir(root, genType, appID)
	if version <= 0 {
		return base
	}
	return filepath.Join(base, fmt.Sprintf("v%d", version))
}

// PreviewURL is where the static endpoint serves a version.
func PreviewURL(deployHost string, genType GenType, appID int64, version int) string {
	return fmt.Sprintf("%s/%s/?version=%d", strings.TrimRight(deployHost, "/"), DeployKey(genType, appID), version)
}
