package project

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeFilename trims surrounding whitespace and replaces inner
// spaces with dashes. Directory components are dropped.
func NormalizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	return strings.ReplaceAll(name, " ", "-")
}

func documentKey(projectID int64, unique, filename string) string {
	return fmt.Sprintf("project-%d/%s-%s", projectID, unique, filename)
}

func logoKey(projectID int64, filename string) string {
	return fmt.Sprintf("project-%d-logo-%s", projectID, filename)
}

// LogoNameFromKey recovers the user-facing logo name from its storage key.
func LogoNameFromKey(projectID int64, key string) string {
	return strings.TrimPrefix(key, fmt.Sprintf("project-%d-logo-", projectID))
}

var logoTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpeg",
	"image/jpg":  ".jpeg",
}

// logoContentType returns the canonical content type of an accepted
// logo, judged by declared type first and file extension second.
func logoContentType(filename, declared string) (string, bool) {
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if _, ok := logoTypes[declared]; ok {
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		return declared, true
	}
	if declared != "" && declared != "application/octet-stream" {
		return "", false
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png", true
	case ".jpeg", ".jpg":
		return "image/jpeg", true
	}
	return "", false
}
