package config

import (
	"slices"
	"strings"
)

// CurrentConfigVersion is the configVersion written by new campaign files.
const CurrentConfigVersion = "1"

// SupportedConfigVersions lists every configVersion Load accepts.
var SupportedConfigVersions = []string{CurrentConfigVersion}

// IsSupportedConfigVersion reports whether a campaign file declaring v can
// be loaded.
func IsSupportedConfigVersion(v string) bool {
	return slices.Contains(SupportedConfigVersions, v)
}

// SupportedConfigVersionsCSV renders the accepted versions for error text.
func SupportedConfigVersionsCSV() string {
	return strings.Join(SupportedConfigVersions, ", ")
}
