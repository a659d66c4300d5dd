package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// Runs collapse so "Equipe #1!" yields "Equipe_1_"; replacing each
	// character would give "Equipe__1_".
	csvUnsafeRuns   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	xlsxUnsafeChars = regexp.MustCompile(`[^A-Za-z0-9 ]`)
)

// CSVFilename builds contatos_<name>_<unix millis>.csv, turning every run of
// characters outside [A-Za-z0-9] into a single underscore.
func CSVFilename(groupName string, at time.Time) string {
	if groupName == "" {
		groupName = "grupo"
	}
	safe := csvUnsafeRuns.ReplaceAllString(groupName, "_")
	return "contatos_" + safe + "_" + strconv.FormatInt(at.UnixMilli(), 10) + ".csv"
}

// XLSXFilename keeps spaces and replaces only the other unsafe characters.
func XLSXFilename(groupName string, at time.Time) string {
	safe := strings.TrimSpace(xlsxUnsafeChars.ReplaceAllString(groupName, "_"))
	if safe == "" {
		safe = "grupo"
	}
	return "contatos_" + safe + "_" + strconv.FormatInt(at.UnixMilli(), 10) + ".xlsx"
}
