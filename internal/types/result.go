package types

import (
	"errors"
	"fmt"
)

// ScrapeResult is the one-line JSON a scrape prints on completion.
type ScrapeResult struct {
	OK      bool   `json:"ok"`
	Slug    string `json:"slug,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Hash    string `json:"hash,omitempty"`

	OutputPathLatestMd   string `json:"outputPathLatestMd,omitempty"`
	OutputPathLatestHTML string `json:"outputPathLatestHtml,omitempty"`
	UploadDir            string `json:"desktopDir,omitempty"`
	ProfilePath          string `json:"profilePath,omitempty"`

	Name    string     `json:"name,omitempty"`
	Address string     `json:"address,omitempty"`
	Phone   string     `json:"phone,omitempty"`
	Hours   HoursTable `json:"hours,omitempty"`

	Error string `json:"error,omitempty"`
}

// Error kinds reported in one-line summaries.
const (
	KindNetwork    = "NetworkError"
	KindExtraction = "ExtractionError"
	KindValidation = "ValidationError"
	KindFilesystem = "FilesystemError"
	KindConfig     = "ConfigError"
	KindGeneric    = "Error"
)

// kinded is implemented by the typed errors of the fetch, extraction, validation and persist packages.
type kinded interface {
	Kind() string
}

// ErrorKind returns the kind of the first typed error in err's chain.
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindGeneric
}

// Summarize formats err as "<Kind>: <message>".
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrorKind(err), err.Error())
}

// ConfigError represents an invalid or unreadable profile or app config.
type ConfigError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("config error for %s: %s", e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Kind implements the error kind contract.
func (e *ConfigError) Kind() string {
	return KindConfig
}
