package artifact

import (
	"encoding/json"
	"fmt"
	"os"
)

// Journal is the content of log.json.
type Journal struct {
	Errors        []ErrorRecord        `json:"errors"`
	Registrations []RegistrationRecord `json:"registrations"`
}

// ErrorRecord describes one failure capture.
type ErrorRecord struct {
	Filename  string `json:"filename,omitempty"`
	HTMLFile  string `json:"htmlfile,omitempty"`
	Timestamp string `json:"timestamp"`
	Stack     string `json:"stack"`
}

// RegistrationRecord describes one success capture.
type RegistrationRecord struct {
	Filename  string `json:"filename,omitempty"`
	Timestamp string `json:"timestamp"`
	CourseID  string `json:"courseId"`
	Service   string `json:"service,omitempty"`
}

func emptyJournal() *Journal {
	return &Journal{
		Errors:        []ErrorRecord{},
		Registrations: []RegistrationRecord{},
	}
}

// ReadJournal decodes the journal at path.
func ReadJournal(path string) (*Journal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	j := emptyJournal()
	if err := json.NewDecoder(file).Decode(j); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	if j.Errors == nil {
		j.Errors = []ErrorRecord{}
	}
	if j.Registrations == nil {
		j.Registrations = []RegistrationRecord{}
	}
	return j, nil
}

// writeJournal replaces the journal at path atomically.
func writeJournal(path string, j *Journal) error {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp journal: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(j); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp journal: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp journal: %w", err)
	}
	return nil
}
