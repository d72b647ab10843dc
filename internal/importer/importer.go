// Package importer finds analysis jobs waiting in a project's inbox.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// importDir is the inbox of job directories.
const importDir = "import"

// processedDir receives jobs once they have been processed.
const processedDir = "import/processed"

// DescriptorFile optionally sits in a job directory and names its source.
const DescriptorFile = "job.yaml"

// Descriptor names the source document of a job and overrides its metadata.
type Descriptor struct {
	SourceKey     string `yaml:"source_key,omitempty"`
	AccountType   string `yaml:"account_type,omitempty"`
	AccountNumber string `yaml:"account_number,omitempty"`
	OriginalName  string `yaml:"original_name,omitempty"`
}

// Job describes a job directory in the inbox.
type Job struct {
	ID         string
	Path       string
	Pages      int
	Descriptor Descriptor
}

// Dir returns the inbox directory of a project.
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, importDir)
}

// Scan returns the job directories in <projectRoot>/import/ that hold at
// least one page, in name order.
func Scan(projectRoot string) ([]Job, error) {
	dir := Dir(projectRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var jobs []Job
	for _, e := range entries {
		if !e.IsDir() || e.Name() == filepath.Base(processedDir) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		job, err := readJob(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if job.Pages == 0 {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func readJob(path string) (Job, error) {
	job := Job{ID: filepath.Base(path), Path: path}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Job{}, fmt.Errorf("reading job %s: %w", job.ID, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			job.Pages++
		}
	}

	data, err := os.ReadFile(filepath.Join(path, DescriptorFile))
	if errors.Is(err, fs.ErrNotExist) {
		return job, nil
	}
	if err != nil {
		return Job{}, fmt.Errorf("reading %s descriptor: %w", job.ID, err)
	}
	if err := yaml.Unmarshal(data, &job.Descriptor); err != nil {
		return Job{}, fmt.Errorf("parsing %s descriptor: %w", job.ID, err)
	}
	return job, nil
}

// MarkProcessed moves a job from import/ to import/processed/.
func MarkProcessed(projectRoot, jobID string) error {
	src := filepath.Join(projectRoot, importDir, jobID)
	dstDir := filepath.Join(projectRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, jobID)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("moving %s to processed: %s already exists", jobID, dst)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", jobID, err)
	}
	return nil
}
