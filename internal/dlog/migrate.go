package dlog

import (
	"path/filepath"
	"strings"

	"github.com/amaranth-kb/amaranth/internal/clock"
	"github.com/amaranth-kb/amaranth/internal/fs"
)

// legacyExcluded names files listTopicFiles skips: whole-directory indexes
// that are not per-topic logs.
var legacyExcluded = map[string]bool{
	"INDEX.md":  true,
	"MEMORY.md": true,
}

const legacySectionPrefix = "## "

// MigrateLegacy imports a directory of pre-existing "<topic>.md" files from
// legacyDir into the data log at kbDir, one entry per "## DATE" section
// (spec.md §4.1's supplemented migration path). Each file's base name, minus
// the .md extension, becomes the topic. A section whose header date fails to
// parse is stored with timestamp zero rather than rejected, matching the
// rest of the log's tolerance for missing metadata. Returns the number of
// entries written.
func MigrateLegacy(fsys fs.FS, legacyDir, kbDir string) (int, error) {
	logPath, err := Ensure(fsys, kbDir)
	if err != nil {
		return 0, err
	}

	files, err := listTopicFiles(fsys, legacyDir)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, path := range files {
		data, err := fsys.ReadFile(path)
		if err != nil {
			return count, err
		}

		topic := strings.TrimSuffix(filepath.Base(path), ".md")

		for _, sec := range splitSections(string(data)) {
			tsMin, _ := clock.ParseDate(strings.TrimPrefix(sec.header, legacySectionPrefix))

			if _, err := AppendEntry(fsys, logPath, topic, sec.body, tsMin); err != nil {
				return count, err
			}

			count++
		}
	}

	return count, nil
}

func listTopicFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || legacyExcluded[e.Name()] {
			continue
		}

		files = append(files, filepath.Join(dir, e.Name()))
	}

	return files, nil
}

type legacySection struct {
	header string
	body   string
}

// splitSections walks content line by line, starting a new section at each
// "## " header line and collecting everything up to the next header (or end
// of file) as that section's body, with the header's own trailing newline
// and the body's leading/trailing blank lines stripped.
func splitSections(content string) []legacySection {
	var sections []legacySection

	lines := strings.Split(content, "\n")

	i := 0
	for i < len(lines) && !strings.HasPrefix(lines[i], legacySectionPrefix) {
		i++
	}

	for i < len(lines) {
		header := lines[i]
		i++

		start := i
		for i < len(lines) && !strings.HasPrefix(lines[i], legacySectionPrefix) {
			i++
		}

		body := strings.TrimSpace(strings.Join(lines[start:i], "\n"))
		sections = append(sections, legacySection{header: header, body: body})
	}

	return sections
}
