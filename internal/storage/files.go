package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxEntries is the journal size used when none is given.
const DefaultMaxEntries = 500

// Journal is a capped line file. Lines are appended to the file and kept in
// memory oldest first. The file may grow a tenth past the cap before the
// oldest lines are dropped and it is rewritten.
type Journal struct {
	path  string
	max   int
	lines []string
}

// OpenJournal loads the journal at path, creating its directory. A missing
// file is an empty journal.
func OpenJournal(path string, max int) (*Journal, error) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	lines, err := readLines(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	j := &Journal{path: path, max: max, lines: lines}
	if len(j.lines) > j.max {
		j.lines = j.lines[len(j.lines)-j.max:]
		if err := writeLines(j.path, j.lines); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// Path returns the file backing the journal.
func (j *Journal) Path() string { return j.path }

// Len returns the number of entries, at most the cap.
func (j *Journal) Len() int { return len(j.visible()) }

// Append adds one entry. Newlines inside the entry are flattened.
func (j *Journal) Append(entry string) error {
	entry = strings.NewReplacer("\r", " ", "\n", " ").Replace(entry)
	if entry == "" {
		return nil
	}

	j.lines = append(j.lines, entry)
	if len(j.lines) > j.max+j.max/10 {
		j.lines = append([]string(nil), j.visible()...)
		return writeLines(j.path, j.lines)
	}
	return appendLine(j.path, entry)
}

// Lines returns the entries within the cap, oldest first.
func (j *Journal) Lines() []string {
	return append([]string(nil), j.visible()...)
}

func (j *Journal) visible() []string {
	if len(j.lines) > j.max {
		return j.lines[len(j.lines)-j.max:]
	}
	return j.lines
}

// JournalPath builds dataDir/<server>/<channel>.txt with both names lowered
// and made safe for the file system. Private messages go to the sender's
// nickname.
func JournalPath(dataDir, server, channel string) string {
	if channel == "" {
		channel = "server"
	}
	return filepath.Join(dataDir, fileName(server), fileName(channel)+".txt")
}

func fileName(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
	if s == "." || s == ".." || s == "" {
		s = "_" + s
	}
	return s
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func appendLine(path, line string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = fmt.Fprintln(file, line)
	return err
}

func writeLines(path string, lines []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return err
		}
	}
	return nil
}
