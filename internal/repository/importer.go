package repository

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"suffixguard/internal/config"
	"suffixguard/internal/suffix"

	"github.com/rs/zerolog/log"
)

const (
	beginPrivateMarker = "===BEGIN PRIVATE DOMAINS==="
	endPrivateMarker   = "===END PRIVATE DOMAINS==="
)

// ParseAndStream reads a ruleset in the source's format and sends every rule
// line to outChan, which it closes when done. A non-nil error means the
// rules sent so far are an incomplete list and must not replace stored ones.
func ParseAndStream(reader io.Reader, outChan chan<- StoredRule, src config.SourceConfig) error {
	defer close(outChan)

	var err error
	switch src.Format {
	case "csv":
		err = parseCSV(reader, outChan, src)
	case "json":
		err = parseJSON(reader, outChan, src)
	case "dat", "text":
		fallthrough
	default:
		err = parseDat(reader, outChan, src)
	}
	if err != nil {
		return fmt.Errorf("importing %s: %w", src.Name, err)
	}
	return nil
}

// newStoredRule turns a raw line into a StoredRule, or false if the line
// carries no rule.
func newStoredRule(line, section string, src config.SourceConfig) (StoredRule, bool) {
	// PSL rules end at the first whitespace.
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		line = line[:i]
	}

	entry, ok := suffix.ParseLine(line)
	if !ok {
		return StoredRule{}, false
	}
	return StoredRule{
		Line:    line,
		Key:     entry.Text,
		Kind:    entry.Kind.String(),
		Source:  src.Name,
		Section: section,
	}, true
}

// parseDat reads publicsuffix.org list text, tracking which section each
// rule belongs to.
func parseDat(reader io.Reader, outChan chan<- StoredRule, src config.SourceConfig) error {
	section := SectionICANN

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "//") {
			switch {
			case strings.Contains(line, beginPrivateMarker):
				section = SectionPrivate
			case strings.Contains(line, endPrivateMarker):
				section = SectionICANN
			}
			continue
		}

		if rule, ok := newStoredRule(line, section, src); ok {
			outChan <- rule
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading list: %w", err)
	}
	return nil
}

// parseJSON accepts a flat array of rule strings.
func parseJSON(reader io.Reader, outChan chan<- StoredRule, src config.SourceConfig) error {
	dec := json.NewDecoder(reader)

	t, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading JSON list: %w", err)
	}
	if d, ok := t.(json.Delim); !ok || d != '[' {
		return errors.New("expected JSON array of rules")
	}

	for dec.More() {
		var raw string
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding rule: %w", err)
		}
		if rule, ok := newStoredRule(strings.TrimSpace(raw), SectionICANN, src); ok {
			outChan <- rule
		}
	}

	// The closing bracket proves the array was not cut short.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading JSON list: %w", err)
	}
	return nil
}

// parseCSV takes rules from the configured column.
func parseCSV(reader io.Reader, outChan chan<- StoredRule, src config.SourceConfig) error {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}

	targetIndex := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), src.TargetColumn) {
			targetIndex = i
			break
		}
	}

	if targetIndex == -1 {
		return fmt.Errorf("column %q not found in CSV header", src.TargetColumn)
	}

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warn().Err(err).Str("source", src.Name).Msg("skipping malformed CSV row")
			continue
		}
		if err != nil {
			return fmt.Errorf("reading CSV: %w", err)
		}

		if len(record) > targetIndex {
			if rule, ok := newStoredRule(strings.TrimSpace(record[targetIndex]), SectionICANN, src); ok {
				outChan <- rule
			}
		}
	}
}
