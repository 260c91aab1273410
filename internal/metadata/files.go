package metadata

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadIDFile reads an identifier list: one id per line, blank lines and
// "#" comments ignored.
func ReadIDFile(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: open id file")
	}
	defer f.Close() //nolint:errcheck

	ids := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Trailing comments after the id are allowed.
		if i := strings.Index(line, "#"); i > 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			ids[line] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "metadata: scan id file")
	}
	return ids, nil
}

// ReadPriorityScores reads a two-column TSV of id and numeric score. Every
// line must parse; a malformed score is an error rather than a silent
// default, since priorities decide which records survive.
func ReadPriorityScores(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "metadata: open priority file")
	}
	defer f.Close() //nolint:errcheck

	scores := make(map[string]float64)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		id, scoreStr, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, eris.Errorf("metadata: priority file line %d: want id<TAB>score", lineNo)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "metadata: priority file line %d", lineNo)
		}
		scores[id] = score
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "metadata: scan priority file")
	}
	return scores, nil
}
