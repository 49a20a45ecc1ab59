/*
 *  base.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	logging "github.com/op/go-logging"
)

const (
	// Version is the current version of cgat-flow
	Version = "0.3.1"
	// DefaultDatabase is the SQLite file every pipeline loads into
	DefaultDatabase = "csvdb"
	// DefaultMaxTasks is the number of concurrent local tasks
	DefaultMaxTasks = 4
	// APIBatchSize is the number of ids sent per mygene.info query
	APIBatchSize = 500
	// EntrezPageSize is the number of ids fetched per esearch page
	EntrezPageSize = 10000
	// PseudoCount is added to TPM values before log transform
	PseudoCount = 0.1
)

var log = logging.MustGetLogger("cgatflow")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RemoveExt returns the substring minus the extension
func RemoveExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// Snip returns the filename minus a known suffix
func Snip(filename, suffix string) string {
	return strings.TrimSuffix(filename, suffix)
}

// FileExists checks that a path exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return info != nil && !info.IsDir()
}

// IsNewerFile checks if file a is newer than file b
func IsNewerFile(a, b string) bool {
	af, aerr := os.Stat(a)
	bf, berr := os.Stat(b)
	if os.IsNotExist(aerr) || os.IsNotExist(berr) {
		return false
	}
	am := af.ModTime()
	bm := bf.ModTime()
	return am.Sub(bm) > 0
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// ReadTSVLines parses all the lines of a tab-separated file into a 2D
// array of tokens, skipping the header row
func ReadTSVLines(filename string) ([][]string, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return readTSV(fh, true)
}

func readTSV(r io.Reader, skipHeader bool) ([][]string, error) {
	var data [][]string
	cr := csv.NewReader(bufio.NewReader(r))
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if i == 0 && skipHeader {
			continue
		}
		data = append(data, rec)
	}
	return data, nil
}

func itoa(i int) string { return strconv.Itoa(i) }

// atoi parses an integer, treating garbage as zero
func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// unique returns a distinct slice of strings, preserving input order
func unique(a []string) []string {
	keys := make(map[string]bool)
	list := []string{}
	for _, entry := range a {
		if !keys[entry] {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// chunkStrings cuts a into batches of at most size items
func chunkStrings(a []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(a); i += size {
		end := i + size
		if end > len(a) {
			end = len(a)
		}
		chunks = append(chunks, a[i:end])
	}
	return chunks
}
