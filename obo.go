/*
 *  obo.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// OBOTerm is one [Term] stanza of an OBO flat file
type OBOTerm struct {
	ID        string
	Name      string
	Namespace string
	// Parents holds the direct is_a parents
	Parents  []string
	Obsolete bool
}

// Ontology indexes OBO terms by id
type Ontology map[string]*OBOTerm

// LoadOBO parses an OBO release from disk, gzip transparent
func LoadOBO(filename string) (Ontology, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer fh.Close()
	ont, err := ParseOBO(fh)
	return ont, errors.Wrapf(err, "cannot parse %s", filename)
}

// ParseOBO reads the OBO flat format, keeping only [Term] stanzas. Tags
// other than id, name, namespace, is_a and is_obsolete are skipped, as
// are [Typedef] stanzas.
func ParseOBO(r io.Reader) (Ontology, error) {
	ont := make(Ontology)
	var term *OBOTerm
	inTerm := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	flush := func() {
		if term != nil && term.ID != "" {
			ont[term.ID] = term
		}
		term = nil
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "[Term]":
			flush()
			term = new(OBOTerm)
			inTerm = true
		case strings.HasPrefix(line, "["):
			flush()
			inTerm = false
		case !inTerm || line == "":
			continue
		default:
			tag, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			switch tag {
			case "id":
				term.ID = value
			case "name":
				term.Name = value
			case "namespace":
				term.Namespace = value
			case "is_a":
				// trailing "! <name>" comments are dropped
				parent, _, _ := strings.Cut(value, " !")
				term.Parents = append(term.Parents, strings.TrimSpace(parent))
			case "is_obsolete":
				term.Obsolete = value == "true"
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ont) == 0 {
		return nil, errors.New("no [Term] stanzas found")
	}
	return ont, nil
}

// Ancestors returns every term reachable from id through is_a links,
// excluding id itself, sorted for stable output
func (o Ontology) Ancestors(id string) []string {
	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		term, ok := o[cur]
		if !ok {
			continue
		}
		for _, parent := range term.Parents {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	ancestors := make([]string, 0, len(seen))
	for id := range seen {
		ancestors = append(ancestors, id)
	}
	sort.Strings(ancestors)
	return ancestors
}
