// Package vcf parses the project's variant-annotation record convention:
// tab-separated lines in VCF column order (chromosome, position, id, ref,
// alt, quality, filter, info) with GENE=, STAR= and RS= tags carried in the
// info column. It is intentionally not a VCF-standard-compliant parser; it
// recognizes exactly the narrow convention the upstream sequencing export
// produces.
package vcf

import (
	"regexp"
	"strings"
)

const (
	commentMarker = "#"
	fieldCount    = 8 // chrom, pos, id, ref, alt, qual, filter, info

	// UnknownRSID is the placeholder used when a line carries gene or star
	// annotations but no resolvable rsID.
	UnknownRSID = "unknown"
)

var rsInfoPattern = regexp.MustCompile(`RS=(rs\d+)`)

// Record is one parsed annotation line. Frequencies and higher-level
// semantics are layered on by the caller; this package only normalizes the
// wire format.
type Record struct {
	RSID       string
	Gene       string
	Genotype   string // "<ref>/<alt>" verbatim
	StarAllele string
}

// ParseRecord splits raw record text into lines and parses each one.
// Malformed lines are dropped, never fatal: partial or noisy input degrades
// to a shorter record list so one bad line cannot abort a batch.
func ParseRecord(text string) []Record {
	var records []Record

	for _, line := range strings.Split(text, "\n") {
		if rec, ok := parseLine(line); ok {
			records = append(records, rec)
		}
	}

	return records
}

// parseLine parses a single annotation line. The boolean is false for
// comments, blanks, short lines and lines with no recognizable annotation.
func parseLine(line string) (Record, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, commentMarker) {
		return Record{}, false
	}

	fields := strings.Split(line, "\t")
	if len(fields) < fieldCount {
		return Record{}, false
	}

	id := strings.TrimSpace(fields[2])
	ref := strings.TrimSpace(fields[3])
	alt := strings.TrimSpace(fields[4])
	info := strings.TrimSpace(fields[7])

	rec := Record{
		Genotype:   ref + "/" + alt,
		Gene:       infoTag(info, "GENE"),
		StarAllele: infoTag(info, "STAR"),
	}

	// rsID resolution order: explicit id column, then RS= info tag.
	if id != "" && id != "." {
		rec.RSID = id
	} else if m := rsInfoPattern.FindStringSubmatch(info); m != nil {
		rec.RSID = m[1]
	}

	// A line only yields a record if it carried at least one annotation.
	if rec.RSID == "" && rec.Gene == "" && rec.StarAllele == "" {
		return Record{}, false
	}

	if rec.RSID == "" {
		rec.RSID = UnknownRSID
	}

	return rec, true
}

// infoTag extracts a KEY=value entry from a semicolon-separated info column.
func infoTag(info, key string) string {
	for _, part := range strings.Split(info, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, key+"=") {
			return strings.TrimPrefix(part, key+"=")
		}
	}
	return ""
}
