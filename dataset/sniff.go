package dataset

// sniffSampleSize is how much of a CSV file is inspected to guess its
// delimiter.
const sniffSampleSize = 1024

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter guesses the field delimiter from a sample of the file. A
// delimiter qualifies when it occurs the same, non-zero number of times on
// every complete record of the sample; the most frequent qualifying
// delimiter wins. ok is false when nothing qualifies.
func sniffDelimiter(sample []byte, truncated bool) (delim rune, ok bool) {
	records := splitRecords(string(sample), truncated)
	if len(records) == 0 {
		return ',', false
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		count := -1
		consistent := true
		for _, rec := range records {
			n := countOutsideQuotes(rec, d)
			if count == -1 {
				count = n
			} else if n != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = d, count
		}
	}
	if bestCount == 0 {
		return ',', false
	}
	return best, true
}

// splitRecords splits sample into logical records, honouring quoted
// newlines. When the sample was cut short, the trailing partial record is
// dropped unless it is the only one.
func splitRecords(sample string, truncated bool) []string {
	var records []string
	inQuote := false
	start := 0
	for i, r := range sample {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '\n' && !inQuote:
			rec := trimCR(sample[start:i])
			if rec != "" {
				records = append(records, rec)
			}
			start = i + 1
		}
	}
	if tail := trimCR(sample[start:]); tail != "" {
		if !truncated || len(records) == 0 {
			records = append(records, tail)
		}
	}
	return records
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}

func countOutsideQuotes(rec string, d rune) int {
	n := 0
	inQuote := false
	for _, r := range rec {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == d && !inQuote:
			n++
		}
	}
	return n
}
