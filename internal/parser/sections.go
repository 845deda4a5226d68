package parser

import "strings"

// sectionKind tags a recognized section of a model answer.
type sectionKind int

const (
	sectionPrediction sectionKind = iota
	sectionRationale
	sectionFactors
	sectionReasons
	sectionConfidence
)

// sectionLabels maps the fixed answer-format labels to their section kind.
// A label acts as a delimiter: the next recognized label (or end of text)
// closes the previous section.
var sectionLabels = []struct {
	label string
	kind  sectionKind
}{
	{"PREDICTION:", sectionPrediction},
	{"ANALYSIS:", sectionRationale},
	{"KEY FACTORS:", sectionFactors},
	{"REASONS:", sectionReasons}, // legacy answer format
	{"CONFIDENCE:", sectionConfidence},
}

// section is one labeled span of the answer text.
type section struct {
	kind sectionKind
	text string
}

// splitSections tokenizes the answer into labeled sections. Labels are
// matched case-insensitively at the start of a line, after stripping common
// markdown decoration. Text before the first label is discarded. Missing or
// reordered sections are a defined outcome, not a parse failure.
func splitSections(text string) []section {
	var sections []section
	current := -1
	var buf strings.Builder

	flush := func() {
		if current >= 0 {
			sections = append(sections, section{
				kind: sectionKind(current),
				text: strings.TrimSpace(buf.String()),
			})
		}
		buf.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimLeft(line, " \t#*")
		if kind, rest, ok := matchLabel(stripped); ok {
			flush()
			current = int(kind)
			buf.WriteString(rest)
			buf.WriteString("\n")
			continue
		}
		if current >= 0 {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()

	return sections
}

// matchLabel checks whether the line starts with a recognized section label
// and returns the remainder of the line after it.
func matchLabel(line string) (sectionKind, string, bool) {
	upper := strings.ToUpper(line)
	for _, sl := range sectionLabels {
		if strings.HasPrefix(upper, sl.label) {
			rest := strings.TrimLeft(line[len(sl.label):], " \t*")
			return sl.kind, strings.TrimSpace(rest), true
		}
	}
	return 0, "", false
}

// firstSection returns the first section of the given kind, honoring the
// "first occurrence wins" rule for duplicated labels.
func firstSection(sections []section, kind sectionKind) (section, bool) {
	for _, s := range sections {
		if s.kind == kind {
			return s, true
		}
	}
	return section{}, false
}
