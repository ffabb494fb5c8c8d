package parser

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/conorfennell/leitbox/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	separator      = "---"
)

// imageLine matches a face made of a single markdown image: ![alt](ref)
var imageLine = regexp.MustCompile(`^!\[[^\]]*\]\(([^)\s]+)\)$`)

// Note is one Q/A block of a markdown deck. Context is free text shown with
// the answer.
type Note struct {
	Recto   domain.FaceContent
	Verso   domain.FaceContent
	Context string
	Line    int // line of the Q: prefix
}

type field int

const (
	none field = iota
	question
	answer
	context
)

type builder struct {
	notes   []Note
	line    int
	current field
	parts   map[field][]string
}

func (b *builder) begin(f field, firstLine string) {
	if f == question && b.current != none {
		b.flush()
	}
	b.current = f
	b.parts[f] = append(b.parts[f][:0], strings.TrimPrefix(firstLine, " "))
}

func (b *builder) flush() {
	q := strings.Join(b.parts[question], "\n")
	if strings.TrimSpace(q) != "" {
		b.notes = append(b.notes, Note{
			Recto:   faceContent(q),
			Verso:   faceContent(strings.Join(b.parts[answer], "\n")),
			Context: strings.TrimSpace(strings.Join(b.parts[context], "\n")),
			Line:    b.line,
		})
	}
	b.current = none
	b.parts = map[field][]string{}
}

// faceContent turns a block into an image reference when the block is a
// single markdown image, and into text otherwise.
func faceContent(block string) domain.FaceContent {
	trimmed := strings.TrimSpace(block)
	if m := imageLine.FindStringSubmatch(trimmed); m != nil {
		return domain.Image(m[1])
	}
	return domain.Text(trimmed)
}

// ParseFile reads a markdown file and extracts all notes.
func ParseFile(path string) ([]Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts notes from r. A note starts at a "Q:" line and ends at the
// next "Q:", a "---" line or the end of input. Lines after a prefix belong
// to that prefix's block.
func Parse(r io.Reader) ([]Note, error) {
	scanner := bufio.NewScanner(r)
	b := &builder{parts: map[field][]string{}}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case line == separator:
			b.flush()
		case strings.HasPrefix(line, questionPrefix):
			b.begin(question, line[len(questionPrefix):])
			b.line = lineNo
		case strings.HasPrefix(line, answerPrefix) && b.current != none:
			b.begin(answer, line[len(answerPrefix):])
		case strings.HasPrefix(line, contextPrefix) && b.current != none:
			b.begin(context, line[len(contextPrefix):])
		case b.current != none:
			b.parts[b.current] = append(b.parts[b.current], line)
		}
	}
	b.flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.notes, nil
}
