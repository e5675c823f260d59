package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cognicore/semrel/pkg/semrel/cnf"
)

// sentence is one input line in clause notation.
type sentence struct {
	line int
	text string
}

// readSentences reads one CNF per line from path, or from stdin when path is
// "-" or empty. Blank lines and lines starting with '#' or ';' are skipped.
func readSentences(path string, stdin io.Reader) ([]sentence, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var out []sentence
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		out = append(out, sentence{line: lineNum, text: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return out, nil
}

func parseSentences(in []sentence) ([]cnf.CNF, error) {
	out := make([]cnf.CNF, len(in))
	for i, s := range in {
		c, err := cnf.ParseCNF(s.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		out[i] = c
	}
	return out, nil
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
