// pre_processor.go implements the WGSL include pre-processor. Shaders pull shared struct
// declarations in with a single-line comment annotation:
//
//	//@oxy:include frame_params
//
// The annotation line is replaced with the registered WGSL source so every stage of every
// program declares the per-frame parameter block identically.
package webgpu

import (
	_ "embed"
	"fmt"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// annotationTypeInclude injects a registered WGSL snippet at the annotation site.
const annotationTypeInclude = "include"

// IncludeFrameParams names the FrameParams uniform struct snippet.
const IncludeFrameParams = "frame_params"

//go:embed assets/frame_params.wgsl
var frameParamsSource string

// annotation is a single parsed @oxy: line.
type annotation struct {
	kind string
	arg  string
	line int
}

// preProcessor expands @oxy: annotations in WGSL source.
type preProcessor struct {
	includes map[string]string
}

// newPreProcessor creates a pre-processor with the built-in snippets registered.
func newPreProcessor() *preProcessor {
	return &preProcessor{
		includes: map[string]string{
			IncludeFrameParams: frameParamsSource,
		},
	}
}

// Process replaces every annotation line in source with its expansion. Lines without
// annotations are passed through untouched so compiler line numbers stay meaningful
// for single-line snippets.
//
// Parameters:
//   - source: the raw WGSL source
//
// Returns:
//   - string: the expanded source
//   - error: if an annotation is malformed or names an unknown snippet
func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		snippet, ok := p.includes[a.arg]
		if !ok {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", a.line, a.arg)
		}
		out = append(out, strings.TrimRight(snippet, "\n"))
	}
	return strings.Join(out, "\n"), nil
}

// parseAnnotation parses one WGSL source line. Lines without the annotation prefix return nil and no error.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *annotation: the parsed annotation, or nil
//   - error: if the line carries a malformed annotation
func parseAnnotation(line string, lineNum int) (*annotation, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	_, after, ok := strings.Cut(comment, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch args[0] {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &annotation{kind: annotationTypeInclude, arg: args[1], line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
