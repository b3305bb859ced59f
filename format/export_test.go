package format

import "os"

var (
	Classify     = classify
	Interpret    = interpret
	CompileGlobs = compileGlobs
	PathMatches  = pathMatches
)

func (r *Runner) SetWriteFile(fn func(f *os.File, content string) error) {
	r.writeFile = fn
}

func (r *Runner) SetReadFile(fn func(path string) ([]byte, error)) {
	r.readFile = fn
}
