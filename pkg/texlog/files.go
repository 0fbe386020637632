package texlog

import "regexp"

// maxFileDepth bounds the inclusion stack. Deeper opens are only counted.
const maxFileDepth = 256

var (
	fileTokenRe = regexp.MustCompile(`^[^\s"(){}\[\]<>]+`)
	fileExtRe   = regexp.MustCompile(`\.[A-Za-z][A-Za-z0-9]+$`)
)

// fileStack tracks the files TeX reports opening with "(name" and closing
// with ")". Parentheses that do not introduce a file are pushed as
// anonymous frames so that their closing parenthesis stays balanced.
type fileStack struct {
	frames   []string
	overflow int
}

func (f *fileStack) current() string {
	for i := len(f.frames) - 1; i >= 0; i-- {
		if f.frames[i] != "" {
			return f.frames[i]
		}
	}
	return ""
}

func (f *fileStack) push(name string) {
	if len(f.frames) >= maxFileDepth {
		f.overflow++
		return
	}
	f.frames = append(f.frames, name)
}

// pop on an empty stack is ignored.
func (f *fileStack) pop() {
	if f.overflow > 0 {
		f.overflow--
		return
	}
	if len(f.frames) == 0 {
		return
	}
	f.frames = f.frames[:len(f.frames)-1]
}

func (f *fileStack) scan(line string) {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			name, n := fileNameAt(line[i+1:])
			f.push(name)
			i += n
		case ')':
			f.pop()
		}
	}
}

// fileNameAt extracts the file name that immediately follows an opening
// parenthesis and returns it with the number of bytes it spans.
func fileNameAt(rest string) (string, int) {
	if len(rest) > 1 && rest[0] == '"' {
		for i := 1; i < len(rest); i++ {
			if rest[i] == '"' {
				name := rest[1:i]
				if fileExtRe.MatchString(name) {
					return name, i + 1
				}
				return "", 0
			}
		}
		return "", 0
	}

	token := fileTokenRe.FindString(rest)
	if token == "" || !fileExtRe.MatchString(token) {
		return "", 0
	}
	return token, len(token)
}
