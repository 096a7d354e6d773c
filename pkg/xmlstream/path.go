package xmlstream

import "strconv"

// PathTracker builds positional element paths such as
// /NewReleaseMessage/ResourceList/SoundRecording[2]. The index is omitted
// for the first sibling of a name.
type PathTracker struct {
	frames []pathFrame
}

type pathFrame struct {
	path   string
	counts map[string]int
}

// Push enters a child element and returns its path.
func (p *PathTracker) Push(local string) string {
	parent := ""
	if n := len(p.frames); n > 0 {
		parent = p.frames[n-1].path
		if p.frames[n-1].counts == nil {
			p.frames[n-1].counts = make(map[string]int)
		}
		p.frames[n-1].counts[local]++
		if idx := p.frames[n-1].counts[local]; idx > 1 {
			local += "[" + strconv.Itoa(idx) + "]"
		}
	}
	path := parent + "/" + local
	p.frames = append(p.frames, pathFrame{path: path})
	return path
}

// Pop leaves the current element.
func (p *PathTracker) Pop() {
	if len(p.frames) > 0 {
		p.frames = p.frames[:len(p.frames)-1]
	}
}

// Current returns the path of the innermost open element.
func (p *PathTracker) Current() string {
	if len(p.frames) == 0 {
		return ""
	}
	return p.frames[len(p.frames)-1].path
}
