package jobfs

// Match reports whether name matches pattern in full. '*' matches any
// run of characters including '/' and the empty run; '?' matches exactly
// one character. Every other character matches itself. There is no
// escaping and no character classes.
func Match(pattern, name string) bool {
	pr, nr := []rune(pattern), []rune(name)
	p, n := 0, 0
	// star is the index of the last '*' seen, mark the name offset that
	// '*' currently absorbs up to.
	star, mark := -1, 0
	for n < len(nr) {
		switch {
		case p < len(pr) && pr[p] == '*':
			star, mark = p, n
			p++
		case p < len(pr) && (pr[p] == '?' || pr[p] == nr[n]):
			p++
			n++
		case star >= 0:
			mark++
			p, n = star+1, mark
		default:
			return false
		}
	}
	for p < len(pr) && pr[p] == '*' {
		p++
	}
	return p == len(pr)
}
