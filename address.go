package jobfs

// Address is a parsed backend address of the form
// scheme://[host[:port]]/path.
type Address struct {
	Kind   Kind
	Scheme string
	// Host and Port are empty when the address does not carry them. A
	// trailing ':' with no port yields an empty Port.
	Host string
	Port string
	// Path always starts with '/'.
	Path string
}

// String reassembles the address. An empty port is omitted.
func (a Address) String() string {
	s := a.Scheme + "://" + a.Host
	if a.Port != "" {
		s += ":" + a.Port
	}
	return s + a.Path
}

type parseState int

const (
	stateScheme parseState = iota
	stateSeparator
	stateHost
	statePort
	statePath
)

// ParseAddress resolves raw into an Address. Unknown schemes, missing
// "://" separators and addresses without a path fail with a [*ParseError].
//
//	hdfs://localhost:9999/home/test/hdfs.file -> (dfs, "localhost", "9999", "/home/test/hdfs.file")
//	file:///home/test/local.file              -> (local, "", "", "/home/test/local.file")
func ParseAddress(raw string) (Address, error) {
	if raw == "" {
		return Address{}, &ParseError{Input: raw, Reason: "empty address"}
	}

	var (
		addr    Address
		state   = stateScheme
		mark    int
		slashes int
	)
	for i := 0; i < len(raw) && state != statePath; i++ {
		c := raw[i]
		switch state {
		case stateScheme:
			if c == ':' {
				addr.Scheme = raw[:i]
				state = stateSeparator
			}
		case stateSeparator:
			if c != '/' {
				return Address{}, &ParseError{Input: raw, Reason: `expected "://" after scheme`}
			}
			if slashes++; slashes == 2 {
				state = stateHost
				mark = i + 1
			}
		case stateHost:
			switch c {
			case ':':
				addr.Host = raw[mark:i]
				mark = i + 1
				state = statePort
			case '/':
				addr.Host = raw[mark:i]
				addr.Path = raw[i:]
				state = statePath
			}
		case statePort:
			if c == '/' {
				addr.Port = raw[mark:i]
				addr.Path = raw[i:]
				state = statePath
			}
		}
	}

	switch state {
	case stateScheme:
		return Address{}, &ParseError{Input: raw, Reason: "missing scheme"}
	case stateSeparator:
		return Address{}, &ParseError{Input: raw, Reason: `expected "://" after scheme`}
	case stateHost, statePort:
		return Address{}, &ParseError{Input: raw, Reason: "missing path"}
	}

	if addr.Scheme == "" {
		return Address{}, &ParseError{Input: raw, Reason: "empty scheme"}
	}
	kind, ok := KindForScheme(addr.Scheme)
	if !ok {
		return Address{}, &ParseError{Input: raw, Reason: "unsupported scheme " + addr.Scheme}
	}
	addr.Kind = kind
	return addr, nil
}
