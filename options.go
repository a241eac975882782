package jobfs

import "maps"

// Recognized connection option keys. Drivers may accept further keys.
const (
	OptHost     = "host"
	OptPort     = "port"
	OptUser     = "user"
	OptPassword = "password"
)

// Options are the connection parameters of a backend. An absent key means
// "use the backend default"; keys are only set to non-empty values.
type Options map[string]string

// Set stores value under key unless value is empty.
func (o Options) Set(key, value string) {
	if value != "" {
		o[key] = value
	}
}

func (o Options) Host() string     { return o[OptHost] }
func (o Options) Port() string     { return o[OptPort] }
func (o Options) User() string     { return o[OptUser] }
func (o Options) Password() string { return o[OptPassword] }

// Clone returns a copy that can be modified independently. Cloning nil
// returns an empty, non-nil map.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	maps.Copy(c, o)
	return c
}

// OptionsFromAddress returns the host and port carried by addr.
func OptionsFromAddress(addr Address) Options {
	o := make(Options, 2)
	o.Set(OptHost, addr.Host)
	o.Set(OptPort, addr.Port)
	return o
}

// Descriptor is the typed form of an endpoint, as found in job
// configuration. Path may be a bare path or a full address.
type Descriptor struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty" mapstructure:"host"`
	Port     string `json:"port,omitempty" yaml:"port,omitempty" mapstructure:"port"`
	User     string `json:"user,omitempty" yaml:"user,omitempty" mapstructure:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// Address parses Path when it is a full address.
func (d Descriptor) Address() (Address, bool) {
	addr, err := ParseAddress(d.Path)
	if err != nil {
		return Address{}, false
	}
	return addr, true
}

// Kind is the scheme kind of Path when it is a full address. Otherwise a
// descriptor with a host names a DFS endpoint and one without is local.
func (d Descriptor) Kind() Kind {
	if addr, ok := d.Address(); ok {
		return addr.Kind
	}
	if d.Host != "" {
		return KindDFS
	}
	return KindLocal
}

// BuildOptions converts d into connection options. Host and port embedded
// in a full-address Path only fill in fields d leaves empty.
func BuildOptions(d Descriptor) Options {
	o := make(Options, 4)
	o.Set(OptHost, d.Host)
	o.Set(OptPort, d.Port)
	o.Set(OptUser, d.User)
	o.Set(OptPassword, d.Password)

	if addr, ok := d.Address(); ok {
		if d.Host == "" {
			o.Set(OptHost, addr.Host)
		}
		if d.Port == "" {
			o.Set(OptPort, addr.Port)
		}
	}
	return o
}
