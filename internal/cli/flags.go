package cli

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// addSwitch defines a --name/--no-name pair writing to p.
func addSwitch(fs *pflag.FlagSet, p *bool, name string, value bool, usage string) {
	fs.BoolVar(p, name, value, usage)
	fs.Var(&negatedBool{p: p}, "no-"+name, "Negate --"+name)
	fs.Lookup("no-" + name).NoOptDefVal = "true"
}

type negatedBool struct {
	p *bool
}

// String reports the flag as unset; the positive flag carries the default.
func (b *negatedBool) String() string {
	return "false"
}

func (b *negatedBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.p = !v
	return nil
}

func (b *negatedBool) Type() string {
	return "bool"
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
