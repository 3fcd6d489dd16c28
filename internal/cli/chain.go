package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// splitChain splits a chained invocation such as
//
//	rtool -p mitmproxy sdist upload-snapshot --sdist
//
// into the global flags given before the first command and one segment per command.
// A token naming a top-level command starts a new segment unless it is the value of
// the preceding flag or follows "--". segments is nil when args hold no known command;
// the caller then hands args to cobra unchanged (help, --version, unknown commands).
func splitChain(root *cobra.Command, args []string) (globals []string, segments [][]string) {
	i := 0
	for ; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			return nil, nil
		}
		if isFlag(tok) {
			globals = append(globals, tok)
			if takesValue(root, nil, tok) && i+1 < len(args) {
				i++
				globals = append(globals, args[i])
			}
			continue
		}
		if findCommand(root, tok) == nil {
			return nil, nil
		}
		break
	}
	if i == len(args) {
		return nil, nil
	}

	var (
		current    []string
		cmd        *cobra.Command
		terminated bool
	)
	for ; i < len(args); i++ {
		tok := args[i]
		switch {
		case terminated:
			current = append(current, tok)
		case tok == "--":
			terminated = true
			current = append(current, tok)
		case isFlag(tok):
			current = append(current, tok)
			if takesValue(root, cmd, tok) && i+1 < len(args) {
				i++
				current = append(current, args[i])
			}
		default:
			if next := findCommand(root, tok); next != nil {
				if current != nil {
					segments = append(segments, current)
				}
				current = []string{tok}
				cmd = next
				continue
			}
			current = append(current, tok)
		}
	}
	segments = append(segments, current)
	return globals, segments
}

func isFlag(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return c
		}
	}
	return nil
}

// takesValue reports whether tok is a flag that consumes the next argument.
func takesValue(root, cmd *cobra.Command, tok string) bool {
	var flag *pflag.Flag
	if strings.HasPrefix(tok, "--") {
		name := tok[2:]
		if strings.Contains(name, "=") {
			return false
		}
		flag = lookupFlag(root, cmd, func(fs *pflag.FlagSet) *pflag.Flag { return fs.Lookup(name) })
	} else {
		if len(tok) != 2 {
			return false
		}
		flag = lookupFlag(root, cmd, func(fs *pflag.FlagSet) *pflag.Flag { return fs.ShorthandLookup(tok[1:]) })
	}
	return flag != nil && flag.NoOptDefVal == ""
}

func lookupFlag(root, cmd *cobra.Command, find func(*pflag.FlagSet) *pflag.Flag) *pflag.Flag {
	sets := []*pflag.FlagSet{root.PersistentFlags()}
	if cmd != nil {
		sets = append(sets, cmd.Flags(), cmd.PersistentFlags())
	}
	for _, fs := range sets {
		if f := find(fs); f != nil {
			return f
		}
	}
	return nil
}
