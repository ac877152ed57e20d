// Package flagx separates the process-level config flags from the rest of the
// command line, so config parsing and the command parser never see each
// other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns only the listed flags and their values, in order.
//
// Both "-c conf.json" and "--config=conf.json" forms are recognised. A
// separate value is taken only when the next argument does not start with
// "-".
func FilterArgs(args []string, allowedFlags []string) []string {
	matched, _ := partition(args, allowedFlags)
	return matched
}

// StripArgs is the inverse of FilterArgs: the listed flags and their values
// are dropped and everything else is returned in order.
func StripArgs(args []string, flags []string) []string {
	_, rest := partition(args, flags)
	return rest
}

// partition splits args into the listed flags (with values) and the rest.
// Neither result is nil.
func partition(args []string, flags []string) (matched, rest []string) {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}

	matched = make([]string, 0, len(args))
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, ok := strings.Cut(arg, "="); ok {
				if _, listed := set[name]; listed {
					matched = append(matched, arg)
				} else {
					rest = append(rest, arg)
				}
				continue
			}
		}

		if _, listed := set[arg]; !listed {
			rest = append(rest, arg)
			continue
		}
		matched = append(matched, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			matched = append(matched, args[i])
		}
	}
	return matched, rest
}

// ConfigFlags are the flags that select the JSON config file.
var ConfigFlags = []string{"-c", "-config", "--config"}

// JsonConfigFlags returns the config file path given with -c, -config or
// --config, or "" when none is present. Other arguments are ignored.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], ConfigFlags)

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
