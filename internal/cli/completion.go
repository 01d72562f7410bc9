package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
)

// CompletionCmd generates shell completions
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

// Run executes the completion command.
//
// The command and flag lists come from the live kong model, so completions
// never drift from the actual CLI.
func (c *CompletionCmd) Run(globals *Globals, ctx *kong.Context) error {
	commands, flagsByCommand := completionModel(ctx)

	switch c.Shell {
	case "bash":
		return c.generateBash(globals, commands, flagsByCommand)
	case "zsh":
		return c.generateZsh(globals, commands, flagsByCommand)
	case "fish":
		return c.generateFish(globals, commands, flagsByCommand)
	default:
		return fmt.Errorf("unsupported shell: %s", c.Shell)
	}
}

// completionModel extracts top-level commands and their long-form flags.
// Falls back to empty tables when no kong context is available.
func completionModel(ctx *kong.Context) ([]string, map[string][]string) {
	commands := []string{}
	flags := map[string][]string{}
	if ctx == nil || ctx.Model == nil {
		return commands, flags
	}

	globalFlags := []string{}
	for _, f := range ctx.Model.Node.Flags {
		if f != nil && !f.Hidden {
			globalFlags = append(globalFlags, "--"+f.Name)
		}
	}

	for _, child := range ctx.Model.Node.Children {
		if child == nil || child.Type != kong.CommandNode || child.Hidden {
			continue
		}
		commands = append(commands, child.Name)

		own := append([]string(nil), globalFlags...)
		for _, f := range child.Flags {
			if f == nil || f.Hidden {
				continue
			}
			token := "--" + f.Name
			if !contains(own, token) {
				own = append(own, token)
			}
		}
		sort.Strings(own)
		flags[child.Name] = own
	}
	sort.Strings(commands)
	return commands, flags
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func (c *CompletionCmd) generateBash(globals *Globals, commands []string, flags map[string][]string) error {
	fmt.Fprintf(globals.Stdout, `# bash completion for wfmon
_wfmon() {
    local cur prev cmd
    cur="${COMP_WORDS[COMP_CWORD]}"
    cmd="${COMP_WORDS[1]}"

    if [[ $COMP_CWORD -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "%s" -- "$cur") )
        return
    fi

    case "$cmd" in
`, strings.Join(commands, " "))

	for _, cmd := range commands {
		fmt.Fprintf(globals.Stdout, "        %s)\n            COMPREPLY=( $(compgen -W \"%s\" -- \"$cur\") )\n            ;;\n", cmd, strings.Join(flags[cmd], " "))
	}

	fmt.Fprint(globals.Stdout, `    esac
}
complete -F _wfmon wfmon
`)
	return nil
}

func (c *CompletionCmd) generateZsh(globals *Globals, commands []string, flags map[string][]string) error {
	fmt.Fprint(globals.Stdout, `#compdef wfmon
_wfmon() {
    local -a commands
    commands=(
`)
	for _, cmd := range commands {
		fmt.Fprintf(globals.Stdout, "        '%s'\n", cmd)
	}
	fmt.Fprint(globals.Stdout, `    )

    if (( CURRENT == 2 )); then
        _describe 'command' commands
        return
    fi

    case $words[2] in
`)
	for _, cmd := range commands {
		fmt.Fprintf(globals.Stdout, "        %s)\n            _arguments %s\n            ;;\n", cmd, quoteEach(flags[cmd]))
	}
	fmt.Fprint(globals.Stdout, `    esac
}
_wfmon
`)
	return nil
}

func (c *CompletionCmd) generateFish(globals *Globals, commands []string, flags map[string][]string) error {
	fmt.Fprintln(globals.Stdout, "# fish completion for wfmon")
	for _, cmd := range commands {
		fmt.Fprintf(globals.Stdout, "complete -c wfmon -n '__fish_use_subcommand' -a '%s'\n", cmd)
		for _, flag := range flags[cmd] {
			fmt.Fprintf(globals.Stdout, "complete -c wfmon -n '__fish_seen_subcommand_from %s' -l '%s'\n", cmd, strings.TrimPrefix(flag, "--"))
		}
	}
	return nil
}

func quoteEach(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = "'" + t + "'"
	}
	return strings.Join(quoted, " ")
}
