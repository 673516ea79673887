package main

import (
	"fmt"
	"io"
	"os"

	"github.com/AdguardTeam/golibs/osutil"
)

// completionCmd writes the completion script for the shell named in args and
// returns the exit code.
func completionCmd(args []string, out io.Writer) int {
	fs := newFlagSet("completion", "completion <bash|zsh|fish>")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: restbench completion <bash|zsh|fish>\n\n")
		fmt.Fprintf(os.Stderr, "Generate shell completion scripts.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Bash\n")
		fmt.Fprintf(os.Stderr, "  restbench completion bash > /usr/local/etc/bash_completion.d/restbench\n")
		fmt.Fprintf(os.Stderr, "  # Zsh\n")
		fmt.Fprintf(os.Stderr, "  restbench completion zsh > \"${fpath[1]}/_restbench\"\n")
		fmt.Fprintf(os.Stderr, "  # Fish\n")
		fmt.Fprintf(os.Stderr, "  restbench completion fish > ~/.config/fish/completions/restbench.fish\n")
	}

	if err := fs.Parse(args); err != nil {
		return osutil.ExitCodeArgumentError
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: shell name is required (bash, zsh, or fish)\n\n")
		fs.Usage()

		return osutil.ExitCodeArgumentError
	}

	var script string
	switch shell := fs.Arg(0); shell {
	case "bash":
		script = generateBashCompletion()
	case "zsh":
		script = generateZshCompletion()
	case "fish":
		script = generateFishCompletion()
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported shell %q (use bash, zsh, or fish)\n", shell)

		return osutil.ExitCodeArgumentError
	}

	_, _ = io.WriteString(out, script)

	return osutil.ExitCodeSuccess
}

func generateBashCompletion() string {
	return `# bash completion for restbench                          -*- shell-script -*-

_restbench() {
    local cur prev words cword
    _init_completion || return

    local commands="send history collection env globals settings completion version help"

    local send_flags="-X -H -F -d -mode -history -request -draft -link -save -resave -new-collection -name -v -color"
    local history_actions="list search suggest show delete clear"
    local collection_actions="list create rename delete requests show-request edit-request delete-request export import purge"
    local env_actions="list create set rename delete select deselect show export import"
    local globals_actions="show set clear"
    local settings_actions="list get set"
    local settings_keys="historyCount autoSaveRequest selectedEnvironmentId retainLinkHeaders useProxy proxyURL"

    local methods="GET POST PUT PATCH DELETE HEAD OPTIONS"
    local modes="params urlencoded raw"
    local shells="bash zsh fish"

    if [[ ${cword} -eq 1 ]]; then
        COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
        return
    fi

    local command="${words[1]}"

    case "${prev}" in
        -X)
            COMPREPLY=($(compgen -W "${methods}" -- "${cur}"))
            return
            ;;
        -mode)
            COMPREPLY=($(compgen -W "${modes}" -- "${cur}"))
            return
            ;;
        -format)
            COMPREPLY=($(compgen -W "json yaml curl" -- "${cur}"))
            return
            ;;
        -o)
            _filedir
            return
            ;;
        -H|-F|-d|-history|-request|-link|-save|-new-collection|-name|-description|-limit)
            return
            ;;
    esac

    case "${command}" in
        send)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${send_flags}" -- "${cur}"))
            fi
            ;;
        history)
            if [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${history_actions}" -- "${cur}"))
            elif [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "-curl -limit" -- "${cur}"))
            fi
            ;;
        collection)
            if [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${collection_actions}" -- "${cur}"))
            elif [[ "${words[2]}" == "import" ]]; then
                _filedir
            elif [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "-format -o -name -description" -- "${cur}"))
            fi
            ;;
        env)
            if [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${env_actions}" -- "${cur}"))
            elif [[ "${words[2]}" == "import" ]]; then
                _filedir
            fi
            ;;
        globals)
            [[ ${cword} -eq 2 ]] && COMPREPLY=($(compgen -W "${globals_actions}" -- "${cur}"))
            ;;
        settings)
            if [[ ${cword} -eq 2 ]]; then
                COMPREPLY=($(compgen -W "${settings_actions}" -- "${cur}"))
            elif [[ ${cword} -eq 3 ]]; then
                COMPREPLY=($(compgen -W "${settings_keys}" -- "${cur}"))
            fi
            ;;
        completion)
            COMPREPLY=($(compgen -W "${shells}" -- "${cur}"))
            ;;
    esac
}

complete -F _restbench restbench
`
}

func generateZshCompletion() string {
	return `#compdef restbench

# zsh completion for restbench

_restbench() {
    local -a commands
    commands=(
        'send:Send a request, rendering {{variables}} from the selected environment'
        'history:List, search, delete or clear sent requests'
        'collection:Manage collections of saved requests'
        'env:Manage environments and the selected environment'
        'globals:Show or replace the global variables'
        'settings:Show or change preferences'
        'completion:Generate shell completion scripts'
        'version:Print version information'
        'help:Show help message'
    )

    _arguments -C \
        '1:command:->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe -t commands 'restbench commands' commands
            ;;
        args)
            case $words[1] in
                send)
                    _arguments \
                        '-X[Request method]:method:(GET POST PUT PATCH DELETE HEAD OPTIONS)' \
                        '*-H[Header as "Name: Value"]:header:' \
                        '*-F[Body field as key=value or key=@file]:field:' \
                        '-d[Request body data]:data:' \
                        '-mode[Body data mode]:mode:(params urlencoded raw)' \
                        '-history[Start from a history entry]:entry id:' \
                        '-request[Start from a saved request]:request id:' \
                        '-draft[Start from the last edited request]' \
                        '-link[Follow a link from the base request]:url:' \
                        '-save[Save to a collection]:collection id:' \
                        '-resave[Write back to the request given by -request]' \
                        '-new-collection[Save to a new collection]:name:' \
                        '-name[Name of the saved request]:name:' \
                        '-v[Show response headers]' \
                        '-color[Colorize JSON response bodies]' \
                        '1:url:'
                    ;;
                history)
                    _arguments \
                        '-curl[Show the entry as a curl command]' \
                        '-limit[Maximum number of suggestions]:limit:' \
                        '1:action:(list search suggest show delete clear)'
                    ;;
                collection)
                    _arguments \
                        '-format[Output format]:format:(json yaml curl)' \
                        '-o[Output file path]:output file:_files' \
                        '-name[New request name]:name:' \
                        '-description[New request description]:description:' \
                        '1:action:(list create rename delete requests show-request edit-request delete-request export import purge)' \
                        '*:argument:_files'
                    ;;
                env)
                    _arguments \
                        '-o[Output file path]:output file:_files' \
                        '1:action:(list create set rename delete select deselect show export import)' \
                        '*:argument:_files'
                    ;;
                globals)
                    _arguments '1:action:(show set clear)'
                    ;;
                settings)
                    _arguments \
                        '1:action:(list get set)' \
                        '2:key:(historyCount autoSaveRequest selectedEnvironmentId retainLinkHeaders useProxy proxyURL)'
                    ;;
                completion)
                    _arguments '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_restbench "$@"
`
}

func generateFishCompletion() string {
	return `# fish completion for restbench

complete -c restbench -f

# Subcommands
complete -c restbench -n '__fish_use_subcommand' -a send -d 'Send a request, rendering {{variables}} from the selected environment'
complete -c restbench -n '__fish_use_subcommand' -a history -d 'List, search, delete or clear sent requests'
complete -c restbench -n '__fish_use_subcommand' -a collection -d 'Manage collections of saved requests'
complete -c restbench -n '__fish_use_subcommand' -a env -d 'Manage environments and the selected environment'
complete -c restbench -n '__fish_use_subcommand' -a globals -d 'Show or replace the global variables'
complete -c restbench -n '__fish_use_subcommand' -a settings -d 'Show or change preferences'
complete -c restbench -n '__fish_use_subcommand' -a completion -d 'Generate shell completion scripts'
complete -c restbench -n '__fish_use_subcommand' -a version -d 'Print version information'
complete -c restbench -n '__fish_use_subcommand' -a help -d 'Show help message'

# send flags
complete -c restbench -n '__fish_seen_subcommand_from send' -o X -d 'Request method' -ra 'GET POST PUT PATCH DELETE HEAD OPTIONS'
complete -c restbench -n '__fish_seen_subcommand_from send' -o H -d 'Header as "Name: Value"' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o F -d 'Body field as key=value or key=@file' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o d -d 'Request body data' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o mode -d 'Body data mode' -ra 'params urlencoded raw'
complete -c restbench -n '__fish_seen_subcommand_from send' -o history -d 'Start from a history entry' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o request -d 'Start from a saved request' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o draft -d 'Start from the last edited request'
complete -c restbench -n '__fish_seen_subcommand_from send' -o link -d 'Follow a link from the base request' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o save -d 'Save to a collection' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o resave -d 'Write back to the request given by -request'
complete -c restbench -n '__fish_seen_subcommand_from send' -o new-collection -d 'Save to a new collection' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o name -d 'Name of the saved request' -r
complete -c restbench -n '__fish_seen_subcommand_from send' -o v -d 'Show response headers'
complete -c restbench -n '__fish_seen_subcommand_from send' -o color -d 'Colorize JSON response bodies'

# actions
complete -c restbench -n '__fish_seen_subcommand_from history' -a 'list search suggest show delete clear'
complete -c restbench -n '__fish_seen_subcommand_from collection' -a 'list create rename delete requests show-request edit-request delete-request export import purge'
complete -c restbench -n '__fish_seen_subcommand_from collection' -o format -d 'Output format' -ra 'json yaml curl'
complete -c restbench -n '__fish_seen_subcommand_from collection' -o o -d 'Output file path' -rF
complete -c restbench -n '__fish_seen_subcommand_from collection' -o name -d 'New request name' -r
complete -c restbench -n '__fish_seen_subcommand_from collection' -o description -d 'New request description' -r
complete -c restbench -n '__fish_seen_subcommand_from env' -a 'list create set rename delete select deselect show export import'
complete -c restbench -n '__fish_seen_subcommand_from env' -o o -d 'Output file path' -rF
complete -c restbench -n '__fish_seen_subcommand_from globals' -a 'show set clear'
complete -c restbench -n '__fish_seen_subcommand_from settings' -a 'list get set historyCount autoSaveRequest selectedEnvironmentId retainLinkHeaders useProxy proxyURL'

# completion - shell names
complete -c restbench -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish' -d 'Shell type'
`
}
