package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/staranto/layerctl/internal/meta"
	"github.com/urfave/cli/v3"
)

const bashCompletionScript = `# bash completion for layerctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_layerctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "build whoami completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--color -c --no-color --output -o --titles -t --no-titles --region --env-file --tldr"

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
            return 0
            ;;
        --arch|-a)
            COMPREPLY=( $(compgen -W "x86_64 arm64" -- "$cur") )
            return 0
            ;;
        --requirements|--req|--env-file)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
        --workdir|-w)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    case "$cmd" in
        build)
            local opts="$common --layer -l --runtime -r --requirements --req --arch -a --workdir -w --python --description --license --s3-bucket --s3-prefix --encoding --keep-zip --no-keep-zip --cache --no-cache"
            ;;
        whoami)
            local opts="$common"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _layerctl layerctl
`

const zshCompletionScript = `#compdef layerctl

_layerctl() {
  local -a cmds
  cmds=(
    'build:build and publish a Python dependency layer'
    'whoami:validate credentials and show the caller identity'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--region[AWS region]:region'
  '--env-file[credentials file]:file:_files'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'layerctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    build)
      _arguments -C \
        $common \
        '(-l --layer)'{-l,--layer}'[layer name]:name' \
        '(-r --runtime)'{-r,--runtime}'[python version]:version' \
        '(--req --requirements)'{--req,--requirements}'[requirements file]:file:_files' \
        '(-a --arch)'{-a,--arch}'[architecture]:arch:(x86_64 arm64)' \
        '(-w --workdir)'{-w,--workdir}'[working directory]:dir:_directories' \
        '--python[python interpreter]:python:_command_names' \
        '--description[layer description]:description' \
        '--license[license info]:license' \
        '--s3-bucket[staging bucket]:bucket' \
        '--s3-prefix[staging key prefix]:prefix' \
        '--encoding[pip output encoding]:encoding' \
        '--keep-zip[keep the archive]' \
        '--no-keep-zip[remove the archive]' \
        '--cache[use the pip cache]' \
        '--no-cache[skip the pip cache]'
      ;;
    whoami)
      _arguments -C $common
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _layerctl layerctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: layerctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "layerctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
