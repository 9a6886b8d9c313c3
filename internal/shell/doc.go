// Package shell connects POSIX shells to zoop.
//
// Off Windows there is no registry to hold PATH and the variables written
// by env_add_path and env_set, so the environment store is a JSON file
// and shells load it through activation:
//
//	eval "$(zoop activate bash)"
//	zoop activate fish | source
//
// The package detects the user's shell, renders the activation script
// from the environment stores and can add the activation line to the
// shell's rc file:
//   - bash: ~/.bashrc
//   - zsh: ~/.zshrc
//   - fish: ~/.config/fish/config.fish
//
// Rc file modifications are idempotent, optionally backed up and written
// through a temporary file and rename.
package shell
