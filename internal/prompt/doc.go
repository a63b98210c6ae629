// Package prompt turns raw CLI input into a validated [api.Request].
//
// # Overview
//
// Callers describe where the text comes from with a [Source] and how it
// should be compressed with [Options], then call [Build]. Flag values are
// validated before any input is read, so an invalid --aggressiveness never
// consumes piped stdin.
//
// # Input precedence
//
//   - [Source.Args]  inline prompt words, joined with single spaces
//   - [Source.File]  a file path, read in full
//   - [Source.Stdin] read only when [Source.StdinIsTerminal] is false, so a
//     bare invocation on an interactive terminal fails fast with NoInput
//     instead of waiting for input
//
// The first non-empty source wins; later ones are ignored.
//
// # Aggressiveness presets
//
//   - [PresetLight]      0.2, preserves content
//   - [PresetModerate]   0.5, the default balance
//   - [PresetAggressive] 0.8, maximises token reduction
//
// [LevelFlags.Resolve] picks the effective value: an explicit custom value
// always wins over a preset, and among presets light beats moderate beats
// aggressive.
//
// # Basic usage
//
//	req, err := prompt.Build(prompt.Source{
//	    Args:            args,
//	    Stdin:           os.Stdin,
//	    StdinIsTerminal: term.IsTerminal(int(os.Stdin.Fd())),
//	}, prompt.Options{
//	    Aggressiveness: levels.Resolve(cfg.Aggressiveness),
//	    TimeoutSeconds: cfg.Timeout,
//	})
//	if err != nil {
//	    return err // apperr validation kind, no network I/O attempted
//	}
package prompt
